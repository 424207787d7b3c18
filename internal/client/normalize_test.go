package client

import (
	"errors"
	"testing"
)

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"acme.com", "https://acme.com"},
		{"  WWW.Acme.COM/ ", "https://acme.com"},
		{"http://www.acme.com", "http://acme.com"},
		{"HTTPS://Acme.com/about/", "https://acme.com/about"},
		{"acme.com:8443/x?utm=1#top", "https://acme.com:8443/x"},
		{"https://shop.acme.co.uk", "https://shop.acme.co.uk"},
		{"https://[::1]:8080/", "https://[::1]:8080"},
		{"[2001:DB8::1]", "https://[2001:db8::1]"},
		{"http://[fe80::1]/status", "http://[fe80::1]/status"},
	}
	for _, tc := range tests {
		got, err := NormalizeDomain(tc.in)
		if err != nil {
			t.Errorf("NormalizeDomain(%q) error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("NormalizeDomain(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeDomain_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "ftp://acme.com", "https://", "https://www."} {
		if _, err := NormalizeDomain(in); !errors.Is(err, ErrInvalidDomain) {
			t.Errorf("NormalizeDomain(%q) = %v; want ErrInvalidDomain", in, err)
		}
	}
}
