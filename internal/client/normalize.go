package client

import (
	"errors"
	"net"
	"net/url"
	"strings"

	"golang.org/x/text/cases"
)

// ErrInvalidDomain is returned by NormalizeDomain for input without a host.
var ErrInvalidDomain = errors.New("invalid domain")

var hostFolder = cases.Fold()

// NormalizeDomain turns user input such as "WWW.Acme.com/" into the canonical
// form the server expects ("https://acme.com"). The scheme defaults to https;
// the host is case-folded and loses a leading "www."; query, fragment and a
// trailing slash are dropped.
func NormalizeDomain(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrInvalidDomain
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Hostname() == "" {
		return "", ErrInvalidDomain
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", ErrInvalidDomain
	}

	host := strings.TrimPrefix(hostFolder.String(u.Hostname()), "www.")
	if host == "" {
		return "", ErrInvalidDomain
	}
	// Hostname drops the brackets of an IPv6 literal; put them back.
	switch port := u.Port(); {
	case port != "":
		host = net.JoinHostPort(host, port)
	case strings.Contains(host, ":"):
		host = "[" + host + "]"
	}
	return scheme + "://" + host + strings.TrimRight(u.EscapedPath(), "/"), nil
}
