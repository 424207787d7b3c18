package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestIdempotencyValidator(t *testing.T) {
	var looked []string
	lookup := func(_ context.Context, key string) (bool, error) {
		looked = append(looked, key)
		switch key {
		case "seen":
			return true, nil
		case "broken":
			return true, errors.New("store down")
		}
		return false, nil
	}

	r := gin.New()
	r.Use(IdempotencyValidator(lookup))
	r.POST("/jobs", func(c *gin.Context) {
		key, _ := GetIdempotencyKey(c)
		c.JSON(http.StatusOK, gin.H{"key": key, "replay": IsReplay(c)})
	})

	cases := []struct {
		name, header string
		wantCode     int
		wantBody     string
	}{
		{"absent", "", http.StatusOK, `{"key":"","replay":false}`},
		{"fresh", "k-1", http.StatusOK, `{"key":"k-1","replay":false}`},
		{"seen", "seen", http.StatusOK, `{"key":"seen","replay":true}`},
		{"lookup error is not a replay", "broken", http.StatusOK, `{"key":"broken","replay":false}`},
		{"bad characters", "has space", http.StatusBadRequest, `"code":"bad_idempotency_key"`},
		{"too long", strings.Repeat("a", 200), http.StatusBadRequest, `"code":"bad_idempotency_key"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/jobs", nil)
			if tc.header != "" {
				req.Header.Set(HeaderIdempotencyKey, tc.header)
			}
			w := do(r, req)
			if w.Code != tc.wantCode || !strings.Contains(w.Body.String(), tc.wantBody) {
				t.Fatalf("got %d %s; want %d containing %s", w.Code, w.Body.String(), tc.wantCode, tc.wantBody)
			}
		})
	}
	for _, k := range looked {
		if k == "" || k == "has space" {
			t.Fatalf("lookup must only see valid keys, saw %q", k)
		}
	}
}

func TestIdempotencyValidator_NilLookup(t *testing.T) {
	r := gin.New()
	r.Use(IdempotencyValidator(nil))
	r.POST("/jobs", func(c *gin.Context) {
		if IsReplay(c) {
			t.Errorf("no lookup means no replay")
		}
		c.Status(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodPost, "/jobs", nil)
	req.Header.Set(HeaderIdempotencyKey, "k")
	if w := do(r, req); w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
}
