package middleware

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestKeyByUserOrIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = net.JoinHostPort("203.0.113.9", "12345")
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req

	if got := KeyByUserOrIP()(c); got != "ip:203.0.113.9" {
		t.Fatalf("key = %q", got)
	}
	c.Set(ctxKeyUserID, "u123")
	if got := KeyByUserOrIP()(c); got != "user:u123" {
		t.Fatalf("key = %q", got)
	}
}

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, KeyByUserOrIP())
	r := gin.New()
	r.Use(RequestID(), rl.Handler())
	r.POST("/jobs", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = do(r, httptest.NewRequest(http.MethodPost, "/jobs", nil)).Code
	}
	if codes[0] != http.StatusAccepted || codes[1] != http.StatusAccepted || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}

	w := do(r, httptest.NewRequest(http.MethodPost, "/jobs", nil))
	if w.Header().Get("Retry-After") != "1" {
		t.Fatalf("missing Retry-After")
	}
}

func TestRateLimiter_ReplaysAreFree(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, KeyByUserOrIP())
	r := gin.New()
	r.Use(IdempotencyValidator(func(_ context.Context, key string) (bool, error) { return key == "seen", nil }))
	r.Use(rl.Handler())
	r.POST("/jobs", func(c *gin.Context) { c.Status(http.StatusOK) })

	_ = do(r, httptest.NewRequest(http.MethodPost, "/jobs", nil)) // spends the only token
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/jobs", nil)
		req.Header.Set(HeaderIdempotencyKey, "seen")
		if w := do(r, req); w.Code != http.StatusOK {
			t.Fatalf("replay %d limited: %d", i, w.Code)
		}
	}
}

func TestRateLimiter_SweepsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 1, KeyByUserOrIP())
	rl.ttl = time.Nanosecond
	rl.sweepEvery = 2

	first := rl.limiter("old")
	time.Sleep(time.Millisecond)
	_ = rl.limiter("other") // triggers the sweep
	if got := rl.limiter("old"); got == first {
		t.Fatalf("idle bucket should have been replaced")
	}
}
