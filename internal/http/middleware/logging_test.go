package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ctxKeyRequestID)) })

	w := do(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	if got := w.Header().Get(HeaderRequestID); got == "" || got != w.Body.String() {
		t.Fatalf("generated id header=%q body=%q", got, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "rid-123")
	w = do(r, req)
	if w.Header().Get(HeaderRequestID) != "rid-123" || w.Body.String() != "rid-123" {
		t.Fatalf("incoming id not reused: %q", w.Header().Get(HeaderRequestID))
	}
}

func TestRecovery_PanicBecomesJSON500(t *testing.T) {
	buf := withCapturedLogger(t)
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(HeaderRequestID, "rid-p")
	w := do(r, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body["code"] != "internal_error" || body["request_id"] != "rid-p" {
		t.Fatalf("body = %v", body)
	}
	if !strings.Contains(buf.String(), "panic recovered") || !strings.Contains(buf.String(), "kaboom") {
		t.Fatalf("panic not logged: %s", buf.String())
	}
}

func TestRecovery_AfterPartialWrite_KeepsBody(t *testing.T) {
	_ = withCapturedLogger(t)
	r := gin.New()
	r.Use(Recovery())
	r.GET("/half", func(c *gin.Context) {
		c.String(http.StatusOK, "partial")
		panic("late")
	})
	w := do(r, httptest.NewRequest(http.MethodGet, "/half", nil))
	if w.Body.String() != "partial" {
		t.Fatalf("body = %q", w.Body.String())
	}
}

func TestLoggerFrom_FallbackAndScoped(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	if LoggerFrom(c) == nil {
		t.Fatalf("fallback logger must not be nil")
	}
	l := zerolog.Nop()
	c.Set(ctxKeyLogger, &l)
	if LoggerFrom(c) != &l {
		t.Fatalf("expected the request-scoped logger")
	}
	c.Set(ctxKeyLogger, "not a logger")
	if LoggerFrom(c) == nil {
		t.Fatalf("wrong type must fall back")
	}
}
