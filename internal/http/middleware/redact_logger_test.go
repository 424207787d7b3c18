package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func lastLine(t *testing.T, s string) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(s), "\n")
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &m); err != nil {
		t.Fatalf("log line not JSON: %v (%s)", err, s)
	}
	return m
}

func TestRedactingLogger_MasksSecretsAndScrubsIDs(t *testing.T) {
	buf := withCapturedLogger(t)
	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}}))
	r.GET("/api/v1/results", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/results?correlationId=5f0c6f8e-1d2b-4c3a-9e8f-0123456789ab&email=jane@example.com", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	req.Header.Set(HeaderCallbackSecret, "shh")
	req.Header.Set("X-Api-Key", "k")
	req.Header.Set("X-Note", "call +1 212-555-1212")
	req.Header.Set(HeaderRequestID, "rid-1")
	do(r, req)

	out := buf.String()
	for _, leaked := range []string{"secret-token", "shh", "5f0c6f8e", "jane@example.com", "212-555-1212"} {
		if strings.Contains(out, leaked) {
			t.Fatalf("log leaked %q: %s", leaked, out)
		}
	}
	m := lastLine(t, out)
	if m["level"] != "warn" || m["path"] != "/api/v1/results" || m["request_id"] != "rid-1" {
		t.Fatalf("unexpected fields: %v", m)
	}
	headers, _ := m["headers"].(map[string]any)
	if headers["Authorization"] != "[REDACTED]" || headers["X-Callback-Secret"] != "[REDACTED]" || headers["X-Api-Key"] != "[REDACTED]" {
		t.Fatalf("headers not masked: %v", headers)
	}
}

func TestRedactingLogger_AttachesScopedLogger_AndLevels(t *testing.T) {
	buf := withCapturedLogger(t)
	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{}))
	r.GET("/ok", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("inside handler")
		c.Set(ctxKeyUserID, "user-7")
		c.Status(http.StatusOK)
	})
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(HeaderRequestID, "rid-ok")
	do(r, req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], `"request_id":"rid-ok"`) || !strings.Contains(lines[0], "inside handler") {
		t.Fatalf("handler log should carry the request id: %v", lines)
	}
	if m := lastLine(t, buf.String()); m["level"] != "info" || m["user_id"] != "user-7" {
		t.Fatalf("access line = %v", m)
	}

	buf.Reset()
	do(r, httptest.NewRequest(http.MethodGet, "/fail", nil))
	if m := lastLine(t, buf.String()); m["level"] != "error" {
		t.Fatalf("5xx should log at error, got %v", m["level"])
	}
}
