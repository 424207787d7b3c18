package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_LabelsByRoute(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/api/v1/results", func(c *gin.Context) { c.String(http.StatusOK, "{}") })

	baseOK := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/api/v1/results", "200"))
	baseMiss := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "unmatched", "404"))

	do(r, httptest.NewRequest(http.MethodGet, "/api/v1/results?correlationId=abc", nil))
	do(r, httptest.NewRequest(http.MethodGet, "/random/abc", nil))

	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/api/v1/results", "200")); got != baseOK+1 {
		t.Fatalf("route counter = %v; want %v", got, baseOK+1)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "unmatched", "404")); got != baseMiss+1 {
		t.Fatalf("unmatched counter = %v; want %v", got, baseMiss+1)
	}
	if got := testutil.ToFloat64(httpInflight); got != 0 {
		t.Fatalf("inflight = %v after requests finished", got)
	}
	if n := testutil.CollectAndCount(httpLat); n == 0 {
		t.Fatalf("expected latency observations")
	}
}
