// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file validates the Idempotency-Key header on POST /jobs. A valid key
// is stashed on the Gin context (GetIdempotencyKey) and, when the optional
// IdempotencyLookup reports it as already stored, the request is marked as a
// replay (IsReplay) so the rate limiter lets it through.
//
// The middleware only answers "have we seen this key". Whether the replay is
// honoured, and for which domain, is decided by the dispatcher that owns the
// stored record:
//
//	r.POST("/jobs",
//	    middleware.IdempotencyValidator(lookup),
//	    limiter.Handler(),
//	    h.DispatchJob)
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-enrich-backend/internal/ids"
)

// Idempotency headers. A replayed response carries HeaderIdempotencyReplayed.
const (
	HeaderIdempotencyKey      = "Idempotency-Key"
	HeaderIdempotencyReplayed = "Idempotency-Replayed"
)

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
)

// IdempotencyLookup reports whether key already produced a stored response.
// Errors are treated as "not seen".
type IdempotencyLookup func(ctx context.Context, key string) (bool, error)

// GetIdempotencyKey returns the validated Idempotency-Key, if any.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s := c.GetString(ctxKeyIdemKey)
	return s, s != ""
}

// IsReplay reports whether the request repeats a key lookup has seen.
func IsReplay(c *gin.Context) bool { return c.GetBool(ctxKeyIdemReplay) }

// IdempotencyValidator rejects malformed Idempotency-Key headers with 400 and
// stashes valid ones for handlers. When lookup finds the key, the request is
// flagged as a replay so the rate limiter lets it through; the handler still
// decides what to return. Requests without the header pass untouched.
func IdempotencyValidator(lookup IdempotencyLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if !ids.Valid(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.GetString(ctxKeyRequestID),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			if seen, err := lookup(c.Request.Context(), key); err == nil && seen {
				c.Set(ctxKeyIdemReplay, true)
			}
		}
		c.Next()
	}
}
