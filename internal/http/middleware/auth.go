// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the two authentication gates. RequireIdentity checks a
// bearer token through a TokenVerifier and exposes the subject via UserID;
// profile association and lookup sit behind it. CallbackSecret compares
// X-Callback-Secret in constant time and guards the producer callback route
// when a secret is configured.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderCallbackSecret carries the shared secret on producer callbacks.
const HeaderCallbackSecret = "X-Callback-Secret"

// TokenVerifier validates a bearer token and returns its subject.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// UserID returns the identity set by RequireIdentity, or "".
func UserID(c *gin.Context) string { return c.GetString(ctxKeyUserID) }

// RequireIdentity admits requests with a valid "Authorization: Bearer" token
// and stores its subject for UserID. Anything else gets 401.
func RequireIdentity(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, token, found := strings.Cut(c.GetHeader("Authorization"), " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			unauthorized(c, "missing bearer token")
			return
		}
		sub, err := v.Verify(strings.TrimSpace(token))
		if err != nil {
			LoggerFrom(c).Warn().Err(err).Msg("rejected bearer token")
			unauthorized(c, "invalid bearer token")
			return
		}
		c.Set(ctxKeyUserID, sub)
		c.Next()
	}
}

// CallbackSecret admits requests whose X-Callback-Secret equals secret,
// compared in constant time.
func CallbackSecret(secret string) gin.HandlerFunc {
	want := []byte(secret)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(HeaderCallbackSecret))
		if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			unauthorized(c, "invalid callback secret")
			return
		}
		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.GetString(ctxKeyRequestID),
		"code":       "unauthorized",
		"message":    msg,
	})
}
