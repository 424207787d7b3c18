// Package handlers provides the HTTP handlers for jobs, callbacks, results
// and profiles.
//
// This file holds the response helpers every endpoint goes through. Errors
// always leave as an ErrorResponse with a stable code, and service errors
// are translated in one place (failService) by matching the sentinels in
// internal/services:
//
//   - validation and conflict errors echo a client-safe message (400/409)
//   - provider failures become 502 and are logged at warn
//   - storage and corrupt-record failures become 500 with a fixed message
//
// 5xx responses are logged through the request-scoped logger so the log
// line carries the request id the client sees in the envelope.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-enrich-backend/internal/http/middleware"
	"github.com/tbourn/go-enrich-backend/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"result not ready"`
}

// fail aborts the request with a structured error. Server errors (>=500) are
// logged with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get(middleware.HeaderRequestID),
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail for the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failService maps a service error onto the envelope. Client errors echo the
// service message; server errors get a fixed message and the cause is logged.
func failService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
	case errors.Is(err, services.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "not found")
	case errors.Is(err, services.ErrConflict):
		fail(c, http.StatusConflict, ErrCodeConflict, "Idempotency-Key was already used for a different domain")
	case errors.Is(err, services.ErrUpstream):
		middleware.LoggerFrom(c).Warn().Err(err).Msg("upstream failure")
		fail(c, http.StatusBadGateway, ErrCodeUpstreamFailed, "enrichment provider unavailable")
	case errors.Is(err, services.ErrCorruptResult):
		middleware.LoggerFrom(c).Error().Err(err).Msg("corrupt stored value")
		fail(c, http.StatusInternalServerError, ErrCodeCorruptResult, "stored result is unreadable")
	case errors.Is(err, services.ErrStorage):
		middleware.LoggerFrom(c).Error().Err(err).Msg("storage failure")
		fail(c, http.StatusInternalServerError, ErrCodeStorageFailed, "storage unavailable")
	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("unhandled service error")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal error")
	}
}

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
