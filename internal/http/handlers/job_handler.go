// Enrichment job HTTP handlers.
//
// This file exposes the three legs of a job's life:
//   - POST /jobs       (dispatch; returns a correlation id)
//   - POST /callbacks  (producer delivers the completed payload)
//   - GET  /results    (client polls by correlation id)
//
// A 404 from /results means "not ready yet" and is the signal for the
// client to keep polling.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-enrich-backend/internal/domain"
	"github.com/tbourn/go-enrich-backend/internal/http/middleware"
)

// HeaderCorrelationID names the job a callback belongs to.
const HeaderCorrelationID = "X-Correlation-ID"

// DispatchRequest is the JSON payload for starting a job.
type DispatchRequest struct {
	// Domain is the company website to enrich, as an absolute http(s) URL.
	Domain string `json:"domain" binding:"required" example:"https://acme.com"`
}

// DispatchResponse carries the id to poll /results with.
type DispatchResponse struct {
	CorrelationID string `json:"correlationId" example:"5f0c6f8e-1d2b-4c3a-9e8f-0123456789ab"`
}

// CallbackResponse acknowledges a stored callback.
type CallbackResponse struct {
	Status string `json:"status" example:"stored"`
}

// DispatchJob godoc
// @ID          dispatchJob
// @Summary     Start enrichment of a company domain
// @Description Validates the domain, starts the fan-out and returns a correlation id without waiting for results. A repeated Idempotency-Key returns the original id with 200; reusing it for another domain is a 409.
// @Tags        Jobs
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key header string false "Client idempotency key" example(job-7f3a)
// @Param       body body handlers.DispatchRequest true "Domain to enrich"
// @Success     202 {object} handlers.DispatchResponse "Accepted"
// @Success     200 {object} handlers.DispatchResponse "Replayed"
// @Failure     400 {object} handlers.ErrorResponse "Invalid domain"
// @Failure     409 {object} handlers.ErrorResponse "Idempotency-Key reused for another domain"
// @Failure     429 {object} handlers.ErrorResponse "Too many requests"
// @Failure     500 {object} handlers.ErrorResponse "Storage failure"
// @Failure     502 {object} handlers.ErrorResponse "Enrichment provider unavailable"
// @Router      /jobs [post]
func (h *Handlers) DispatchJob(c *gin.Context) {
	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "domain is required")
		return
	}

	key, _ := middleware.GetIdempotencyKey(c)
	id, replayed, err := h.jobs.DispatchIdempotent(c.Request.Context(), key, req.Domain)
	if err != nil {
		failService(c, err)
		return
	}
	if replayed {
		c.Header(middleware.HeaderIdempotencyReplayed, "true")
		ok(c, http.StatusOK, DispatchResponse{CorrelationID: id})
		return
	}
	ok(c, http.StatusAccepted, DispatchResponse{CorrelationID: id})
}

// ReceiveCallback godoc
// @ID          receiveCallback
// @Summary     Deliver a completed enrichment payload
// @Description Stores the payload under the correlation id for one hour. A later callback for the same id replaces the earlier one.
// @Tags        Jobs
// @Accept      json
// @Produce     json
// @Param       X-Correlation-ID  header string true  "Correlation id issued by POST /jobs"
// @Param       X-Callback-Secret header string false "Shared producer secret"
// @Param       body body domain.JobPayload true "Completed job"
// @Success     200 {object} handlers.CallbackResponse
// @Failure     400 {object} handlers.ErrorResponse "Missing id or malformed payload"
// @Failure     401 {object} handlers.ErrorResponse "Bad callback secret"
// @Failure     500 {object} handlers.ErrorResponse "Storage failure"
// @Router      /callbacks [post]
func (h *Handlers) ReceiveCallback(c *gin.Context) {
	id := c.GetHeader(HeaderCorrelationID)
	if id == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "missing "+HeaderCorrelationID+" header")
		return
	}
	var p domain.JobPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed payload")
		return
	}
	if err := h.results.Receive(c.Request.Context(), id, p); err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, CallbackResponse{Status: "stored"})
}

// GetResult godoc
// @ID          getResult
// @Summary     Poll for a job result
// @Description Returns the stored payload, or 404 while the job is still running or after the result expired.
// @Tags        Jobs
// @Produce     json
// @Param       correlationId query string true "Correlation id" example(5f0c6f8e-1d2b-4c3a-9e8f-0123456789ab)
// @Success     200 {object} domain.JobPayload
// @Failure     400 {object} handlers.ErrorResponse "Missing or malformed id"
// @Failure     404 {object} handlers.ErrorResponse "Not ready"
// @Failure     500 {object} handlers.ErrorResponse "Stored result unreadable"
// @Router      /results [get]
func (h *Handlers) GetResult(c *gin.Context) {
	p, err := h.results.Get(c.Request.Context(), c.Query("correlationId"))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}
