// Profile HTTP handlers: anonymous staging, association after sign-in, and
// reading the durable profile back.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-enrich-backend/internal/domain"
	"github.com/tbourn/go-enrich-backend/internal/http/middleware"
)

// StageResponse carries the handle for a staged profile.
type StageResponse struct {
	TempID string `json:"tempId" example:"0b7e4d0a-7f62-4c55-a0d8-2a1f8a0f6a11"`
}

// AssociateRequest names the staged profile to bind to the caller.
type AssociateRequest struct {
	TempID string `json:"tempId" binding:"required" example:"0b7e4d0a-7f62-4c55-a0d8-2a1f8a0f6a11"`
}

// StageProfile godoc
// @ID          stageProfile
// @Summary     Stage an anonymous profile
// @Description Stores a flat field mapping for one hour and returns a temporary id to associate after sign-in.
// @Tags        Profiles
// @Accept      json
// @Produce     json
// @Param       body body object true "Profile fields" example({"companyName":"Acme","industry":"Software"})
// @Success     201 {object} handlers.StageResponse
// @Failure     400 {object} handlers.ErrorResponse "Body is not a JSON object of strings"
// @Failure     500 {object} handlers.ErrorResponse "Storage failure"
// @Router      /profiles/staged [post]
func (h *Handlers) StageProfile(c *gin.Context) {
	var p domain.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "profile must be a JSON object of strings")
		return
	}
	id, err := h.profiles.Stage(c.Request.Context(), p)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, StageResponse{TempID: id})
}

// AssociateProfile godoc
// @ID          associateProfile
// @Summary     Bind a staged profile to the caller
// @Description Moves the staged profile to the authenticated identity, replacing any profile it already had. The staged copy is removed.
// @Tags        Profiles
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body body handlers.AssociateRequest true "Staged profile id"
// @Success     204 {string} string "No Content"
// @Failure     400 {object} handlers.ErrorResponse "Missing tempId"
// @Failure     401 {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     404 {object} handlers.ErrorResponse "Staged profile expired or already used"
// @Failure     500 {object} handlers.ErrorResponse "Storage failure"
// @Router      /profiles/associate [post]
func (h *Handlers) AssociateProfile(c *gin.Context) {
	var req AssociateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "tempId is required")
		return
	}
	if err := h.profiles.Associate(c.Request.Context(), middleware.UserID(c), req.TempID); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}

// GetProfile godoc
// @ID          getProfile
// @Summary     Read the caller's profile
// @Tags        Profiles
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]string
// @Failure     401 {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     404 {object} handlers.ErrorResponse "No profile associated"
// @Failure     500 {object} handlers.ErrorResponse "Storage failure"
// @Router      /profile [get]
func (h *Handlers) GetProfile(c *gin.Context) {
	p, err := h.profiles.Profile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}
