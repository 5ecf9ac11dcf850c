// Package handler exposes the session module's HTTP endpoints.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"funnel_backend/internal/session/service"
	"funnel_backend/internal/session/transport"
	"funnel_backend/platform/httpkit"
	"funnel_backend/platform/validator"
)

const msgInvalidRequest = "invalid request"

// Handler handles HTTP requests for visitor sessions.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new session handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// GetOrCreate returns the stored session identity or creates a fresh one.
// POST /api/v1/sessions
func (h *Handler) GetOrCreate(c *gin.Context) {
	var req transport.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.GetOrCreate(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	if result.Created {
		httpkit.Created(c, result)
		return
	}
	httpkit.OK(c, result)
}
