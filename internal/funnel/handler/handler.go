// Package handler exposes the funnel's HTTP endpoints.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"funnel_backend/internal/funnel/service"
	"funnel_backend/internal/funnel/transport"
	"funnel_backend/platform/httpkit"
)

const (
	msgInvalidRequest   = "invalid request"
	msgInvalidSessionID = "invalid session id"
)

// Handler handles HTTP requests for the funnel state machine.
type Handler struct {
	svc *service.Service
}

// New creates a new funnel handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// State returns the current funnel state for the session.
// GET /api/v1/funnel/state
func (h *Handler) State(c *gin.Context) {
	sessionID, ok := sessionID(c)
	if !ok {
		return
	}

	result, err := h.svc.State(c.Request.Context(), sessionID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Answer applies one answer to the current step.
// POST /api/v1/funnel/answers
func (h *Handler) Answer(c *gin.Context) {
	sessionID, ok := sessionID(c)
	if !ok {
		return
	}

	var req transport.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	value, err := req.Answer.ToDomain()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	result, err := h.svc.Answer(c.Request.Context(), sessionID, req.QuestionID, value)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Back navigates one step backward.
// POST /api/v1/funnel/back
func (h *Handler) Back(c *gin.Context) {
	sessionID, ok := sessionID(c)
	if !ok {
		return
	}

	result, err := h.svc.Back(c.Request.Context(), sessionID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Submit scores the completed answer set and submits the lead.
// POST /api/v1/funnel/submit
func (h *Handler) Submit(c *gin.Context) {
	sessionID, ok := sessionID(c)
	if !ok {
		return
	}

	result, err := h.svc.Submit(c.Request.Context(), sessionID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(httpkit.SessionID(c))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidSessionID, nil)
		return uuid.Nil, false
	}
	return id, true
}
