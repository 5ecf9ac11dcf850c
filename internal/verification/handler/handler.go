// Package handler exposes the phone verification HTTP endpoints.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"funnel_backend/internal/verification/service"
	"funnel_backend/internal/verification/transport"
	"funnel_backend/platform/httpkit"
)

const (
	msgInvalidRequest   = "invalid request"
	msgInvalidSessionID = "invalid session id"
)

// Handler handles HTTP requests for phone verification.
type Handler struct {
	svc *service.Service
}

// New creates a new verification handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RequestCode dispatches a one-time code to the given phone number.
// POST /api/v1/funnel/verification/request
func (h *Handler) RequestCode(c *gin.Context) {
	sessionID, ok := sessionID(c)
	if !ok {
		return
	}

	var req transport.RequestCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.svc.RequestCode(c.Request.Context(), sessionID, req.Phone); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.StatusResponse{Status: "sent"})
}

// Resend dispatches a fresh code after the cooldown window.
// POST /api/v1/funnel/verification/resend
func (h *Handler) Resend(c *gin.Context) {
	sessionID, ok := sessionID(c)
	if !ok {
		return
	}

	if err := h.svc.Resend(c.Request.Context(), sessionID); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.StatusResponse{Status: "sent"})
}

// VerifyCode checks the visitor-entered code.
// POST /api/v1/funnel/verification/verify
func (h *Handler) VerifyCode(c *gin.Context) {
	sessionID, ok := sessionID(c)
	if !ok {
		return
	}

	var req transport.VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.svc.VerifyCode(c.Request.Context(), sessionID, req.Code); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.StatusResponse{Status: "verified"})
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(httpkit.SessionID(c))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidSessionID, nil)
		return uuid.Nil, false
	}
	return id, true
}
