// Package handler exposes the submission observability endpoints.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"funnel_backend/internal/submission/service"
	"funnel_backend/internal/submission/transport"
	"funnel_backend/platform/httpkit"
)

const msgInvalidSubmissionID = "invalid submission id"

// Handler handles HTTP requests for submitted leads.
type Handler struct {
	svc *service.Orchestrator
}

// New creates a new submission handler.
func New(svc *service.Orchestrator) *Handler {
	return &Handler{svc: svc}
}

// Deliveries returns the recorded downstream delivery outcomes for a lead.
// GET /api/v1/leads/:submissionID/deliveries
func (h *Handler) Deliveries(c *gin.Context) {
	submissionID, err := uuid.Parse(c.Param("submissionID"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidSubmissionID, nil)
		return
	}

	deliveries, err := h.svc.Deliveries(c.Request.Context(), submissionID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToDeliveryList(deliveries))
}
