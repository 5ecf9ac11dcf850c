// Package repository persists per-session funnel progress.
package repository

import (
	"context"

	"funnel_backend/internal/funnel/domain"

	"github.com/google/uuid"
)

// Repository stores and retrieves funnel state keyed by session id.
type Repository interface {
	// Get returns the state for the session, or apperr.NotFound.
	Get(ctx context.Context, sessionID uuid.UUID) (*domain.FunnelState, error)
	// Save upserts the state for its session.
	Save(ctx context.Context, state *domain.FunnelState) error
}
