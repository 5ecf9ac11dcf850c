// Package repository persists visitor sessions: identity, experiment variant
// assignments, and the one-shot attribution snapshot.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is the durable session row.
type Session struct {
	ID           uuid.UUID
	Variant      string
	EntryVariant string
	UTMSource    string
	UTMMedium    string
	UTMCampaign  string
	UTMReported  bool
	CreatedAt    time.Time
}

// Store is the session storage abstraction. A Postgres implementation backs
// normal operation; an in-memory implementation serves as the degraded
// fallback and as the test fake.
type Store interface {
	// Get returns the session, or apperr.NotFound.
	Get(ctx context.Context, id uuid.UUID) (Session, error)
	// Create inserts a new session. The id must not exist yet.
	Create(ctx context.Context, session Session) error
	// MarkUTMReported flips the one-shot attribution guard. It returns true
	// only for the single caller that performed the flip.
	MarkUTMReported(ctx context.Context, id uuid.UUID) (bool, error)
	// Clear removes a session. Used by tests and retention cleanup.
	Clear(ctx context.Context, id uuid.UUID) error
}
