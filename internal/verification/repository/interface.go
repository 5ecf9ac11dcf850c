// Package repository persists per-session phone verification attempts.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a verification attempt.
type Status string

const (
	StatusPending  Status = "pending"
	StatusSent     Status = "sent"
	StatusVerified Status = "verified"
	StatusFailed   Status = "failed"
	StatusExpired  Status = "expired"
)

// Attempt is the verification attempt for one session. Verification success
// is terminal and irreversible within the session.
type Attempt struct {
	SessionID    uuid.UUID
	Phone        string
	Status       Status
	AttemptCount int
	LastSentAt   time.Time
	UpdatedAt    time.Time
}

// Repository stores verification attempts keyed by session id.
type Repository interface {
	// Get returns the attempt for the session, or apperr.NotFound.
	Get(ctx context.Context, sessionID uuid.UUID) (Attempt, error)
	// Save upserts the attempt for its session.
	Save(ctx context.Context, attempt Attempt) error
}
