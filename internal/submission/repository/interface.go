// Package repository persists submitted leads and their delivery statuses.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"funnel_backend/internal/funnel/domain"
)

// Lead is the durable record of one completed funnel run. SubmissionID is the
// idempotency key; a session produces at most one lead.
type Lead struct {
	SubmissionID uuid.UUID
	SessionID    uuid.UUID
	Variant      string
	EntryVariant string
	Track        string
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	Answers      domain.AnswerSet
	Score        int
	MaxScore     int
	Percentile   int
	Band         string
	UTMSource    string
	UTMMedium    string
	UTMCampaign  string
	Unsent       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Destination names a downstream delivery target.
type Destination string

const (
	DestinationCRM      Destination = "crm"
	DestinationTracking Destination = "tracking"
)

// DeliveryState is the outcome of one downstream delivery attempt.
type DeliveryState string

const (
	DeliveryDelivered DeliveryState = "delivered"
	DeliveryFailed    DeliveryState = "failed"
)

// Delivery records the outcome of one downstream delivery attempt.
type Delivery struct {
	ID           int64
	SubmissionID uuid.UUID
	Destination  Destination
	State        DeliveryState
	Detail       string
	RecordedAt   time.Time
}

// Repository stores leads keyed by submission id.
type Repository interface {
	// Upsert inserts the lead or replaces it when the submission id exists.
	Upsert(ctx context.Context, lead Lead) error
	// GetBySubmissionID returns the lead, or apperr.NotFound.
	GetBySubmissionID(ctx context.Context, submissionID uuid.UUID) (Lead, error)
	// GetBySessionID returns the session's lead, or apperr.NotFound.
	GetBySessionID(ctx context.Context, sessionID uuid.UUID) (Lead, error)
	// RecordDelivery appends a delivery outcome for a submission.
	RecordDelivery(ctx context.Context, delivery Delivery) error
	// ListDeliveries returns all delivery outcomes for a submission,
	// oldest first.
	ListDeliveries(ctx context.Context, submissionID uuid.UUID) ([]Delivery, error)
}
