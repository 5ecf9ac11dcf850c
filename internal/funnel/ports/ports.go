// Package ports declares the interfaces the funnel module needs from other
// bounded contexts. Implementations are wired in the composition root.
package ports

import (
	"context"

	"funnel_backend/internal/funnel/domain"

	"github.com/google/uuid"
)

// SessionInfo is the slice of session identity the funnel needs at submission.
type SessionInfo struct {
	ID           uuid.UUID
	Variant      string
	EntryVariant string
	UTMSource    string
	UTMMedium    string
	UTMCampaign  string
}

// SessionReader resolves session identity for a funnel run.
type SessionReader interface {
	GetSession(ctx context.Context, sessionID uuid.UUID) (SessionInfo, error)
}

// VerificationGate reports whether a session's phone number is verified.
type VerificationGate interface {
	IsVerified(ctx context.Context, sessionID uuid.UUID) (bool, error)
}

// SubmitInput carries everything the lead submission orchestrator needs.
type SubmitInput struct {
	SubmissionID uuid.UUID
	Session      SessionInfo
	Contact      domain.Contact
	Answers      domain.AnswerSet
	Track        domain.Track
	Score        int
	MaxScore     int
	Percentile   int
	Band         string
}

// SubmitResult is the orchestrator's outcome. The visitor always receives a
// results route; Persisted is false only when durable persistence exhausted
// its retries and the lead was flagged for reconciliation.
type SubmitResult struct {
	SubmissionID uuid.UUID
	Persisted    bool
	ResultsRoute string
}

// LeadSubmitter hands the completed funnel off to the submission orchestrator.
type LeadSubmitter interface {
	Submit(ctx context.Context, in SubmitInput) (SubmitResult, error)
}
