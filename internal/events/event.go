// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"funnel_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Session Domain Events
// =============================================================================

// SessionStarted is published when a new visitor session is created.
type SessionStarted struct {
	BaseEvent
	SessionID    uuid.UUID `json:"sessionId"`
	Variant      string    `json:"variant"`
	EntryVariant string    `json:"entryVariant"`
}

func (e SessionStarted) EventName() string { return "session.started" }

// UTMCaptured is published at most once per session when campaign attribution
// parameters are stored. The one-shot guard lives in the session store.
type UTMCaptured struct {
	BaseEvent
	SessionID uuid.UUID `json:"sessionId"`
	Source    string    `json:"source"`
	Medium    string    `json:"medium"`
	Campaign  string    `json:"campaign"`
}

func (e UTMCaptured) EventName() string { return "session.utm.captured" }

// =============================================================================
// Funnel Domain Events
// =============================================================================

// StepAnswered is published when a visitor answers a funnel question.
type StepAnswered struct {
	BaseEvent
	SessionID  uuid.UUID `json:"sessionId"`
	Variant    string    `json:"variant"`
	Track      string    `json:"track"`
	QuestionID string    `json:"questionId"`
	StepIndex  int       `json:"stepIndex"`
}

func (e StepAnswered) EventName() string { return "funnel.step.answered" }

// TrackSwitched is published when a qualifying answer replaces the active
// question track. The step index and answer set are reset at this point.
type TrackSwitched struct {
	BaseEvent
	SessionID uuid.UUID `json:"sessionId"`
	FromTrack string    `json:"fromTrack"`
	ToTrack   string    `json:"toTrack"`
}

func (e TrackSwitched) EventName() string { return "funnel.track.switched" }

// =============================================================================
// Verification Domain Events
// =============================================================================

// VerificationCodeSent is published when an OTP dispatch succeeds.
type VerificationCodeSent struct {
	BaseEvent
	SessionID uuid.UUID `json:"sessionId"`
	Phone     string    `json:"phone"`
	Resend    bool      `json:"resend"`
}

func (e VerificationCodeSent) EventName() string { return "verification.code.sent" }

// PhoneVerified is published when a visitor's phone number is confirmed.
// Verification is terminal for the session.
type PhoneVerified struct {
	BaseEvent
	SessionID uuid.UUID `json:"sessionId"`
	Phone     string    `json:"phone"`
}

func (e PhoneVerified) EventName() string { return "verification.phone.verified" }

// =============================================================================
// Submission Domain Events
// =============================================================================

// LeadSubmitted is published after the lead record has been durably persisted
// (or flagged unsent after exhausted retries).
type LeadSubmitted struct {
	BaseEvent
	SessionID    uuid.UUID `json:"sessionId"`
	SubmissionID uuid.UUID `json:"submissionId"`
	Variant      string    `json:"variant"`
	Track        string    `json:"track"`
	Score        int       `json:"score"`
	Persisted    bool      `json:"persisted"`
}

func (e LeadSubmitted) EventName() string { return "submission.lead.submitted" }

// QuizCompleted is published when the visitor reaches the Done state and a
// results route is available.
type QuizCompleted struct {
	BaseEvent
	SessionID    uuid.UUID `json:"sessionId"`
	SubmissionID uuid.UUID `json:"submissionId"`
	Variant      string    `json:"variant"`
	Band         string    `json:"band"`
	Percentile   int       `json:"percentile"`
}

func (e QuizCompleted) EventName() string { return "submission.quiz.completed" }
