package domain

import (
	"time"

	"github.com/google/uuid"
)

// Phase is the visitor-visible state of the funnel for one session.
type Phase string

const (
	// PhaseCollecting covers the interactive question loop.
	PhaseCollecting Phase = "collecting"
	// PhaseAwaitingVerification blocks progression until the phone is verified.
	PhaseAwaitingVerification Phase = "awaiting_verification"
	// PhaseScoring means all required answers are present.
	PhaseScoring Phase = "scoring"
	// PhaseSubmitting means the terminal submission is in progress.
	PhaseSubmitting Phase = "submitting"
	// PhaseDone means results are available.
	PhaseDone Phase = "done"
)

// FunnelState is the single mutable structure recording a session's progress:
// the active track, the current index into the filtered sequence, the answers
// collected so far, and the submission id once minted.
type FunnelState struct {
	SessionID    uuid.UUID
	Track        Track
	Phase        Phase
	StepIndex    int
	Answers      AnswerSet
	SubmissionID *uuid.UUID
	UpdatedAt    time.Time
}

// NewFunnelState creates the initial state for a session on the given track.
func NewFunnelState(sessionID uuid.UUID, track Track) *FunnelState {
	return &FunnelState{
		SessionID: sessionID,
		Track:     track,
		Phase:     PhaseCollecting,
		StepIndex: 0,
		Answers:   make(AnswerSet),
	}
}

// ResetForTrack restarts the state on a new track. A track switch invalidates
// prior answers because the two tracks ask structurally different questions.
func (s *FunnelState) ResetForTrack(track Track) {
	s.Track = track
	s.Phase = PhaseCollecting
	s.StepIndex = 0
	s.Answers = make(AnswerSet)
	s.SubmissionID = nil
}
