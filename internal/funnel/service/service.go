// Package service implements the funnel's step state machine: applying
// answers, navigating backward, gating on phone verification, and handing the
// completed run to the submission orchestrator.
package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"funnel_backend/internal/events"
	"funnel_backend/internal/funnel/definition"
	"funnel_backend/internal/funnel/domain"
	"funnel_backend/internal/funnel/engine"
	"funnel_backend/internal/funnel/ports"
	"funnel_backend/internal/funnel/repository"
	"funnel_backend/internal/funnel/transport"
	"funnel_backend/internal/scoring"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/validator"
)

// VerificationPolicy exposes the global bypass toggle.
type VerificationPolicy interface {
	GetSkipPhoneVerification() bool
}

// Service drives a session's funnel run.
type Service struct {
	defs      *definition.Registry
	repo      repository.Repository
	sessions  ports.SessionReader
	gate      ports.VerificationGate
	submitter ports.LeadSubmitter
	policy    VerificationPolicy
	val       *validator.Validator
	bus       events.Bus
	log       *logger.Logger
}

// New creates a new funnel service.
func New(
	defs *definition.Registry,
	repo repository.Repository,
	sessions ports.SessionReader,
	gate ports.VerificationGate,
	submitter ports.LeadSubmitter,
	policy VerificationPolicy,
	val *validator.Validator,
	bus events.Bus,
	log *logger.Logger,
) *Service {
	return &Service{
		defs:      defs,
		repo:      repo,
		sessions:  sessions,
		gate:      gate,
		submitter: submitter,
		policy:    policy,
		val:       val,
		bus:       bus,
		log:       log,
	}
}

// State returns the current funnel state for a session, creating the initial
// state on the primary track for sessions that have not started yet.
func (s *Service) State(ctx context.Context, sessionID uuid.UUID) (transport.StateResponse, error) {
	state, err := s.loadOrCreate(ctx, sessionID)
	if err != nil {
		return transport.StateResponse{}, err
	}
	if err := s.releaseIfVerified(ctx, state); err != nil {
		return transport.StateResponse{}, err
	}
	return s.toResponse(state)
}

// Answer validates and applies one answer, recomputes the active sequence,
// and advances the state machine. A constraint violation is rejected with a
// validation error and causes no state transition.
func (s *Service) Answer(ctx context.Context, sessionID uuid.UUID, questionID string, value domain.AnswerValue) (transport.StateResponse, error) {
	state, err := s.loadOrCreate(ctx, sessionID)
	if err != nil {
		return transport.StateResponse{}, err
	}
	if err := s.releaseIfVerified(ctx, state); err != nil {
		return transport.StateResponse{}, err
	}

	switch state.Phase {
	case domain.PhaseCollecting:
	case domain.PhaseAwaitingVerification:
		return transport.StateResponse{}, apperr.Conflict("phone verification pending")
	default:
		return transport.StateResponse{}, apperr.Conflict("funnel already completed")
	}

	def, err := s.defs.Get(state.Track)
	if err != nil {
		return transport.StateResponse{}, apperr.Wrap(apperr.KindInternal, "unknown track", err)
	}

	sequence := engine.ActiveSequence(def, state.Answers)
	state.StepIndex = engine.ClampIndex(state.StepIndex, len(sequence))

	position := engine.IndexOf(sequence, questionID)
	if position == -1 {
		return transport.StateResponse{}, apperr.Validation("question is not part of the active sequence")
	}
	if position != state.StepIndex {
		return transport.StateResponse{}, apperr.Validation("answer does not match the current step")
	}

	spec := sequence[position]
	if err := value.ValidateAgainst(spec); err != nil {
		return transport.StateResponse{}, apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}
	if spec.Kind == domain.KindContactForm {
		if err := s.val.Var(value.Contact.Email, "required,email"); err != nil {
			return transport.StateResponse{}, apperr.Validation("a valid email address is required")
		}
	}

	// Track switches restart the funnel: the two tracks ask structurally
	// different questions, so prior answers are invalidated wholesale.
	if target, ok := engine.SwitchTarget(spec, value); ok && target != state.Track {
		from := state.Track
		state.ResetForTrack(target)
		if err := s.repo.Save(ctx, state); err != nil {
			return transport.StateResponse{}, apperr.Wrap(apperr.KindInternal, "failed to save funnel state", err)
		}
		s.bus.Publish(ctx, events.TrackSwitched{
			BaseEvent: events.NewBaseEvent(),
			SessionID: sessionID,
			FromTrack: string(from),
			ToTrack:   string(target),
		})
		return s.toResponse(state)
	}

	state.Answers[questionID] = value

	// Conditional predicates are re-evaluated synchronously after every
	// answer so the visitor never sees a stale sequence.
	sequence = engine.ActiveSequence(def, state.Answers)
	state.StepIndex = engine.ClampIndex(engine.IndexOf(sequence, questionID)+1, len(sequence))

	if spec.Kind == domain.KindPhoneCapture && s.verificationRequired(def) {
		verified, err := s.gate.IsVerified(ctx, sessionID)
		if err != nil {
			return transport.StateResponse{}, apperr.Wrap(apperr.KindInternal, "failed to check verification", err)
		}
		if !verified {
			// Progression past the phone step is gated strictly on a
			// verified attempt; the index stays on the phone question.
			state.StepIndex = position
			state.Phase = domain.PhaseAwaitingVerification
		}
	}

	if state.Phase == domain.PhaseCollecting && state.StepIndex >= len(sequence) {
		state.Phase = domain.PhaseScoring
	}

	if err := s.repo.Save(ctx, state); err != nil {
		return transport.StateResponse{}, apperr.Wrap(apperr.KindInternal, "failed to save funnel state", err)
	}

	variant := ""
	if session, err := s.sessions.GetSession(ctx, sessionID); err == nil {
		variant = session.Variant
	}
	s.bus.Publish(ctx, events.StepAnswered{
		BaseEvent:  events.NewBaseEvent(),
		SessionID:  sessionID,
		Variant:    variant,
		Track:      string(state.Track),
		QuestionID: questionID,
		StepIndex:  position,
	})

	return s.toResponse(state)
}

// Back decrements the step index without deleting the answer of the step
// being left. Backward navigation is permitted only while collecting.
func (s *Service) Back(ctx context.Context, sessionID uuid.UUID) (transport.StateResponse, error) {
	state, err := s.loadOrCreate(ctx, sessionID)
	if err != nil {
		return transport.StateResponse{}, err
	}

	if state.Phase != domain.PhaseCollecting && state.Phase != domain.PhaseScoring {
		return transport.StateResponse{}, apperr.Conflict("cannot navigate back in the current phase")
	}
	if state.StepIndex == 0 {
		return transport.StateResponse{}, apperr.Validation("already at the first step")
	}

	state.StepIndex--
	state.Phase = domain.PhaseCollecting
	if err := s.repo.Save(ctx, state); err != nil {
		return transport.StateResponse{}, apperr.Wrap(apperr.KindInternal, "failed to save funnel state", err)
	}

	return s.toResponse(state)
}

// ConfirmVerified advances a session out of the verification gate. Called when
// the verification subsystem reports success for the session.
func (s *Service) ConfirmVerified(ctx context.Context, sessionID uuid.UUID) error {
	state, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if state.Phase != domain.PhaseAwaitingVerification {
		return nil
	}
	return s.advanceVerified(ctx, state)
}

// releaseIfVerified re-checks the gate for sessions parked behind phone
// verification. The verified attempt is durable while the release event is
// not, so the gate is re-consulted on every read and the session self-heals
// even when the event delivery was lost.
func (s *Service) releaseIfVerified(ctx context.Context, state *domain.FunnelState) error {
	if state.Phase != domain.PhaseAwaitingVerification {
		return nil
	}

	verified, err := s.gate.IsVerified(ctx, state.SessionID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to check verification", err)
	}
	if !verified {
		return nil
	}
	return s.advanceVerified(ctx, state)
}

// advanceVerified moves a state past the phone question once the gate reports
// verified.
func (s *Service) advanceVerified(ctx context.Context, state *domain.FunnelState) error {
	def, err := s.defs.Get(state.Track)
	if err != nil {
		return err
	}

	sequence := engine.ActiveSequence(def, state.Answers)
	state.Phase = domain.PhaseCollecting
	state.StepIndex = engine.ClampIndex(state.StepIndex+1, len(sequence))
	if state.StepIndex >= len(sequence) {
		state.Phase = domain.PhaseScoring
	}

	return s.repo.Save(ctx, state)
}

// Submit runs scoring and hands the completed answer set to the submission
// orchestrator. The visitor always receives a results route, regardless of
// which downstream deliveries fail.
func (s *Service) Submit(ctx context.Context, sessionID uuid.UUID) (transport.SubmitResponse, error) {
	state, err := s.loadOrCreate(ctx, sessionID)
	if err != nil {
		return transport.SubmitResponse{}, err
	}
	if err := s.releaseIfVerified(ctx, state); err != nil {
		return transport.SubmitResponse{}, err
	}

	def, err := s.defs.Get(state.Track)
	if err != nil {
		return transport.SubmitResponse{}, apperr.Wrap(apperr.KindInternal, "unknown track", err)
	}

	switch state.Phase {
	case domain.PhaseScoring, domain.PhaseSubmitting:
	case domain.PhaseDone:
		// Idempotent retry: replay the terminal result.
	default:
		return transport.SubmitResponse{}, apperr.Conflict("funnel is not complete")
	}

	contact, ok := state.Answers.FindContact()
	if !ok {
		return transport.SubmitResponse{}, apperr.Validation("contact details are missing")
	}

	if s.verificationRequired(def) {
		verified, err := s.gate.IsVerified(ctx, sessionID)
		if err != nil {
			return transport.SubmitResponse{}, apperr.Wrap(apperr.KindInternal, "failed to check verification", err)
		}
		if !verified {
			return transport.SubmitResponse{}, apperr.Conflict("phone verification required before submission")
		}
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return transport.SubmitResponse{}, err
	}

	score, maxScore := scoring.Score(def, state.Answers)
	outcome := scoring.Route(score, maxScore)

	// The submission id is minted once per session and reused on retries so
	// downstream systems can deduplicate.
	if state.SubmissionID == nil {
		submissionID := uuid.New()
		state.SubmissionID = &submissionID
	}
	state.Phase = domain.PhaseSubmitting
	if err := s.repo.Save(ctx, state); err != nil {
		return transport.SubmitResponse{}, apperr.Wrap(apperr.KindInternal, "failed to save funnel state", err)
	}

	result, err := s.submitter.Submit(ctx, ports.SubmitInput{
		SubmissionID: *state.SubmissionID,
		Session:      session,
		Contact:      contact,
		Answers:      state.Answers.Clone(),
		Track:        state.Track,
		Score:        score,
		MaxScore:     maxScore,
		Percentile:   outcome.Percentile,
		Band:         string(outcome.Band),
	})
	if err != nil {
		return transport.SubmitResponse{}, err
	}

	state.Phase = domain.PhaseDone
	if err := s.repo.Save(ctx, state); err != nil {
		// The lead is already durably recorded; log and continue so the
		// visitor still reaches their result.
		s.log.DatabaseError("save funnel state after submit", err)
	}

	s.bus.Publish(ctx, events.QuizCompleted{
		BaseEvent:    events.NewBaseEvent(),
		SessionID:    sessionID,
		SubmissionID: result.SubmissionID,
		Variant:      session.Variant,
		Band:         string(outcome.Band),
		Percentile:   outcome.Percentile,
	})

	return transport.SubmitResponse{
		SubmissionID: result.SubmissionID.String(),
		Score:        score,
		MaxScore:     maxScore,
		Percentile:   outcome.Percentile,
		Band:         string(outcome.Band),
		ResultsRoute: result.ResultsRoute,
	}, nil
}

func (s *Service) verificationRequired(def *domain.TrackDefinition) bool {
	if s.policy.GetSkipPhoneVerification() {
		return false
	}
	return def.RequirePhoneVerification
}

func (s *Service) loadOrCreate(ctx context.Context, sessionID uuid.UUID) (*domain.FunnelState, error) {
	state, err := s.repo.Get(ctx, sessionID)
	if err == nil {
		return state, nil
	}

	var domainErr *apperr.Error
	if !errors.As(err, &domainErr) || domainErr.Kind != apperr.KindNotFound {
		return nil, err
	}

	state = domain.NewFunnelState(sessionID, domain.TrackPrimary)
	if err := s.repo.Save(ctx, state); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to create funnel state", err)
	}
	return state, nil
}

func (s *Service) toResponse(state *domain.FunnelState) (transport.StateResponse, error) {
	def, err := s.defs.Get(state.Track)
	if err != nil {
		return transport.StateResponse{}, apperr.Wrap(apperr.KindInternal, "unknown track", err)
	}

	sequence := engine.ActiveSequence(def, state.Answers)
	index := engine.ClampIndex(state.StepIndex, len(sequence))

	questions := make([]transport.QuestionView, 0, len(sequence))
	for _, q := range sequence {
		_, answered := state.Answers[q.ID]
		questions = append(questions, transport.ToQuestionView(q, answered))
	}

	resp := transport.StateResponse{
		Track:      string(state.Track),
		Phase:      string(state.Phase),
		StepIndex:  index,
		TotalSteps: len(sequence),
		Questions:  questions,
	}
	if index < len(sequence) {
		current := transport.ToQuestionView(sequence[index], false)
		resp.Current = &current
	}
	return resp, nil
}
