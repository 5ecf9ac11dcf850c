// Package service implements the phone verification protocol: code dispatch,
// cooldown-guarded resends, and bounded code checks against the SMS provider.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"funnel_backend/internal/events"
	"funnel_backend/internal/verification/provider"
	"funnel_backend/internal/verification/repository"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/config"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/phone"
)

const (
	msgInvalidPhoneFormat  = "invalid phone number format"
	msgCooldownActive      = "resend cooldown active"
	msgCodeMismatch        = "verification code does not match"
	msgMaxAttemptsExceeded = "maximum verification attempts exceeded; request a new code"
	msgNoCodeOutstanding   = "no verification code outstanding"
	msgDispatchFailed      = "failed to dispatch verification code"
	msgCheckFailed         = "failed to check verification code"
)

// Service drives the per-session verification attempt state.
type Service struct {
	repo     repository.Repository
	provider provider.Provider
	cfg      config.VerificationConfig
	bus      events.Bus
	log      *logger.Logger
	now      func() time.Time
}

// New creates a new verification service.
func New(repo repository.Repository, prov provider.Provider, cfg config.VerificationConfig, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		provider: prov,
		cfg:      cfg,
		bus:      bus,
		log:      log,
		now:      time.Now,
	}
}

// WithClock overrides the service clock. Used by tests to control cooldowns.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RequestCode normalizes the phone number, dispatches a one-time code, and
// records the attempt. A number that cannot be normalized fails fast without
// any provider call; a dispatch failure is recoverable and never advances the
// funnel's step state.
func (s *Service) RequestCode(ctx context.Context, sessionID uuid.UUID, rawPhone string) error {
	normalized, err := phone.NormalizeE164Strict(rawPhone)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, msgInvalidPhoneFormat, err)
	}

	if attempt, err := s.repo.Get(ctx, sessionID); err == nil && attempt.Status == repository.StatusVerified {
		return apperr.Conflict("phone already verified for this session")
	}

	if _, err := s.provider.SendCode(ctx, normalized); err != nil {
		s.log.Error("verification dispatch failed", "session_id", sessionID, "error", err)
		return apperr.Wrap(apperr.KindUnavailable, msgDispatchFailed, err)
	}

	attempt := repository.Attempt{
		SessionID:    sessionID,
		Phone:        normalized,
		Status:       repository.StatusSent,
		AttemptCount: 0,
		LastSentAt:   s.now(),
	}
	if err := s.repo.Save(ctx, attempt); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to record verification attempt", err)
	}

	s.log.VerificationEvent("code_sent", sessionID.String(), 0)
	s.bus.Publish(ctx, events.VerificationCodeSent{
		BaseEvent: events.NewBaseEvent(),
		SessionID: sessionID,
		Phone:     normalized,
	})

	return nil
}

// Resend dispatches a fresh code for an existing attempt. It is permitted only
// after the cooldown window since the last dispatch; the returned error
// carries the remaining wait time.
func (s *Service) Resend(ctx context.Context, sessionID uuid.UUID) error {
	attempt, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if attempt.Status == repository.StatusVerified {
		return apperr.Conflict("phone already verified for this session")
	}

	cooldown := s.cfg.GetOTPResendCooldown()
	elapsed := s.now().Sub(attempt.LastSentAt)
	if elapsed < cooldown {
		remaining := int((cooldown - elapsed).Round(time.Second).Seconds())
		if remaining < 1 {
			remaining = 1
		}
		return apperr.TooManyRequests(msgCooldownActive).WithDetails(map[string]any{
			"retryAfterSeconds": remaining,
		})
	}

	if _, err := s.provider.SendCode(ctx, attempt.Phone); err != nil {
		s.log.Error("verification resend failed", "session_id", sessionID, "error", err)
		return apperr.Wrap(apperr.KindUnavailable, msgDispatchFailed, err)
	}

	attempt.Status = repository.StatusSent
	attempt.AttemptCount = 0
	attempt.LastSentAt = s.now()
	if err := s.repo.Save(ctx, attempt); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to record verification attempt", err)
	}

	s.log.VerificationEvent("code_resent", sessionID.String(), 0)
	s.bus.Publish(ctx, events.VerificationCodeSent{
		BaseEvent: events.NewBaseEvent(),
		SessionID: sessionID,
		Phone:     attempt.Phone,
		Resend:    true,
	})

	return nil
}

// VerifyCode checks the visitor-entered code. A match is terminal; a mismatch
// consumes one of the bounded attempts and, once exhausted, forces a fresh
// RequestCode.
func (s *Service) VerifyCode(ctx context.Context, sessionID uuid.UUID, code string) error {
	attempt, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	switch attempt.Status {
	case repository.StatusVerified:
		// Terminal: repeated verification calls are idempotent successes.
		return nil
	case repository.StatusSent:
	case repository.StatusFailed:
		return apperr.Conflict(msgMaxAttemptsExceeded)
	default:
		return apperr.Conflict(msgNoCodeOutstanding)
	}

	matched, err := s.provider.CheckCode(ctx, attempt.Phone, code)
	if err != nil {
		s.log.Error("verification check failed", "session_id", sessionID, "error", err)
		return apperr.Wrap(apperr.KindUnavailable, msgCheckFailed, err)
	}

	if matched {
		attempt.Status = repository.StatusVerified
		if err := s.repo.Save(ctx, attempt); err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to record verification attempt", err)
		}

		s.log.VerificationEvent("verified", sessionID.String(), attempt.AttemptCount)
		s.bus.Publish(ctx, events.PhoneVerified{
			BaseEvent: events.NewBaseEvent(),
			SessionID: sessionID,
			Phone:     attempt.Phone,
		})
		return nil
	}

	attempt.AttemptCount++
	maxAttempts := s.cfg.GetOTPMaxAttempts()
	if attempt.AttemptCount >= maxAttempts {
		attempt.Status = repository.StatusFailed
		if err := s.repo.Save(ctx, attempt); err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to record verification attempt", err)
		}
		s.log.VerificationEvent("max_attempts_exceeded", sessionID.String(), attempt.AttemptCount)
		return apperr.Conflict(msgMaxAttemptsExceeded)
	}

	if err := s.repo.Save(ctx, attempt); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to record verification attempt", err)
	}

	s.log.VerificationEvent("code_mismatch", sessionID.String(), attempt.AttemptCount)
	return apperr.Validation(msgCodeMismatch).WithDetails(map[string]any{
		"attemptsRemaining": maxAttempts - attempt.AttemptCount,
	})
}

// IsVerified reports whether the session's phone number has been confirmed.
// Implements the funnel's VerificationGate port. The global bypass toggle
// short-circuits the gate entirely.
func (s *Service) IsVerified(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	if s.cfg.GetSkipPhoneVerification() {
		return true, nil
	}

	attempt, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		var domainErr *apperr.Error
		if errors.As(err, &domainErr) && domainErr.Kind == apperr.KindNotFound {
			return false, nil
		}
		return false, err
	}

	return attempt.Status == repository.StatusVerified, nil
}
