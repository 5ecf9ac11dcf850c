package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"funnel_backend/internal/events"
	"funnel_backend/internal/verification/repository"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/logger"
)

type fakeProvider struct {
	sendErr   error
	sendCount int
	accept    string
	checkErr  error
}

func (f *fakeProvider) SendCode(_ context.Context, _ string) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sendCount++
	return "VE_fake", nil
}

func (f *fakeProvider) CheckCode(_ context.Context, _, code string) (bool, error) {
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return code == f.accept, nil
}

type fakeConfig struct {
	cooldown    time.Duration
	maxAttempts int
	skip        bool
}

func (f fakeConfig) GetTwilioAccountSID() string         { return "" }
func (f fakeConfig) GetTwilioAuthToken() string          { return "" }
func (f fakeConfig) GetTwilioVerifyServiceSID() string   { return "" }
func (f fakeConfig) IsSMSEnabled() bool                  { return true }
func (f fakeConfig) GetOTPResendCooldown() time.Duration { return f.cooldown }
func (f fakeConfig) GetOTPMaxAttempts() int              { return f.maxAttempts }
func (f fakeConfig) GetSkipPhoneVerification() bool      { return f.skip }

func newTestService(t *testing.T, prov *fakeProvider, cfg fakeConfig) (*Service, *repository.MemoryRepo) {
	t.Helper()
	log := logger.New("test")
	repo := repository.NewMemory()
	svc := New(repo, prov, cfg, events.NewInMemoryBus(log), log)
	return svc, repo
}

func TestRequestCodeInvalidPhone(t *testing.T) {
	prov := &fakeProvider{accept: "123456"}
	svc, _ := newTestService(t, prov, fakeConfig{cooldown: time.Minute, maxAttempts: 5})

	err := svc.RequestCode(context.Background(), uuid.New(), "not a phone")
	if err == nil {
		t.Fatal("expected error for invalid phone")
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if prov.sendCount != 0 {
		t.Fatal("provider must not be called for an invalid number")
	}
}

func TestRequestCodeDispatchesAndRecords(t *testing.T) {
	prov := &fakeProvider{accept: "123456"}
	svc, repo := newTestService(t, prov, fakeConfig{cooldown: time.Minute, maxAttempts: 5})
	sessionID := uuid.New()

	if err := svc.RequestCode(context.Background(), sessionID, "0151 1234 5678"); err != nil {
		t.Fatalf("RequestCode: %v", err)
	}
	if prov.sendCount != 1 {
		t.Fatalf("expected 1 dispatch, got %d", prov.sendCount)
	}

	attempt, err := repo.Get(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if attempt.Status != repository.StatusSent {
		t.Fatalf("expected status sent, got %s", attempt.Status)
	}
	if attempt.Phone != "+4915112345678" {
		t.Fatalf("expected normalized phone, got %s", attempt.Phone)
	}
}

func TestRequestCodeDispatchFailure(t *testing.T) {
	prov := &fakeProvider{sendErr: errors.New("twilio down")}
	svc, repo := newTestService(t, prov, fakeConfig{cooldown: time.Minute, maxAttempts: 5})
	sessionID := uuid.New()

	err := svc.RequestCode(context.Background(), sessionID, "+4915112345678")
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindUnavailable {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if _, err := repo.Get(context.Background(), sessionID); err == nil {
		t.Fatal("no attempt row should be recorded on dispatch failure")
	}
}

func TestResendCooldown(t *testing.T) {
	prov := &fakeProvider{accept: "123456"}
	svc, _ := newTestService(t, prov, fakeConfig{cooldown: 60 * time.Second, maxAttempts: 5})
	sessionID := uuid.New()

	base := time.Now()
	svc.WithClock(func() time.Time { return base })
	if err := svc.RequestCode(context.Background(), sessionID, "+4915112345678"); err != nil {
		t.Fatalf("RequestCode: %v", err)
	}

	// 20s in: still inside the window.
	svc.WithClock(func() time.Time { return base.Add(20 * time.Second) })
	err := svc.Resend(context.Background(), sessionID)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindTooManyRequests {
		t.Fatalf("expected too-many-requests error, got %v", err)
	}
	details, ok := appErr.Details.(map[string]any)
	if !ok || details["retryAfterSeconds"] != 40 {
		t.Fatalf("expected 40 seconds remaining, got %v", appErr.Details)
	}

	// Past the window: allowed.
	svc.WithClock(func() time.Time { return base.Add(61 * time.Second) })
	if err := svc.Resend(context.Background(), sessionID); err != nil {
		t.Fatalf("Resend after cooldown: %v", err)
	}
	if prov.sendCount != 2 {
		t.Fatalf("expected 2 dispatches, got %d", prov.sendCount)
	}
}

func TestVerifyCodeMatchIsTerminal(t *testing.T) {
	prov := &fakeProvider{accept: "123456"}
	svc, repo := newTestService(t, prov, fakeConfig{cooldown: time.Minute, maxAttempts: 5})
	sessionID := uuid.New()

	if err := svc.RequestCode(context.Background(), sessionID, "+4915112345678"); err != nil {
		t.Fatalf("RequestCode: %v", err)
	}
	if err := svc.VerifyCode(context.Background(), sessionID, "123456"); err != nil {
		t.Fatalf("VerifyCode: %v", err)
	}

	attempt, _ := repo.Get(context.Background(), sessionID)
	if attempt.Status != repository.StatusVerified {
		t.Fatalf("expected verified, got %s", attempt.Status)
	}

	verified, err := svc.IsVerified(context.Background(), sessionID)
	if err != nil || !verified {
		t.Fatalf("expected verified gate, got %v %v", verified, err)
	}

	// Repeated verification is an idempotent success.
	if err := svc.VerifyCode(context.Background(), sessionID, "000000"); err != nil {
		t.Fatalf("repeated VerifyCode after success: %v", err)
	}
}

func TestVerifyCodeMismatchConsumesAttempts(t *testing.T) {
	prov := &fakeProvider{accept: "123456"}
	svc, repo := newTestService(t, prov, fakeConfig{cooldown: time.Minute, maxAttempts: 3})
	sessionID := uuid.New()

	if err := svc.RequestCode(context.Background(), sessionID, "+4915112345678"); err != nil {
		t.Fatalf("RequestCode: %v", err)
	}

	for i := 1; i <= 2; i++ {
		err := svc.VerifyCode(context.Background(), sessionID, "999999")
		var appErr *apperr.Error
		if !errors.As(err, &appErr) || appErr.Kind != apperr.KindValidation {
			t.Fatalf("attempt %d: expected validation error, got %v", i, err)
		}
		details, ok := appErr.Details.(map[string]any)
		if !ok || details["attemptsRemaining"] != 3-i {
			t.Fatalf("attempt %d: expected %d attempts remaining, got %v", i, 3-i, appErr.Details)
		}
	}

	// Third mismatch exhausts the attempts.
	err := svc.VerifyCode(context.Background(), sessionID, "999999")
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindConflict {
		t.Fatalf("expected conflict at max attempts, got %v", err)
	}
	attempt, _ := repo.Get(context.Background(), sessionID)
	if attempt.Status != repository.StatusFailed {
		t.Fatalf("expected failed, got %s", attempt.Status)
	}

	// The right code no longer helps once failed.
	err = svc.VerifyCode(context.Background(), sessionID, "123456")
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindConflict {
		t.Fatalf("expected conflict after failure, got %v", err)
	}

	// A fresh request resets the counter.
	if err := svc.RequestCode(context.Background(), sessionID, "+4915112345678"); err != nil {
		t.Fatalf("RequestCode after failure: %v", err)
	}
	if err := svc.VerifyCode(context.Background(), sessionID, "123456"); err != nil {
		t.Fatalf("VerifyCode after fresh request: %v", err)
	}
}

func TestIsVerifiedDefaults(t *testing.T) {
	prov := &fakeProvider{accept: "123456"}
	svc, _ := newTestService(t, prov, fakeConfig{cooldown: time.Minute, maxAttempts: 5})

	verified, err := svc.IsVerified(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("IsVerified: %v", err)
	}
	if verified {
		t.Fatal("unknown session must not be verified")
	}
}

func TestIsVerifiedSkipToggle(t *testing.T) {
	prov := &fakeProvider{accept: "123456"}
	svc, _ := newTestService(t, prov, fakeConfig{cooldown: time.Minute, maxAttempts: 5, skip: true})

	verified, err := svc.IsVerified(context.Background(), uuid.New())
	if err != nil || !verified {
		t.Fatalf("expected bypassed gate, got %v %v", verified, err)
	}
}
