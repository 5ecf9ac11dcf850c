package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"funnel_backend/internal/events"
	"funnel_backend/internal/funnel/domain"
	"funnel_backend/internal/funnel/ports"
	"funnel_backend/internal/submission/repository"
	"funnel_backend/internal/submission/tracking"
	"funnel_backend/platform/logger"
)

type fakeQueue struct {
	mu          sync.Mutex
	crmErr      error
	trackingErr error
	crmJobs     []uuid.UUID
	events      []tracking.Event
}

func (f *fakeQueue) EnqueueCRMDelivery(_ context.Context, submissionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.crmErr != nil {
		return f.crmErr
	}
	f.crmJobs = append(f.crmJobs, submissionID)
	return nil
}

func (f *fakeQueue) EnqueueTrackingEvent(_ context.Context, event tracking.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trackingErr != nil {
		return f.trackingErr
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeQueue) crmJobCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.crmJobs)
}

type fakeNotifier struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeNotifier) NotifyLead(context.Context, repository.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

type fakeAlerts struct {
	mu       sync.Mutex
	subjects []string
}

func (f *fakeAlerts) Send(_ context.Context, subject, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	return nil
}

func (f *fakeAlerts) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subjects)
}

type fakeSubCfg struct {
	attempts int
	backoff  time.Duration
}

func (f fakeSubCfg) GetLeadPersistAttempts() int          { return f.attempts }
func (f fakeSubCfg) GetLeadPersistBackoff() time.Duration { return f.backoff }

func submitInput() ports.SubmitInput {
	return ports.SubmitInput{
		SubmissionID: uuid.New(),
		Session: ports.SessionInfo{
			ID:           uuid.New(),
			Variant:      "control",
			EntryVariant: "immediate",
			UTMSource:    "newsletter",
		},
		Contact: domain.Contact{
			FirstName: "Erika",
			LastName:  "Mustermann",
			Email:     "erika@example.com",
			Phone:     "+4915112345678",
		},
		Answers:    domain.AnswerSet{},
		Track:      domain.TrackPrimary,
		Score:      7,
		MaxScore:   9,
		Percentile: 78,
		Band:       "high",
	}
}

func newTestOrchestrator(repo *repository.MemoryRepo, queue Queue, notifier *fakeNotifier, alerts *fakeAlerts) *Orchestrator {
	log := logger.New("test")
	o := New(repo, queue, notifier, tracking.Noop{}, alerts, fakeSubCfg{attempts: 3, backoff: time.Millisecond}, time.Second, events.NewInMemoryBus(log), log)
	return o.WithSleep(func(context.Context, time.Duration) error { return nil })
}

func TestSubmitPersistsAndEnqueues(t *testing.T) {
	repo := repository.NewMemory()
	queue := &fakeQueue{}
	o := newTestOrchestrator(repo, queue, &fakeNotifier{}, &fakeAlerts{})
	in := submitInput()

	result, err := o.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !result.Persisted {
		t.Fatal("expected persisted result")
	}
	if result.ResultsRoute != "/results/high" {
		t.Fatalf("unexpected results route %s", result.ResultsRoute)
	}

	lead, err := repo.GetBySubmissionID(context.Background(), in.SubmissionID)
	if err != nil {
		t.Fatalf("GetBySubmissionID: %v", err)
	}
	if lead.Email != "erika@example.com" || lead.Score != 7 {
		t.Fatalf("unexpected lead %+v", lead)
	}
	if queue.crmJobCount() != 1 {
		t.Fatalf("expected 1 crm job, got %d", queue.crmJobCount())
	}
}

func TestSubmitReplayIsIdempotent(t *testing.T) {
	repo := repository.NewMemory()
	queue := &fakeQueue{}
	o := newTestOrchestrator(repo, queue, &fakeNotifier{}, &fakeAlerts{})
	in := submitInput()

	first, err := o.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	second, err := o.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}

	if first.SubmissionID != second.SubmissionID {
		t.Fatal("replay must return the original submission id")
	}
	if repo.LeadCount() != 1 {
		t.Fatalf("expected 1 lead, got %d", repo.LeadCount())
	}
	if queue.crmJobCount() != 1 {
		t.Fatalf("replay must not fan out again, got %d crm jobs", queue.crmJobCount())
	}
}

func TestSubmitRetriesTransientPersistFailure(t *testing.T) {
	repo := repository.NewMemory()
	repo.FailUpserts = 2
	queue := &fakeQueue{}
	o := newTestOrchestrator(repo, queue, &fakeNotifier{}, &fakeAlerts{})

	result, err := o.Submit(context.Background(), submitInput())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !result.Persisted {
		t.Fatal("third attempt should have succeeded")
	}
	if repo.LeadCount() != 1 {
		t.Fatalf("expected 1 lead, got %d", repo.LeadCount())
	}
}

func TestSubmitExhaustedPersistenceStillCompletes(t *testing.T) {
	repo := repository.NewMemory()
	repo.UpsertErr = errors.New("database down")
	queue := &fakeQueue{}
	alerts := &fakeAlerts{}
	o := newTestOrchestrator(repo, queue, &fakeNotifier{}, alerts)

	result, err := o.Submit(context.Background(), submitInput())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Persisted {
		t.Fatal("expected unpersisted result after exhausted retries")
	}
	if result.ResultsRoute != "/results/high" {
		t.Fatal("visitor must still receive a results route")
	}
	if queue.crmJobCount() != 0 {
		t.Fatal("unpersisted lead must not fan out")
	}

	waitFor(t, func() bool { return alerts.count() == 1 })
}

func TestSubmitUnsentLeadReconciledAfterRecovery(t *testing.T) {
	repo := repository.NewMemory()
	// Three inline attempts and the first background attempt fail; the store
	// recovers after that.
	repo.FailUpserts = 4
	queue := &fakeQueue{}
	o := newTestOrchestrator(repo, queue, &fakeNotifier{}, &fakeAlerts{})
	in := submitInput()

	result, err := o.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Persisted {
		t.Fatal("expected unpersisted result after exhausted inline retries")
	}

	waitFor(t, func() bool { return repo.LeadCount() == 1 })

	lead, err := repo.GetBySubmissionID(context.Background(), in.SubmissionID)
	if err != nil {
		t.Fatalf("GetBySubmissionID: %v", err)
	}
	if !lead.Unsent {
		t.Fatal("reconciled lead must carry the unsent flag")
	}

	// Fan-out runs once the late write lands.
	waitFor(t, func() bool { return queue.crmJobCount() == 1 })

	replay, err := o.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("replay Submit: %v", err)
	}
	if replay.Persisted {
		t.Fatal("replay of an unsent lead must keep reporting the degraded outcome")
	}
	if replay.SubmissionID != in.SubmissionID {
		t.Fatal("replay must return the original submission id")
	}
}

func TestSubmitFallsBackToDirectDelivery(t *testing.T) {
	repo := repository.NewMemory()
	queue := &fakeQueue{crmErr: errors.New("redis down"), trackingErr: errors.New("redis down")}
	notifier := &fakeNotifier{err: errors.New("crm timeout")}
	o := newTestOrchestrator(repo, queue, notifier, &fakeAlerts{})
	in := submitInput()

	result, err := o.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !result.Persisted {
		t.Fatal("queue failure must not affect persistence")
	}

	// Direct delivery runs detached; the failed CRM attempt must surface as a
	// recorded delivery status, not as a submit error.
	waitFor(t, func() bool {
		deliveries, err := repo.ListDeliveries(context.Background(), in.SubmissionID)
		if err != nil {
			return false
		}
		for _, d := range deliveries {
			if d.Destination == repository.DestinationCRM && d.State == repository.DeliveryFailed {
				return true
			}
		}
		return false
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
