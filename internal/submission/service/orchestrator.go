// Package service orchestrates lead submission: durable persistence first,
// then best-effort fan-out to the CRM and tracking collectors. Downstream
// failures degrade to logged delivery statuses and never block the visitor.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"funnel_backend/internal/alert"
	"funnel_backend/internal/events"
	"funnel_backend/internal/funnel/ports"
	"funnel_backend/internal/submission/crm"
	"funnel_backend/internal/submission/repository"
	"funnel_backend/internal/submission/tracking"
	"funnel_backend/platform/config"
	"funnel_backend/platform/logger"
)

// Queue enqueues background delivery jobs. The scheduler client implements it;
// when enqueueing fails the orchestrator falls back to direct delivery.
type Queue interface {
	EnqueueCRMDelivery(ctx context.Context, submissionID uuid.UUID) error
	EnqueueTrackingEvent(ctx context.Context, event tracking.Event) error
}

// NoopQueue rejects every enqueue so the orchestrator always delivers
// directly. Used when no Redis instance is configured.
type NoopQueue struct{}

func (NoopQueue) EnqueueCRMDelivery(context.Context, uuid.UUID) error {
	return fmt.Errorf("delivery queue not configured")
}

func (NoopQueue) EnqueueTrackingEvent(context.Context, tracking.Event) error {
	return fmt.Errorf("delivery queue not configured")
}

// Orchestrator coordinates persistence and fan-out for one submission.
type Orchestrator struct {
	repo    repository.Repository
	queue   Queue
	crm     crm.Notifier
	tracker tracking.Emitter
	alerts  alert.Sender
	cfg     config.SubmissionConfig
	timeout time.Duration
	bus     events.Bus
	log     *logger.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// New creates a new submission orchestrator.
func New(
	repo repository.Repository,
	queue Queue,
	notifier crm.Notifier,
	tracker tracking.Emitter,
	alerts alert.Sender,
	cfg config.SubmissionConfig,
	deliveryTimeout time.Duration,
	bus events.Bus,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		repo:    repo,
		queue:   queue,
		crm:     notifier,
		tracker: tracker,
		alerts:  alerts,
		cfg:     cfg,
		timeout: deliveryTimeout,
		bus:     bus,
		log:     log,
		sleep:   sleepCtx,
	}
}

// WithSleep overrides the retry backoff sleeper. Used by tests.
func (o *Orchestrator) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Orchestrator {
	o.sleep = sleep
	return o
}

// Compile-time check that Orchestrator implements the funnel's submit port.
var _ ports.LeadSubmitter = (*Orchestrator)(nil)

// Submit persists the lead and fans it out. The submission id is the
// idempotency key: a replay returns the recorded outcome without touching
// downstream systems again.
func (o *Orchestrator) Submit(ctx context.Context, in ports.SubmitInput) (ports.SubmitResult, error) {
	if existing, err := o.repo.GetBySubmissionID(ctx, in.SubmissionID); err == nil {
		return ports.SubmitResult{
			SubmissionID: existing.SubmissionID,
			Persisted:    !existing.Unsent,
			ResultsRoute: resultsRoute(existing.Band),
		}, nil
	}

	lead := repository.Lead{
		SubmissionID: in.SubmissionID,
		SessionID:    in.Session.ID,
		Variant:      in.Session.Variant,
		EntryVariant: in.Session.EntryVariant,
		Track:        string(in.Track),
		FirstName:    in.Contact.FirstName,
		LastName:     in.Contact.LastName,
		Email:        in.Contact.Email,
		Phone:        in.Contact.Phone,
		Answers:      in.Answers,
		Score:        in.Score,
		MaxScore:     in.MaxScore,
		Percentile:   in.Percentile,
		Band:         in.Band,
		UTMSource:    in.Session.UTMSource,
		UTMMedium:    in.Session.UTMMedium,
		UTMCampaign:  in.Session.UTMCampaign,
	}

	persisted := o.persistWithRetry(ctx, lead)
	if persisted {
		o.fanOut(ctx, lead)
	} else {
		o.alertUnsent(ctx, lead)
		go o.reconcileUnsent(context.WithoutCancel(ctx), lead)
	}

	o.bus.Publish(ctx, events.LeadSubmitted{
		BaseEvent:    events.NewBaseEvent(),
		SessionID:    lead.SessionID,
		SubmissionID: lead.SubmissionID,
		Variant:      lead.Variant,
		Track:        lead.Track,
		Score:        lead.Score,
		Persisted:    persisted,
	})

	return ports.SubmitResult{
		SubmissionID: lead.SubmissionID,
		Persisted:    persisted,
		ResultsRoute: resultsRoute(lead.Band),
	}, nil
}

// persistWithRetry attempts the upsert a bounded number of times with doubling
// backoff. The visitor's flow continues even when every attempt fails; the
// lead is then only in memory and flagged for operator reconciliation.
func (o *Orchestrator) persistWithRetry(ctx context.Context, lead repository.Lead) bool {
	attempts := o.cfg.GetLeadPersistAttempts()
	backoff := o.cfg.GetLeadPersistBackoff()

	for attempt := 1; attempt <= attempts; attempt++ {
		err := o.repo.Upsert(ctx, lead)
		if err == nil {
			return true
		}

		o.log.DatabaseError("upsert lead", err)
		if attempt == attempts {
			break
		}
		if err := o.sleep(ctx, backoff); err != nil {
			break
		}
		backoff *= 2
	}

	return false
}

// fanOut hands the persisted lead to the background queue. When the queue is
// unreachable it degrades to direct delivery on a detached goroutine so the
// handler response is never held up.
func (o *Orchestrator) fanOut(ctx context.Context, lead repository.Lead) {
	if err := o.queue.EnqueueCRMDelivery(ctx, lead.SubmissionID); err != nil {
		o.log.Warn("crm enqueue failed, delivering directly", "submission_id", lead.SubmissionID, "error", err)
		go o.deliverCRM(context.WithoutCancel(ctx), lead)
	}

	event := tracking.Event{
		Name:         "lead_submitted",
		SessionID:    lead.SessionID.String(),
		SubmissionID: lead.SubmissionID.String(),
		Variant:      lead.Variant,
		Track:        lead.Track,
		OccurredAt:   time.Now().UTC(),
		Props: map[string]any{
			"score":      lead.Score,
			"band":       lead.Band,
			"percentile": lead.Percentile,
		},
	}
	if err := o.queue.EnqueueTrackingEvent(ctx, event); err != nil {
		o.log.Warn("tracking enqueue failed, emitting directly", "submission_id", lead.SubmissionID, "error", err)
		go o.emitTracking(context.WithoutCancel(ctx), lead.SubmissionID, event)
	}
}

// deliverCRM posts the lead to the CRM with a bounded deadline and records the
// outcome.
func (o *Orchestrator) deliverCRM(ctx context.Context, lead repository.Lead) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	state := repository.DeliveryDelivered
	detail := ""
	notifyErr := o.crm.NotifyLead(ctx, lead)
	if notifyErr != nil {
		state = repository.DeliveryFailed
		detail = notifyErr.Error()
	}
	o.log.DeliveryEvent(string(repository.DestinationCRM), lead.SubmissionID.String(), string(state), notifyErr)

	if err := o.repo.RecordDelivery(ctx, repository.Delivery{
		SubmissionID: lead.SubmissionID,
		Destination:  repository.DestinationCRM,
		State:        state,
		Detail:       detail,
	}); err != nil {
		o.log.DatabaseError("record crm delivery", err)
	}
}

// emitTracking fans the event out to the collectors with a bounded deadline
// and records the outcome.
func (o *Orchestrator) emitTracking(ctx context.Context, submissionID uuid.UUID, event tracking.Event) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	state := repository.DeliveryDelivered
	detail := ""
	emitErr := o.tracker.Emit(ctx, event)
	if emitErr != nil {
		state = repository.DeliveryFailed
		detail = emitErr.Error()
	}
	o.log.DeliveryEvent(string(repository.DestinationTracking), submissionID.String(), string(state), emitErr)

	if err := o.repo.RecordDelivery(ctx, repository.Delivery{
		SubmissionID: submissionID,
		Destination:  repository.DestinationTracking,
		State:        state,
		Detail:       detail,
	}); err != nil {
		o.log.DatabaseError("record tracking delivery", err)
	}
}

// alertUnsent notifies operations that a lead could not be persisted. The
// email carries enough contact data for manual reconciliation.
func (o *Orchestrator) alertUnsent(ctx context.Context, lead repository.Lead) {
	o.log.Error("lead persistence exhausted retries",
		"submission_id", lead.SubmissionID,
		"session_id", lead.SessionID,
	)

	subject := fmt.Sprintf("Lead %s could not be persisted", lead.SubmissionID)
	body := fmt.Sprintf(
		"Submission %s (session %s) exhausted persistence retries.\n\nContact: %s %s <%s> %s\nTrack: %s, score %d/%d, band %s\n",
		lead.SubmissionID, lead.SessionID,
		lead.FirstName, lead.LastName, lead.Email, lead.Phone,
		lead.Track, lead.Score, lead.MaxScore, lead.Band,
	)

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
		defer cancel()
		if err := o.alerts.Send(ctx, subject, body); err != nil {
			o.log.Error("unsent lead alert failed", "submission_id", lead.SubmissionID, "error", err)
		}
	}()
}

// reconcileAttempts bounds the detached background retries for a lead whose
// inline persistence exhausted. The backoff doubles from the configured base.
const reconcileAttempts = 6

// reconcileUnsent keeps retrying persistence in the background after the
// inline retries are spent. The row is written with the unsent flag so the
// late arrival stays visible to operators; fan-out runs only once the write
// lands.
func (o *Orchestrator) reconcileUnsent(ctx context.Context, lead repository.Lead) {
	lead.Unsent = true
	backoff := o.cfg.GetLeadPersistBackoff()

	for attempt := 1; attempt <= reconcileAttempts; attempt++ {
		if err := o.sleep(ctx, backoff); err != nil {
			return
		}
		backoff *= 2

		if err := o.repo.Upsert(ctx, lead); err == nil {
			o.log.Warn("unsent lead persisted after store recovery",
				"submission_id", lead.SubmissionID,
				"attempt", attempt,
			)
			o.fanOut(ctx, lead)
			return
		}
	}

	o.log.Error("unsent lead reconciliation exhausted retries",
		"submission_id", lead.SubmissionID,
		"session_id", lead.SessionID,
	)
}

// Deliveries returns the recorded delivery outcomes for a submission.
func (o *Orchestrator) Deliveries(ctx context.Context, submissionID uuid.UUID) ([]repository.Delivery, error) {
	if _, err := o.repo.GetBySubmissionID(ctx, submissionID); err != nil {
		return nil, err
	}
	return o.repo.ListDeliveries(ctx, submissionID)
}

// Lead returns the persisted lead for a submission, or apperr.NotFound.
func (o *Orchestrator) Lead(ctx context.Context, submissionID uuid.UUID) (repository.Lead, error) {
	lead, err := o.repo.GetBySubmissionID(ctx, submissionID)
	if err != nil {
		return repository.Lead{}, err
	}
	return lead, nil
}

func resultsRoute(band string) string {
	return "/results/" + band
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
