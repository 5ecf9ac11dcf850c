package scheduler

import (
	"context"
	"fmt"

	"funnel_backend/internal/submission/crm"
	"funnel_backend/internal/submission/repository"
	"funnel_backend/internal/submission/tracking"
	"funnel_backend/platform/config"
	"funnel_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Worker consumes delivery jobs: it loads the persisted lead, pushes it to
// the CRM webhook, fans tracking events out to the collectors, and records
// every outcome as a delivery status row.
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	repo    repository.Repository
	crm     crm.Notifier
	tracker tracking.Emitter
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, delivery config.DeliveryConfig, pool *pgxpool.Pool, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		repo:    repository.New(pool),
		crm:     crm.New(delivery.GetCRMWebhookURL(), delivery.GetDeliveryTimeout()),
		tracker: tracking.New(delivery.GetTrackingCollectorURLs(), delivery.GetDeliveryTimeout()),
		log:     log,
	}

	mux.HandleFunc(TaskDeliverCRM, w.handleDeliverCRM)
	mux.HandleFunc(TaskEmitTracking, w.handleEmitTracking)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleDeliverCRM pushes one persisted lead to the CRM. A missing lead is
// dropped without retry; a webhook failure is returned so asynq retries it.
func (w *Worker) handleDeliverCRM(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseDeliverCRMPayload(task)
	if err != nil {
		return err
	}

	submissionID, err := uuid.Parse(payload.SubmissionID)
	if err != nil {
		return err
	}

	lead, err := w.repo.GetBySubmissionID(ctx, submissionID)
	if err != nil {
		w.log.Warn("crm delivery skipped, lead not found", "submission_id", submissionID)
		return nil
	}

	notifyErr := w.crm.NotifyLead(ctx, lead)
	w.recordDelivery(ctx, submissionID, repository.DestinationCRM, notifyErr)
	return notifyErr
}

// handleEmitTracking fans one analytics event out to the collectors.
func (w *Worker) handleEmitTracking(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseEmitTrackingPayload(task)
	if err != nil {
		return err
	}

	emitErr := w.tracker.Emit(ctx, payload.Event)

	if payload.Event.SubmissionID != "" {
		if submissionID, err := uuid.Parse(payload.Event.SubmissionID); err == nil {
			w.recordDelivery(ctx, submissionID, repository.DestinationTracking, emitErr)
		}
	}

	return emitErr
}

func (w *Worker) recordDelivery(ctx context.Context, submissionID uuid.UUID, destination repository.Destination, deliveryErr error) {
	state := repository.DeliveryDelivered
	detail := ""
	if deliveryErr != nil {
		state = repository.DeliveryFailed
		detail = deliveryErr.Error()
	}
	w.log.DeliveryEvent(string(destination), submissionID.String(), string(state), deliveryErr)

	if err := w.repo.RecordDelivery(ctx, repository.Delivery{
		SubmissionID: submissionID,
		Destination:  destination,
		State:        state,
		Detail:       detail,
	}); err != nil {
		w.log.DatabaseError("record delivery", err)
	}
}
