package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"funnel_backend/internal/submission/tracking"
)

type fakeSchedulerConfig struct {
	redisURL string
}

func (f fakeSchedulerConfig) GetRedisURL() string       { return f.redisURL }
func (f fakeSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (f fakeSchedulerConfig) GetAsynqQueueName() string { return "default" }
func (f fakeSchedulerConfig) GetAsynqConcurrency() int  { return 1 }

func newTestClient(t *testing.T) (*Client, *asynq.Inspector) {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := fakeSchedulerConfig{redisURL: "redis://" + mr.Addr()}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { inspector.Close() })

	return client, inspector
}

func TestClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(fakeSchedulerConfig{}); err == nil {
		t.Fatal("expected error without redis url")
	}
}

func TestEnqueueCRMDelivery(t *testing.T) {
	client, inspector := newTestClient(t)
	submissionID := uuid.New()

	if err := client.EnqueueCRMDelivery(context.Background(), submissionID); err != nil {
		t.Fatalf("EnqueueCRMDelivery: %v", err)
	}

	pending, err := inspector.ListPendingTasks("default")
	if err != nil {
		t.Fatalf("ListPendingTasks: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending task, got %d", len(pending))
	}
	if pending[0].Type != TaskDeliverCRM {
		t.Fatalf("unexpected task type %s", pending[0].Type)
	}

	payload, err := ParseDeliverCRMPayload(asynq.NewTask(pending[0].Type, pending[0].Payload))
	if err != nil {
		t.Fatalf("ParseDeliverCRMPayload: %v", err)
	}
	if payload.SubmissionID != submissionID.String() {
		t.Fatalf("unexpected submission id %s", payload.SubmissionID)
	}
}

func TestEnqueueTrackingEvent(t *testing.T) {
	client, inspector := newTestClient(t)

	event := tracking.Event{
		Name:       "lead_submitted",
		SessionID:  uuid.NewString(),
		Variant:    "control",
		OccurredAt: time.Now().UTC(),
	}
	if err := client.EnqueueTrackingEvent(context.Background(), event); err != nil {
		t.Fatalf("EnqueueTrackingEvent: %v", err)
	}

	pending, err := inspector.ListPendingTasks("default")
	if err != nil {
		t.Fatalf("ListPendingTasks: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending task, got %d", len(pending))
	}

	payload, err := ParseEmitTrackingPayload(asynq.NewTask(pending[0].Type, pending[0].Payload))
	if err != nil {
		t.Fatalf("ParseEmitTrackingPayload: %v", err)
	}
	if payload.Event.Name != "lead_submitted" {
		t.Fatalf("unexpected event name %s", payload.Event.Name)
	}
}
