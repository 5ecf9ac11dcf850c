package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"funnel_backend/internal/events"
	"funnel_backend/internal/submission/tracking"
	"funnel_backend/platform/logger"
)

type captureQueue struct {
	mu     sync.Mutex
	err    error
	events []tracking.Event
}

func (c *captureQueue) EnqueueCRMDelivery(context.Context, uuid.UUID) error { return nil }

func (c *captureQueue) EnqueueTrackingEvent(_ context.Context, event tracking.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, event)
	return nil
}

type captureEmitter struct {
	mu     sync.Mutex
	events []tracking.Event
}

func (c *captureEmitter) Emit(_ context.Context, event tracking.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func TestForwarderEnqueuesStepAnswered(t *testing.T) {
	queue := &captureQueue{}
	emitter := &captureEmitter{}
	f := NewForwarder(queue, emitter, time.Second, logger.New("test"))

	sessionID := uuid.New()
	err := f.Handle(context.Background(), events.StepAnswered{
		BaseEvent:  events.NewBaseEvent(),
		SessionID:  sessionID,
		Variant:    "control",
		Track:      "primary",
		QuestionID: "savings",
		StepIndex:  1,
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(queue.events) != 1 {
		t.Fatalf("expected 1 queued event, got %d", len(queue.events))
	}
	got := queue.events[0]
	if got.Name != "step_answered" || got.SessionID != sessionID.String() {
		t.Fatalf("unexpected event %+v", got)
	}
	if got.Props["question_id"] != "savings" {
		t.Fatalf("unexpected props %+v", got.Props)
	}
	if len(emitter.events) != 0 {
		t.Fatal("direct emitter must not be used when enqueueing works")
	}
}

func TestForwarderFallsBackToDirectEmit(t *testing.T) {
	queue := &captureQueue{err: errors.New("redis down")}
	emitter := &captureEmitter{}
	f := NewForwarder(queue, emitter, time.Second, logger.New("test"))

	err := f.Handle(context.Background(), events.QuizCompleted{
		BaseEvent:    events.NewBaseEvent(),
		SessionID:    uuid.New(),
		SubmissionID: uuid.New(),
		Variant:      "compact",
		Band:         "mid",
		Percentile:   55,
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(emitter.events) != 1 {
		t.Fatalf("expected 1 direct emission, got %d", len(emitter.events))
	}
	if emitter.events[0].Name != "quiz_completed" {
		t.Fatalf("unexpected event name %s", emitter.events[0].Name)
	}
}

func TestForwarderIgnoresUnknownEvents(t *testing.T) {
	queue := &captureQueue{}
	f := NewForwarder(queue, &captureEmitter{}, time.Second, logger.New("test"))

	err := f.Handle(context.Background(), events.PhoneVerified{
		BaseEvent: events.NewBaseEvent(),
		SessionID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(queue.events) != 0 {
		t.Fatal("untracked events must be ignored")
	}
}
