// Package analytics forwards domain events to the tracking collectors. It is
// a pure event subscriber; a lost analytics event is never worth failing a
// visitor request over.
package analytics

import (
	"context"
	"time"

	"funnel_backend/internal/events"
	submission "funnel_backend/internal/submission/service"
	"funnel_backend/internal/submission/tracking"
	"funnel_backend/platform/logger"
)

// Forwarder translates domain events into tracking events and hands them to
// the delivery queue, falling back to direct emission when enqueueing fails.
type Forwarder struct {
	queue   submission.Queue
	tracker tracking.Emitter
	timeout time.Duration
	log     *logger.Logger
}

// NewForwarder creates a new analytics forwarder.
func NewForwarder(queue submission.Queue, tracker tracking.Emitter, timeout time.Duration, log *logger.Logger) *Forwarder {
	return &Forwarder{
		queue:   queue,
		tracker: tracker,
		timeout: timeout,
		log:     log,
	}
}

// Register subscribes the forwarder to every event worth tracking.
func (f *Forwarder) Register(bus *events.InMemoryBus) {
	bus.Subscribe(events.SessionStarted{}.EventName(), f)
	bus.Subscribe(events.UTMCaptured{}.EventName(), f)
	bus.Subscribe(events.StepAnswered{}.EventName(), f)
	bus.Subscribe(events.TrackSwitched{}.EventName(), f)
	bus.Subscribe(events.QuizCompleted{}.EventName(), f)
}

// Handle maps one domain event to a tracking event and dispatches it.
func (f *Forwarder) Handle(ctx context.Context, event events.Event) error {
	tracked, ok := f.translate(event)
	if !ok {
		return nil
	}

	if err := f.queue.EnqueueTrackingEvent(ctx, tracked); err != nil {
		f.log.Warn("tracking enqueue failed, emitting directly", "event", tracked.Name, "error", err)
		emitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		defer cancel()
		if err := f.tracker.Emit(emitCtx, tracked); err != nil {
			f.log.Warn("tracking emit failed", "event", tracked.Name, "error", err)
		}
	}

	return nil
}

func (f *Forwarder) translate(event events.Event) (tracking.Event, bool) {
	now := time.Now().UTC()

	switch e := event.(type) {
	case events.SessionStarted:
		return tracking.Event{
			Name:       "session_started",
			SessionID:  e.SessionID.String(),
			Variant:    e.Variant,
			OccurredAt: now,
			Props: map[string]any{
				"entry_variant": e.EntryVariant,
			},
		}, true
	case events.UTMCaptured:
		return tracking.Event{
			Name:       "utm_captured",
			SessionID:  e.SessionID.String(),
			OccurredAt: now,
			Props: map[string]any{
				"source":   e.Source,
				"medium":   e.Medium,
				"campaign": e.Campaign,
			},
		}, true
	case events.StepAnswered:
		return tracking.Event{
			Name:       "step_answered",
			SessionID:  e.SessionID.String(),
			Variant:    e.Variant,
			Track:      e.Track,
			OccurredAt: now,
			Props: map[string]any{
				"question_id": e.QuestionID,
				"step_index":  e.StepIndex,
			},
		}, true
	case events.TrackSwitched:
		return tracking.Event{
			Name:       "track_switched",
			SessionID:  e.SessionID.String(),
			Track:      e.ToTrack,
			OccurredAt: now,
			Props: map[string]any{
				"from_track": e.FromTrack,
			},
		}, true
	case events.QuizCompleted:
		return tracking.Event{
			Name:         "quiz_completed",
			SessionID:    e.SessionID.String(),
			SubmissionID: e.SubmissionID.String(),
			Variant:      e.Variant,
			OccurredAt:   now,
			Props: map[string]any{
				"band":       e.Band,
				"percentile": e.Percentile,
			},
		}, true
	default:
		return tracking.Event{}, false
	}
}
