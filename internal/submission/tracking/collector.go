// Package tracking emits analytics events to the configured collector
// endpoints. Emission is best-effort fan-out; a failing collector never
// affects the visitor's request.
package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Event is one analytics event sent to every collector.
type Event struct {
	Name         string         `json:"event"`
	SessionID    string         `json:"session_id"`
	SubmissionID string         `json:"submission_id,omitempty"`
	Variant      string         `json:"variant,omitempty"`
	Track        string         `json:"track,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
	Props        map[string]any `json:"props,omitempty"`
}

// Emitter sends one event to all collectors.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Noop discards events. Used when no collectors are configured.
type Noop struct{}

func (Noop) Emit(context.Context, Event) error { return nil }

// Fanout posts each event to every collector URL concurrently.
type Fanout struct {
	urls       []string
	httpClient *http.Client
}

// New creates a collector fan-out, or a Noop when no URLs are configured.
func New(urls []string, timeout time.Duration) Emitter {
	if len(urls) == 0 {
		return Noop{}
	}
	return &Fanout{
		urls:       urls,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Emit posts the event to every collector and returns the first failure, if
// any. All collectors are attempted regardless of individual failures.
func (f *Fanout) Emit(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode tracking event: %w", err)
	}

	var g errgroup.Group
	for _, url := range f.urls {
		url := url
		g.Go(func() error {
			return f.post(ctx, url, body)
		})
	}
	return g.Wait()
}

func (f *Fanout) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build tracking request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post tracking event to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("collector %s returned status %d", url, resp.StatusCode)
	}

	return nil
}
