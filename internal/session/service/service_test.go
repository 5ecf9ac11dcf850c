package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"funnel_backend/internal/events"
	"funnel_backend/internal/session/repository"
	"funnel_backend/internal/session/transport"
	"funnel_backend/platform/logger"
)

// downStore simulates an unavailable primary database.
type downStore struct{}

func (downStore) Get(context.Context, uuid.UUID) (repository.Session, error) {
	return repository.Session{}, errors.New("connection refused")
}

func (downStore) Create(context.Context, repository.Session) error {
	return errors.New("connection refused")
}

func (downStore) MarkUTMReported(context.Context, uuid.UUID) (bool, error) {
	return false, errors.New("connection refused")
}

func (downStore) Clear(context.Context, uuid.UUID) error {
	return errors.New("connection refused")
}

type eventCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newEventCounter(bus events.Bus, names ...string) *eventCounter {
	c := &eventCounter{counts: make(map[string]int)}
	for _, name := range names {
		name := name
		bus.Subscribe(name, events.HandlerFunc(func(context.Context, events.Event) error {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.counts[name]++
			return nil
		}))
	}
	return c
}

func (c *eventCounter) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[name]
}

func waitForCount(t *testing.T, c *eventCounter, name string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.count(name) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("event %s: count %d, want %d", name, c.count(name), want)
}

func TestGetOrCreateAssignsVariants(t *testing.T) {
	log := logger.New("test")
	bus := events.NewInMemoryBus(log)
	counter := newEventCounter(bus, "session.started")
	svc := New(repository.NewMemory(), repository.NewMemory(), bus, log)

	resp, err := svc.GetOrCreate(context.Background(), transport.CreateSessionRequest{})
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if !resp.Created {
		t.Fatal("expected Created true for a fresh session")
	}
	if _, err := uuid.Parse(resp.SessionID); err != nil {
		t.Fatalf("session id is not a uuid: %v", err)
	}
	if resp.Variant != "control" && resp.Variant != "compact" {
		t.Fatalf("unexpected funnel variant %q", resp.Variant)
	}
	if resp.EntryVariant != "immediate" && resp.EntryVariant != "gated" {
		t.Fatalf("unexpected entry variant %q", resp.EntryVariant)
	}
	waitForCount(t, counter, "session.started", 1)
}

func TestGetOrCreateReturnsExistingUnchanged(t *testing.T) {
	log := logger.New("test")
	svc := New(repository.NewMemory(), repository.NewMemory(), events.NewInMemoryBus(log), log)

	first, err := svc.GetOrCreate(context.Background(), transport.CreateSessionRequest{})
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	second, err := svc.GetOrCreate(context.Background(), transport.CreateSessionRequest{SessionID: first.SessionID})
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if second.Created {
		t.Fatal("expected Created false for a returning session")
	}
	if second.SessionID != first.SessionID || second.Variant != first.Variant || second.EntryVariant != first.EntryVariant {
		t.Fatalf("returning session must be unchanged: %+v vs %+v", first, second)
	}
}

func TestGetOrCreateInvalidIDStartsFresh(t *testing.T) {
	log := logger.New("test")
	svc := New(repository.NewMemory(), repository.NewMemory(), events.NewInMemoryBus(log), log)

	for _, presented := range []string{"not-a-uuid", uuid.NewString()} {
		resp, err := svc.GetOrCreate(context.Background(), transport.CreateSessionRequest{SessionID: presented})
		if err != nil {
			t.Fatalf("GetOrCreate(%q): %v", presented, err)
		}
		if !resp.Created {
			t.Fatalf("expected a fresh session for presented id %q", presented)
		}
		if resp.SessionID == presented {
			t.Fatal("unknown ids must never be adopted")
		}
	}
}

func TestUTMCapturedAtMostOnce(t *testing.T) {
	log := logger.New("test")
	bus := events.NewInMemoryBus(log)
	counter := newEventCounter(bus, "session.utm.captured")
	store := repository.NewMemory()
	svc := New(store, repository.NewMemory(), bus, log)

	resp, err := svc.GetOrCreate(context.Background(), transport.CreateSessionRequest{
		UTMSource:   "newsletter",
		UTMMedium:   "email",
		UTMCampaign: "q3_retirement",
	})
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	waitForCount(t, counter, "session.utm.captured", 1)

	// A second report attempt loses the one-shot guard in the store.
	sessionID := uuid.MustParse(resp.SessionID)
	session, err := store.Get(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	svc.reportUTM(context.Background(), store, session)

	time.Sleep(50 * time.Millisecond)
	if got := counter.count("session.utm.captured"); got != 1 {
		t.Fatalf("utm captured %d times, want exactly 1", got)
	}
}

func TestGetOrCreateWithoutUTMEmitsNoCapture(t *testing.T) {
	log := logger.New("test")
	bus := events.NewInMemoryBus(log)
	counter := newEventCounter(bus, "session.utm.captured")
	svc := New(repository.NewMemory(), repository.NewMemory(), bus, log)

	if _, err := svc.GetOrCreate(context.Background(), transport.CreateSessionRequest{}); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if got := counter.count("session.utm.captured"); got != 0 {
		t.Fatalf("expected no utm capture, got %d", got)
	}
}

func TestCreateFallsBackWhenPrimaryDown(t *testing.T) {
	log := logger.New("test")
	fallback := repository.NewMemory()
	svc := New(downStore{}, fallback, events.NewInMemoryBus(log), log)

	resp, err := svc.GetOrCreate(context.Background(), transport.CreateSessionRequest{})
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if !resp.Created {
		t.Fatal("expected Created true in degraded mode")
	}

	// The degraded identity stays resolvable through the fallback store.
	second, err := svc.GetOrCreate(context.Background(), transport.CreateSessionRequest{SessionID: resp.SessionID})
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if second.Created || second.SessionID != resp.SessionID {
		t.Fatal("degraded session must resolve on the next call")
	}
}

func TestGetSessionResolvesIdentity(t *testing.T) {
	log := logger.New("test")
	svc := New(repository.NewMemory(), repository.NewMemory(), events.NewInMemoryBus(log), log)

	resp, err := svc.GetOrCreate(context.Background(), transport.CreateSessionRequest{
		UTMSource: "partner",
	})
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	info, err := svc.GetSession(context.Background(), uuid.MustParse(resp.SessionID))
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if info.Variant != resp.Variant || info.EntryVariant != resp.EntryVariant {
		t.Fatal("resolved identity must match the created session")
	}
	if info.UTMSource != "partner" {
		t.Fatalf("expected utm source to round-trip, got %q", info.UTMSource)
	}
}
