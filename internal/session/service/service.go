// Package service implements the session and variant manager: durable session
// identity, idempotent experiment bucket assignment, and one-shot UTM capture.
package service

import (
	"context"
	"errors"
	"math/rand"

	"github.com/google/uuid"

	"funnel_backend/internal/events"
	"funnel_backend/internal/funnel/ports"
	"funnel_backend/internal/session/repository"
	"funnel_backend/internal/session/transport"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/logger"
)

// Experiment bucket label sets. Assignment is uniform and happens exactly
// once per session; the stored label is reused for the session's lifetime.
var (
	funnelVariants = []string{"control", "compact"}
	entryVariants  = []string{"immediate", "gated"}
)

// Service provides business logic for session identity.
type Service struct {
	store    repository.Store
	fallback repository.Store
	bus      events.Bus
	log      *logger.Logger
}

// New creates a new session service. The fallback store is used when the
// primary store is unavailable; identities created there do not survive a
// restart, which is degraded but non-fatal.
func New(store repository.Store, fallback repository.Store, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, fallback: fallback, bus: bus, log: log}
}

// GetOrCreate returns the stored identity unchanged when the presented
// session id resolves, and creates a fresh session otherwise. UTM parameters
// are captured only on the creating call.
func (s *Service) GetOrCreate(ctx context.Context, req transport.CreateSessionRequest) (transport.SessionResponse, error) {
	if req.SessionID != "" {
		if id, err := uuid.Parse(req.SessionID); err == nil {
			if session, err := s.lookup(ctx, id); err == nil {
				return toResponse(session, false), nil
			}
		}
	}

	session := repository.Session{
		ID:           uuid.New(),
		Variant:      pick(funnelVariants),
		EntryVariant: pick(entryVariants),
		UTMSource:    req.UTMSource,
		UTMMedium:    req.UTMMedium,
		UTMCampaign:  req.UTMCampaign,
	}

	store := s.store
	if err := store.Create(ctx, session); err != nil {
		s.log.DatabaseError("create session", err)
		store = s.fallback
		if err := store.Create(ctx, session); err != nil {
			return transport.SessionResponse{}, apperr.Wrap(apperr.KindInternal, "failed to create session", err)
		}
		s.log.Warn("session created in degraded in-memory store", "session_id", session.ID)
	}

	s.bus.Publish(ctx, events.SessionStarted{
		BaseEvent:    events.NewBaseEvent(),
		SessionID:    session.ID,
		Variant:      session.Variant,
		EntryVariant: session.EntryVariant,
	})

	if session.UTMSource != "" || session.UTMMedium != "" || session.UTMCampaign != "" {
		s.reportUTM(ctx, store, session)
	}

	return toResponse(session, true), nil
}

// reportUTM emits the attribution event at most once per session. The store's
// atomic flip decides which caller reports.
func (s *Service) reportUTM(ctx context.Context, store repository.Store, session repository.Session) {
	won, err := store.MarkUTMReported(ctx, session.ID)
	if err != nil {
		s.log.DatabaseError("mark utm reported", err)
		return
	}
	if !won {
		return
	}
	s.bus.Publish(ctx, events.UTMCaptured{
		BaseEvent: events.NewBaseEvent(),
		SessionID: session.ID,
		Source:    session.UTMSource,
		Medium:    session.UTMMedium,
		Campaign:  session.UTMCampaign,
	})
}

// GetSession resolves session identity for other modules.
// Implements the funnel's SessionReader port.
func (s *Service) GetSession(ctx context.Context, sessionID uuid.UUID) (ports.SessionInfo, error) {
	session, err := s.lookup(ctx, sessionID)
	if err != nil {
		return ports.SessionInfo{}, err
	}
	return ports.SessionInfo{
		ID:           session.ID,
		Variant:      session.Variant,
		EntryVariant: session.EntryVariant,
		UTMSource:    session.UTMSource,
		UTMMedium:    session.UTMMedium,
		UTMCampaign:  session.UTMCampaign,
	}, nil
}

// lookup checks the primary store first, then the degraded fallback.
func (s *Service) lookup(ctx context.Context, id uuid.UUID) (repository.Session, error) {
	session, err := s.store.Get(ctx, id)
	if err == nil {
		return session, nil
	}

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) && domainErr.Kind == apperr.KindNotFound {
		return s.fallback.Get(ctx, id)
	}

	// Primary store unavailable: the fallback may still know the session.
	if fallbackSession, fbErr := s.fallback.Get(ctx, id); fbErr == nil {
		return fallbackSession, nil
	}
	return repository.Session{}, err
}

func pick(labels []string) string {
	return labels[rand.Intn(len(labels))]
}

func toResponse(session repository.Session, created bool) transport.SessionResponse {
	return transport.SessionResponse{
		SessionID:    session.ID.String(),
		Variant:      session.Variant,
		EntryVariant: session.EntryVariant,
		Created:      created,
	}
}
