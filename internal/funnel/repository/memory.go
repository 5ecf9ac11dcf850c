package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"funnel_backend/internal/funnel/domain"
	"funnel_backend/platform/apperr"
)

// MemoryRepo is an in-memory Repository used in tests.
type MemoryRepo struct {
	mu     sync.RWMutex
	states map[uuid.UUID]*domain.FunnelState
}

// NewMemory creates a new in-memory funnel state repository.
func NewMemory() *MemoryRepo {
	return &MemoryRepo{states: make(map[uuid.UUID]*domain.FunnelState)}
}

// Compile-time check that MemoryRepo implements Repository.
var _ Repository = (*MemoryRepo)(nil)

// Get retrieves the funnel state for a session.
func (m *MemoryRepo) Get(_ context.Context, sessionID uuid.UUID) (*domain.FunnelState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.states[sessionID]
	if !ok {
		return nil, apperr.NotFound(funnelStateNotFoundMessage)
	}

	clone := *state
	clone.Answers = state.Answers.Clone()
	return &clone, nil
}

// Save upserts the funnel state for its session.
func (m *MemoryRepo) Save(_ context.Context, state *domain.FunnelState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *state
	clone.Answers = state.Answers.Clone()
	clone.UpdatedAt = time.Now()
	m.states[state.SessionID] = &clone
	return nil
}
