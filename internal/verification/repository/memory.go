package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"funnel_backend/platform/apperr"
)

// MemoryRepo is an in-memory Repository used in tests.
type MemoryRepo struct {
	mu       sync.RWMutex
	attempts map[uuid.UUID]Attempt
}

// NewMemory creates a new in-memory verification attempt repository.
func NewMemory() *MemoryRepo {
	return &MemoryRepo{attempts: make(map[uuid.UUID]Attempt)}
}

// Compile-time check that MemoryRepo implements Repository.
var _ Repository = (*MemoryRepo)(nil)

// Get retrieves the verification attempt for a session.
func (m *MemoryRepo) Get(_ context.Context, sessionID uuid.UUID) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	attempt, ok := m.attempts[sessionID]
	if !ok {
		return Attempt{}, apperr.NotFound(attemptNotFoundMessage)
	}
	return attempt, nil
}

// Save upserts the verification attempt for its session.
func (m *MemoryRepo) Save(_ context.Context, attempt Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	attempt.UpdatedAt = time.Now()
	m.attempts[attempt.SessionID] = attempt
	return nil
}
