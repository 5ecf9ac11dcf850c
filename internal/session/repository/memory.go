package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"funnel_backend/platform/apperr"
)

// MemoryStore is an in-memory Store. It backs the degraded mode when the
// database is unavailable at session creation, and serves as the test fake.
// Identities held here do not survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]Session
}

// NewMemory creates a new in-memory session store.
func NewMemory() *MemoryStore {
	return &MemoryStore{sessions: make(map[uuid.UUID]Session)}
}

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// Get retrieves a session by its ID.
func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return Session{}, apperr.NotFound(sessionNotFoundMessage)
	}
	return session, nil
}

// Create inserts a new session.
func (m *MemoryStore) Create(_ context.Context, session Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID]; exists {
		return apperr.Conflict("session already exists")
	}
	session.CreatedAt = time.Now()
	m.sessions[session.ID] = session
	return nil
}

// MarkUTMReported flips the one-shot attribution guard.
func (m *MemoryStore) MarkUTMReported(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return false, apperr.NotFound(sessionNotFoundMessage)
	}
	if session.UTMReported {
		return false, nil
	}
	session.UTMReported = true
	m.sessions[id] = session
	return true, nil
}

// Clear removes a session.
func (m *MemoryStore) Clear(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}
