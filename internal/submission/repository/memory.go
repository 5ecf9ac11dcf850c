package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"funnel_backend/platform/apperr"
)

// MemoryRepo is an in-memory Repository used in tests. FailUpserts makes the
// next N Upsert calls fail so retry behavior can be exercised; UpsertErr makes
// every Upsert fail until it is cleared.
type MemoryRepo struct {
	mu          sync.RWMutex
	leads       map[uuid.UUID]Lead
	deliveries  map[uuid.UUID][]Delivery
	FailUpserts int
	UpsertErr   error
	nextID      int64
}

// NewMemory creates a new in-memory lead repository.
func NewMemory() *MemoryRepo {
	return &MemoryRepo{
		leads:      make(map[uuid.UUID]Lead),
		deliveries: make(map[uuid.UUID][]Delivery),
	}
}

// Compile-time check that MemoryRepo implements Repository.
var _ Repository = (*MemoryRepo)(nil)

// Upsert inserts the lead or replaces it when the submission id exists.
func (m *MemoryRepo) Upsert(_ context.Context, lead Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	if m.FailUpserts > 0 {
		m.FailUpserts--
		return apperr.Internal("simulated upsert failure")
	}

	now := time.Now()
	if existing, ok := m.leads[lead.SubmissionID]; ok {
		lead.CreatedAt = existing.CreatedAt
	} else {
		lead.CreatedAt = now
	}
	lead.UpdatedAt = now
	m.leads[lead.SubmissionID] = lead
	return nil
}

// GetBySubmissionID returns the lead for a submission id.
func (m *MemoryRepo) GetBySubmissionID(_ context.Context, submissionID uuid.UUID) (Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lead, ok := m.leads[submissionID]
	if !ok {
		return Lead{}, apperr.NotFound(leadNotFoundMessage)
	}
	return lead, nil
}

// GetBySessionID returns the session's lead.
func (m *MemoryRepo) GetBySessionID(_ context.Context, sessionID uuid.UUID) (Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, lead := range m.leads {
		if lead.SessionID == sessionID {
			return lead, nil
		}
	}
	return Lead{}, apperr.NotFound(leadNotFoundMessage)
}

// RecordDelivery appends a delivery outcome for a submission.
func (m *MemoryRepo) RecordDelivery(_ context.Context, delivery Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	delivery.ID = m.nextID
	delivery.RecordedAt = time.Now()
	m.deliveries[delivery.SubmissionID] = append(m.deliveries[delivery.SubmissionID], delivery)
	return nil
}

// ListDeliveries returns all delivery outcomes for a submission, oldest first.
func (m *MemoryRepo) ListDeliveries(_ context.Context, submissionID uuid.UUID) ([]Delivery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Delivery, len(m.deliveries[submissionID]))
	copy(out, m.deliveries[submissionID])
	return out, nil
}

// LeadCount reports the number of stored leads. Test helper.
func (m *MemoryRepo) LeadCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.leads)
}
