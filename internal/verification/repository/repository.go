package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"funnel_backend/platform/apperr"
)

const attemptNotFoundMessage = "verification attempt not found"

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new verification attempt repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Get retrieves the verification attempt for a session.
func (r *Repo) Get(ctx context.Context, sessionID uuid.UUID) (Attempt, error) {
	query := `
		SELECT session_id, phone, status, attempt_count, last_sent_at, updated_at
		FROM verification_attempts
		WHERE session_id = $1`

	var (
		a      Attempt
		status string
	)
	err := r.pool.QueryRow(ctx, query, sessionID).Scan(
		&a.SessionID, &a.Phone, &status, &a.AttemptCount, &a.LastSentAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Attempt{}, apperr.NotFound(attemptNotFoundMessage)
		}
		return Attempt{}, fmt.Errorf("get verification attempt: %w", err)
	}

	a.Status = Status(status)
	return a, nil
}

// Save upserts the verification attempt for its session.
func (r *Repo) Save(ctx context.Context, attempt Attempt) error {
	query := `
		INSERT INTO verification_attempts (session_id, phone, status, attempt_count, last_sent_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (session_id) DO UPDATE SET
			phone = EXCLUDED.phone,
			status = EXCLUDED.status,
			attempt_count = EXCLUDED.attempt_count,
			last_sent_at = EXCLUDED.last_sent_at,
			updated_at = now()`

	_, err := r.pool.Exec(ctx, query,
		attempt.SessionID, attempt.Phone, string(attempt.Status),
		attempt.AttemptCount, attempt.LastSentAt,
	)
	if err != nil {
		return fmt.Errorf("save verification attempt: %w", err)
	}

	return nil
}
