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

const sessionNotFoundMessage = "session not found"

// Repo implements the Store interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new session repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Store.
var _ Store = (*Repo)(nil)

// Get retrieves a session by its ID.
func (r *Repo) Get(ctx context.Context, id uuid.UUID) (Session, error) {
	query := `
		SELECT id, variant, entry_variant, utm_source, utm_medium, utm_campaign, utm_reported, created_at
		FROM sessions
		WHERE id = $1`

	var s Session
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.Variant, &s.EntryVariant,
		&s.UTMSource, &s.UTMMedium, &s.UTMCampaign,
		&s.UTMReported, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, apperr.NotFound(sessionNotFoundMessage)
		}
		return Session{}, fmt.Errorf("get session: %w", err)
	}

	return s, nil
}

// Create inserts a new session.
func (r *Repo) Create(ctx context.Context, session Session) error {
	query := `
		INSERT INTO sessions (id, variant, entry_variant, utm_source, utm_medium, utm_campaign, utm_reported, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())`

	_, err := r.pool.Exec(ctx, query,
		session.ID, session.Variant, session.EntryVariant,
		session.UTMSource, session.UTMMedium, session.UTMCampaign,
		session.UTMReported,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

// MarkUTMReported flips the one-shot attribution guard atomically. The WHERE
// clause makes the first writer win; later callers see zero affected rows.
func (r *Repo) MarkUTMReported(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE sessions
		SET utm_reported = TRUE
		WHERE id = $1 AND utm_reported = FALSE`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("mark utm reported: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Clear removes a session.
func (r *Repo) Clear(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
