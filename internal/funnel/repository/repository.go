package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"funnel_backend/internal/funnel/domain"
	"funnel_backend/platform/apperr"
)

const funnelStateNotFoundMessage = "funnel state not found"

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new funnel state repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Get retrieves the funnel state for a session.
func (r *Repo) Get(ctx context.Context, sessionID uuid.UUID) (*domain.FunnelState, error) {
	query := `
		SELECT session_id, track, phase, step_index, answers, submission_id, updated_at
		FROM funnel_states
		WHERE session_id = $1`

	var (
		state        domain.FunnelState
		track        string
		phase        string
		answersJSON  []byte
		submissionID *uuid.UUID
		updatedAt    time.Time
	)

	err := r.pool.QueryRow(ctx, query, sessionID).Scan(
		&state.SessionID, &track, &phase, &state.StepIndex, &answersJSON, &submissionID, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(funnelStateNotFoundMessage)
		}
		return nil, fmt.Errorf("get funnel state: %w", err)
	}

	state.Track = domain.Track(track)
	state.Phase = domain.Phase(phase)
	state.SubmissionID = submissionID
	state.UpdatedAt = updatedAt

	state.Answers = make(domain.AnswerSet)
	if len(answersJSON) > 0 {
		if err := json.Unmarshal(answersJSON, &state.Answers); err != nil {
			return nil, fmt.Errorf("decode funnel answers: %w", err)
		}
	}

	return &state, nil
}

// Save upserts the funnel state for its session.
func (r *Repo) Save(ctx context.Context, state *domain.FunnelState) error {
	answersJSON, err := json.Marshal(state.Answers)
	if err != nil {
		return fmt.Errorf("encode funnel answers: %w", err)
	}

	query := `
		INSERT INTO funnel_states (session_id, track, phase, step_index, answers, submission_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (session_id) DO UPDATE SET
			track = EXCLUDED.track,
			phase = EXCLUDED.phase,
			step_index = EXCLUDED.step_index,
			answers = EXCLUDED.answers,
			submission_id = EXCLUDED.submission_id,
			updated_at = now()`

	_, err = r.pool.Exec(ctx, query,
		state.SessionID, string(state.Track), string(state.Phase),
		state.StepIndex, answersJSON, state.SubmissionID,
	)
	if err != nil {
		return fmt.Errorf("save funnel state: %w", err)
	}

	return nil
}
