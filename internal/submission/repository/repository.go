package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"funnel_backend/internal/funnel/domain"
	"funnel_backend/platform/apperr"
)

const leadNotFoundMessage = "lead not found"

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new lead repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

const leadColumns = `
	submission_id, session_id, variant, entry_variant, track,
	first_name, last_name, email, phone, answers,
	score, max_score, percentile, band,
	utm_source, utm_medium, utm_campaign, unsent,
	created_at, updated_at`

// Upsert inserts the lead or replaces it when the submission id exists.
func (r *Repo) Upsert(ctx context.Context, lead Lead) error {
	answersJSON, err := json.Marshal(lead.Answers)
	if err != nil {
		return fmt.Errorf("encode lead answers: %w", err)
	}

	query := `
		INSERT INTO leads (
			submission_id, session_id, variant, entry_variant, track,
			first_name, last_name, email, phone, answers,
			score, max_score, percentile, band,
			utm_source, utm_medium, utm_campaign, unsent,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, now(), now())
		ON CONFLICT (submission_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			answers = EXCLUDED.answers,
			score = EXCLUDED.score,
			max_score = EXCLUDED.max_score,
			percentile = EXCLUDED.percentile,
			band = EXCLUDED.band,
			unsent = EXCLUDED.unsent,
			updated_at = now()`

	_, err = r.pool.Exec(ctx, query,
		lead.SubmissionID, lead.SessionID, lead.Variant, lead.EntryVariant, lead.Track,
		lead.FirstName, lead.LastName, lead.Email, lead.Phone, answersJSON,
		lead.Score, lead.MaxScore, lead.Percentile, lead.Band,
		lead.UTMSource, lead.UTMMedium, lead.UTMCampaign, lead.Unsent,
	)
	if err != nil {
		return fmt.Errorf("upsert lead: %w", err)
	}

	return nil
}

// GetBySubmissionID returns the lead for a submission id.
func (r *Repo) GetBySubmissionID(ctx context.Context, submissionID uuid.UUID) (Lead, error) {
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE submission_id = $1`, leadColumns)
	return r.scanLead(r.pool.QueryRow(ctx, query, submissionID))
}

// GetBySessionID returns the session's lead.
func (r *Repo) GetBySessionID(ctx context.Context, sessionID uuid.UUID) (Lead, error) {
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE session_id = $1`, leadColumns)
	return r.scanLead(r.pool.QueryRow(ctx, query, sessionID))
}

func (r *Repo) scanLead(row pgx.Row) (Lead, error) {
	var (
		lead        Lead
		answersJSON []byte
	)
	err := row.Scan(
		&lead.SubmissionID, &lead.SessionID, &lead.Variant, &lead.EntryVariant, &lead.Track,
		&lead.FirstName, &lead.LastName, &lead.Email, &lead.Phone, &answersJSON,
		&lead.Score, &lead.MaxScore, &lead.Percentile, &lead.Band,
		&lead.UTMSource, &lead.UTMMedium, &lead.UTMCampaign, &lead.Unsent,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("get lead: %w", err)
	}

	lead.Answers = make(domain.AnswerSet)
	if len(answersJSON) > 0 {
		if err := json.Unmarshal(answersJSON, &lead.Answers); err != nil {
			return Lead{}, fmt.Errorf("decode lead answers: %w", err)
		}
	}

	return lead, nil
}

// RecordDelivery appends a delivery outcome for a submission.
func (r *Repo) RecordDelivery(ctx context.Context, delivery Delivery) error {
	query := `
		INSERT INTO delivery_statuses (submission_id, destination, state, detail, recorded_at)
		VALUES ($1, $2, $3, $4, now())`

	_, err := r.pool.Exec(ctx, query,
		delivery.SubmissionID, string(delivery.Destination), string(delivery.State), delivery.Detail,
	)
	if err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}

	return nil
}

// ListDeliveries returns all delivery outcomes for a submission, oldest first.
func (r *Repo) ListDeliveries(ctx context.Context, submissionID uuid.UUID) ([]Delivery, error) {
	query := `
		SELECT id, submission_id, destination, state, detail, recorded_at
		FROM delivery_statuses
		WHERE submission_id = $1
		ORDER BY recorded_at, id`

	rows, err := r.pool.Query(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []Delivery
	for rows.Next() {
		var (
			d           Delivery
			destination string
			state       string
		)
		if err := rows.Scan(&d.ID, &d.SubmissionID, &destination, &state, &d.Detail, &d.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		d.Destination = Destination(destination)
		d.State = DeliveryState(state)
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}

	return deliveries, nil
}
