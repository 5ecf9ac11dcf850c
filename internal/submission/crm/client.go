// Package crm forwards persisted leads to the downstream CRM webhook.
// Delivery is best-effort; the funnel never waits on the CRM.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"funnel_backend/internal/funnel/domain"
	"funnel_backend/internal/submission/repository"
)

// Notifier pushes one lead to the CRM.
type Notifier interface {
	NotifyLead(ctx context.Context, lead repository.Lead) error
}

// Noop discards leads. Used when no CRM webhook is configured.
type Noop struct{}

func (Noop) NotifyLead(context.Context, repository.Lead) error { return nil }

// Client posts leads to a CRM webhook as JSON.
type Client struct {
	webhookURL string
	httpClient *http.Client
}

// New creates a CRM webhook client, or a Noop when no URL is configured.
func New(webhookURL string, timeout time.Duration) Notifier {
	if webhookURL == "" {
		return Noop{}
	}
	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// webhookPayload is the wire shape the CRM expects.
type webhookPayload struct {
	SubmissionID string           `json:"submission_id"`
	SessionID    string           `json:"session_id"`
	Variant      string           `json:"variant"`
	Track        string           `json:"track"`
	FirstName    string           `json:"first_name"`
	LastName     string           `json:"last_name"`
	Email        string           `json:"email"`
	Phone        string           `json:"phone"`
	Answers      domain.AnswerSet `json:"answers"`
	Score        int              `json:"score"`
	MaxScore     int              `json:"max_score"`
	Percentile   int              `json:"percentile"`
	Band         string           `json:"band"`
	UTMSource    string           `json:"utm_source,omitempty"`
	UTMMedium    string           `json:"utm_medium,omitempty"`
	UTMCampaign  string           `json:"utm_campaign,omitempty"`
}

// NotifyLead posts the lead to the webhook. Any non-2xx response is an error.
func (c *Client) NotifyLead(ctx context.Context, lead repository.Lead) error {
	payload := webhookPayload{
		SubmissionID: lead.SubmissionID.String(),
		SessionID:    lead.SessionID.String(),
		Variant:      lead.Variant,
		Track:        lead.Track,
		FirstName:    lead.FirstName,
		LastName:     lead.LastName,
		Email:        lead.Email,
		Phone:        lead.Phone,
		Answers:      lead.Answers,
		Score:        lead.Score,
		MaxScore:     lead.MaxScore,
		Percentile:   lead.Percentile,
		Band:         lead.Band,
		UTMSource:    lead.UTMSource,
		UTMMedium:    lead.UTMMedium,
		UTMCampaign:  lead.UTMCampaign,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode crm payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build crm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post lead to crm: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("crm webhook returned status %d", resp.StatusCode)
	}

	return nil
}
