package crm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"funnel_backend/internal/funnel/domain"
	"funnel_backend/internal/submission/repository"
)

func TestNotifyLeadPostsFullPayload(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	lead := repository.Lead{
		SubmissionID: uuid.New(),
		SessionID:    uuid.New(),
		Variant:      "control",
		Track:        "primary",
		FirstName:    "Erika",
		LastName:     "Mustermann",
		Email:        "erika@example.com",
		Answers: domain.AnswerSet{
			"assets":  domain.NewChoice("over_100k"),
			"savings": domain.NewNumber(250000),
		},
		Score:    7,
		MaxScore: 9,
		Band:     "high",
	}

	client := New(srv.URL, time.Second)
	if err := client.NotifyLead(context.Background(), lead); err != nil {
		t.Fatalf("NotifyLead: %v", err)
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	for _, key := range []string{"submission_id", "email", "band", "answers"} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("payload missing %q key", key)
		}
	}

	var answers domain.AnswerSet
	if err := json.Unmarshal(payload["answers"], &answers); err != nil {
		t.Fatalf("decode answers: %v", err)
	}
	if answers["assets"].Choice != "over_100k" || answers["savings"].Number != 250000 {
		t.Fatalf("answer set did not round-trip: %+v", answers)
	}
}

func TestNotifyLeadRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	if err := client.NotifyLead(context.Background(), repository.Lead{SubmissionID: uuid.New()}); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestNewWithoutURLIsNoop(t *testing.T) {
	if _, ok := New("", time.Second).(Noop); !ok {
		t.Fatal("expected Noop client when no webhook url is configured")
	}
}
