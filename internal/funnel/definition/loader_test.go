package definition

import (
	"testing"

	"funnel_backend/internal/funnel/domain"
)

func TestLoadEmbeddedDefinitions(t *testing.T) {
	defs, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	primary, err := defs.Get(domain.TrackPrimary)
	if err != nil {
		t.Fatalf("primary track missing: %v", err)
	}
	if !primary.RequirePhoneVerification {
		t.Fatal("primary track must require phone verification")
	}
	if primary.MaxScore() != 9 {
		t.Fatalf("expected primary max score 9, got %d", primary.MaxScore())
	}

	starter, err := defs.Get(domain.TrackStarter)
	if err != nil {
		t.Fatalf("starter track missing: %v", err)
	}
	if starter.RequirePhoneVerification {
		t.Fatal("starter track must not require phone verification")
	}

	assets, ok := primary.Question("assets")
	if !ok || assets.Switch == nil || assets.Switch.Target != domain.TrackStarter {
		t.Fatal("assets question must switch to the starter track")
	}
}

func TestParseRejectsDuplicateIDs(t *testing.T) {
	_, err := parse([]byte(`
tracks:
  primary:
    questions:
      - id: a
        kind: single_choice
        options:
          - { value: x, label: X }
      - id: a
        kind: single_choice
        options:
          - { value: y, label: Y }
`))
	if err == nil {
		t.Fatal("expected error for duplicate question ids")
	}
}

func TestParseRejectsForwardConditional(t *testing.T) {
	_, err := parse([]byte(`
tracks:
  primary:
    questions:
      - id: a
        kind: single_choice
        conditional:
          question: b
          op: eq
          value: x
        options:
          - { value: x, label: X }
      - id: b
        kind: single_choice
        options:
          - { value: x, label: X }
`))
	if err == nil {
		t.Fatal("expected error for conditional referencing a later question")
	}
}

func TestParseRejectsUnknownSwitchTarget(t *testing.T) {
	_, err := parse([]byte(`
tracks:
  primary:
    questions:
      - id: a
        kind: single_choice
        options:
          - { value: x, label: X }
        switch_track:
          on_value: x
          target: missing
`))
	if err == nil {
		t.Fatal("expected error for unknown switch target")
	}
}

func TestParseRejectsInvalidSliderBounds(t *testing.T) {
	_, err := parse([]byte(`
tracks:
  primary:
    questions:
      - id: a
        kind: numeric_slider
        min: 100
        max: 100
`))
	if err == nil {
		t.Fatal("expected error for empty slider range")
	}
}
