package scoring

import (
	"testing"

	"funnel_backend/internal/funnel/definition"
	"funnel_backend/internal/funnel/domain"
)

// The primary track carries exactly nine scored questions worth one point
// each; sliders, the multi-choice interests question, phone, and contact
// contribute nothing.
var topAnswers = map[string]domain.AnswerValue{
	"assets":               domain.NewChoice("over_100k"),
	"savings":              domain.NewNumber(250000),
	"equity_allocation":    domain.NewNumber(40),
	"has_retirement_plan":  domain.NewChoice("yes"),
	"owns_property":        domain.NewChoice("yes"),
	"invests_monthly":      domain.NewChoice("yes"),
	"has_emergency_fund":   domain.NewChoice("yes"),
	"retirement_confidence": domain.NewChoice("very_confident"),
	"knows_pension_gap":    domain.NewChoice("yes"),
	"advisor_experience":   domain.NewChoice("had_advisor"),
	"risk_tolerance":       domain.NewChoice("growth"),
	"planning_horizon":     domain.NewChoice("long_term"),
	"interests":            domain.NewChoices("retirement", "etf"),
}

func primaryTrack(t *testing.T) *domain.TrackDefinition {
	t.Helper()
	defs, err := definition.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def, err := defs.Get(domain.TrackPrimary)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	return def
}

func TestScoreAllMaxAnswers(t *testing.T) {
	def := primaryTrack(t)
	answers := make(domain.AnswerSet)
	for id, value := range topAnswers {
		answers[id] = value
	}

	score, maxScore := Score(def, answers)
	if maxScore != 9 {
		t.Fatalf("expected max score 9, got %d", maxScore)
	}
	if score != 9 {
		t.Fatalf("expected score 9, got %d", score)
	}

	outcome := Route(score, maxScore)
	if outcome.Percentile != 100 {
		t.Fatalf("expected percentile 100, got %d", outcome.Percentile)
	}
	if outcome.Band != BandHigh {
		t.Fatalf("expected high band, got %s", outcome.Band)
	}
}

func TestScoreIgnoresUnansweredAndUnscored(t *testing.T) {
	def := primaryTrack(t)
	answers := domain.AnswerSet{
		"savings":             domain.NewNumber(40000),
		"has_retirement_plan": domain.NewChoice("yes"),
		"owns_property":       domain.NewChoice("no"),
	}

	score, maxScore := Score(def, answers)
	if score != 1 {
		t.Fatalf("expected score 1, got %d", score)
	}
	if maxScore != 9 {
		t.Fatalf("expected max score 9, got %d", maxScore)
	}
}

func TestScoreMultiChoiceContributesBestOption(t *testing.T) {
	defs, err := definition.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def, err := defs.Get(domain.TrackStarter)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	answers := domain.AnswerSet{
		"income_goal": domain.NewChoice("build_savings"),
	}
	score, _ := Score(def, answers)
	if score != 1 {
		t.Fatalf("expected score 1, got %d", score)
	}
}

func TestRouteBands(t *testing.T) {
	tests := []struct {
		name       string
		score      int
		maxScore   int
		band       Band
		percentile int
	}{
		{"zero of nine", 0, 9, BandLow, 0},
		{"three of nine is low", 3, 9, BandLow, 33},
		{"four of nine is mid", 4, 9, BandMid, 44},
		{"six of nine is mid", 6, 9, BandMid, 67},
		{"seven of nine is high", 7, 9, BandHigh, 78},
		{"nine of nine is high", 9, 9, BandHigh, 100},
		{"exactly mid threshold", 40, 100, BandMid, 40},
		{"exactly high threshold", 75, 100, BandHigh, 75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := Route(tt.score, tt.maxScore)
			if outcome.Band != tt.band {
				t.Fatalf("expected band %s, got %s", tt.band, outcome.Band)
			}
			if outcome.Percentile != tt.percentile {
				t.Fatalf("expected percentile %d, got %d", tt.percentile, outcome.Percentile)
			}
		})
	}
}

func TestRouteZeroMaxScore(t *testing.T) {
	outcome := Route(5, 0)
	if outcome.Band != BandLow || outcome.Percentile != 0 {
		t.Fatalf("expected low/0 for zero max score, got %s/%d", outcome.Band, outcome.Percentile)
	}
}
