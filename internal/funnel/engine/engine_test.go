package engine

import (
	"testing"

	"funnel_backend/internal/funnel/definition"
	"funnel_backend/internal/funnel/domain"
)

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

func TestActiveSequenceHidesConditionalBelowThreshold(t *testing.T) {
	def := primaryTrack(t)
	answers := domain.AnswerSet{
		"assets":  domain.NewChoice("25k_100k"),
		"savings": domain.NewNumber(40000),
	}

	sequence := ActiveSequence(def, answers)
	if IndexOf(sequence, "equity_allocation") != -1 {
		t.Fatal("equity_allocation must be hidden for savings below 100000")
	}

	// The question after savings is the first scored question.
	savingsIdx := IndexOf(sequence, "savings")
	if sequence[savingsIdx+1].ID != "has_retirement_plan" {
		t.Fatalf("expected has_retirement_plan after savings, got %s", sequence[savingsIdx+1].ID)
	}
}

func TestActiveSequenceShowsConditionalAtThreshold(t *testing.T) {
	def := primaryTrack(t)
	answers := domain.AnswerSet{
		"assets":  domain.NewChoice("over_100k"),
		"savings": domain.NewNumber(250000),
	}

	sequence := ActiveSequence(def, answers)
	savingsIdx := IndexOf(sequence, "savings")
	if sequence[savingsIdx+1].ID != "equity_allocation" {
		t.Fatalf("expected equity_allocation after savings, got %s", sequence[savingsIdx+1].ID)
	}
}

func TestActiveSequenceUnansweredPredicateIsFalse(t *testing.T) {
	def := primaryTrack(t)

	// No savings answer: the predicate over it must evaluate false, not error.
	sequence := ActiveSequence(def, domain.AnswerSet{})
	if IndexOf(sequence, "equity_allocation") != -1 {
		t.Fatal("conditional over an unanswered question must be hidden")
	}
}

func TestClampIndex(t *testing.T) {
	tests := []struct {
		index, seqLen, want int
	}{
		{-1, 5, 0},
		{0, 5, 0},
		{3, 5, 3},
		{5, 5, 5},
		{7, 5, 5},
	}
	for _, tt := range tests {
		if got := ClampIndex(tt.index, tt.seqLen); got != tt.want {
			t.Fatalf("ClampIndex(%d, %d) = %d, want %d", tt.index, tt.seqLen, got, tt.want)
		}
	}
}

func TestSwitchTargetOnValue(t *testing.T) {
	def := primaryTrack(t)
	assets, ok := def.Question("assets")
	if !ok {
		t.Fatal("assets question missing")
	}

	target, switched := SwitchTarget(assets, domain.NewChoice("under_25k"))
	if !switched || target != domain.TrackStarter {
		t.Fatalf("expected switch to starter, got %q %v", target, switched)
	}

	if _, switched := SwitchTarget(assets, domain.NewChoice("over_100k")); switched {
		t.Fatal("non-trigger answer must not switch tracks")
	}
}

func TestSwitchTargetWhenCondition(t *testing.T) {
	spec := domain.QuestionSpec{
		ID:   "amount",
		Kind: domain.KindNumericSlider,
		Min:  0,
		Max:  100,
		Switch: &domain.TrackSwitch{
			When:   &domain.Condition{Op: domain.OpLt, Number: 10},
			Target: domain.TrackStarter,
		},
	}

	if _, switched := SwitchTarget(spec, domain.NewNumber(5)); !switched {
		t.Fatal("expected switch for value below threshold")
	}
	if _, switched := SwitchTarget(spec, domain.NewNumber(50)); switched {
		t.Fatal("expected no switch for value above threshold")
	}
}
