// Package scoring computes a lead's qualification score and routing outcome
// from a completed answer set. All functions are pure and deterministic: the
// same track definition and answers always produce the same result, so a
// recorded answer set is sufficient to reproduce any score.
package scoring

import (
	"math"

	"funnel_backend/internal/funnel/domain"
)

// Band is the ordered routing bucket for a normalized score.
type Band string

const (
	BandLow  Band = "low"
	BandMid  Band = "mid"
	BandHigh Band = "high"
)

// Band thresholds over the normalized score, in percent.
const (
	midThreshold  = 40
	highThreshold = 75
)

// Outcome is the routing decision derived from a score.
type Outcome struct {
	Band       Band
	Percentile int
}

// Score sums the per-question contributions for the given answers. Questions
// that are unanswered, hidden by a conditional, or carry no point table
// contribute zero, so the function is total over every reachable answer set.
// The second return value is the track's maximum achievable score.
func Score(def *domain.TrackDefinition, answers domain.AnswerSet) (int, int) {
	total := 0
	for _, q := range def.Questions {
		answer, ok := answers[q.ID]
		if !ok {
			continue
		}
		total += contribution(q, answer)
	}
	return total, def.MaxScore()
}

// contribution maps one answer to its point value via the question's option
// table. Multi-choice questions contribute the highest-valued selected option
// so a single question never contributes more than its declared maximum.
func contribution(q domain.QuestionSpec, answer domain.AnswerValue) int {
	switch answer.Kind {
	case domain.AnswerChoice:
		return q.OptionPoints(answer.Choice)
	case domain.AnswerChoices:
		best := 0
		for _, choice := range answer.Choices {
			if pts := q.OptionPoints(choice); pts > best {
				best = pts
			}
		}
		return best
	default:
		// Sliders and contact details carry no scoring contribution.
		return 0
	}
}

// Route buckets the normalized score into ordered bands and converts it to a
// percentile for display. A zero maxScore routes to the low band.
func Route(score, maxScore int) Outcome {
	if maxScore <= 0 {
		return Outcome{Band: BandLow, Percentile: 0}
	}

	percentile := int(math.Round(float64(score) / float64(maxScore) * 100))
	if percentile < 0 {
		percentile = 0
	}
	if percentile > 100 {
		percentile = 100
	}

	band := BandLow
	switch {
	case percentile >= highThreshold:
		band = BandHigh
	case percentile >= midThreshold:
		band = BandMid
	}

	return Outcome{Band: band, Percentile: percentile}
}
