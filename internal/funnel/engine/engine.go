// Package engine computes the active question sequence for a funnel run.
// The sequence is recomputed after every answer so conditional questions
// appear and disappear in step with the answers that trigger them.
package engine

import "funnel_backend/internal/funnel/domain"

// ActiveSequence returns the ordered question list for the current answer set.
// Questions whose conditional predicate evaluates false are excluded for this
// render; their historical answers are not deleted.
func ActiveSequence(def *domain.TrackDefinition, answers domain.AnswerSet) []domain.QuestionSpec {
	sequence := make([]domain.QuestionSpec, 0, len(def.Questions))
	for _, q := range def.Questions {
		if q.Conditional != nil && !q.Conditional.Evaluate(answers) {
			continue
		}
		sequence = append(sequence, q)
	}
	return sequence
}

// ClampIndex keeps the step index within [0, len(sequence)]. An earlier answer
// changing can hide the question the index points at; clamping rather than
// erroring keeps the run recoverable.
func ClampIndex(index, sequenceLen int) int {
	if index < 0 {
		return 0
	}
	if index > sequenceLen {
		return sequenceLen
	}
	return index
}

// SwitchTarget reports whether the given answer on the given question triggers
// a track switch, and to which track.
func SwitchTarget(spec domain.QuestionSpec, answer domain.AnswerValue) (domain.Track, bool) {
	if spec.Switch == nil {
		return "", false
	}
	if spec.Switch.OnValue != "" {
		if answer.Kind == domain.AnswerChoice && answer.Choice == spec.Switch.OnValue {
			return spec.Switch.Target, true
		}
		return "", false
	}
	if spec.Switch.When != nil && spec.Switch.When.EvaluateValue(answer) {
		return spec.Switch.Target, true
	}
	return "", false
}

// IndexOf returns the position of the question in the sequence, or -1.
func IndexOf(sequence []domain.QuestionSpec, questionID string) int {
	for i, q := range sequence {
		if q.ID == questionID {
			return i
		}
	}
	return -1
}
