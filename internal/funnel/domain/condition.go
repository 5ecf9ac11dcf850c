package domain

import "fmt"

// ConditionOp is a comparison operator for conditional predicates.
type ConditionOp string

const (
	OpGte ConditionOp = "gte"
	OpGt  ConditionOp = "gt"
	OpLte ConditionOp = "lte"
	OpLt  ConditionOp = "lt"
	OpEq  ConditionOp = "eq"
	OpNeq ConditionOp = "neq"
	OpIn  ConditionOp = "in"
)

// Condition is a predicate over a prior answer. A question whose conditional
// evaluates false is excluded from the active sequence for the current render;
// its historical answer, if any, is retained.
type Condition struct {
	Question string      `yaml:"question"`
	Op       ConditionOp `yaml:"op"`
	Number   float64     `yaml:"number"`
	Value    string      `yaml:"value"`
	Values   []string    `yaml:"values"`
}

// Evaluate returns whether the predicate holds for the given answer set.
// A condition over an unanswered question evaluates false: the dependent
// question stays hidden until the triggering answer exists.
func (c *Condition) Evaluate(answers AnswerSet) bool {
	answer, ok := answers[c.Question]
	if !ok {
		return false
	}
	return c.EvaluateValue(answer)
}

// EvaluateValue applies the predicate directly to a single answer value.
// Used for track-switch triggers, where the condition refers to the answer of
// the question being answered rather than a prior one.
func (c *Condition) EvaluateValue(answer AnswerValue) bool {
	switch c.Op {
	case OpGte:
		return answer.Kind == AnswerNumber && answer.Number >= c.Number
	case OpGt:
		return answer.Kind == AnswerNumber && answer.Number > c.Number
	case OpLte:
		return answer.Kind == AnswerNumber && answer.Number <= c.Number
	case OpLt:
		return answer.Kind == AnswerNumber && answer.Number < c.Number
	case OpEq:
		return answer.Kind == AnswerChoice && answer.Choice == c.Value
	case OpNeq:
		return answer.Kind == AnswerChoice && answer.Choice != c.Value
	case OpIn:
		if answer.Kind != AnswerChoice {
			return false
		}
		for _, v := range c.Values {
			if answer.Choice == v {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// ValidateOp checks the operator is known and carries its operands.
func (c *Condition) ValidateOp() error {
	switch c.Op {
	case OpGte, OpGt, OpLte, OpLt, OpEq, OpNeq:
		return nil
	case OpIn:
		if len(c.Values) == 0 {
			return fmt.Errorf("op 'in' requires values")
		}
		return nil
	default:
		return fmt.Errorf("unknown op %q", c.Op)
	}
}

// Validate checks the condition is well-formed for definition loading.
func (c *Condition) Validate() error {
	if c.Question == "" {
		return fmt.Errorf("condition missing question reference")
	}
	if err := c.ValidateOp(); err != nil {
		return fmt.Errorf("condition on %q: %w", c.Question, err)
	}
	return nil
}
