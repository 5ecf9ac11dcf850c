// Package transport defines the funnel module's request and response DTOs.
package transport

import (
	"fmt"

	"funnel_backend/internal/funnel/domain"
)

// ContactPayload carries the contact-form fields of an answer.
type ContactPayload struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Phone     string `json:"phone"`
}

// AnswerPayload is the wire form of the tagged answer union.
type AnswerPayload struct {
	Kind    string          `json:"kind" binding:"required,oneof=choice choices number contact"`
	Choice  string          `json:"choice"`
	Choices []string        `json:"choices"`
	Number  *float64        `json:"number"`
	Contact *ContactPayload `json:"contact"`
}

// AnswerRequest applies one answer to the current step.
type AnswerRequest struct {
	QuestionID string        `json:"questionId" binding:"required"`
	Answer     AnswerPayload `json:"answer" binding:"required"`
}

// ToDomain converts the payload into the domain's tagged union.
func (p AnswerPayload) ToDomain() (domain.AnswerValue, error) {
	switch p.Kind {
	case "choice":
		return domain.NewChoice(p.Choice), nil
	case "choices":
		return domain.NewChoices(p.Choices...), nil
	case "number":
		if p.Number == nil {
			return domain.AnswerValue{}, fmt.Errorf("number answer requires a number")
		}
		return domain.NewNumber(*p.Number), nil
	case "contact":
		if p.Contact == nil {
			return domain.AnswerValue{}, fmt.Errorf("contact answer requires contact details")
		}
		return domain.NewContact(domain.Contact{
			FirstName: p.Contact.FirstName,
			LastName:  p.Contact.LastName,
			Email:     p.Contact.Email,
			Phone:     p.Contact.Phone,
		}), nil
	default:
		return domain.AnswerValue{}, fmt.Errorf("unknown answer kind %q", p.Kind)
	}
}

// OptionView is an option as rendered to the visitor. Scoring contributions
// are deliberately not exposed.
type OptionView struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// QuestionView is a question as rendered to the visitor.
type QuestionView struct {
	ID       string       `json:"id"`
	Kind     string       `json:"kind"`
	Prompt   string       `json:"prompt"`
	Options  []OptionView `json:"options,omitempty"`
	Min      float64      `json:"min,omitempty"`
	Max      float64      `json:"max,omitempty"`
	Step     float64      `json:"step,omitempty"`
	Optional bool         `json:"optional,omitempty"`
	Answered bool         `json:"answered"`
}

// ToQuestionView maps a question spec to its visitor-facing view.
func ToQuestionView(q domain.QuestionSpec, answered bool) QuestionView {
	view := QuestionView{
		ID:       q.ID,
		Kind:     string(q.Kind),
		Prompt:   q.Prompt,
		Min:      q.Min,
		Max:      q.Max,
		Step:     q.Step,
		Optional: q.Optional,
		Answered: answered,
	}
	for _, opt := range q.Options {
		view.Options = append(view.Options, OptionView{Value: opt.Value, Label: opt.Label})
	}
	return view
}

// StateResponse is the full funnel state for one session.
type StateResponse struct {
	Track      string         `json:"track"`
	Phase      string         `json:"phase"`
	StepIndex  int            `json:"stepIndex"`
	TotalSteps int            `json:"totalSteps"`
	Current    *QuestionView  `json:"current,omitempty"`
	Questions  []QuestionView `json:"questions"`
}

// SubmitResponse is the terminal result shown to the visitor.
type SubmitResponse struct {
	SubmissionID string `json:"submissionId"`
	Score        int    `json:"score"`
	MaxScore     int    `json:"maxScore"`
	Percentile   int    `json:"percentile"`
	Band         string `json:"band"`
	ResultsRoute string `json:"resultsRoute"`
}
