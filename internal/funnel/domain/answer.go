package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// AnswerKind discriminates the variants of AnswerValue.
type AnswerKind string

const (
	AnswerChoice  AnswerKind = "choice"
	AnswerChoices AnswerKind = "choices"
	AnswerNumber  AnswerKind = "number"
	AnswerContact AnswerKind = "contact"
)

// Contact is the structured answer of a contact-form question.
type Contact struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
}

// AnswerValue is a tagged union over the answer shapes the funnel accepts.
// Exactly the field matching Kind is meaningful.
type AnswerValue struct {
	Kind    AnswerKind `json:"kind"`
	Choice  string     `json:"choice,omitempty"`
	Choices []string   `json:"choices,omitempty"`
	Number  float64    `json:"number,omitempty"`
	Contact *Contact   `json:"contact,omitempty"`
}

// NewChoice builds a single-choice answer.
func NewChoice(value string) AnswerValue {
	return AnswerValue{Kind: AnswerChoice, Choice: value}
}

// NewChoices builds a multi-choice answer.
func NewChoices(values ...string) AnswerValue {
	return AnswerValue{Kind: AnswerChoices, Choices: values}
}

// NewNumber builds a numeric answer.
func NewNumber(value float64) AnswerValue {
	return AnswerValue{Kind: AnswerNumber, Number: value}
}

// NewContact builds a contact-form answer.
func NewContact(contact Contact) AnswerValue {
	return AnswerValue{Kind: AnswerContact, Contact: &contact}
}

// ValidateAgainst checks the answer value against the question's declared kind
// and constraints. A nil error means the answer may be applied.
func (v AnswerValue) ValidateAgainst(spec QuestionSpec) error {
	switch spec.Kind {
	case KindSingleChoice:
		if v.Kind != AnswerChoice {
			return fmt.Errorf("question %q expects a single choice", spec.ID)
		}
		if !spec.HasOption(v.Choice) {
			return fmt.Errorf("question %q: unknown option %q", spec.ID, v.Choice)
		}
	case KindMultiChoice:
		if v.Kind != AnswerChoices {
			return fmt.Errorf("question %q expects a list of choices", spec.ID)
		}
		if len(v.Choices) == 0 {
			return fmt.Errorf("question %q: at least one choice is required", spec.ID)
		}
		seen := make(map[string]bool, len(v.Choices))
		for _, choice := range v.Choices {
			if !spec.HasOption(choice) {
				return fmt.Errorf("question %q: unknown option %q", spec.ID, choice)
			}
			if seen[choice] {
				return fmt.Errorf("question %q: duplicate option %q", spec.ID, choice)
			}
			seen[choice] = true
		}
	case KindNumericSlider, KindPercentageSlider:
		if v.Kind != AnswerNumber {
			return fmt.Errorf("question %q expects a number", spec.ID)
		}
		if v.Number < spec.Min || v.Number > spec.Max {
			return fmt.Errorf("question %q: value %v outside [%v, %v]", spec.ID, v.Number, spec.Min, spec.Max)
		}
		if spec.Step > 0 {
			steps := (v.Number - spec.Min) / spec.Step
			if math.Abs(steps-math.Round(steps)) > 1e-9 {
				return fmt.Errorf("question %q: value %v not aligned to step %v", spec.ID, v.Number, spec.Step)
			}
		}
	case KindContactForm:
		if v.Kind != AnswerContact || v.Contact == nil {
			return fmt.Errorf("question %q expects contact details", spec.ID)
		}
		if strings.TrimSpace(v.Contact.FirstName) == "" {
			return fmt.Errorf("question %q: first name is required", spec.ID)
		}
		if strings.TrimSpace(v.Contact.LastName) == "" {
			return fmt.Errorf("question %q: last name is required", spec.ID)
		}
		if strings.TrimSpace(v.Contact.Email) == "" {
			return fmt.Errorf("question %q: email is required", spec.ID)
		}
	case KindPhoneCapture:
		if v.Kind != AnswerChoice || strings.TrimSpace(v.Choice) == "" {
			return fmt.Errorf("question %q expects a phone number", spec.ID)
		}
	default:
		return fmt.Errorf("question %q: unsupported kind %q", spec.ID, spec.Kind)
	}
	return nil
}

// AnswerSet maps question ids to their answer values. Keys are unique by
// construction; insertion order carries no meaning.
type AnswerSet map[string]AnswerValue

// Clone returns a deep copy of the answer set.
func (a AnswerSet) Clone() AnswerSet {
	clone := make(AnswerSet, len(a))
	for id, value := range a {
		if value.Contact != nil {
			contact := *value.Contact
			value.Contact = &contact
		}
		if value.Choices != nil {
			value.Choices = append([]string(nil), value.Choices...)
		}
		clone[id] = value
	}
	return clone
}

// Contact returns the contact-form answer, if one has been captured.
func (a AnswerSet) FindContact() (Contact, bool) {
	for _, value := range a {
		if value.Kind == AnswerContact && value.Contact != nil {
			return *value.Contact, true
		}
	}
	return Contact{}, false
}

// MarshalJSON keeps the wire format stable for persistence.
func (a AnswerSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]AnswerValue(a))
}

// UnmarshalJSON restores the answer set from its persisted form.
func (a *AnswerSet) UnmarshalJSON(data []byte) error {
	raw := make(map[string]AnswerValue)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = raw
	return nil
}
