// Package domain holds the funnel's core types: question specifications,
// answer values, conditional predicates, and the per-session step state.
package domain

// Track identifies an alternate ordered question set. A qualifying answer on a
// switch question replaces the active track entirely.
type Track string

const (
	// TrackPrimary is the default funnel track for visitors above the asset threshold.
	TrackPrimary Track = "primary"
	// TrackStarter is the shorter track for visitors below the asset threshold.
	TrackStarter Track = "starter"
)

// QuestionKind discriminates the answer shape a question expects.
type QuestionKind string

const (
	KindSingleChoice     QuestionKind = "single_choice"
	KindMultiChoice      QuestionKind = "multi_choice"
	KindNumericSlider    QuestionKind = "numeric_slider"
	KindPercentageSlider QuestionKind = "percentage_slider"
	KindContactForm      QuestionKind = "contact_form"
	KindPhoneCapture     QuestionKind = "phone_capture"
)

// Option is a selectable choice with its scoring contribution.
type Option struct {
	Value  string `yaml:"value" json:"value"`
	Label  string `yaml:"label" json:"label"`
	Points int    `yaml:"points" json:"-"`
}

// TrackSwitch declares that a particular answer on this question replaces the
// active track. Exactly one of Condition or OnValue is set.
type TrackSwitch struct {
	// OnValue switches when a choice question is answered with this option value.
	OnValue string `yaml:"on_value"`
	// When switches when the predicate holds for a numeric answer.
	When *Condition `yaml:"when"`
	// Target is the track to switch to.
	Target Track `yaml:"target"`
}

// QuestionSpec describes a single funnel question: its kind, constraints,
// optional visibility predicate, and optional track-switch trigger.
type QuestionSpec struct {
	ID          string       `yaml:"id" json:"id"`
	Kind        QuestionKind `yaml:"kind" json:"kind"`
	Prompt      string       `yaml:"prompt" json:"prompt"`
	Options     []Option     `yaml:"options" json:"options,omitempty"`
	Min         float64      `yaml:"min" json:"min,omitempty"`
	Max         float64      `yaml:"max" json:"max,omitempty"`
	Step        float64      `yaml:"step" json:"step,omitempty"`
	Optional    bool         `yaml:"optional" json:"optional,omitempty"`
	Conditional *Condition   `yaml:"conditional" json:"-"`
	Switch      *TrackSwitch `yaml:"switch_track" json:"-"`
}

// HasOption reports whether the given value is one of the question's options.
func (q QuestionSpec) HasOption(value string) bool {
	for _, opt := range q.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// OptionPoints returns the scoring contribution of the given option value.
func (q QuestionSpec) OptionPoints(value string) int {
	for _, opt := range q.Options {
		if opt.Value == value {
			return opt.Points
		}
	}
	return 0
}

// MaxPoints returns the highest contribution any single option carries.
func (q QuestionSpec) MaxPoints() int {
	max := 0
	for _, opt := range q.Options {
		if opt.Points > max {
			max = opt.Points
		}
	}
	return max
}

// TrackDefinition is an ordered question list with its verification policy.
type TrackDefinition struct {
	Track                    Track          `yaml:"-"`
	RequirePhoneVerification bool           `yaml:"require_phone_verification"`
	Questions                []QuestionSpec `yaml:"questions"`
}

// Question returns the spec with the given id, if present.
func (d *TrackDefinition) Question(id string) (QuestionSpec, bool) {
	for _, q := range d.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return QuestionSpec{}, false
}

// MaxScore returns the sum of the highest contribution of every scored question.
func (d *TrackDefinition) MaxScore() int {
	total := 0
	for _, q := range d.Questions {
		total += q.MaxPoints()
	}
	return total
}
