// Package wizard implements the multi-step onboarding engine: an ordered
// sequence of steps, per-step validation that gates forward movement, and
// aggregation of validated input into a single record.
package wizard

import (
	"fmt"
	"slices"
)

// StepKind tags how a step participates in navigation.
type StepKind string

const (
	// KindNormal advances by one step.
	KindNormal StepKind = "normal"
	// KindBranchWithAsyncPause enters the verification step that follows it
	// and waits for CompleteVerification before moving on.
	KindBranchWithAsyncPause StepKind = "branch_with_async_pause"
	// KindVerification is the transient step entered from a branch step.
	KindVerification StepKind = "verification"
)

// InputKind describes what a step collects.
type InputKind string

const (
	InputNone   InputKind = "none"
	InputSingle InputKind = "single"
	InputMulti  InputKind = "multi"
	InputText   InputKind = "text"
)

// Policy names a validation rule.
type Policy string

const (
	PolicyAlways            Policy = "always"
	PolicyRequiredSelection Policy = "required_selection"
	PolicyMinLength         Policy = "min_length"
	PolicyURL               Policy = "url"
	PolicyMinItems          Policy = "min_items"
	PolicyRequiredField     Policy = "required_field"
)

// Rule is one validation condition on a step.
type Rule struct {
	Policy  Policy `yaml:"policy" json:"policy"`
	Field   string `yaml:"field,omitempty" json:"field,omitempty"`
	Min     int    `yaml:"min,omitempty" json:"min,omitempty"`
	Trim    bool   `yaml:"trim,omitempty" json:"trim,omitempty"`
	Message string `yaml:"message,omitempty" json:"message,omitempty"`
	// WhenSelected makes the rule apply only while this option is selected.
	WhenSelected string `yaml:"when_selected,omitempty" json:"when_selected,omitempty"`
}

// Field is a free-text input on a step.
type Field struct {
	ID        string `yaml:"id" json:"id"`
	Label     string `yaml:"label" json:"label"`
	Multiline bool   `yaml:"multiline,omitempty" json:"multiline,omitempty"`
	Default   string `yaml:"default,omitempty" json:"default,omitempty"`
}

// Step is one screen of a flow. Number is assigned from the position in the flow.
type Step struct {
	Number      int       `yaml:"-" json:"number"`
	ID          string    `yaml:"id" json:"id"`
	Title       string    `yaml:"title" json:"title"`
	Kind        StepKind  `yaml:"kind,omitempty" json:"kind"`
	Input       InputKind `yaml:"input,omitempty" json:"input"`
	Options     []string  `yaml:"options,omitempty" json:"options,omitempty"`
	AllowCustom bool      `yaml:"allow_custom,omitempty" json:"allow_custom,omitempty"`
	Fields      []Field   `yaml:"fields,omitempty" json:"fields,omitempty"`
	Rules       []Rule    `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// HasOption reports whether item is one of the declared options.
func (s *Step) HasOption(item string) bool {
	return slices.Contains(s.Options, item)
}

// HasField reports whether the step declares a free-text field with this id.
func (s *Step) HasField(id string) bool {
	for _, f := range s.Fields {
		if f.ID == id {
			return true
		}
	}
	return false
}

// Flow is an ordered step sequence.
type Flow struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
	Steps []Step `yaml:"steps" json:"steps"`
}

// TotalSteps returns the number of steps in the flow.
func (f *Flow) TotalSteps() int {
	return len(f.Steps)
}

// Step returns the step with the given 1-indexed number.
func (f *Flow) Step(n int) (*Step, bool) {
	if n < 1 || n > len(f.Steps) {
		return nil, false
	}
	return &f.Steps[n-1], true
}

// normalize fills defaults and numbers the steps, then checks the flow is
// navigable.
func (f *Flow) normalize() error {
	if f.ID == "" {
		return fmt.Errorf("flow id is required")
	}
	if len(f.Steps) == 0 {
		return fmt.Errorf("flow %s: no steps", f.ID)
	}

	seen := make(map[string]bool, len(f.Steps))
	for i := range f.Steps {
		s := &f.Steps[i]
		s.Number = i + 1
		if s.Kind == "" {
			s.Kind = KindNormal
		}
		if s.Input == "" {
			s.Input = InputNone
			if len(s.Fields) > 0 {
				s.Input = InputText
			}
		}
		if s.ID == "" {
			return fmt.Errorf("flow %s: step %d has no id", f.ID, s.Number)
		}
		if seen[s.ID] {
			return fmt.Errorf("flow %s: duplicate step id %q", f.ID, s.ID)
		}
		seen[s.ID] = true

		if err := f.checkStep(s); err != nil {
			return err
		}
	}
	return nil
}

func (f *Flow) checkStep(s *Step) error {
	switch s.Input {
	case InputSingle, InputMulti:
		if len(s.Options) == 0 && !s.AllowCustom {
			return fmt.Errorf("flow %s: step %s selects from no options", f.ID, s.ID)
		}
	case InputNone, InputText:
	default:
		return fmt.Errorf("flow %s: step %s has unknown input %q", f.ID, s.ID, s.Input)
	}

	switch s.Kind {
	case KindNormal:
	case KindBranchWithAsyncPause:
		next, ok := f.Step(s.Number + 1)
		if !ok || next.Kind != KindVerification {
			return fmt.Errorf("flow %s: branch step %s must be followed by a verification step", f.ID, s.ID)
		}
		if s.Number+2 > len(f.Steps) {
			return fmt.Errorf("flow %s: branch step %s needs a step after its verification", f.ID, s.ID)
		}
	case KindVerification:
		prev, ok := f.Step(s.Number - 1)
		if !ok || prev.Kind != KindBranchWithAsyncPause {
			return fmt.Errorf("flow %s: verification step %s must follow a branch step", f.ID, s.ID)
		}
	default:
		return fmt.Errorf("flow %s: step %s has unknown kind %q", f.ID, s.ID, s.Kind)
	}

	for _, r := range s.Rules {
		switch r.Policy {
		case PolicyAlways, PolicyRequiredSelection, PolicyMinItems:
		case PolicyMinLength, PolicyURL, PolicyRequiredField:
			if !s.HasField(r.Field) {
				return fmt.Errorf("flow %s: step %s rule %s references unknown field %q", f.ID, s.ID, r.Policy, r.Field)
			}
		default:
			return fmt.Errorf("flow %s: step %s has unknown policy %q", f.ID, s.ID, r.Policy)
		}
	}
	return nil
}
