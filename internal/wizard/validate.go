package wizard

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"
)

// Reason classifies a validation failure.
type Reason string

const (
	ReasonRequiredSelection   Reason = "required_selection"
	ReasonMinLength           Reason = "min_length"
	ReasonInvalidURL          Reason = "invalid_url"
	ReasonMinItems            Reason = "min_items"
	ReasonRequiredField       Reason = "required_field"
	ReasonVerificationPending Reason = "verification_pending"
	ReasonStepOutOfRange      Reason = "step_out_of_range"
)

// ValidationError is the expected, recoverable result of invalid step input.
type ValidationError struct {
	Step    int    `json:"step"`
	StepID  string `json:"step_id"`
	Reason  Reason `json:"reason"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("step %d (%s) field %s: %s", e.Step, e.StepID, e.Field, e.Reason)
	}
	return fmt.Sprintf("step %d (%s): %s", e.Step, e.StepID, e.Reason)
}

// validateStep runs the step's rules against its captured input in order and
// returns the first failure, or nil.
func validateStep(step *Step, in StepResponse) *ValidationError {
	for _, rule := range step.Rules {
		if rule.WhenSelected != "" && !slices.Contains(in.SelectedOptions, rule.WhenSelected) {
			continue
		}
		if reason, ok := checkRule(rule, in); !ok {
			return &ValidationError{
				Step:    step.Number,
				StepID:  step.ID,
				Reason:  reason,
				Field:   rule.Field,
				Message: messageFor(rule, reason),
			}
		}
	}
	return nil
}

func checkRule(rule Rule, in StepResponse) (Reason, bool) {
	switch rule.Policy {
	case PolicyRequiredSelection:
		return ReasonRequiredSelection, len(in.SelectedOptions) > 0
	case PolicyMinItems:
		minItems := rule.Min
		if minItems < 1 {
			minItems = 1
		}
		return ReasonMinItems, len(in.SelectedOptions) >= minItems
	case PolicyMinLength:
		v := in.FreeTextFields[rule.Field]
		if rule.Trim {
			v = strings.TrimSpace(v)
		}
		return ReasonMinLength, utf8.RuneCountInString(v) >= rule.Min
	case PolicyRequiredField:
		return ReasonRequiredField, strings.TrimSpace(in.FreeTextFields[rule.Field]) != ""
	case PolicyURL:
		return ReasonInvalidURL, isValidURL(in.FreeTextFields[rule.Field])
	default:
		return "", true
	}
}

// isValidURL accepts absolute URLs: a scheme plus either a host or an opaque part.
func isValidURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return false
	}
	return u.Host != "" || u.Opaque != ""
}

func messageFor(rule Rule, reason Reason) string {
	if rule.Message != "" {
		return rule.Message
	}
	switch reason {
	case ReasonRequiredSelection:
		return "Please make a selection."
	case ReasonMinItems:
		if rule.Min > 1 {
			return fmt.Sprintf("Please select at least %d options.", rule.Min)
		}
		return "Please select at least one option."
	case ReasonMinLength:
		return fmt.Sprintf("Please provide at least %d characters.", rule.Min)
	case ReasonInvalidURL:
		return "Please provide a valid URL."
	case ReasonRequiredField:
		return "Please fill in this field."
	default:
		return "Invalid input."
	}
}
