package wizard

import (
	"errors"
	"maps"
	"slices"
	"strings"
)

var (
	// ErrStepOutOfRange is returned for a step number outside [1, totalSteps].
	ErrStepOutOfRange = errors.New("step out of range")
	// ErrUnknownOption is returned when an item is not offered by the step.
	ErrUnknownOption = errors.New("unknown option")
	// ErrUnknownField is returned when a field id is not declared by the step.
	ErrUnknownField = errors.New("unknown field")
	// ErrWrongInput is returned when an operation does not match the step's input kind.
	ErrWrongInput = errors.New("operation does not match step input")
)

// StepResponse is the input captured for one step.
type StepResponse struct {
	StepID          string            `json:"step_id"`
	SelectedOptions []string          `json:"selected_options"`
	FreeTextFields  map[string]string `json:"free_text_fields"`
}

func (r StepResponse) clone() StepResponse {
	return StepResponse{
		StepID:          r.StepID,
		SelectedOptions: slices.Clone(r.SelectedOptions),
		FreeTextFields:  maps.Clone(r.FreeTextFields),
	}
}

// Outcome is what an Advance call did.
type Outcome string

const (
	OutcomeBlocked   Outcome = "blocked"
	OutcomeAdvanced  Outcome = "advanced"
	OutcomeVerifying Outcome = "verifying"
	OutcomeSubmitted Outcome = "submitted"
)

// Record is the aggregated result handed to the submission collaborator.
type Record struct {
	FlowID    string               `json:"flow_id"`
	Responses map[int]StepResponse `json:"responses"`
}

// Result reports the outcome of Advance. Failure is set only when blocked;
// Record is set only on the call that completed the flow.
type Result struct {
	Outcome Outcome          `json:"outcome"`
	Step    int              `json:"step"`
	Failure *ValidationError `json:"failure,omitempty"`
	Record  *Record          `json:"-"`
}

// Engine drives one traversal of a flow. It is not safe for concurrent use;
// callers serialize access.
type Engine struct {
	flow      *Flow
	current   int
	responses map[int]StepResponse
	drafts    map[int]StepResponse

	pending   bool
	trigger   int
	submitted bool
}

// New starts a traversal at step 1 with no responses.
func New(flow *Flow) *Engine {
	e := &Engine{
		flow:      flow,
		current:   1,
		responses: make(map[int]StepResponse),
		drafts:    make(map[int]StepResponse),
	}
	for i := range flow.Steps {
		s := &flow.Steps[i]
		for _, f := range s.Fields {
			if f.Default != "" {
				d := e.draft(s)
				d.FreeTextFields[f.ID] = f.Default
				e.drafts[s.Number] = d
			}
		}
	}
	return e
}

// Flow returns the flow definition.
func (e *Engine) Flow() *Flow { return e.flow }

// CurrentStep returns the 1-indexed current step.
func (e *Engine) CurrentStep() int { return e.current }

// TotalSteps returns the flow length.
func (e *Engine) TotalSteps() int { return e.flow.TotalSteps() }

// PendingVerification reports whether the engine is paused on a verification step.
func (e *Engine) PendingVerification() bool { return e.pending }

// Submitted reports whether the flow has been completed.
func (e *Engine) Submitted() bool { return e.submitted }

// ProgressFraction returns currentStep / totalSteps.
func (e *Engine) ProgressFraction() float64 {
	return float64(e.current) / float64(e.flow.TotalSteps())
}

// Response returns the stored response for a step, if validation has passed for it.
func (e *Engine) Response(step int) (StepResponse, bool) {
	r, ok := e.responses[step]
	if !ok {
		return StepResponse{}, false
	}
	return r.clone(), true
}

// Draft returns the in-progress input for a step.
func (e *Engine) Draft(step int) StepResponse {
	s, ok := e.flow.Step(step)
	if !ok {
		return StepResponse{}
	}
	return e.draft(s).clone()
}

// Validate checks a step's in-progress input. It has no side effects.
// A step outside the flow always fails.
func (e *Engine) Validate(step int) *ValidationError {
	s, ok := e.flow.Step(step)
	if !ok {
		return &ValidationError{Step: step, Reason: ReasonStepOutOfRange, Message: ErrStepOutOfRange.Error()}
	}
	return validateStep(s, e.draft(s))
}

// Advance validates the current step and moves forward on success.
func (e *Engine) Advance() Result {
	if e.submitted {
		return Result{Outcome: OutcomeSubmitted, Step: e.current}
	}

	step, _ := e.flow.Step(e.current)
	if e.pending {
		return Result{
			Outcome: OutcomeBlocked,
			Step:    e.current,
			Failure: &ValidationError{
				Step:    step.Number,
				StepID:  step.ID,
				Reason:  ReasonVerificationPending,
				Message: "Verification in progress.",
			},
		}
	}

	if failure := e.Validate(e.current); failure != nil {
		return Result{Outcome: OutcomeBlocked, Step: e.current, Failure: failure}
	}
	e.responses[e.current] = e.draft(step).clone()

	switch {
	case step.Kind == KindBranchWithAsyncPause:
		e.trigger = e.current
		e.pending = true
		e.current++
		return Result{Outcome: OutcomeVerifying, Step: e.current}
	case e.current == e.flow.TotalSteps():
		e.submitted = true
		return Result{Outcome: OutcomeSubmitted, Step: e.current, Record: e.record()}
	default:
		e.current++
		return Result{Outcome: OutcomeAdvanced, Step: e.current}
	}
}

// CompleteVerification ends a verification pause and moves two steps past
// the step that triggered it. It reports whether a pause was pending.
func (e *Engine) CompleteVerification() bool {
	if !e.pending {
		return false
	}
	e.pending = false
	e.current = e.trigger + 2
	return true
}

// Retreat moves back one step, floored at 1. From a verification step, or
// the step right after one, it returns to the step that triggered the
// verification.
func (e *Engine) Retreat() {
	if e.submitted || e.current <= 1 {
		return
	}
	if t, ok := e.verificationTrigger(); ok {
		e.pending = false
		e.current = t
		return
	}
	e.current--
}

func (e *Engine) verificationTrigger() (int, bool) {
	cur, _ := e.flow.Step(e.current)
	if cur.Kind == KindVerification {
		return e.current - 1, true
	}
	if prev, ok := e.flow.Step(e.current - 1); ok && prev.Kind == KindVerification {
		return e.current - 2, true
	}
	return 0, false
}

// Reopen clears the submitted flag so the final step can be advanced again,
// used when the submission collaborator rejected the record.
func (e *Engine) Reopen() {
	e.submitted = false
}

// ToggleMultiSelect flips an item in a multi-select step.
func (e *Engine) ToggleMultiSelect(step int, item string) error {
	s, err := e.selectable(step, InputMulti, item)
	if err != nil {
		return err
	}
	d := e.draft(s)
	if i := slices.Index(d.SelectedOptions, item); i >= 0 {
		d.SelectedOptions = slices.Delete(d.SelectedOptions, i, i+1)
	} else {
		d.SelectedOptions = append(d.SelectedOptions, item)
	}
	e.drafts[step] = d
	return nil
}

// SetSingleSelect replaces the selection of a single-select step.
func (e *Engine) SetSingleSelect(step int, item string) error {
	s, err := e.selectable(step, InputSingle, item)
	if err != nil {
		return err
	}
	d := e.draft(s)
	d.SelectedOptions = []string{item}
	e.drafts[step] = d
	return nil
}

// AddItem adds a trimmed value to a multi-select step if not already present.
// Blank values are ignored.
func (e *Engine) AddItem(step int, value string) error {
	value = strings.TrimSpace(sanitizeText(value))
	if value == "" {
		return nil
	}
	s, err := e.selectable(step, InputMulti, value)
	if err != nil {
		return err
	}
	d := e.draft(s)
	if !slices.Contains(d.SelectedOptions, value) {
		d.SelectedOptions = append(d.SelectedOptions, value)
	}
	e.drafts[step] = d
	return nil
}

// RemoveItem removes a value from a multi-select step.
func (e *Engine) RemoveItem(step int, value string) error {
	s, ok := e.flow.Step(step)
	if !ok {
		return ErrStepOutOfRange
	}
	if s.Input != InputMulti {
		return ErrWrongInput
	}
	d := e.draft(s)
	d.SelectedOptions = slices.DeleteFunc(d.SelectedOptions, func(v string) bool { return v == value })
	e.drafts[step] = d
	return nil
}

// SetField stores a free-text value for a declared field. Markup is stripped.
func (e *Engine) SetField(step int, field, value string) error {
	s, ok := e.flow.Step(step)
	if !ok {
		return ErrStepOutOfRange
	}
	if !s.HasField(field) {
		return ErrUnknownField
	}
	d := e.draft(s)
	d.FreeTextFields[field] = sanitizeText(value)
	e.drafts[step] = d
	return nil
}

func (e *Engine) selectable(step int, kind InputKind, item string) (*Step, error) {
	s, ok := e.flow.Step(step)
	if !ok {
		return nil, ErrStepOutOfRange
	}
	if s.Input != kind {
		return nil, ErrWrongInput
	}
	if !s.HasOption(item) && !s.AllowCustom {
		return nil, ErrUnknownOption
	}
	return s, nil
}

func (e *Engine) draft(s *Step) StepResponse {
	if d, ok := e.drafts[s.Number]; ok {
		return d
	}
	return StepResponse{StepID: s.ID, SelectedOptions: []string{}, FreeTextFields: map[string]string{}}
}

func (e *Engine) record() *Record {
	out := make(map[int]StepResponse, len(e.responses))
	for k, v := range e.responses {
		out[k] = v.clone()
	}
	return &Record{FlowID: e.flow.ID, Responses: out}
}

// Snapshot is a plain-data view of the engine for a presentation layer.
type Snapshot struct {
	FlowID              string               `json:"flow_id"`
	FlowTitle           string               `json:"flow_title"`
	CurrentStep         int                  `json:"current_step"`
	TotalSteps          int                  `json:"total_steps"`
	Progress            float64              `json:"progress"`
	Step                Step                 `json:"step"`
	Draft               StepResponse         `json:"draft"`
	Responses           map[int]StepResponse `json:"responses"`
	PendingVerification bool                 `json:"pending_verification"`
	Submitted           bool                 `json:"submitted"`
	CanRetreat          bool                 `json:"can_retreat"`
}

// Snapshot returns a copy of the engine state.
func (e *Engine) Snapshot() Snapshot {
	step, _ := e.flow.Step(e.current)
	return Snapshot{
		FlowID:              e.flow.ID,
		FlowTitle:           e.flow.Title,
		CurrentStep:         e.current,
		TotalSteps:          e.flow.TotalSteps(),
		Progress:            e.ProgressFraction(),
		Step:                *step,
		Draft:               e.draft(step).clone(),
		Responses:           e.record().Responses,
		PendingVerification: e.pending,
		Submitted:           e.submitted,
		CanRetreat:          e.current > 1 && !e.submitted,
	}
}
