// Package onboarding owns the per-user wizard sessions and exposes them over HTTP.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashureev/dealflow/internal/wizard"
)

var (
	// ErrUnknownFlow is returned for a flow id not in the catalog.
	ErrUnknownFlow = errors.New("unknown flow")
	// ErrNoSession is returned when the user has not started the flow.
	ErrNoSession = errors.New("no onboarding session")
)

// FlowSummary describes an available flow.
type FlowSummary struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	TotalSteps int    `json:"total_steps"`
}

// AdvanceResult is the outcome of an advance call with the resulting state.
type AdvanceResult struct {
	wizard.Result
	SubmissionID string          `json:"submission_id,omitempty"`
	Session      wizard.Snapshot `json:"session"`
}

type sessionKey struct {
	userID string
	flowID string
}

type session struct {
	mu       sync.Mutex
	engine   *wizard.Engine
	lastUsed atomic.Int64

	// generation invalidates verification timers scheduled before a retreat.
	generation uint64
	timer      *time.Timer
}

func (s *session) touch(now time.Time) {
	s.lastUsed.Store(now.UnixNano())
}

// cancelVerification stops a scheduled completion. Caller holds s.mu.
func (s *session) cancelVerification() {
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Service holds one wizard engine per (user, flow).
type Service struct {
	catalog           *wizard.Catalog
	submitter         Submitter
	verificationDelay time.Duration
	sessionTTL        time.Duration

	mu       sync.RWMutex
	sessions map[sessionKey]*session
}

// NewService creates an onboarding service. A zero verificationDelay
// completes verification pauses synchronously.
func NewService(catalog *wizard.Catalog, submitter Submitter, verificationDelay, sessionTTL time.Duration) *Service {
	return &Service{
		catalog:           catalog,
		submitter:         submitter,
		verificationDelay: verificationDelay,
		sessionTTL:        sessionTTL,
		sessions:          make(map[sessionKey]*session),
	}
}

// Flows lists the available flows.
func (s *Service) Flows() []FlowSummary {
	ids := s.catalog.IDs()
	out := make([]FlowSummary, 0, len(ids))
	for _, id := range ids {
		f, _ := s.catalog.Get(id)
		out = append(out, FlowSummary{ID: f.ID, Title: f.Title, TotalSteps: f.TotalSteps()})
	}
	return out
}

// Start begins a new traversal, discarding any existing one for the same flow.
func (s *Service) Start(userID, flowID string) (wizard.Snapshot, error) {
	flow, ok := s.catalog.Get(flowID)
	if !ok {
		return wizard.Snapshot{}, ErrUnknownFlow
	}
	sess := &session{engine: wizard.New(flow)}
	sess.touch(time.Now())
	// Once published the engine is only read under sess.mu.
	snap := sess.engine.Snapshot()

	key := sessionKey{userID, flowID}
	s.mu.Lock()
	old := s.sessions[key]
	s.sessions[key] = sess
	s.mu.Unlock()

	if old != nil {
		old.mu.Lock()
		old.cancelVerification()
		old.mu.Unlock()
	}

	slog.Info("Onboarding session started", "user_id", userID, "flow_id", flowID)
	return snap, nil
}

// Get returns the current state of a traversal.
func (s *Service) Get(userID, flowID string) (wizard.Snapshot, error) {
	return s.withSession(userID, flowID, func(*session) error { return nil })
}

// Discard drops a traversal.
func (s *Service) Discard(userID, flowID string) error {
	if _, ok := s.catalog.Get(flowID); !ok {
		return ErrUnknownFlow
	}
	key := sessionKey{userID, flowID}
	s.mu.Lock()
	sess, ok := s.sessions[key]
	delete(s.sessions, key)
	s.mu.Unlock()
	if !ok {
		return ErrNoSession
	}
	sess.mu.Lock()
	sess.cancelVerification()
	sess.mu.Unlock()
	return nil
}

// Select sets the option of a single-select step.
func (s *Service) Select(userID, flowID string, step int, option string) (wizard.Snapshot, error) {
	return s.withSession(userID, flowID, func(sess *session) error {
		return sess.engine.SetSingleSelect(step, option)
	})
}

// Toggle flips an option of a multi-select step.
func (s *Service) Toggle(userID, flowID string, step int, option string) (wizard.Snapshot, error) {
	return s.withSession(userID, flowID, func(sess *session) error {
		return sess.engine.ToggleMultiSelect(step, option)
	})
}

// AddItem adds a custom tag to a multi-select step.
func (s *Service) AddItem(userID, flowID string, step int, value string) (wizard.Snapshot, error) {
	return s.withSession(userID, flowID, func(sess *session) error {
		return sess.engine.AddItem(step, value)
	})
}

// RemoveItem removes a tag from a multi-select step.
func (s *Service) RemoveItem(userID, flowID string, step int, value string) (wizard.Snapshot, error) {
	return s.withSession(userID, flowID, func(sess *session) error {
		return sess.engine.RemoveItem(step, value)
	})
}

// SetField stores a free-text value.
func (s *Service) SetField(userID, flowID string, step int, field, value string) (wizard.Snapshot, error) {
	return s.withSession(userID, flowID, func(sess *session) error {
		return sess.engine.SetField(step, field, value)
	})
}

// Retreat moves the traversal back and cancels any pending verification.
func (s *Service) Retreat(userID, flowID string) (wizard.Snapshot, error) {
	return s.withSession(userID, flowID, func(sess *session) error {
		sess.cancelVerification()
		sess.engine.Retreat()
		return nil
	})
}

// Advance validates the current step and moves on. A completed flow is
// handed to the submitter; if that fails the flow is reopened so the final
// step can be retried.
func (s *Service) Advance(ctx context.Context, userID, flowID string) (AdvanceResult, error) {
	var out AdvanceResult
	snap, err := s.withSession(userID, flowID, func(sess *session) error {
		res := sess.engine.Advance()
		out.Result = res

		switch res.Outcome {
		case wizard.OutcomeVerifying:
			s.scheduleVerification(userID, flowID, sess)
		case wizard.OutcomeSubmitted:
			if res.Record == nil {
				return nil
			}
			id, err := s.submitter.Submit(ctx, userID, res.Record)
			if err != nil {
				sess.engine.Reopen()
				slog.Error("Onboarding submission failed", "user_id", userID, "flow_id", flowID, "error", err)
				return fmt.Errorf("submit onboarding record: %w", err)
			}
			out.SubmissionID = id
		}
		return nil
	})
	out.Session = snap
	return out, err
}

// scheduleVerification completes the pause after the configured delay
// unless the session moved on. Caller holds sess.mu.
func (s *Service) scheduleVerification(userID, flowID string, sess *session) {
	sess.cancelVerification()
	if s.verificationDelay <= 0 {
		sess.engine.CompleteVerification()
		return
	}
	gen := sess.generation
	sess.timer = time.AfterFunc(s.verificationDelay, func() {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		if sess.generation != gen {
			return
		}
		sess.timer = nil
		if sess.engine.CompleteVerification() {
			slog.Info("Onboarding verification completed", "user_id", userID, "flow_id", flowID, "step", sess.engine.CurrentStep())
		}
	})
}

func (s *Service) withSession(userID, flowID string, fn func(*session) error) (wizard.Snapshot, error) {
	if _, ok := s.catalog.Get(flowID); !ok {
		return wizard.Snapshot{}, ErrUnknownFlow
	}
	s.mu.RLock()
	sess, ok := s.sessions[sessionKey{userID, flowID}]
	s.mu.RUnlock()
	if !ok {
		return wizard.Snapshot{}, ErrNoSession
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touch(time.Now())
	err := fn(sess)
	return sess.engine.Snapshot(), err
}

// sweep drops sessions idle for longer than the session TTL.
func (s *Service) sweep(now time.Time) int {
	cutoff := now.Add(-s.sessionTTL).UnixNano()

	s.mu.Lock()
	var expired []*session
	for key, sess := range s.sessions {
		if sess.lastUsed.Load() < cutoff {
			expired = append(expired, sess)
			delete(s.sessions, key)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.mu.Lock()
		sess.cancelVerification()
		sess.mu.Unlock()
	}
	return len(expired)
}

// ActiveSessions returns the number of live traversals.
func (s *Service) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
