package onboarding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/dealflow/internal/wizard"
)

const testFlowYAML = `
id: test
title: Test flow
steps:
  - id: pick
    input: single
    options: [a, b]
    rules:
      - policy: required_selection
  - id: phone
    kind: branch_with_async_pause
    fields:
      - {id: phone, label: Phone}
    rules:
      - policy: required_field
        field: phone
  - id: check
    kind: verification
  - id: done
`

type recordingSubmitter struct {
	mu      sync.Mutex
	records []*wizard.Record
	err     error
}

func (r *recordingSubmitter) Submit(_ context.Context, _ string, rec *wizard.Record) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	r.records = append(r.records, rec)
	return "sub-1", nil
}

func testCatalog(t *testing.T) *wizard.Catalog {
	t.Helper()
	c, err := wizard.LoadCatalog(fstest.MapFS{"test.yaml": {Data: []byte(testFlowYAML)}})
	require.NoError(t, err)
	return c
}

func walkToBranch(t *testing.T, svc *Service, user string) {
	t.Helper()
	_, err := svc.Start(user, "test")
	require.NoError(t, err)
	_, err = svc.Select(user, "test", 1, "a")
	require.NoError(t, err)
	res, err := svc.Advance(context.Background(), user, "test")
	require.NoError(t, err)
	require.Equal(t, wizard.OutcomeAdvanced, res.Outcome)
	_, err = svc.SetField(user, "test", 2, "phone", "555-0100")
	require.NoError(t, err)
}

func TestService_UnknownFlowAndSession(t *testing.T) {
	t.Parallel()
	svc := NewService(testCatalog(t), &recordingSubmitter{}, 0, time.Hour)

	_, err := svc.Start("u1", "investor")
	assert.ErrorIs(t, err, ErrUnknownFlow)

	_, err = svc.Get("u1", "test")
	assert.ErrorIs(t, err, ErrNoSession)

	assert.ErrorIs(t, svc.Discard("u1", "test"), ErrNoSession)
}

func TestService_SynchronousVerificationAndSubmit(t *testing.T) {
	t.Parallel()
	sub := &recordingSubmitter{}
	svc := NewService(testCatalog(t), sub, 0, time.Hour)

	walkToBranch(t, svc, "u1")

	res, err := svc.Advance(context.Background(), "u1", "test")
	require.NoError(t, err)
	assert.Equal(t, wizard.OutcomeVerifying, res.Outcome)
	assert.Equal(t, 4, res.Session.CurrentStep, "zero delay completes verification immediately")
	assert.False(t, res.Session.PendingVerification)

	res, err = svc.Advance(context.Background(), "u1", "test")
	require.NoError(t, err)
	assert.Equal(t, wizard.OutcomeSubmitted, res.Outcome)
	assert.Equal(t, "sub-1", res.SubmissionID)
	require.Len(t, sub.records, 1)
	assert.Equal(t, "test", sub.records[0].FlowID)
	assert.Equal(t, "555-0100", sub.records[0].Responses[2].FreeTextFields["phone"])
}

func TestService_DelayedVerification(t *testing.T) {
	t.Parallel()
	svc := NewService(testCatalog(t), &recordingSubmitter{}, 20*time.Millisecond, time.Hour)

	walkToBranch(t, svc, "u1")
	res, err := svc.Advance(context.Background(), "u1", "test")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Session.CurrentStep)
	assert.True(t, res.Session.PendingVerification)

	blocked, err := svc.Advance(context.Background(), "u1", "test")
	require.NoError(t, err)
	assert.Equal(t, wizard.OutcomeBlocked, blocked.Outcome)
	require.NotNil(t, blocked.Failure)
	assert.Equal(t, wizard.ReasonVerificationPending, blocked.Failure.Reason)

	require.Eventually(t, func() bool {
		snap, err := svc.Get("u1", "test")
		return err == nil && snap.CurrentStep == 4
	}, time.Second, 5*time.Millisecond)
}

func TestService_RetreatCancelsVerificationTimer(t *testing.T) {
	t.Parallel()
	svc := NewService(testCatalog(t), &recordingSubmitter{}, 30*time.Millisecond, time.Hour)

	walkToBranch(t, svc, "u1")
	_, err := svc.Advance(context.Background(), "u1", "test")
	require.NoError(t, err)

	snap, err := svc.Retreat("u1", "test")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.CurrentStep)

	time.Sleep(80 * time.Millisecond)
	snap, err = svc.Get("u1", "test")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.CurrentStep, "stale timer must not move the session")
	assert.False(t, snap.PendingVerification)
}

func TestService_SubmitFailureReopens(t *testing.T) {
	t.Parallel()
	sub := &recordingSubmitter{err: errors.New("disk full")}
	svc := NewService(testCatalog(t), sub, 0, time.Hour)

	walkToBranch(t, svc, "u1")
	_, err := svc.Advance(context.Background(), "u1", "test")
	require.NoError(t, err)

	res, err := svc.Advance(context.Background(), "u1", "test")
	require.Error(t, err)
	assert.False(t, res.Session.Submitted)

	sub.mu.Lock()
	sub.err = nil
	sub.mu.Unlock()

	res, err = svc.Advance(context.Background(), "u1", "test")
	require.NoError(t, err)
	assert.Equal(t, wizard.OutcomeSubmitted, res.Outcome)
	assert.Len(t, sub.records, 1)
}

func TestService_SessionsAreIsolatedPerUser(t *testing.T) {
	t.Parallel()
	svc := NewService(testCatalog(t), &recordingSubmitter{}, 0, time.Hour)

	walkToBranch(t, svc, "u1")
	_, err := svc.Start("u2", "test")
	require.NoError(t, err)

	s1, _ := svc.Get("u1", "test")
	s2, _ := svc.Get("u2", "test")
	assert.Equal(t, 2, s1.CurrentStep)
	assert.Equal(t, 1, s2.CurrentStep)
	assert.Equal(t, 2, svc.ActiveSessions())
}

func TestService_RestartDuringInput(t *testing.T) {
	t.Parallel()
	svc := NewService(testCatalog(t), &recordingSubmitter{}, 0, time.Hour)
	_, err := svc.Start("u1", "test")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 200 {
			snap, err := svc.Start("u1", "test")
			assert.NoError(t, err)
			assert.Equal(t, 1, snap.CurrentStep)
		}
	}()
	go func() {
		defer wg.Done()
		// Errors are expected when a restart lands between calls.
		for range 200 {
			_, _ = svc.Select("u1", "test", 1, "a")
			_, _ = svc.Advance(context.Background(), "u1", "test")
			_, _ = svc.SetField("u1", "test", 2, "phone", "555-0100")
		}
	}()
	wg.Wait()

	_, err = svc.Get("u1", "test")
	require.NoError(t, err)
	assert.Equal(t, 1, svc.ActiveSessions())
}

func TestService_InputErrorsPassThrough(t *testing.T) {
	t.Parallel()
	svc := NewService(testCatalog(t), &recordingSubmitter{}, 0, time.Hour)
	_, err := svc.Start("u1", "test")
	require.NoError(t, err)

	_, err = svc.Toggle("u1", "test", 1, "a")
	assert.ErrorIs(t, err, wizard.ErrWrongInput)
	_, err = svc.Select("u1", "test", 1, "zzz")
	assert.ErrorIs(t, err, wizard.ErrUnknownOption)
	_, err = svc.SetField("u1", "test", 9, "phone", "x")
	assert.ErrorIs(t, err, wizard.ErrStepOutOfRange)
}

func TestService_Sweep(t *testing.T) {
	t.Parallel()
	svc := NewService(testCatalog(t), &recordingSubmitter{}, time.Hour, time.Minute)

	walkToBranch(t, svc, "u1")
	_, err := svc.Advance(context.Background(), "u1", "test")
	require.NoError(t, err)

	assert.Equal(t, 0, svc.sweep(time.Now()))
	assert.Equal(t, 1, svc.sweep(time.Now().Add(2*time.Minute)))
	assert.Equal(t, 0, svc.ActiveSessions())

	_, err = svc.Get("u1", "test")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestService_SweeperDropsIdleSessions(t *testing.T) {
	t.Parallel()
	svc := NewService(testCatalog(t), &recordingSubmitter{}, 0, time.Nanosecond)
	_, err := svc.Start("u1", "test")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.startSweeper(ctx, 5*time.Millisecond)

	require.Eventually(t, func() bool { return svc.ActiveSessions() == 0 }, time.Second, 5*time.Millisecond)
}

func TestService_Flows(t *testing.T) {
	t.Parallel()
	catalog, err := wizard.BuiltinCatalog()
	require.NoError(t, err)
	svc := NewService(catalog, LogSubmitter{}, 0, time.Hour)

	flows := svc.Flows()
	require.Len(t, flows, 2)
	assert.Equal(t, FlowSummary{ID: "buyer", Title: "Find your next acquisition", TotalSteps: 11}, flows[0])
	assert.Equal(t, "seller", flows[1].ID)
	assert.Equal(t, 31, flows[1].TotalSteps)
}
