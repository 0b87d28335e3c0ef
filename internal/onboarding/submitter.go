package onboarding

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/dealflow/internal/domain"
	"github.com/ashureev/dealflow/internal/store"
	"github.com/ashureev/dealflow/internal/wizard"
)

// Submitter receives the aggregated record of a completed flow and returns
// the id it was stored under.
type Submitter interface {
	Submit(ctx context.Context, userID string, rec *wizard.Record) (string, error)
}

// StoreSubmitter persists records through the repository.
type StoreSubmitter struct {
	repo store.Repository
}

// NewStoreSubmitter creates a submitter backed by repo.
func NewStoreSubmitter(repo store.Repository) *StoreSubmitter {
	return &StoreSubmitter{repo: repo}
}

// Submit implements Submitter.
func (s *StoreSubmitter) Submit(ctx context.Context, userID string, rec *wizard.Record) (string, error) {
	payload, err := json.Marshal(rec.Responses)
	if err != nil {
		return "", fmt.Errorf("encode responses: %w", err)
	}
	sub := &domain.Submission{
		ID:        uuid.New().String(),
		UserID:    userID,
		FlowID:    rec.FlowID,
		Responses: payload,
		CreatedAt: time.Now(),
	}
	if err := s.repo.SaveSubmission(ctx, sub); err != nil {
		return "", err
	}
	slog.Info("Onboarding submission stored", "submission_id", sub.ID, "user_id", userID, "flow_id", rec.FlowID)
	return sub.ID, nil
}

// LogSubmitter only logs records. It is selected with SUBMISSION_SINK=log.
type LogSubmitter struct{}

// Submit implements Submitter.
func (LogSubmitter) Submit(_ context.Context, userID string, rec *wizard.Record) (string, error) {
	id := uuid.New().String()
	slog.Info("Onboarding submission received",
		"submission_id", id,
		"user_id", userID,
		"flow_id", rec.FlowID,
		"steps", len(rec.Responses),
	)
	return id, nil
}
