// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/dealflow/internal/domain"
)

// Repository defines the interface for persisting users and onboarding submissions.
type Repository interface {
	// GetUser retrieves a user by their user ID. It returns nil, nil when
	// the user does not exist.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// SaveSubmission stores a completed onboarding record.
	SaveSubmission(ctx context.Context, sub *domain.Submission) error

	// ListSubmissions returns a user's submissions, newest first. An empty
	// flowID matches every flow.
	ListSubmissions(ctx context.Context, userID, flowID string) ([]*domain.Submission, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
