package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/ashureev/dealflow/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	user_id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	last_seen_at INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS submissions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	flow_id TEXT NOT NULL,
	responses_json TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_submissions_user ON submissions(user_id, created_at);
`

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

type userRow struct {
	UserID     string `db:"user_id"`
	Username   string `db:"username"`
	LastSeenAt int64  `db:"last_seen_at"`
	CreatedAt  int64  `db:"created_at"`
	UpdatedAt  int64  `db:"updated_at"`
}

type submissionRow struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	FlowID    string `db:"flow_id"`
	Responses string `db:"responses_json"`
	CreatedAt int64  `db:"created_at"`
}

// NewSQLite creates a new SQLite-backed repository. The special path
// ":memory:" opens a private in-memory database.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn = dbPath + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Single connection: writes are serialized and :memory: stays one database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `
		SELECT user_id, username, last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &domain.User{
		UserID:     row.UserID,
		Username:   row.Username,
		LastSeenAt: time.Unix(row.LastSeenAt, 0),
		CreatedAt:  time.Unix(row.CreatedAt, 0),
		UpdatedAt:  time.Unix(row.UpdatedAt, 0),
	}, nil
}

// UpsertUser creates or updates a user record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	row := userRow{
		UserID:     user.UserID,
		Username:   user.Username,
		LastSeenAt: user.LastSeenAt.Unix(),
		CreatedAt:  user.CreatedAt.Unix(),
		UpdatedAt:  user.UpdatedAt.Unix(),
	}
	return withBusyRetry(ctx, "upsert user", func() error {
		_, err := s.db.NamedExecContext(ctx, `
			INSERT INTO users (user_id, username, last_seen_at, created_at, updated_at)
			VALUES (:user_id, :username, :last_seen_at, :created_at, :updated_at)
			ON CONFLICT(user_id) DO UPDATE SET
				username = excluded.username,
				last_seen_at = excluded.last_seen_at,
				updated_at = excluded.updated_at`, row)
		return err
	})
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	return withBusyRetry(ctx, "update last seen", func() error {
		_, err := s.db.ExecContext(ctx,
			`UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`,
			lastSeen.Unix(), time.Now().Unix(), userID)
		return err
	})
}

// SaveSubmission stores a completed onboarding record.
func (s *SQLiteStore) SaveSubmission(ctx context.Context, sub *domain.Submission) error {
	row := submissionRow{
		ID:        sub.ID,
		UserID:    sub.UserID,
		FlowID:    sub.FlowID,
		Responses: string(sub.Responses),
		CreatedAt: sub.CreatedAt.Unix(),
	}
	return withBusyRetry(ctx, "save submission", func() error {
		_, err := s.db.NamedExecContext(ctx, `
			INSERT INTO submissions (id, user_id, flow_id, responses_json, created_at)
			VALUES (:id, :user_id, :flow_id, :responses_json, :created_at)`, row)
		return err
	})
}

// ListSubmissions returns a user's submissions, newest first.
func (s *SQLiteStore) ListSubmissions(ctx context.Context, userID, flowID string) ([]*domain.Submission, error) {
	var rows []submissionRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, flow_id, responses_json, created_at
		FROM submissions
		WHERE user_id = ? AND (? = '' OR flow_id = ?)
		ORDER BY created_at DESC, rowid DESC`, userID, flowID, flowID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	out := make([]*domain.Submission, 0, len(rows))
	for _, r := range rows {
		out = append(out, &domain.Submission{
			ID:        r.ID,
			UserID:    r.UserID,
			FlowID:    r.FlowID,
			Responses: []byte(r.Responses),
			CreatedAt: time.Unix(r.CreatedAt, 0),
		})
	}
	return out, nil
}
