package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/dealflow/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_Users(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.GetUser(ctx, "anon_missing")
	if err != nil || got != nil {
		t.Fatalf("Expected nil, nil for missing user, got %v, %v", got, err)
	}

	created := time.Unix(1700000000, 0)
	if err := s.UpsertUser(ctx, &domain.User{
		UserID:     "anon_1",
		Username:   "anon-1",
		LastSeenAt: created,
		CreatedAt:  created,
		UpdatedAt:  created,
	}); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}

	seen := created.Add(time.Hour)
	if err := s.UpdateLastSeen(ctx, "anon_1", seen); err != nil {
		t.Fatalf("UpdateLastSeen failed: %v", err)
	}

	got, err = s.GetUser(ctx, "anon_1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Username != "anon-1" {
		t.Errorf("Expected username anon-1, got %q", got.Username)
	}
	if !got.LastSeenAt.Equal(seen) {
		t.Errorf("Expected last seen %v, got %v", seen, got.LastSeenAt)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("Expected created %v, got %v", created, got.CreatedAt)
	}
}

func TestSQLiteStore_Submissions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Unix(1700000000, 0)
	subs := []*domain.Submission{
		{ID: "s1", UserID: "u1", FlowID: "buyer", Responses: json.RawMessage(`{"1":{}}`), CreatedAt: base},
		{ID: "s2", UserID: "u1", FlowID: "seller", Responses: json.RawMessage(`{"2":{}}`), CreatedAt: base.Add(time.Minute)},
		{ID: "s3", UserID: "u2", FlowID: "buyer", Responses: json.RawMessage(`{}`), CreatedAt: base},
	}
	for _, sub := range subs {
		if err := s.SaveSubmission(ctx, sub); err != nil {
			t.Fatalf("SaveSubmission(%s) failed: %v", sub.ID, err)
		}
	}

	all, err := s.ListSubmissions(ctx, "u1", "")
	if err != nil {
		t.Fatalf("ListSubmissions failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != "s2" || all[1].ID != "s1" {
		t.Fatalf("Expected [s2 s1], got %d items", len(all))
	}
	if string(all[0].Responses) != `{"2":{}}` {
		t.Errorf("Unexpected responses %s", all[0].Responses)
	}

	buyer, err := s.ListSubmissions(ctx, "u1", "buyer")
	if err != nil {
		t.Fatalf("ListSubmissions failed: %v", err)
	}
	if len(buyer) != 1 || buyer[0].ID != "s1" {
		t.Errorf("Expected only s1 for buyer flow, got %d items", len(buyer))
	}

	if err := s.SaveSubmission(ctx, subs[0]); err == nil {
		t.Error("Expected duplicate id to fail")
	}
}

func TestSQLiteStore_Ping(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestIsConflictError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("SQLITE_BUSY: database busy"), true},
		{errors.New("database is locked (5)"), true},
		{errors.New("UNIQUE constraint failed"), false},
	}
	for _, tt := range tests {
		if got := IsConflictError(tt.err); got != tt.want {
			t.Errorf("IsConflictError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestWithBusyRetry(t *testing.T) {
	calls := 0
	err := withBusyRetry(context.Background(), "op", func() error {
		calls++
		if calls < 2 {
			return errors.New("database is locked")
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("Expected success on second attempt, got err=%v calls=%d", err, calls)
	}

	calls = 0
	permanent := errors.New("constraint failed")
	err = withBusyRetry(context.Background(), "op", func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Errorf("Expected one attempt with wrapped error, got err=%v calls=%d", err, calls)
	}
}
