//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/dealflow/internal/domain"
	"github.com/ashureev/dealflow/internal/identity"
)

type fakeRepo struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	pingErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[string]*domain.User)}
}

func (f *fakeRepo) GetUser(_ context.Context, userID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := f.users[userID]
	if user == nil {
		return nil, nil
	}
	copy := *user
	return &copy, nil
}

func (f *fakeRepo) UpsertUser(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy := *user
	f.users[user.UserID] = &copy
	return nil
}

func (f *fakeRepo) UpdateLastSeen(_ context.Context, _ string, _ time.Time) error { return nil }

func (f *fakeRepo) SaveSubmission(_ context.Context, _ *domain.Submission) error { return nil }

func (f *fakeRepo) ListSubmissions(_ context.Context, _, _ string) ([]*domain.Submission, error) {
	return nil, nil
}

func (f *fakeRepo) Ping(_ context.Context) error { return f.pingErr }

func (f *fakeRepo) Close() error { return nil }

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusTeapot, "short and stout")

	if w.Code != http.StatusTeapot {
		t.Errorf("Expected 418, got %d", w.Code)
	}
	var got map[string]string
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got["error"] != "short and stout" {
		t.Errorf("Unexpected error body %v", got)
	}
}

func TestHealth(t *testing.T) {
	repo := newFakeRepo()
	h := NewHealthHandler(repo, time.Second)

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	repo.pingErr = errors.New("disk gone")
	w = httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", w.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Status != "degraded" || body.Checks["database"] != "unreachable" {
		t.Errorf("Unexpected health body %+v", body)
	}
}

func TestGetMe(t *testing.T) {
	repo := newFakeRepo()
	userID := "anon_0123456789abcdef0123456789abcdef"
	_ = repo.UpsertUser(context.Background(), &domain.User{UserID: userID, Username: "anon-89abcdef", CreatedAt: time.Now()})

	h := identity.Middleware(repo, true)(http.HandlerFunc(NewAccountHandler(repo, false).GetMe))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: identity.AnonCookieName, Value: userID})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got map[string]any
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got["user_id"] != userID || got["username"] != "anon-89abcdef" {
		t.Errorf("Unexpected body %v", got)
	}
}

func TestGetMe_Unauthorized(t *testing.T) {
	w := httptest.NewRecorder()
	NewAccountHandler(newFakeRepo(), false).GetMe(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
}
