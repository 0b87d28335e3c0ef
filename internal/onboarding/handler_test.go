package onboarding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/dealflow/internal/identity"
	"github.com/ashureev/dealflow/internal/store"
)

type testServer struct {
	*httptest.Server
	cookie *http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "onboarding.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	svc := NewService(testCatalog(t), NewStoreSubmitter(repo), 0, time.Hour)
	r := chi.NewRouter()
	r.Use(identity.Middleware(repo, true))
	NewHandler(svc, repo).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, s.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	for _, c := range resp.Cookies() {
		if c.Name == identity.AnonCookieName {
			s.cookie = c
		}
	}
	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestHandler_FullFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.do(t, http.MethodGet, "/api/onboarding/flows", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["flows"], 1)

	resp, body = srv.do(t, http.MethodPost, "/api/onboarding/test/session", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.EqualValues(t, 1, body["current_step"])

	resp, body = srv.do(t, http.MethodPost, "/api/onboarding/test/session/advance", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "blocked", body["outcome"])

	resp, _ = srv.do(t, http.MethodPost, "/api/onboarding/test/session/select", `{"step":1,"value":"b"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = srv.do(t, http.MethodPost, "/api/onboarding/test/session/advance", "")
	assert.Equal(t, "advanced", body["outcome"])

	resp, _ = srv.do(t, http.MethodPost, "/api/onboarding/test/session/fields", `{"step":2,"field":"phone","value":"555"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = srv.do(t, http.MethodPost, "/api/onboarding/test/session/advance", "")
	assert.Equal(t, "verifying", body["outcome"])

	_, body = srv.do(t, http.MethodPost, "/api/onboarding/test/session/advance", "")
	require.Equal(t, "submitted", body["outcome"])
	assert.NotEmpty(t, body["submission_id"])

	resp, body = srv.do(t, http.MethodGet, "/api/onboarding/submissions?flow=test", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	subs, ok := body["submissions"].([]any)
	require.True(t, ok)
	require.Len(t, subs, 1)
	first := subs[0].(map[string]any)
	assert.NotEmpty(t, first["id"])
	assert.Equal(t, "test", first["flow_id"])
}

func TestHandler_Errors(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := srv.do(t, http.MethodPost, "/api/onboarding/nope/session", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodGet, "/api/onboarding/test/session", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	srv.do(t, http.MethodPost, "/api/onboarding/test/session", "")

	resp, _ = srv.do(t, http.MethodPost, "/api/onboarding/test/session/toggle", `{"step":1,"value":"a"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodPost, "/api/onboarding/test/session/select", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodPost, "/api/onboarding/test/session/fields", `{"step":2,"value":"x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodDelete, "/api/onboarding/test/session", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodPost, "/api/onboarding/test/session/retreat", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
