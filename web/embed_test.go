package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
)

func TestSPAHandler(t *testing.T) {
	fsys := fstest.MapFS{
		"index.html":    {Data: []byte("<html>app</html>")},
		"assets/app.js": {Data: []byte("console.log(1)")},
	}
	h := spaHandler(fsys)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
		wantCache  bool
	}{
		{"root", "/", http.StatusOK, "<html>app</html>", false},
		{"asset", "/assets/app.js", http.StatusOK, "console.log(1)", true},
		{"client route", "/deals/deal_001", http.StatusOK, "<html>app</html>", false},
		{"unknown api", "/api/nope", http.StatusNotFound, `{"error":"not found"}`, false},
		{"unknown socket", "/ws/nope", http.StatusNotFound, `{"error":"not found"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("Expected body to contain %q, got %q", tt.wantBody, rec.Body.String())
			}
			if got := rec.Header().Get("Cache-Control") != ""; got != tt.wantCache {
				t.Errorf("Expected cache header %v, got %v", tt.wantCache, got)
			}
		})
	}
}

func TestSPAHandler_EmbeddedIndex(t *testing.T) {
	rec := httptest.NewRecorder()
	SPAHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Dealflow") {
		t.Errorf("Expected placeholder index, got %q", rec.Body.String())
	}
}
