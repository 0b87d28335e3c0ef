package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/dealflow/internal/store"
)

const defaultHealthCheckTimeout = 5 * time.Second

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	repo    store.Repository
	timeout time.Duration
}

// NewHealthHandler creates a new health handler. A zero timeout uses the default.
func NewHealthHandler(repo store.Repository, timeout time.Duration) *HealthHandler {
	if timeout <= 0 {
		timeout = defaultHealthCheckTimeout
	}
	return &HealthHandler{repo: repo, timeout: timeout}
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := map[string]string{"api": "ok", "database": "ok"}
	status := "healthy"
	statusCode := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		checks["database"] = "unreachable"
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	JSON(w, statusCode, map[string]any{
		"status": status,
		"checks": checks,
	})
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/api/health", h.Health)
}
