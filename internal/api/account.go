package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/dealflow/internal/identity"
	"github.com/ashureev/dealflow/internal/store"
)

// AccountHandler serves the current visitor and client configuration.
type AccountHandler struct {
	repo      store.Repository
	aiEnabled bool
}

// NewAccountHandler creates an account handler. aiEnabled reports whether a
// model key is configured; without one AI responses are fallbacks.
func NewAccountHandler(repo store.Repository, aiEnabled bool) *AccountHandler {
	return &AccountHandler{repo: repo, aiEnabled: aiEnabled}
}

// RegisterRoutes registers account routes.
func (h *AccountHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/me", h.GetMe)
	r.Get("/api/config", h.GetConfig)
}

// GetMe returns the current user's information.
func (h *AccountHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.repo.GetUser(r.Context(), userID)
	if err != nil || user == nil {
		Error(w, http.StatusUnauthorized, "user not found")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"user_id":    user.UserID,
		"username":   identity.UsernameFromContext(r.Context()),
		"created_at": user.CreatedAt,
	})
}

// GetConfig returns the server configuration for the frontend.
func (h *AccountHandler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"ai_enabled": h.aiEnabled,
	})
}
