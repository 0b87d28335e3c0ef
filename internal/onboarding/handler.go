package onboarding

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/dealflow/internal/api"
	"github.com/ashureev/dealflow/internal/identity"
	"github.com/ashureev/dealflow/internal/store"
	"github.com/ashureev/dealflow/internal/wizard"
)

const maxRequestBodySize = 64 << 10

// Handler serves the onboarding API.
type Handler struct {
	svc  *Service
	repo store.Repository
}

// NewHandler creates an onboarding handler.
func NewHandler(svc *Service, repo store.Repository) *Handler {
	return &Handler{svc: svc, repo: repo}
}

type inputRequest struct {
	Step  int    `json:"step"`
	Field string `json:"field,omitempty"`
	Value string `json:"value"`
}

// RegisterRoutes registers onboarding routes (requires identity middleware).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/onboarding", func(r chi.Router) {
		r.Get("/flows", h.HandleFlows)
		r.Get("/submissions", h.HandleSubmissions)
		r.Route("/{flow}/session", func(r chi.Router) {
			r.Post("/", h.HandleStart)
			r.Get("/", h.HandleGet)
			r.Delete("/", h.HandleDiscard)
			r.Post("/select", h.input(h.svc.Select))
			r.Post("/toggle", h.input(h.svc.Toggle))
			r.Post("/items", h.input(h.svc.AddItem))
			r.Delete("/items", h.input(h.svc.RemoveItem))
			r.Post("/fields", h.HandleSetField)
			r.Post("/advance", h.HandleAdvance)
			r.Post("/retreat", h.HandleRetreat)
		})
	})
}

// HandleFlows handles GET /api/onboarding/flows.
func (h *Handler) HandleFlows(w http.ResponseWriter, _ *http.Request) {
	api.JSON(w, http.StatusOK, map[string]any{"flows": h.svc.Flows()})
}

// HandleSubmissions handles GET /api/onboarding/submissions?flow=.
func (h *Handler) HandleSubmissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	subs, err := h.repo.ListSubmissions(r.Context(), userID, r.URL.Query().Get("flow"))
	if err != nil {
		slog.Error("Failed to list submissions", "user_id", userID, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to list submissions")
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{"submissions": subs})
}

// HandleStart handles POST /api/onboarding/{flow}/session.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	snap, err := h.svc.Start(userID, chi.URLParam(r, "flow"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.JSON(w, http.StatusCreated, snap)
}

// HandleGet handles GET /api/onboarding/{flow}/session.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	snap, err := h.svc.Get(userID, chi.URLParam(r, "flow"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, snap)
}

// HandleDiscard handles DELETE /api/onboarding/{flow}/session.
func (h *Handler) HandleDiscard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.svc.Discard(userID, chi.URLParam(r, "flow")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetField handles POST /api/onboarding/{flow}/session/fields.
func (h *Handler) HandleSetField(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	req, ok := decodeInput(w, r)
	if !ok {
		return
	}
	if req.Field == "" {
		api.Error(w, http.StatusBadRequest, "field is required")
		return
	}
	snap, err := h.svc.SetField(userID, chi.URLParam(r, "flow"), req.Step, req.Field, req.Value)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, snap)
}

// HandleAdvance handles POST /api/onboarding/{flow}/session/advance.
func (h *Handler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	flowID := chi.URLParam(r, "flow")
	res, err := h.svc.Advance(r.Context(), userID, flowID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	slog.Info("Onboarding advance",
		"user_id", userID,
		"flow_id", flowID,
		"outcome", res.Outcome,
		"step", res.Step,
	)
	api.JSON(w, http.StatusOK, res)
}

// HandleRetreat handles POST /api/onboarding/{flow}/session/retreat.
func (h *Handler) HandleRetreat(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	snap, err := h.svc.Retreat(userID, chi.URLParam(r, "flow"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, snap)
}

type inputFunc func(userID, flowID string, step int, value string) (wizard.Snapshot, error)

// input adapts a step/value service operation to an HTTP handler.
func (h *Handler) input(op inputFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		req, ok := decodeInput(w, r)
		if !ok {
			return
		}
		snap, err := op(userID, chi.URLParam(r, "flow"), req.Step, req.Value)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		api.JSON(w, http.StatusOK, snap)
	}
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return userID, true
}

func decodeInput(w http.ResponseWriter, r *http.Request) (inputRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req inputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return req, false
		}
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	return req, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownFlow):
		api.Error(w, http.StatusNotFound, "unknown flow")
	case errors.Is(err, ErrNoSession):
		api.Error(w, http.StatusNotFound, "no onboarding session")
	case errors.Is(err, wizard.ErrStepOutOfRange),
		errors.Is(err, wizard.ErrUnknownOption),
		errors.Is(err, wizard.ErrUnknownField),
		errors.Is(err, wizard.ErrWrongInput):
		api.Error(w, http.StatusBadRequest, err.Error())
	default:
		api.Error(w, http.StatusInternalServerError, "onboarding request failed")
	}
}
