package dealroom

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/dealflow/internal/api"
	"github.com/ashureev/dealflow/internal/identity"
)

const (
	maxDocumentBodySize = 1 << 20
	maxQuestionBodySize = 16 << 10
)

// Handler serves the deal-room API.
type Handler struct {
	svc            *Service
	limiter        *RateLimiter
	allowedOrigins []string
	isDev          bool
}

// NewHandler creates a deal-room handler. AI routes are throttled by
// limiter; chat sockets accept only allowedOrigins unless isDev is set.
func NewHandler(svc *Service, limiter *RateLimiter, allowedOrigins []string, isDev bool) *Handler {
	return &Handler{svc: svc, limiter: limiter, allowedOrigins: allowedOrigins, isDev: isDev}
}

// RegisterRoutes registers deal-room routes (requires identity middleware).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/deals", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Route("/{dealID}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Group(func(r chi.Router) {
				r.Use(h.limiter.Middleware)
				r.Get("/overview", h.HandleOverview)
				r.Post("/documents", h.HandleUpload)
				r.Post("/report", h.HandleReport)
				r.Post("/match-score", h.HandleMatchScore)
				r.Post("/conversation-starters", h.HandleConversationStarters)
				r.Post("/questions", h.HandleQuestion)
			})
		})
	})
	r.Get("/ws/deals/{dealID}/chat", h.HandleChat)
}

// HandleList handles GET /api/deals.
func (h *Handler) HandleList(w http.ResponseWriter, _ *http.Request) {
	api.JSON(w, http.StatusOK, map[string]any{"deals": h.svc.deals.IDs()})
}

// HandleGet handles GET /api/deals/{dealID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	deal, err := h.svc.Deal(chi.URLParam(r, "dealID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, deal)
}

// HandleOverview handles GET /api/deals/{dealID}/overview.
func (h *Handler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Overview(r.Context(), chi.URLParam(r, "dealID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, out)
}

// HandleUpload handles POST /api/deals/{dealID}/documents.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	var up Upload
	if !decodeBody(w, r, maxDocumentBodySize, &up) {
		return
	}
	if up.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}
	dealID := chi.URLParam(r, "dealID")
	doc, err := h.svc.UploadDocument(dealID, up)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	slog.Info("Document uploaded",
		"deal_id", dealID,
		"document_id", doc.ID,
		"user_id", identity.UserIDFromContext(r.Context()),
		"size", doc.Size,
	)
	api.JSON(w, http.StatusAccepted, doc)
}

// HandleReport handles POST /api/deals/{dealID}/report.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h.svc.Report)
}

// HandleMatchScore handles POST /api/deals/{dealID}/match-score.
func (h *Handler) HandleMatchScore(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h.svc.MatchScore)
}

// HandleConversationStarters handles POST /api/deals/{dealID}/conversation-starters.
func (h *Handler) HandleConversationStarters(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h.svc.ConversationStarters)
}

type questionRequest struct {
	Question string `json:"question"`
}

// HandleQuestion handles POST /api/deals/{dealID}/questions.
func (h *Handler) HandleQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if !decodeBody(w, r, maxQuestionBodySize, &req) {
		return
	}
	answer, err := h.svc.Ask(r.Context(), chi.URLParam(r, "dealID"), req.Question)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, answer)
}

func respond[T any](w http.ResponseWriter, r *http.Request, op func(context.Context, string) (T, error)) {
	out, err := op(r.Context(), chi.URLParam(r, "dealID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, out)
}

func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		api.Error(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDealNotFound), errors.Is(err, ErrDocumentNotFound):
		api.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrEmptyDocument), errors.Is(err, ErrEmptyQuestion):
		api.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrServiceClosed):
		api.Error(w, http.StatusServiceUnavailable, err.Error())
	default:
		slog.Error("Deal room request failed", "error", err)
		api.Error(w, http.StatusInternalServerError, "internal error")
	}
}
