package dealroom

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/ashureev/dealflow/internal/api"
	"github.com/ashureev/dealflow/internal/identity"
)

const chatReadLimit = 16 << 10

// chatMessage is the chat socket envelope in both directions.
type chatMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	HTML    string `json:"html,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HandleChat handles GET /ws/deals/{dealID}/chat.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	dealID := chi.URLParam(r, "dealID")
	slog.Info("Chat connection request",
		"user_id", userID,
		"deal_id", dealID,
		"remote_addr", r.RemoteAddr,
	)

	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if _, err := h.svc.Deal(dealID); err != nil {
		writeServiceError(w, err)
		return
	}
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()
	ws.SetReadLimit(chatReadLimit)

	h.chatLoop(r.Context(), ws, userID, dealID)
	slog.Info("Chat session ended", "user_id", userID, "deal_id", dealID)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(h.allowedOrigins, "*") || slices.Contains(h.allowedOrigins, origin) {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigins)
	return false
}

func (h *Handler) chatLoop(ctx context.Context, ws *websocket.Conn, userID, dealID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var msg chatMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			if err := writeJSON(ctx, ws, chatMessage{Type: "error", Error: "invalid_message"}); err != nil {
				return
			}
			continue
		}

		var reply chatMessage
		switch msg.Type {
		case "ping":
			reply = chatMessage{Type: "pong"}
		case "question":
			if !h.limiter.Allow(userID) {
				reply = chatMessage{Type: "error", Error: "rate_limited"}
				break
			}
			if err := writeJSON(ctx, ws, chatMessage{Type: "thinking"}); err != nil {
				return
			}
			answer, err := h.svc.Ask(ctx, dealID, msg.Content)
			switch {
			case errors.Is(err, ErrEmptyQuestion):
				reply = chatMessage{Type: "error", Error: "empty_question"}
			case err != nil:
				slog.Error("Chat question failed", "deal_id", dealID, "user_id", userID, "error", err)
				reply = chatMessage{Type: "error", Error: "question_failed"}
			default:
				reply = chatMessage{Type: "answer", Content: answer.Text, HTML: answer.HTML}
			}
		default:
			reply = chatMessage{Type: "error", Error: "unknown_type"}
		}

		if err := writeJSON(ctx, ws, reply); err != nil {
			slog.Debug("Failed to write chat message", "error", err, "user_id", userID)
			return
		}
	}
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
