// Package identity resolves the anonymous visitor behind each request.
//
// A visitor is a device cookie backed by a stored user row. Onboarding
// sessions, submissions and the deal-room rate limit are all keyed by the
// visitor's user id.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/dealflow/internal/domain"
	"github.com/ashureev/dealflow/internal/store"
)

const (
	AnonCookieName     = "dealflow_anon_id"
	anonIDPrefix       = "anon_"
	anonIDBytes        = 16
	anonCookieMaxAge   = 30 * 24 * time.Hour
	lastSeenResolution = time.Minute
)

// Visitor is the anonymous user a request belongs to.
type Visitor struct {
	UserID   string
	Username string
	// FirstVisit is set on the request that created the user.
	FirstVisit bool
}

type visitorKey struct{}

// WithVisitor returns a context carrying v.
func WithVisitor(ctx context.Context, v Visitor) context.Context {
	return context.WithValue(ctx, visitorKey{}, v)
}

// VisitorFromContext returns the visitor set by Middleware.
func VisitorFromContext(ctx context.Context) (Visitor, bool) {
	v, ok := ctx.Value(visitorKey{}).(Visitor)
	return v, ok
}

// UserIDFromContext returns the visitor's user id, or "" outside Middleware.
func UserIDFromContext(ctx context.Context) string {
	v, _ := VisitorFromContext(ctx)
	return v.UserID
}

// UsernameFromContext returns the visitor's display name.
func UsernameFromContext(ctx context.Context) string {
	v, _ := VisitorFromContext(ctx)
	return v.Username
}

func newAnonID() (string, error) {
	buf := make([]byte, anonIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate anonymous id: %w", err)
	}
	return anonIDPrefix + hex.EncodeToString(buf), nil
}

// validAnonID accepts only ids newAnonID could have produced.
func validAnonID(id string) bool {
	raw, ok := strings.CutPrefix(id, anonIDPrefix)
	if !ok || raw != strings.ToLower(raw) {
		return false
	}
	b, err := hex.DecodeString(raw)
	return err == nil && len(b) == anonIDBytes
}

func defaultUsername(userID string) string {
	raw := strings.TrimPrefix(userID, anonIDPrefix)
	if len(raw) < 8 {
		return "anon-user"
	}
	return "anon-" + raw[len(raw)-8:]
}

type resolver struct {
	repo   store.Repository
	secure bool
}

func (res resolver) cookieID(r *http.Request) (string, error) {
	if c, err := r.Cookie(AnonCookieName); err == nil && validAnonID(c.Value) {
		return c.Value, nil
	}
	return newAnonID()
}

// setCookie refreshes the cookie on every request so it slides with activity.
func (res resolver) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     AnonCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(anonCookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   res.secure,
	})
}

// visitor loads the stored user for id, creating it on first sight. An
// existing user's last_seen_at moves at most once per lastSeenResolution.
func (res resolver) visitor(ctx context.Context, id string) (Visitor, error) {
	user, err := res.repo.GetUser(ctx, id)
	if err != nil {
		return Visitor{}, err
	}
	now := time.Now()
	if user == nil {
		user = &domain.User{
			UserID:     id,
			Username:   defaultUsername(id),
			LastSeenAt: now,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := res.repo.UpsertUser(ctx, user); err != nil {
			return Visitor{}, err
		}
		return Visitor{UserID: id, Username: user.Username, FirstVisit: true}, nil
	}

	if now.Sub(user.LastSeenAt) >= lastSeenResolution {
		if err := res.repo.UpdateLastSeen(ctx, id, now); err != nil {
			return Visitor{}, err
		}
	}
	name := user.Username
	if name == "" {
		name = defaultUsername(id)
	}
	return Visitor{UserID: id, Username: name}, nil
}

func writeIdentityError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = fmt.Fprintf(w, "{\"error\":%q}\n", msg)
}

// Middleware resolves the visitor and stores it in the request context.
// Cookies are marked Secure outside development.
func Middleware(repo store.Repository, isDev bool) func(http.Handler) http.Handler {
	res := resolver{repo: repo, secure: !isDev}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := res.cookieID(r)
			if err != nil {
				slog.Error("Failed to generate visitor id", "error", err)
				writeIdentityError(w, "failed to establish anonymous identity")
				return
			}
			res.setCookie(w, id)

			v, err := res.visitor(r.Context(), id)
			if err != nil {
				slog.Error("Failed to load visitor", "user_id", id, "error", err)
				writeIdentityError(w, "failed to initialize anonymous user")
				return
			}
			if v.FirstVisit {
				slog.Info("New visitor", "user_id", v.UserID)
			}
			next.ServeHTTP(w, r.WithContext(WithVisitor(r.Context(), v)))
		})
	}
}
