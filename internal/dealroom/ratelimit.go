package dealroom

import (
	"net/http"
	"sync"
	"time"

	"github.com/ashureev/dealflow/internal/api"
	"github.com/ashureev/dealflow/internal/identity"
)

// RateLimiter is a sliding-window limiter keyed by user id. Session ids are
// not part of the key so rotating sessions does not reset the budget.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
	done     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a limiter and starts its eviction goroutine.
// Call Stop to release it.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return newRateLimiter(limit, window, time.Now)
}

func newRateLimiter(limit int, window time.Duration, now func() time.Time) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      now,
		done:     make(chan struct{}),
	}
	rl.startEviction()
	return rl
}

// Allow records a request for key and reports whether it fits the window.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	recent := r.recent(key, now.Add(-r.window))
	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}
	r.requests[key] = append(recent, now)
	return true
}

// Middleware rejects requests over the limit with 429.
func (r *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !r.Allow(identity.UserIDFromContext(req.Context())) {
			api.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, req)
	})
}

// Stop ends the eviction goroutine.
func (r *RateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.done) })
}

func (r *RateLimiter) recent(key string, cutoff time.Time) []time.Time {
	var out []time.Time
	for _, t := range r.requests[key] {
		if t.After(cutoff) {
			out = append(out, t)
		}
	}
	return out
}

// evict drops keys with no requests inside the window.
func (r *RateLimiter) evict() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.window)
	for key := range r.requests {
		if fresh := r.recent(key, cutoff); len(fresh) == 0 {
			delete(r.requests, key)
		} else {
			r.requests[key] = fresh
		}
	}
}

func (r *RateLimiter) keys() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func (r *RateLimiter) startEviction() {
	go func() {
		ticker := time.NewTicker(r.window)
		defer ticker.Stop()
		for {
			select {
			case <-r.done:
				return
			case <-ticker.C:
				r.evict()
			}
		}
	}()
}
