package onboarding

import (
	"context"
	"log/slog"
	"time"
)

const sweepInterval = 5 * time.Minute

// StartSweeper runs a background goroutine that periodically drops idle
// onboarding sessions until ctx is done.
func (s *Service) StartSweeper(ctx context.Context) {
	s.startSweeper(ctx, sweepInterval)
}

func (s *Service) startSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Onboarding sweeper started", "interval", interval, "ttl", s.sessionTTL)

		for {
			select {
			case now := <-ticker.C:
				if n := s.sweep(now); n > 0 {
					slog.Info("Onboarding sweeper dropped idle sessions", "count", n, "active", s.ActiveSessions())
				}
			case <-ctx.Done():
				slog.Info("Onboarding sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
