package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	maxBusyRetries = 3
	busyBaseDelay  = 100 * time.Millisecond
)

// IsConflictError reports whether err is a SQLITE_BUSY or "database is
// locked" error, both of which are worth retrying.
func IsConflictError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// withBusyRetry runs op, retrying conflict errors with exponential backoff
// (100ms, 200ms).
func withBusyRetry(ctx context.Context, name string, op func() error) error {
	var err error
	for i := 0; i < maxBusyRetries; i++ {
		if err = op(); err == nil {
			return nil
		}
		if !IsConflictError(err) || i == maxBusyRetries-1 {
			break
		}
		delay := busyBaseDelay * time.Duration(1<<i)
		slog.Debug("SQLite busy, retrying", "op", name, "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%s: %w", name, err)
}
