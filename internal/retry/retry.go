// Package retry classifies transient remote failures and retries them with
// jittered exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

const MaxRetries = 3

// Error indicates a transient failure that can be retried.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *Error
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// Do runs fn up to MaxRetries times, sleeping between attempts while fn
// returns a retryable error. The last error is returned.
func Do(ctx context.Context, log *slog.Logger, op string, fn func(ctx context.Context) error) error {
	return DoBackoff(ctx, log, op, Backoff, fn)
}

// DoBackoff is Do with a custom backoff schedule.
func DoBackoff(ctx context.Context, log *slog.Logger, op string, backoff func(int) time.Duration, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := range MaxRetries {
		lastErr = fn(ctx)
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == MaxRetries-1 {
			break
		}
		if log != nil {
			log.Warn("retryable error", "op", op, "attempt", attempt, "error", lastErr)
		}
		select {
		case <-time.After(backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
