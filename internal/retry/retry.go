package retry

import (
	"context"
	"fmt"
	"time"
)

type Config struct {
	MaxAttempts int
	// Delay is the backoff step; attempt n waits n*Delay (linear backoff).
	Delay time.Duration
	// Retryable decides whether an error is worth another attempt. Nil
	// means retry everything.
	Retryable func(error) bool
}

// Do runs fn up to MaxAttempts times. Non-retryable errors are returned
// immediately.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			return fmt.Errorf("failed after %d attempts: %w", cfg.MaxAttempts, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * cfg.Delay):
		}
	}

	return lastErr
}
