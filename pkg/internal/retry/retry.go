// Package retry retries storage writes with exponential backoff.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Config holds configuration for retry with backoff.
type Config struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	// Default: 3
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	// Default: 50ms
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	// Default: 1s
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier applied to backoff after each attempt.
	// Default: 2.0
	BackoffMultiplier float64

	// JitterFraction is the fraction of backoff to randomize (0.0 to 1.0).
	// Default: 0.1 (10% jitter)
	JitterFraction float64
}

// DefaultConfig returns the configuration used for history writes.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		InitialBackoff:    50 * time.Millisecond,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 2.0,
		JitterFraction:    0.1,
	}
}

// Do executes operation with exponential backoff on failure.
// It stops early on non-retryable errors and context cancellation, and
// returns the last error if all attempts fail.
func Do(ctx context.Context, config Config, operation func(ctx context.Context) error) error {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		lastErr = operation(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
		if attempt >= config.MaxAttempts {
			break
		}

		jitter := time.Duration(float64(backoff) * config.JitterFraction * (rand.Float64()*2 - 1))
		sleepDuration := backoff + jitter
		if sleepDuration < 0 {
			sleepDuration = backoff
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepDuration):
		}

		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	return lastErr
}

// permanentError marks an error that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Do returns it without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsRetryable determines if an error is worth retrying.
// Context errors and errors wrapped with Permanent are not; database errors
// default to retryable since most are transient (locks, timeouts, dropped
// connections).
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var pe *permanentError
	return !errors.As(err, &pe)
}
