// Package retry provides a small retry helper with a fixed inter-attempt
// delay. The NER client deliberately does not use exponential backoff: the
// circuit breaker is the mechanism that protects a struggling service, so
// retries only need to smooth over transient blips.
package retry

import (
	"context"
	"time"
)

// Config defines retry behavior.
type Config struct {
	// MaxRetries is the number of additional attempts after the first
	// (0 = no retries).
	MaxRetries int
	// Delay is the fixed wait between attempts.
	Delay time.Duration
}

// DefaultConfig returns the NER client defaults: 2 retries, 500ms apart.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 2,
		Delay:      500 * time.Millisecond,
	}
}

// Do executes fn up to 1+MaxRetries times, waiting Delay between attempts.
// The attempt number (0-based) is passed to fn so callers can alternate
// endpoints across attempts. Returns nil on the first success, the last
// error after exhaustion, or ctx.Err() if cancelled during a wait.
func Do(ctx context.Context, cfg Config, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := fn(attempt); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt < cfg.MaxRetries {
			select {
			case <-time.After(cfg.Delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

// DoWithResult is Do for functions that return a value.
func DoWithResult[T any](ctx context.Context, cfg Config, fn func(attempt int) (T, error)) (T, error) {
	var result T
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		r, err := fn(attempt)
		if err == nil {
			return r, nil
		}
		lastErr = err
		result = r

		if attempt < cfg.MaxRetries {
			select {
			case <-time.After(cfg.Delay):
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}
	}
	return result, lastErr
}
