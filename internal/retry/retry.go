package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrExhausted wraps the last error once every attempt has failed.
var ErrExhausted = errors.New("retries exhausted")

// Policy is a bounded exponential backoff.
type Policy struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Delay returns the wait before attempt n+1 (n counts from 0).
func (p Policy) Delay(n int) time.Duration {
	d := p.InitialDelay
	for i := 0; i < n; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Fixed calls fn up to attempts times back to back and returns the last error.
func Fixed(ctx context.Context, attempts int, op string, fn func() error) error {
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		log.Warn().Err(lastErr).Str("op", op).Int("attempt", i+1).Int("of", attempts).Msg("call failed")
	}
	return lastErr
}

// Do retries fn while retryable(err) holds, sleeping per the policy between
// attempts. Non-retryable errors are returned immediately.
func Do(ctx context.Context, p Policy, op string, retryable func(error) bool, fn func() error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if i == attempts-1 {
			break
		}
		backoff := p.Delay(i)
		log.Warn().Err(lastErr).Str("op", op).Int("attempt", i+1).Int("of", attempts).
			Dur("backoff", backoff).Msg("rate limited, backing off")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}
