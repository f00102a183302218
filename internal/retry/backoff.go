package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// Config controls exponential backoff between attempts.
type Config struct {
	MaxAttempts int           // Total attempts, including the first (default: 3)
	BaseDelay   time.Duration // Delay after the first failure (default: 1s)
	MaxDelay    time.Duration // Ceiling on the computed delay (default: 30s)
	Multiplier  float64       // Growth factor per attempt (default: 2.0)
	Jitter      bool          // Randomize delays to avoid thundering herd
}

// DefaultConfig returns a retry configuration with sensible defaults for
// REST API calls.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
	}
}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as retryable. Do gives up immediately on errors that
// are not marked.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked retryable.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// Do runs op until it succeeds, returns a non-transient error, or attempts
// run out. The context cancels waits between attempts.
func Do(ctx context.Context, cfg Config, log zerolog.Logger, op func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg = DefaultConfig()
	}

	var err error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err = op()
		if err == nil || !IsTransient(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		delay := backoffDelay(cfg, attempt)
		log.Debug().
			Err(err).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Retrying after transient error")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return err
}

func backoffDelay(cfg Config, attempt int) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		// Up to 25% random skew in either direction.
		delay *= 0.75 + rand.Float64()*0.5
	}
	return time.Duration(delay)
}
