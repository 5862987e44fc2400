package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Config bounds the attempts of WithBackoff.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Jitter spreads each delay by up to ±15%.
	Jitter bool
	// OnRetry, if set, is called after every failed attempt that will be retried.
	OnRetry func(attempt int, err error)
}

// DefaultConfig is for connecting to backing services at startup.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   10,
		InitialDelay: 2 * time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2,
		Jitter:       true,
	}
}

// LookupConfig is for per-ip lookups, where a slow failure only delays one node.
func LookupConfig() Config {
	return Config{
		MaxRetries:   3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2,
		Jitter:       true,
	}
}

// Backoff is the wait after the given failed attempt, counting from 1.
func (c Config) Backoff(attempt int) time.Duration {
	d := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt-1))
	d = math.Min(d, float64(c.MaxDelay))
	if c.Jitter {
		d *= 0.85 + 0.3*rand.Float64()
	}
	return time.Duration(d)
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. WithBackoff returns it unwrapped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// WithBackoff calls fn until it succeeds, returns a Permanent error, ctx ends or the
// attempts run out.
func WithBackoff(ctx context.Context, cfg Config, logger *zap.Logger, operation string, fn func() error) error {
	attempts := max(cfg.MaxRetries, 1)
	var timer *time.Timer

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s cancelled: %w", operation, err)
		}

		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Debug("Operation recovered",
					zap.String("operation", operation),
					zap.Int("attempts", attempt))
			}
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt >= attempts {
			return fmt.Errorf("%s failed after %d attempts: %w", operation, attempt, err)
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		wait := cfg.Backoff(attempt)
		logger.Debug("Operation failed, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", attempts),
			zap.Duration("retryIn", wait),
			zap.Error(err))

		if timer == nil {
			timer = time.NewTimer(wait)
			defer timer.Stop()
		} else {
			timer.Reset(wait)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled: %w", operation, ctx.Err())
		case <-timer.C:
		}
	}
}
