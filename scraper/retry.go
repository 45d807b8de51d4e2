package scraper

import (
	"context"
	"time"

	"github.com/use-agent/pagedigest/config"
)

// RetryPolicy is an explicit retry schedule: a small bounded attempt count
// with capped exponential backoff between attempts. It is a plain value so
// retry behavior stays decoupled from the loader and testable on its own.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// Delay is the wait before the second attempt.
	Delay time.Duration

	// MaxDelay caps the grown delay.
	MaxDelay time.Duration

	// Multiplier grows the delay after each failed attempt.
	Multiplier float64
}

// PolicyFromConfig builds a RetryPolicy from configuration, normalizing
// out-of-range values.
func PolicyFromConfig(cfg config.RetryConfig) RetryPolicy {
	p := RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		Delay:       cfg.Delay,
		MaxDelay:    cfg.MaxDelay,
		Multiplier:  2,
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.MaxDelay < p.Delay {
		p.MaxDelay = p.Delay
	}
	return p
}

// Do runs fn until it succeeds, the attempts are exhausted, or the context
// is done. It returns the last error when all attempts fail.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	delay := p.Delay
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == p.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return lastErr
}
