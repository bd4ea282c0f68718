// Package retry provides exponential backoff calculation and condition polling.
package retry

import (
	"context"
	"math"
	"time"
)

// Config for exponential backoff. Zero values use defaults.
type Config struct {
	Initial time.Duration // default: 100ms
	Max     time.Duration // default: 5s
}

// Backoff calculates exponential backoff for a given attempt.
// Attempt 1 returns initial, attempt 2 returns initial*2, etc.
func Backoff(attempt int, cfg *Config) time.Duration {
	initial := 100 * time.Millisecond
	maxBackoff := 5 * time.Second
	if cfg != nil {
		if cfg.Initial > 0 {
			initial = cfg.Initial
		}
		if cfg.Max > 0 {
			maxBackoff = cfg.Max
		}
	}

	if attempt < 1 {
		return initial
	}
	backoff := float64(initial) * math.Pow(2.0, float64(attempt-1))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}
	return time.Duration(backoff)
}

// Poll calls condition with exponentially backed-off sleeps until it returns
// true, the deadline elapses, or ctx is cancelled. Reports whether the
// condition was met.
func Poll(ctx context.Context, deadline time.Duration, cfg *Config, condition func() bool) bool {
	end := time.Now().Add(deadline)
	for attempt := 1; ; attempt++ {
		if condition() {
			return true
		}

		wait := Backoff(attempt, cfg)
		if remaining := time.Until(end); remaining <= 0 {
			return false
		} else if wait > remaining {
			wait = remaining
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}
