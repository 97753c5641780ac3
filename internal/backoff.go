package internal

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Rand returns a uniformly distributed value in [0, 1).
type Rand func() float64

// DefaultRand is safe for concurrent use.
func DefaultRand() float64 { return rand.Float64() }

// Backoff returns the delay before the retry that follows failure number
// attempt (0-based): base*2^attempt capped at maxDelay, plus a jitter drawn
// uniformly from [0, maxJitter). A zero maxDelay means no cap.
func Backoff(attempt int, base, maxJitter, maxDelay time.Duration, rnd Rand) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	d := base
	for i := 0; i < attempt && d > 0; i++ {
		if maxDelay > 0 && d >= maxDelay {
			break
		}
		if d > math.MaxInt64/2 {
			d = math.MaxInt64
			break
		}
		d *= 2
	}
	if maxDelay > 0 && d > maxDelay {
		d = maxDelay
	}

	return d + Jitter(maxJitter, rnd)
}

// RateLimitDelay returns the pause after an HTTP 429 in fixed mode:
// base plus a jitter drawn uniformly from [0, spread).
func RateLimitDelay(base, spread time.Duration, rnd Rand) time.Duration {
	return base + Jitter(spread, rnd)
}

// Jitter returns a duration drawn uniformly from [0, spread).
func Jitter(spread time.Duration, rnd Rand) time.Duration {
	if spread <= 0 {
		return 0
	}
	if rnd == nil {
		rnd = DefaultRand
	}
	return time.Duration(rnd() * float64(spread))
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
