package internal

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fixedRand(v float64) Rand { return func() float64 { return v } }

func TestBackoff(t *testing.T) {
	t.Parallel()

	base := 500 * time.Millisecond
	testCases := []struct {
		name    string
		attempt int
		jitter  time.Duration
		max     time.Duration
		rnd     float64
		want    time.Duration
	}{
		{"first failure", 0, 0, 0, 0, 500 * time.Millisecond},
		{"second failure", 1, 0, 0, 0, time.Second},
		{"fourth failure", 3, 0, 0, 0, 4 * time.Second},
		{"negative attempt", -2, 0, 0, 0, 500 * time.Millisecond},
		{"capped", 10, 0, 30 * time.Second, 0, 30 * time.Second},
		{"jitter added", 1, 100 * time.Millisecond, 0, 0.5, time.Second + 50*time.Millisecond},
		{"jitter on top of cap", 20, 100 * time.Millisecond, 30 * time.Second, 0.25, 30*time.Second + 25*time.Millisecond},
		{"huge attempt without cap", 200, 0, 0, 0, time.Duration(1<<63 - 1)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Backoff(tc.attempt, base, tc.jitter, tc.max, fixedRand(tc.rnd))
			if got != tc.want {
				t.Errorf("Backoff(%d) = %v, want %v", tc.attempt, got, tc.want)
			}
		})
	}
}

func TestBackoff_StrictlyIncreasingDespiteJitter(t *testing.T) {
	t.Parallel()

	// Worst case: the earlier delay takes the maximum jitter and the later one none.
	prev := Backoff(0, 500*time.Millisecond, 100*time.Millisecond, 0, fixedRand(0.999))
	for attempt := 1; attempt < 6; attempt++ {
		cur := Backoff(attempt, 500*time.Millisecond, 100*time.Millisecond, 0, fixedRand(0))
		if cur <= prev {
			t.Fatalf("delay %d (%v) not greater than previous (%v)", attempt, cur, prev)
		}
		prev = Backoff(attempt, 500*time.Millisecond, 100*time.Millisecond, 0, fixedRand(0.999))
	}
}

func TestBackoff_ZeroBase(t *testing.T) {
	t.Parallel()

	if got := Backoff(5, 0, 0, time.Second, fixedRand(0)); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
}

func TestRateLimitDelay(t *testing.T) {
	t.Parallel()

	for _, r := range []float64{0, 0.5, 0.999} {
		got := RateLimitDelay(5*time.Second, time.Second, fixedRand(r))
		if got < 5*time.Second || got >= 6*time.Second {
			t.Errorf("RateLimitDelay with rand %v = %v, want in [5s, 6s)", r, got)
		}
	}
}

func TestJitter(t *testing.T) {
	t.Parallel()

	if got := Jitter(0, fixedRand(0.9)); got != 0 {
		t.Errorf("expected no jitter for zero spread, got %v", got)
	}
	for i := 0; i < 100; i++ {
		got := Jitter(100*time.Millisecond, nil)
		if got < 0 || got >= 100*time.Millisecond {
			t.Fatalf("Jitter() = %v out of range", got)
		}
	}
}

func TestSleepContext(t *testing.T) {
	t.Parallel()

	if err := SleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := SleepContext(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled for zero delay, got %v", err)
	}
}
