package pacing

import (
	"context"
	"testing"
	"time"
)

func TestFixedIntervalSleepsBetweenCalls(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var slept []time.Duration

	p := &FixedInterval{
		Interval: 2 * time.Second,
		Now:      func() time.Time { return now },
		Sleep: func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			now = now.Add(d)
			return nil
		},
	}

	ctx := context.Background()

	if err := p.Wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	if len(slept) != 0 {
		t.Fatalf("first call should not sleep, slept=%v", slept)
	}

	// Immediate second call pays the full interval.
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if len(slept) != 1 || slept[0] != 2*time.Second {
		t.Fatalf("second call sleep: want [2s] got %v", slept)
	}

	// Caller burns part of the interval itself; only the remainder is slept.
	now = now.Add(1500 * time.Millisecond)
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("third wait: %v", err)
	}
	if len(slept) != 2 || slept[1] != 500*time.Millisecond {
		t.Fatalf("third call sleep: want 500ms got %v", slept)
	}
}

func TestFixedIntervalRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &FixedInterval{
		Interval: time.Second,
		Now:      func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) },
	}
	_ = p.Wait(ctx) // primes last
	if err := p.Wait(ctx); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestFixedIntervalZeroIntervalNeverSleeps(t *testing.T) {
	p := &FixedInterval{
		Sleep: func(_ context.Context, _ time.Duration) error {
			t.Fatalf("sleep called with zero interval")
			return nil
		},
	}
	for i := 0; i < 3; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
}

func TestTokenBucketAllowsBurst(t *testing.T) {
	p := NewTokenBucket(60, 3)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	for i := 0; i < 3; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("burst call %d: %v", i, err)
		}
	}
}
