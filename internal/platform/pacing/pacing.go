package pacing

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out calls to a rate-limited collaborator. Wait blocks until the
// next call is allowed or the context is done.
type Pacer interface {
	Wait(ctx context.Context) error
}

// FixedInterval enforces a minimum gap between consecutive calls. The clock and
// sleep functions are injectable so tests run without real elapsed time.
type FixedInterval struct {
	Interval time.Duration
	Now      func() time.Time
	Sleep    func(ctx context.Context, d time.Duration) error

	last time.Time
}

func NewFixedInterval(interval time.Duration) *FixedInterval {
	return &FixedInterval{Interval: interval}
}

func (p *FixedInterval) Wait(ctx context.Context) error {
	if p == nil || p.Interval <= 0 {
		return ctx.Err()
	}
	now := p.nowFn()()
	if !p.last.IsZero() {
		if gap := p.Interval - now.Sub(p.last); gap > 0 {
			if err := p.sleepFn()(ctx, gap); err != nil {
				return err
			}
			now = p.nowFn()()
		}
	}
	p.last = now
	return ctx.Err()
}

func (p *FixedInterval) nowFn() func() time.Time {
	if p.Now != nil {
		return p.Now
	}
	return time.Now
}

func (p *FixedInterval) sleepFn() func(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep
	}
	return sleepCtx
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// TokenBucket adapts a rate.Limiter to the Pacer interface.
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket allows callsPerMinute sustained calls with the given burst.
func NewTokenBucket(callsPerMinute int, burst int) *TokenBucket {
	if callsPerMinute < 1 {
		callsPerMinute = 1
	}
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(float64(callsPerMinute) / 60.0)
	return &TokenBucket{limiter: rate.NewLimiter(limit, burst)}
}

func (p *TokenBucket) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}

// None performs no pacing. Used in tests and dry runs.
type None struct{}

func (None) Wait(ctx context.Context) error { return ctx.Err() }
