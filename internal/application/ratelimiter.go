package application

import (
	"context"

	"golang.org/x/time/rate"
)

type rateLimiter interface {
	Wait(ctx context.Context) error
}

type limiterAdapter struct {
	limiter *rate.Limiter
}

// newTokenBucketLimiter returns nil when ratePerSecond is zero, which
// disables throttling.
func newTokenBucketLimiter(ratePerSecond float64, burst int) rateLimiter {
	if ratePerSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}

	return &limiterAdapter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

func (l *limiterAdapter) Wait(ctx context.Context) error {
	if l == nil || l.limiter == nil {
		return ctx.Err()
	}
	return l.limiter.Wait(ctx)
}
