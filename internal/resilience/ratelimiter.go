package resilience

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// ProviderLimiter applies a per-provider request rate so a benchmark
// run does not trip the very rate limits it is trying to measure
// around. A zero rate means unlimited.
type ProviderLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perSec   float64
	burst    int
}

// NewProviderLimiter creates a limiter allowing perSec requests per
// second per provider.
func NewProviderLimiter(perSec float64, burst int) *ProviderLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &ProviderLimiter{
		limiters: make(map[string]*rate.Limiter),
		perSec:   perSec,
		burst:    burst,
	}
}

// Wait blocks until the provider may issue another request or the
// context is cancelled.
func (l *ProviderLimiter) Wait(ctx context.Context, providerName string) error {
	if l == nil || l.perSec <= 0 {
		return nil
	}

	l.mu.Lock()
	lim, ok := l.limiters[providerName]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.perSec), l.burst)
		l.limiters[providerName] = lim
	}
	l.mu.Unlock()

	return lim.Wait(ctx)
}
