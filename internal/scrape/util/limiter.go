package util

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"jobmonitor-engine/internal/domain"
)

// SourceLimiter hands out one rate.Limiter per source id, so every query a
// structured provider issues shares that provider's quota.
type SourceLimiter struct {
	mu sync.Mutex
	m  map[string]*rate.Limiter

	// defaults used when a descriptor has no rate limit of its own
	r rate.Limit
	b int
}

func NewSourceLimiter(reqPerSec float64, burst int) *SourceLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &SourceLimiter{
		m: make(map[string]*rate.Limiter),
		r: rate.Limit(reqPerSec),
		b: burst,
	}
}

// For returns the limiter of a descriptor, creating it on first use.
func (sl *SourceLimiter) For(d domain.SourceDescriptor) *rate.Limiter {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if lim, ok := sl.m[d.ID]; ok {
		return lim
	}
	r, b := sl.r, sl.b
	if d.RateLimit.Requests > 0 && d.RateLimit.Window > 0 {
		r = rate.Every(d.RateLimit.Window / time.Duration(d.RateLimit.Requests))
		b = d.RateLimit.Requests
	}
	lim := rate.NewLimiter(r, b)
	sl.m[d.ID] = lim
	return lim
}

func (sl *SourceLimiter) Wait(ctx context.Context, d domain.SourceDescriptor) error {
	return sl.For(d).Wait(ctx)
}
