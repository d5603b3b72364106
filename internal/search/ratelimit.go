package search

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

const (
	defaultProviderRPS   = 5
	defaultProviderBurst = 10
)

// providerLimiters keeps one token bucket per provider so a slow upstream
// budget never starves the others.
type providerLimiters struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

func newProviderLimiters(providers map[string]Provider) *providerLimiters {
	pl := &providerLimiters{limiters: make(map[string]*rate.Limiter, len(providers))}
	for name, provider := range providers {
		rps, burst := float64(defaultProviderRPS), defaultProviderBurst
		if limited, ok := provider.(RateLimited); ok {
			if r, b := limited.RateLimit(); r > 0 {
				rps = r
				if b > 0 {
					burst = b
				} else {
					burst = 1
				}
			}
		}
		pl.limiters[name] = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return pl
}

func (pl *providerLimiters) get(name string) *rate.Limiter {
	pl.mu.RLock()
	limiter, ok := pl.limiters[name]
	pl.mu.RUnlock()
	if ok {
		return limiter
	}

	pl.mu.Lock()
	defer pl.mu.Unlock()
	if limiter, ok = pl.limiters[name]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Limit(defaultProviderRPS), defaultProviderBurst)
	pl.limiters[name] = limiter
	return limiter
}

// waitProviderRateLimit blocks until the provider's bucket has a token or
// ctx is done.
func (s *Service) waitProviderRateLimit(ctx context.Context, providerName string) error {
	return s.limiters.get(providerName).Wait(ctx)
}
