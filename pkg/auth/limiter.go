package auth

import (
	"sync"

	"golang.org/x/time/rate"
)

// limiterPool hands out one token bucket per caller key (API key or
// client IP). Buckets live for the process lifetime; the key space is
// bounded by the configured keys plus observed client addresses.
type limiterPool struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	rps   rate.Limit
	burst int
}

func newLimiterPool(cfg SecConfig) *limiterPool {
	rps := cfg.RPS
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 10
	}
	return &limiterPool{
		m:     make(map[string]*rate.Limiter),
		rps:   rate.Limit(rps),
		burst: burst,
	}
}

// Allow reports whether the caller identified by key is within its rate.
func (p *limiterPool) Allow(key string) bool {
	p.mu.Lock()
	l, ok := p.m[key]
	if !ok {
		l = rate.NewLimiter(p.rps, p.burst)
		p.m[key] = l
	}
	p.mu.Unlock()
	return l.Allow()
}
