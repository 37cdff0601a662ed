package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/blackwidowglobal/dossier/internal/model"
)

// Limiter implements per-source token-bucket rate limiting. It is the only
// state shared across concurrent fetch tasks in a run; a single Limiter may
// also be shared by multiple runs in one process so that combined traffic to
// a provider stays under its limit.
type Limiter struct {
	limiters     map[model.SourceID]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a rate limiter with a fallback rate for sources that
// have no explicit configuration
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}

	return &Limiter{
		limiters:     make(map[model.SourceID]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// NewLimiterFromConfig creates a limiter pre-populated with every
// configured source's rate
func NewLimiterFromConfig(cfg *model.Config) *Limiter {
	l := NewLimiter(1, 1)
	for name, sc := range cfg.Sources {
		if sc.RatePerSec > 0 {
			l.SetSourceRate(model.SourceID(name), sc.RatePerSec, sc.Burst)
		}
	}
	return l
}

// Wait blocks until a token is available for the given source, or until the
// context is done
func (l *Limiter) Wait(ctx context.Context, id model.SourceID) error {
	return l.getLimiter(id).Wait(ctx)
}

// Allow reports whether a request for the source is allowed right now
// without waiting
func (l *Limiter) Allow(id model.SourceID) bool {
	return l.getLimiter(id).Allow()
}

// getLimiter returns the rate limiter for a source
func (l *Limiter) getLimiter(id model.SourceID) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[id]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[id]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[id] = limiter

	return limiter
}

// SetSourceRate sets a custom rate limit for a specific source
func (l *Limiter) SetSourceRate(id model.SourceID, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}

	l.limiters[id] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}
