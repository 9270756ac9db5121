// Package resilience provides restart backoff, restart rate limiting
// and crash loop detection for supervised processes.
package resilience

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RestartLimiter controls the rate of process restarts.
type RestartLimiter interface {
	// Allow checks if a restart is allowed for the given process.
	Allow(process string) bool

	// Wait blocks until a restart is allowed or the context is canceled.
	Wait(ctx context.Context, process string) error

	// SetLimit updates the restart rate for a process.
	SetLimit(process string, limit rate.Limit, burst int)
}

// RestartLimiterConfig configures the restart limiter.
type RestartLimiterConfig struct {
	// DefaultLimit is the default restarts per second.
	DefaultLimit float64

	// DefaultBurst is the default burst size.
	DefaultBurst int

	// ProcessLimits contains per-process restart limits.
	ProcessLimits map[string]ProcessLimit
}

// ProcessLimit defines the restart rate for a specific process.
type ProcessLimit struct {
	Limit float64
	Burst int
}

// DefaultRestartLimiterConfig returns the default configuration: at
// most one restart per second with a small burst for boot time, when
// several processes legitimately start together.
func DefaultRestartLimiterConfig() RestartLimiterConfig {
	return RestartLimiterConfig{
		DefaultLimit:  1,
		DefaultBurst:  3,
		ProcessLimits: make(map[string]ProcessLimit),
	}
}

// restartLimiter implements RestartLimiter with one token bucket per
// process name.
type restartLimiter struct {
	config   RestartLimiterConfig
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
}

// NewRestartLimiter creates a new restart limiter.
func NewRestartLimiter(config RestartLimiterConfig) RestartLimiter {
	rl := &restartLimiter{
		config:   config,
		limiters: make(map[string]*rate.Limiter),
	}

	for process, limit := range config.ProcessLimits {
		rl.limiters[process] = rate.NewLimiter(rate.Limit(limit.Limit), limit.Burst)
	}

	return rl
}

// Allow implements RestartLimiter.Allow.
func (rl *restartLimiter) Allow(process string) bool {
	return rl.getLimiter(process).Allow()
}

// Wait implements RestartLimiter.Wait.
func (rl *restartLimiter) Wait(ctx context.Context, process string) error {
	return rl.getLimiter(process).Wait(ctx)
}

// SetLimit implements RestartLimiter.SetLimit.
func (rl *restartLimiter) SetLimit(process string, limit rate.Limit, burst int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limiters[process]; ok {
		limiter.SetLimit(limit)
		limiter.SetBurst(burst)
	} else {
		rl.limiters[process] = rate.NewLimiter(limit, burst)
	}
}

func (rl *restartLimiter) getLimiter(process string) *rate.Limiter {
	rl.mu.RLock()
	limiter, ok := rl.limiters[process]
	rl.mu.RUnlock()

	if ok {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check after acquiring write lock
	if existing, ok := rl.limiters[process]; ok {
		return existing
	}

	newLimiter := rate.NewLimiter(rate.Limit(rl.config.DefaultLimit), rl.config.DefaultBurst)
	rl.limiters[process] = newLimiter
	return newLimiter
}
