package resilience

import (
	"sync"
	"time"
)

// CrashLoopBreaker stops restart attempts for processes that keep
// crashing. It behaves like a circuit breaker keyed by process name.
type CrashLoopBreaker interface {
	// Allow checks if a restart is allowed for the process.
	Allow(process string) bool

	// RecordHealthy records a run that was considered healthy.
	RecordHealthy(process string)

	// RecordCrash records a crashed run.
	RecordCrash(process string)

	// State returns the current state for a process.
	State(process string) CircuitState

	// Reset clears the breaker state for a process.
	Reset(process string)
}

// CircuitState represents the breaker state.
type CircuitState int

const (
	// StateClosed allows restarts.
	StateClosed CircuitState = iota
	// StateOpen blocks restarts until the cooldown elapses.
	StateOpen
	// StateHalfOpen allows probe restarts after the cooldown.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CrashLoopConfig configures the crash loop breaker.
type CrashLoopConfig struct {
	// CrashThreshold is the number of consecutive crashes before the
	// breaker opens.
	CrashThreshold int

	// HealthyThreshold is the number of healthy runs needed to close
	// the breaker from half-open.
	HealthyThreshold int

	// Cooldown is how long the breaker stays open before allowing a
	// probe restart.
	Cooldown time.Duration

	// OnStateChange is called when a process breaker changes state.
	OnStateChange func(process string, from, to CircuitState)
}

// DefaultCrashLoopConfig returns the default configuration.
func DefaultCrashLoopConfig() CrashLoopConfig {
	return CrashLoopConfig{
		CrashThreshold:   5,
		HealthyThreshold: 2,
		Cooldown:         30 * time.Second,
	}
}

// crashLoopBreaker implements CrashLoopBreaker with one breaker per
// process name.
type crashLoopBreaker struct {
	config   CrashLoopConfig
	breakers map[string]*breaker
	mu       sync.RWMutex
}

// breaker tracks crash state for a single process.
type breaker struct {
	process       string
	state         CircuitState
	crashes       int
	healthy       int
	lastCrashTime time.Time
	config        *CrashLoopConfig
	mu            sync.Mutex
}

// NewCrashLoopBreaker creates a new crash loop breaker.
func NewCrashLoopBreaker(config CrashLoopConfig) CrashLoopBreaker {
	return &crashLoopBreaker{
		config:   config,
		breakers: make(map[string]*breaker),
	}
}

// Allow implements CrashLoopBreaker.Allow.
func (cb *crashLoopBreaker) Allow(process string) bool {
	return cb.getBreaker(process).allow()
}

// RecordHealthy implements CrashLoopBreaker.RecordHealthy.
func (cb *crashLoopBreaker) RecordHealthy(process string) {
	cb.getBreaker(process).recordHealthy()
}

// RecordCrash implements CrashLoopBreaker.RecordCrash.
func (cb *crashLoopBreaker) RecordCrash(process string) {
	cb.getBreaker(process).recordCrash()
}

// State implements CrashLoopBreaker.State.
func (cb *crashLoopBreaker) State(process string) CircuitState {
	return cb.getBreaker(process).getState()
}

// Reset implements CrashLoopBreaker.Reset.
func (cb *crashLoopBreaker) Reset(process string) {
	cb.getBreaker(process).reset()
}

func (cb *crashLoopBreaker) getBreaker(process string) *breaker {
	cb.mu.RLock()
	b, ok := cb.breakers[process]
	cb.mu.RUnlock()

	if ok {
		return b
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	// Double-check
	if existing, ok := cb.breakers[process]; ok {
		return existing
	}

	newB := &breaker{
		process: process,
		state:   StateClosed,
		config:  &cb.config,
	}
	cb.breakers[process] = newB
	return newB
}

func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true

	case StateOpen:
		if time.Since(b.lastCrashTime) > b.config.Cooldown {
			b.transition(StateHalfOpen)
			return true
		}
		return false

	case StateHalfOpen:
		return true
	}

	return false
}

func (b *breaker) recordHealthy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.crashes = 0

	case StateHalfOpen:
		b.healthy++
		if b.healthy >= b.config.HealthyThreshold {
			b.transition(StateClosed)
		}
	}
}

func (b *breaker) recordCrash() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.crashes++
	b.lastCrashTime = time.Now()

	switch b.state {
	case StateClosed:
		if b.crashes >= b.config.CrashThreshold {
			b.transition(StateOpen)
		}

	case StateHalfOpen:
		b.transition(StateOpen)
	}
}

func (b *breaker) getState() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && time.Since(b.lastCrashTime) > b.config.Cooldown {
		b.transition(StateHalfOpen)
	}

	return b.state
}

func (b *breaker) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.crashes = 0
	b.healthy = 0
}

// transition changes state and resets counters. Callers must hold b.mu.
func (b *breaker) transition(to CircuitState) {
	from := b.state
	b.state = to

	switch to {
	case StateClosed, StateHalfOpen:
		b.crashes = 0
		b.healthy = 0
	case StateOpen:
		b.healthy = 0
	}

	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.process, from, to)
	}
}
