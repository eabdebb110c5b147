// Package gateway executes resolved commands as remote tool calls, isolating
// the rest of the pipeline from transient failure with retries and a
// per-endpoint circuit breaker.
package gateway

import (
	"sync"
	"time"

	"github.com/valter-silva-au/todo-chat/pkg/models"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // Normal operation
	CircuitOpen                         // Failing, reject calls
	CircuitHalfOpen                     // Single trial call allowed
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// StateChangeFunc is notified on every breaker state transition.
type StateChangeFunc func(endpoint string, from, to CircuitState)

// CircuitBreaker implements the circuit breaker pattern for a single tool
// endpoint. One retry-exhausted call counts as one failure, regardless of
// how many attempts it took.
type CircuitBreaker struct {
	mu                  sync.Mutex
	endpoint            string
	state               CircuitState
	consecutiveFailures int
	lastFailure         time.Time
	openedUntil         time.Time
	cooldown            time.Duration // current cooldown, escalates on repeated trips

	failThreshold int
	baseCooldown  time.Duration
	maxCooldown   time.Duration
	onChange      StateChangeFunc
	now           func() time.Time
}

func newCircuitBreaker(endpoint string, cfg models.BreakerConfig, onChange StateChangeFunc) *CircuitBreaker {
	ft := cfg.FailThreshold
	if ft <= 0 {
		ft = 5
	}
	cd := cfg.Cooldown
	if cd <= 0 {
		cd = 30 * time.Second
	}
	mc := cfg.MaxCooldown
	if mc < cd {
		mc = 4 * cd
	}
	return &CircuitBreaker{
		endpoint:      endpoint,
		state:         CircuitClosed,
		failThreshold: ft,
		baseCooldown:  cd,
		cooldown:      cd,
		maxCooldown:   mc,
		onChange:      onChange,
		now:           time.Now,
	}
}

// transition moves the breaker to a new state. Callers must hold cb.mu.
func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if cb.onChange != nil {
		cb.onChange(cb.endpoint, from, to)
	}
}

// Allow reports whether a call may proceed. While Open it rejects until the
// cooldown elapses, then admits exactly one trial call in HalfOpen; further
// calls are rejected until that trial's outcome is recorded.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Before(cb.openedUntil) {
			return false
		}
		// Cooldown elapsed: this caller becomes the half-open probe.
		cb.transition(CircuitHalfOpen)
		return true
	case CircuitHalfOpen:
		// A probe is already in flight.
		return false
	}
	return false
}

// RecordSuccess records a successful call outcome.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures = 0
	if cb.state == CircuitHalfOpen {
		cb.cooldown = cb.baseCooldown
		cb.transition(CircuitClosed)
	}
}

// RecordFailure records a failed call outcome (one per call, not per attempt).
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailure = cb.now()

	switch cb.state {
	case CircuitClosed:
		cb.consecutiveFailures++
		if cb.consecutiveFailures >= cb.failThreshold {
			cb.openedUntil = cb.now().Add(cb.cooldown)
			cb.transition(CircuitOpen)
		}
	case CircuitHalfOpen:
		// Failed probe: reopen with an escalated cooldown.
		cb.cooldown *= 2
		if cb.cooldown > cb.maxCooldown {
			cb.cooldown = cb.maxCooldown
		}
		cb.openedUntil = cb.now().Add(cb.cooldown)
		cb.transition(CircuitOpen)
	}
}

// State returns the current circuit state without side effects.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Snapshot returns a point-in-time view of the breaker for reporting.
func (cb *CircuitBreaker) Snapshot() map[string]any {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	info := map[string]any{
		"state":                cb.state.String(),
		"consecutive_failures": cb.consecutiveFailures,
	}
	if !cb.lastFailure.IsZero() {
		info["last_failure"] = cb.lastFailure.Format(time.RFC3339)
	}
	if cb.state == CircuitOpen {
		info["opened_until"] = cb.openedUntil.Format(time.RFC3339)
	}
	return info
}

// breakerRegistry manages per-endpoint circuit breakers, created lazily.
type breakerRegistry struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
	cfg      models.BreakerConfig
	onChange StateChangeFunc
}

func newBreakerRegistry(cfg models.BreakerConfig, onChange StateChangeFunc) *breakerRegistry {
	return &breakerRegistry{
		breakers: make(map[string]*CircuitBreaker),
		cfg:      cfg,
		onChange: onChange,
	}
}

func (r *breakerRegistry) get(endpoint string) *CircuitBreaker {
	r.mu.RLock()
	cb, ok := r.breakers[endpoint]
	r.mu.RUnlock()
	if ok {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock.
	if cb, ok := r.breakers[endpoint]; ok {
		return cb
	}

	cb = newCircuitBreaker(endpoint, r.cfg, r.onChange)
	r.breakers[endpoint] = cb
	return cb
}

func (r *breakerRegistry) status() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]any, len(r.breakers))
	for name, cb := range r.breakers {
		result[name] = cb.Snapshot()
	}
	return result
}
