package source

import (
	"sync"
	"time"
)

// CircuitPhase is the three-state circuit breaker lifecycle: N consecutive
// failures within a window opens the circuit, blocking further restarts
// until a cooldown elapses, after which the next attempt is half-open.
type CircuitPhase int

const (
	CircuitClosed CircuitPhase = iota
	CircuitOpen
	CircuitHalfOpen
)

func (p CircuitPhase) String() string {
	switch p {
	case CircuitClosed:
		return "Closed"
	case CircuitOpen:
		return "Open"
	case CircuitHalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

// circuitBreaker is a single source's failure-window breaker. The breaker
// is per-source, not global: a circuit opening on one source must never
// block restarts on another, so every breaker owns its own fine-grained
// lock.
type circuitBreaker struct {
	mu          sync.Mutex
	threshold   int
	cooldown    time.Duration
	phase       CircuitPhase
	failures    int
	openedAt    time.Time
	lastErr     string
	halfOpenBusy bool
}

func newCircuitBreaker(threshold int, cooldown time.Duration) *circuitBreaker {
	if threshold <= 0 {
		threshold = 3
	}
	return &circuitBreaker{threshold: threshold, cooldown: cooldown, phase: CircuitClosed}
}

// AllowAttempt reports whether a restart attempt may proceed right now,
// transitioning Open -> HalfOpen once the cooldown has elapsed. Only one
// half-open trial is allowed in flight at a time.
func (b *circuitBreaker) AllowAttempt(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.phase {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if now.Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.phase = CircuitHalfOpen
		b.halfOpenBusy = true
		return true
	case CircuitHalfOpen:
		if b.halfOpenBusy {
			return false
		}
		b.halfOpenBusy = true
		return true
	default:
		return false
	}
}

// RecordSuccess closes the circuit and clears the failure counter.
func (b *circuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.phase = CircuitClosed
	b.failures = 0
	b.halfOpenBusy = false
}

// RecordFailure increments the failure count, opening the circuit once the
// threshold is reached within the current window. The window resets on
// every RecordSuccess, so this is a consecutive-failure counter.
func (b *circuitBreaker) RecordFailure(now time.Time, errMsg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastErr = errMsg
	b.halfOpenBusy = false

	if b.phase == CircuitHalfOpen {
		b.phase = CircuitOpen
		b.openedAt = now
		return
	}

	b.failures++
	if b.failures >= b.threshold {
		b.phase = CircuitOpen
		b.openedAt = now
	}
}

// State returns the current phase and last recorded error text.
func (b *circuitBreaker) State() (CircuitPhase, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase, b.lastErr
}
