// Package breaker implements the per-source circuit breaker that decides
// whether a fetch is attempted.
//
// A breaker starts CLOSED. Consecutive recorded failures at or above the
// threshold open it; once the recovery timeout has elapsed since the last
// failure the next Allow call moves it to HALF_OPEN and lets a probe through.
// The probe's outcome either closes the breaker or reopens it.
package breaker

import (
	"sync"
	"time"

	"github.com/JakeFAU/ulytau-insight/internal/news"
)

// State is the breaker's position in its state machine.
type State string

// Breaker states.
const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

// Default tuning.
const (
	DefaultFailureThreshold = 3
	DefaultRecoveryTimeout  = 30 * time.Minute
)

// Config tunes a breaker.
type Config struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	// ResetOnClosedSuccess clears a partial failure count when a success is
	// recorded while CLOSED. Off by default: only leaving OPEN/HALF_OPEN resets.
	ResetOnClosedSuccess bool
	// SingleProbe restricts HALF_OPEN to one outstanding probe.
	SingleProbe bool
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = DefaultRecoveryTimeout
	}
	return c
}

// Snapshot is a point-in-time copy of breaker state.
type Snapshot struct {
	State       State     `json:"state"`
	Failures    int       `json:"failures"`
	LastFailure time.Time `json:"last_failure"`
}

// Breaker tracks the health of one source.
type Breaker struct {
	cfg   Config
	clock news.Clock

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
	probing     bool
}

// New builds a CLOSED breaker.
func New(cfg Config, clock news.Clock) *Breaker {
	return &Breaker{
		cfg:   cfg.withDefaults(),
		clock: clock,
		state: StateClosed,
	}
}

// Allow reports whether a request may be attempted now.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.clock.Now().Sub(b.lastFailure) <= b.cfg.RecoveryTimeout {
			return false
		}
		b.state = StateHalfOpen
		b.probing = true
		return true
	case StateHalfOpen:
		if b.cfg.SingleProbe && b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return true
	}
}

// RecordSuccess notes a successful request.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	if b.state != StateClosed {
		b.state = StateClosed
		b.failures = 0
		return
	}
	if b.cfg.ResetOnClosedSuccess {
		b.failures = 0
	}
}

// RecordFailure notes a failed request.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	b.failures++
	b.lastFailure = b.clock.Now()
	switch b.state {
	case StateClosed:
		if b.failures >= b.cfg.FailureThreshold {
			b.state = StateOpen
		}
	case StateHalfOpen:
		b.state = StateOpen
	}
}

// Release abandons an outstanding probe without recording an outcome.
func (b *Breaker) Release() {
	b.mu.Lock()
	b.probing = false
	b.mu.Unlock()
}

// State returns the current state without side effects.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Snapshot copies the breaker's state.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{State: b.state, Failures: b.failures, LastFailure: b.lastFailure}
}
