// Package breaker provides a reusable circuit breaker. Both the NER service
// client and the strategy health monitor compose it rather than carrying
// their own failure-counting logic.
package breaker

import (
	"fmt"
	"sync"
	"time"
)

// State is the current state of a breaker.
type State int

const (
	// StateClosed means calls flow through normally.
	StateClosed State = iota
	// StateOpen means the breaker has tripped and calls are rejected.
	StateOpen
	// StateHalfOpen means one trial call is allowed to probe recovery.
	StateHalfOpen
)

func (s State) String() string {
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

// Config holds breaker tuning parameters.
type Config struct {
	// FailureThreshold is the number of consecutive failures before the
	// breaker trips open.
	FailureThreshold int
	// ResetTimeout is how long the breaker stays open before allowing a
	// single trial call.
	ResetTimeout time.Duration
}

// DefaultConfig matches the NER client defaults: trip after 3 consecutive
// failures, allow a trial call after 60 seconds.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 3,
		ResetTimeout:     60 * time.Second,
	}
}

// Breaker trips open after N consecutive failures and transitions to
// half-open once the reset timeout elapses, admitting exactly one trial call.
type Breaker struct {
	mu               sync.RWMutex
	consecutiveFails int
	threshold        int
	resetTimeout     time.Duration
	lastFailure      time.Time
	state            State
}

// New creates a breaker in the closed state.
func New(config Config) *Breaker {
	if config.FailureThreshold < 1 {
		config.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = DefaultConfig().ResetTimeout
	}
	return &Breaker{
		threshold:    config.FailureThreshold,
		resetTimeout: config.ResetTimeout,
		state:        StateClosed,
	}
}

// Allow reports whether a call may proceed. When the breaker is open and the
// reset timeout has elapsed it transitions to half-open and admits one call;
// further calls are rejected until that trial resolves.
func (b *Breaker) Allow() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true, nil
	case StateOpen:
		if time.Since(b.lastFailure) > b.resetTimeout {
			b.state = StateHalfOpen
			return true, nil
		}
		return false, fmt.Errorf("circuit breaker open: %d consecutive failures, last %v ago",
			b.consecutiveFails, time.Since(b.lastFailure).Round(time.Second))
	case StateHalfOpen:
		return false, fmt.Errorf("circuit breaker half-open: trial call in flight")
	default:
		return false, fmt.Errorf("circuit breaker in unknown state: %v", b.state)
	}
}

// RecordSuccess zeroes the failure counter and closes the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFails = 0
	b.state = StateClosed
}

// RecordFailure increments the failure counter and trips the breaker once
// the threshold is crossed. A failure during half-open reopens immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFails++
	b.lastFailure = time.Now()

	if b.state == StateHalfOpen {
		b.state = StateOpen
		return
	}
	if b.consecutiveFails >= b.threshold {
		b.state = StateOpen
	}
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// ConsecutiveFailures returns the current consecutive-failure count.
func (b *Breaker) ConsecutiveFailures() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.consecutiveFails
}

// Reset forces the breaker closed. Administrative use only.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFails = 0
	b.state = StateClosed
}
