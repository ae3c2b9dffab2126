package stripe

import (
	"errors"
	"sync"
	"time"

	"github.com/kevin07696/gateway-reconciler/pkg/timeutil"
)

// CircuitState represents the current state of the circuit breaker
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

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

var (
	// ErrCircuitOpen is returned without contacting the gateway
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned when the half-open trial slot is taken
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// CircuitBreakerConfig configures circuit breaker behavior
type CircuitBreakerConfig struct {
	// Consecutive gateway outages before the circuit opens
	MaxFailures uint32
	// Time spent open before a trial request is let through
	Timeout time.Duration
	// Concurrent trial requests allowed while half-open
	MaxRequestsHalfOpen uint32
	// Called after every transition
	OnStateChange func(from, to CircuitState)
}

// DefaultCircuitBreakerConfig returns the production defaults
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxFailures:         5,
		Timeout:             30 * time.Second,
		MaxRequestsHalfOpen: 1,
	}
}

// CircuitBreaker stops calling the gateway after repeated outages. Only
// failures reported through Record count; declines are successful round trips.
type CircuitBreaker struct {
	mu               sync.RWMutex
	state            CircuitState
	failures         uint32
	requestsHalfOpen uint32
	changedAt        time.Time
	config           CircuitBreakerConfig
	clock            timeutil.Clock
}

// NewCircuitBreaker creates a closed circuit breaker
func NewCircuitBreaker(config CircuitBreakerConfig, clock timeutil.Clock) *CircuitBreaker {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &CircuitBreaker{
		state:     StateClosed,
		changedAt: clock.Now(),
		config:    config,
		clock:     clock,
	}
}

// Allow reserves a slot for one call, or reports why none is available
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if cb.clock.Now().Sub(cb.changedAt) <= cb.config.Timeout {
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
		cb.requestsHalfOpen++
		return nil
	case StateHalfOpen:
		if cb.requestsHalfOpen >= cb.config.MaxRequestsHalfOpen {
			return ErrTooManyRequests
		}
		cb.requestsHalfOpen++
		return nil
	default:
		return ErrCircuitOpen
	}
}

// Record reports the outcome of a call admitted by Allow
func (cb *CircuitBreaker) Record(outage bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !outage {
		switch cb.state {
		case StateHalfOpen:
			cb.transition(StateClosed)
		case StateClosed:
			cb.failures = 0
		}
		return
	}

	cb.failures++
	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.config.MaxFailures {
			cb.transition(StateOpen)
		}
	case StateHalfOpen:
		cb.transition(StateOpen)
	}
}

func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.changedAt = cb.clock.Now()
	cb.requestsHalfOpen = 0
	if to != StateOpen {
		cb.failures = 0
	}
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}

// State returns the current circuit state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

func (cb *CircuitBreaker) consecutiveFailures() uint32 {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.failures
}
