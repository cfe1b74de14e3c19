// Package circuitbreaker guards calls to the page-fetch provider. When the
// provider fails persistently the breaker opens and fetches fail fast, which
// lets scrape runs degrade to synthetic pricing instead of burning API quota
// on a dead upstream.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pop-scanner/internal/logging"
)

// State represents the circuit breaker state
type State string

const (
	// StateClosed means requests flow through normally
	StateClosed State = "closed"
	// StateOpen means requests fail fast without reaching the provider
	StateOpen State = "open"
	// StateHalfOpen means a limited number of probe requests are allowed
	StateHalfOpen State = "half_open"
)

// ErrCircuitOpen is returned when the breaker is open and the call was not
// attempted.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ErrTooManyRequests is returned when the half-open probe budget is spent.
var ErrTooManyRequests = errors.New("too many requests in half-open state")

// Config configures a circuit breaker
type Config struct {
	Name             string
	ConsecutiveFails int
	OpenTimeout      time.Duration
	HalfOpenMaxCalls int
}

// DefaultConfig returns a configuration tuned for the page-fetch provider:
// a scrape run issues at most five fetches, so the breaker keys off
// consecutive failures rather than a windowed rate.
func DefaultConfig(name string) *Config {
	return &Config{
		Name:             name,
		ConsecutiveFails: 5,
		OpenTimeout:      60 * time.Second,
		HalfOpenMaxCalls: 2,
	}
}

// CircuitBreaker trips after a run of consecutive failures and recovers via
// half-open probes.
type CircuitBreaker struct {
	name             string
	consecutiveLimit int
	openTimeout      time.Duration
	halfOpenMaxCalls int

	mu               sync.Mutex
	state            State
	consecutiveFails int
	halfOpenCalls    int
	halfOpenOKs      int
	lastStateChange  time.Time
}

// New creates a circuit breaker from config.
func New(config *Config) *CircuitBreaker {
	return &CircuitBreaker{
		name:             config.Name,
		consecutiveLimit: config.ConsecutiveFails,
		openTimeout:      config.OpenTimeout,
		halfOpenMaxCalls: config.HalfOpenMaxCalls,
		state:            StateClosed,
		lastStateChange:  time.Now(),
	}
}

// Execute runs fn under breaker protection. When the breaker is open the
// call is rejected with ErrCircuitOpen without invoking fn.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := fn()
	cb.afterRequest(err)
	return err
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastStateChange) < cb.openTimeout {
			return ErrCircuitOpen
		}
		cb.setState(StateHalfOpen)
		cb.halfOpenCalls = 0
		cb.halfOpenOKs = 0
		logging.WithField("circuitBreaker", cb.name).Info("Circuit breaker transitioning to half-open")

	case StateHalfOpen:
		if cb.halfOpenCalls >= cb.halfOpenMaxCalls {
			return ErrTooManyRequests
		}
	}

	if cb.state == StateHalfOpen {
		cb.halfOpenCalls++
	}
	return nil
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.consecutiveFails++
		switch cb.state {
		case StateClosed:
			if cb.consecutiveFails >= cb.consecutiveLimit {
				cb.setState(StateOpen)
				logging.WithFields(map[string]interface{}{
					"circuitBreaker":   cb.name,
					"consecutiveFails": cb.consecutiveFails,
				}).Warn("Circuit breaker opened")
			}
		case StateHalfOpen:
			// A failed probe reopens immediately.
			cb.setState(StateOpen)
			logging.WithField("circuitBreaker", cb.name).Warn("Circuit breaker reopened after failed probe")
		}
		return
	}

	cb.consecutiveFails = 0
	if cb.state == StateHalfOpen {
		cb.halfOpenOKs++
		if cb.halfOpenOKs >= cb.halfOpenMaxCalls {
			cb.setState(StateClosed)
			logging.WithField("circuitBreaker", cb.name).Info("Circuit breaker closed after recovery")
		}
	}
}

func (cb *CircuitBreaker) setState(state State) {
	cb.state = state
	cb.lastStateChange = time.Now()
}

// GetState returns the current state.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the breaker back to closed with clean counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setState(StateClosed)
	cb.consecutiveFails = 0
	cb.halfOpenCalls = 0
	cb.halfOpenOKs = 0
}
