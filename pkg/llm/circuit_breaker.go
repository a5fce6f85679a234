package llm

import (
	"fmt"
	"sync"
	"time"
)

// BreakerState names the circuit breaker's position.
type BreakerState string

const (
	// BreakerClosed: generation calls flow through normally.
	BreakerClosed BreakerState = "closed"
	// BreakerOpen: the model endpoint is considered down; calls are refused.
	BreakerOpen BreakerState = "open"
	// BreakerHalfOpen: one probe call is in flight to test recovery.
	BreakerHalfOpen BreakerState = "half-open"
)

// CircuitBreakerConfig tunes when the breaker trips and when it probes again.
type CircuitBreakerConfig struct {
	// Threshold is the number of consecutive failed generation calls that
	// trips the breaker.
	Threshold int
	// ResetAfter is how long the breaker stays open before letting a probe
	// call through.
	ResetAfter time.Duration
}

// DefaultCircuitBreakerConfig returns the defaults used when no breaker
// tuning is configured.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Threshold:  5,
		ResetAfter: 30 * time.Second,
	}
}

// CircuitBreaker guards generation calls against a model endpoint that has
// stopped answering, so a dead provider fails questions fast instead of
// holding every request for the full timeout-and-retry cycle. After
// Threshold consecutive failures new calls are refused until ResetAfter has
// passed; then a single probe call goes through and its outcome decides
// whether the endpoint is trusted again.
type CircuitBreaker struct {
	cfg   CircuitBreakerConfig
	clock func() time.Time

	mu          sync.Mutex
	state       BreakerState
	failures    int
	lastFailure time.Time
}

// NewCircuitBreaker creates a circuit breaker with the given tuning.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		cfg:   cfg,
		clock: time.Now,
		state: BreakerClosed,
	}
}

// Allow reports whether a generation call may proceed. When it may not, the
// error says why so the caller can surface it.
func (cb *CircuitBreaker) Allow() (bool, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerOpen:
		since := cb.clock().Sub(cb.lastFailure)
		if since < cb.cfg.ResetAfter {
			return false, fmt.Errorf("model endpoint unavailable: %d consecutive generation failures, last one %v ago",
				cb.failures, since.Round(time.Second))
		}
		cb.state = BreakerHalfOpen
		return true, nil
	case BreakerHalfOpen:
		return false, fmt.Errorf("model endpoint recovery probe already in flight")
	default:
		return true, nil
	}
}

// RecordSuccess closes the breaker and clears the failure run.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = BreakerClosed
}

// RecordFailure extends the failure run. A failed probe reopens the breaker
// immediately; in the closed state the run tripping Threshold opens it.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = cb.clock()

	if cb.state == BreakerHalfOpen || cb.failures >= cb.cfg.Threshold {
		cb.state = BreakerOpen
	}
}

// State returns the breaker's current position.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
