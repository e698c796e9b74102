package scraper

import (
	"log"
	"sync"
	"time"
)

// CircuitBreaker halts requests to a listing site that keeps failing,
// so one blocked or broken platform doesn't burn the whole run's time
// budget across its county pages.
type CircuitBreaker struct {
	failureThreshold int
	resetTimeout     time.Duration

	mutex  sync.Mutex
	states map[string]*breakerState
}

type breakerState struct {
	consecutiveFailures int
	isOpen              bool
	lastFailureTime     time.Time
}

// NewCircuitBreaker creates a per-host circuit breaker
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		states:           make(map[string]*breakerState),
	}
}

func (cb *CircuitBreaker) state(host string) *breakerState {
	st, ok := cb.states[host]
	if !ok {
		st = &breakerState{}
		cb.states[host] = st
	}
	return st
}

// RecordSuccess records a successful request to the host
func (cb *CircuitBreaker) RecordSuccess(host string) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.state(host).consecutiveFailures = 0
}

// RecordFailure records a failed request; enough consecutive failures
// open the breaker for the host
func (cb *CircuitBreaker) RecordFailure(host string) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	st := cb.state(host)
	st.consecutiveFailures++
	st.lastFailureTime = time.Now()

	if st.consecutiveFailures >= cb.failureThreshold && !st.isOpen {
		st.isOpen = true
		log.Printf("[CircuitBreaker] Open for %s after %d consecutive failures. Will retry after %v",
			host, st.consecutiveFailures, cb.resetTimeout)
	}
}

// CanProceed checks if requests to the host are allowed
func (cb *CircuitBreaker) CanProceed(host string) bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	st := cb.state(host)
	if !st.isOpen {
		return true
	}

	if time.Since(st.lastFailureTime) > cb.resetTimeout {
		log.Printf("[CircuitBreaker] Half-open for %s after %v", host, cb.resetTimeout)
		st.isOpen = false
		st.consecutiveFailures = 0
		return true
	}

	return false
}
