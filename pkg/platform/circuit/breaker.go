// Package circuit provides a minimal two-state circuit breaker.
package circuit

import "sync"

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the guarded dependency is healthy and calls flow normally.
	StateClosed State = iota
	// StateOpen means the circuit has tripped and callers should take the fallback path.
	StateOpen
)

// Breaker tracks consecutive failures for a guarded dependency. After
// FailureThreshold consecutive failures the circuit opens; after
// SuccessThreshold consecutive successes while open it closes again.
//
// The registration recorder wraps the external store with a Breaker: while
// open, appends skip the store entirely and go straight to the retry queue.
type Breaker struct {
	mu        sync.Mutex
	name      string
	state     State
	failures  int
	successes int

	failureThreshold int
	successThreshold int
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets the consecutive-failure count that opens the circuit.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets the consecutive-success count that closes the circuit.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// New creates a closed breaker with the given name.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: 5,
		successThreshold: 3,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Name returns the breaker's name for logging and metrics.
func (b *Breaker) Name() string { return b.name }

// IsOpen reports whether the circuit is currently open.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == StateOpen
}

// RecordFailure records a failed call. It returns true when this failure
// transitioned the circuit from closed to open.
func (b *Breaker) RecordFailure() (opened bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.successes = 0

	if b.state == StateClosed && b.failures >= b.failureThreshold {
		b.state = StateOpen
		return true
	}
	return false
}

// RecordSuccess records a successful call. It returns true when this success
// transitioned the circuit from open back to closed.
func (b *Breaker) RecordSuccess() (closed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		b.successes++
		if b.successes >= b.successThreshold {
			b.state = StateClosed
			b.failures = 0
			b.successes = 0
			return true
		}
		return false
	}

	b.failures = 0
	return false
}

// Reset forces the breaker back to closed with zeroed counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
}
