// Package circuit implements a count-based circuit breaker.
//
// The breaker does not time out on its own: callers keep reporting outcomes
// (typically from periodic probes) and the breaker closes after enough
// consecutive successes.
package circuit

import "sync"

// State is the breaker position.
type State int

const (
	StateClosed State = iota
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

const (
	defaultFailureThreshold = 5
	defaultSuccessThreshold = 2
)

// FailureChange reports a transition caused by RecordFailure.
type FailureChange struct {
	Opened bool
}

// SuccessChange reports a transition caused by RecordSuccess.
type SuccessChange struct {
	Closed bool
}

// Breaker tracks consecutive outcomes of a dependency.
type Breaker struct {
	name             string
	failureThreshold int
	successThreshold int

	mu        sync.Mutex
	state     State
	failures  int
	successes int
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets how many consecutive failures open the breaker.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets how many consecutive successes close an open breaker.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// New creates a closed breaker.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: defaultFailureThreshold,
		successThreshold: defaultSuccessThreshold,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) Name() string { return b.name }

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

// RecordFailure registers a failed call. useFallback is true whenever the
// breaker is open after the call.
func (b *Breaker) RecordFailure() (useFallback bool, change FailureChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successes = 0
	if b.state == StateOpen {
		return true, FailureChange{}
	}
	b.failures++
	if b.failures >= b.failureThreshold {
		b.state = StateOpen
		b.failures = 0
		return true, FailureChange{Opened: true}
	}
	return false, FailureChange{}
}

// RecordSuccess registers a successful call. usePrimary is true whenever the
// breaker is closed after the call.
func (b *Breaker) RecordSuccess() (usePrimary bool, change SuccessChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state == StateClosed {
		return true, SuccessChange{}
	}
	b.successes++
	if b.successes >= b.successThreshold {
		b.state = StateClosed
		b.successes = 0
		return true, SuccessChange{Closed: true}
	}
	return false, SuccessChange{}
}

// Reset forces the breaker closed and clears counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
}
