// Package circuit provides a consecutive-failure circuit breaker used to stop
// hammering a bureau vendor while it is down.
package circuit

import (
	"sync"
	"time"
)

// State is the breaker state.
type State string

const (
	StateClosed State = "closed"
	StateOpen   State = "open"
)

// StateChange reports transitions caused by Record.
type StateChange struct {
	Opened bool
	Closed bool
}

// Breaker opens after failureThreshold consecutive failures and closes again
// after successThreshold consecutive successes.
type Breaker struct {
	mu sync.Mutex

	name             string
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
	now              func() time.Time

	state     State
	failures  int
	successes int
	openedAt  time.Time
}

// Option configures a Breaker.
type Option func(*Breaker)

func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// WithCooldown lets Allow admit a trial request once the circuit has been
// open for d. Zero disables probing.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		b.cooldown = d
	}
}

// WithClock overrides time.Now for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		b.now = now
	}
}

// New creates a closed breaker.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: 5,
		successThreshold: 1,
		now:              time.Now,
		state:            StateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) Name() string {
	return b.name
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

// Allow reports whether a call may go to the primary. An open breaker admits
// calls only after the cooldown has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateClosed {
		return true
	}
	return b.cooldown > 0 && b.now().Sub(b.openedAt) >= b.cooldown
}

// Outcome is how a finished call counts toward the breaker.
type Outcome int

const (
	// OutcomeSuccess means the dependency answered, whatever it said.
	OutcomeSuccess Outcome = iota
	// OutcomeFailure means the dependency looked unhealthy.
	OutcomeFailure
	// OutcomeIgnored leaves the counters untouched, e.g. a caller that gave up.
	OutcomeIgnored
)

// Record applies the outcome of one call and reports any transition.
func (b *Breaker) Record(o Outcome) StateChange {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch o {
	case OutcomeFailure:
		return b.failure()
	case OutcomeSuccess:
		return b.success()
	default:
		return StateChange{}
	}
}

func (b *Breaker) failure() StateChange {
	b.successes = 0
	if b.state == StateOpen {
		// a failed trial call re-arms the cooldown
		b.openedAt = b.now()
		return StateChange{}
	}
	b.failures++
	if b.failures >= b.failureThreshold {
		b.state = StateOpen
		b.openedAt = b.now()
		return StateChange{Opened: true}
	}
	return StateChange{}
}

func (b *Breaker) success() StateChange {
	b.failures = 0
	if b.state == StateClosed {
		return StateChange{}
	}
	b.successes++
	if b.successes >= b.successThreshold {
		b.state = StateClosed
		b.successes = 0
		return StateChange{Closed: true}
	}
	return StateChange{}
}

// Reset closes the breaker and clears counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
	b.openedAt = time.Time{}
}
