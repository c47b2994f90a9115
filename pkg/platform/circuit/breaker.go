// Package circuit provides a circuit breaker for dependencies that have a
// fallback path. While open, callers skip the dependency entirely; after a
// cooldown a probe is let through to detect recovery.
package circuit

import (
	"sync"
	"time"
)

// State is the breaker position.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls until the cooldown has passed.
	StateOpen
	// StateHalfOpen lets calls through to probe the dependency.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Breaker opens after FailureThreshold consecutive failures, waits Cooldown,
// then closes again after SuccessThreshold consecutive successful probes. A
// failed probe reopens it for another cooldown.
type Breaker struct {
	mu               sync.Mutex
	name             string
	state            State
	failures         int
	successes        int
	openedAt         time.Time
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
	now              func() time.Time
	onChange         func(name string, to State)
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets the consecutive failures that open the circuit.
// Default is 5.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets the consecutive probe successes that close the
// circuit. Default is 3.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// WithCooldown sets how long the circuit stays open before probing.
// Default is 30s.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d >= 0 {
			b.cooldown = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// WithStateListener registers fn to run after every transition, outside the
// breaker lock.
func WithStateListener(fn func(name string, to State)) Option {
	return func(b *Breaker) {
		b.onChange = fn
	}
}

func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: 5,
		successThreshold: 3,
		cooldown:         30 * time.Second,
		now:              time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
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

// IsOpen reports whether calls are currently being rejected.
func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

// Allow reports whether the caller should try the dependency. An open
// circuit whose cooldown has passed moves to half-open and allows the call.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	if b.state != StateOpen {
		b.mu.Unlock()
		return true
	}
	if b.now().Sub(b.openedAt) < b.cooldown {
		b.mu.Unlock()
		return false
	}
	b.state = StateHalfOpen
	b.successes = 0
	b.mu.Unlock()

	b.notify(StateHalfOpen)
	return true
}

// RecordFailure counts a failed call.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	b.failures++
	b.successes = 0
	opened := false
	if b.state == StateHalfOpen || (b.state == StateClosed && b.failures >= b.failureThreshold) {
		b.state = StateOpen
		b.openedAt = b.now()
		opened = true
	}
	b.mu.Unlock()

	if opened {
		b.notify(StateOpen)
	}
}

// RecordSuccess counts a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	closed := false
	switch b.state {
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.successThreshold {
			b.state = StateClosed
			b.failures = 0
			b.successes = 0
			closed = true
		}
	case StateClosed:
		b.failures = 0
	}
	b.mu.Unlock()

	if closed {
		b.notify(StateClosed)
	}
}

// Reset closes the circuit and clears the counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
}

func (b *Breaker) notify(to State) {
	if b.onChange != nil {
		b.onChange(b.name, to)
	}
}
