// Package resilience provides a circuit breaker for calls to backends that
// can go away for a while, such as the inventory databases.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the breaker position.
type State int

const (
	StateClosed   State = iota // calls pass through
	StateOpen                  // calls are rejected
	StateHalfOpen              // a limited number of probes pass through
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

// ErrOpen is returned without calling through while the breaker is open.
var ErrOpen = errors.New("circuit breaker is open")

// Config tunes a Breaker. Zero fields take the DefaultConfig value.
type Config struct {
	// Threshold is the number of consecutive failures that opens the breaker.
	Threshold int
	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration
	// Probes is the number of calls let through while half-open.
	Probes int
}

// DefaultConfig is used for unset Config fields.
var DefaultConfig = Config{
	Threshold: 5,
	Cooldown:  30 * time.Second,
	Probes:    1,
}

// Breaker trips after Threshold consecutive failures and recovers after a
// successful probe.
type Breaker struct {
	mu       sync.Mutex
	cfg      Config
	state    State
	failures int
	openedAt time.Time
	probes   int
	onChange func(from, to State)
	now      func() time.Time
}

// New creates a closed Breaker.
func New(cfg Config) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultConfig.Threshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultConfig.Cooldown
	}
	if cfg.Probes <= 0 {
		cfg.Probes = DefaultConfig.Probes
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// OnChange registers a callback run on every state transition. It is called
// with the breaker lock held and must not call back into the Breaker.
func (b *Breaker) OnChange(f func(from, to State)) {
	b.mu.Lock()
	b.onChange = f
	b.mu.Unlock()
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current()
}

// current moves open to half-open once the cooldown has passed. Must hold mu.
func (b *Breaker) current() State {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		b.set(StateHalfOpen)
		b.probes = 0
	}
	return b.state
}

func (b *Breaker) set(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	if b.onChange != nil {
		b.onChange(from, to)
	}
}

// admit reports whether a call may proceed.
func (b *Breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.current() {
	case StateOpen:
		return false
	case StateHalfOpen:
		if b.probes >= b.cfg.Probes {
			return false
		}
		b.probes++
	}
	return true
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		b.failures = 0
		b.set(StateClosed)
		return
	}
	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.cfg.Threshold {
		b.set(StateOpen)
		b.openedAt = b.now()
		b.failures = 0
		b.probes = 0
	}
}

// Do runs f unless the breaker is open. Context cancellation from the caller
// is not counted as a backend failure.
func (b *Breaker) Do(ctx context.Context, f func(context.Context) error) error {
	_, err := Guard(b, ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, f(ctx)
	})
	return err
}

// Guard is the value-returning form of Do.
func Guard[T any](b *Breaker, ctx context.Context, f func(context.Context) (T, error)) (T, error) {
	var zero T
	if !b.admit() {
		return zero, ErrOpen
	}
	v, err := f(ctx)
	if err != nil && ctx.Err() != nil {
		b.mu.Lock()
		if b.state == StateHalfOpen {
			b.probes--
		}
		b.mu.Unlock()
		return v, err
	}
	b.record(err)
	return v, err
}
