// Package resilience keeps scoring available when a transcription backend
// degrades.
//
// The central type is [Breaker], a three-state circuit breaker
// (closed → open → half-open) that stops hammering a failing backend.
// [Chain] composes several instances of a provider type with one breaker per
// entry, so a tripped primary is bypassed in favour of healthy fallbacks.
// [ASRFailover] is the chain bound to the speech recognition interface.
//
// Caller cancellation is deliberately not health signal: a request aborted by
// its client says nothing about the backend, so context.Canceled never trips
// a breaker.
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrBreakerOpen is returned by [Breaker.Execute] while the breaker is open
// and the cooldown has not yet elapsed.
var ErrBreakerOpen = errors.New("resilience: breaker is open")

// State is the operating mode of a [Breaker].
type State int

const (
	// StateClosed forwards all calls.
	StateClosed State = iota

	// StateOpen rejects calls with ErrBreakerOpen until the cooldown elapses.
	StateOpen

	// StateHalfOpen lets a limited number of probe calls through. Enough
	// successes close the breaker, any failure re-opens it.
	StateHalfOpen
)

// String returns the human-readable name of the state.
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

// BreakerConfig holds tuning knobs for a [Breaker]. The zero value selects
// the defaults documented per field.
type BreakerConfig struct {
	// Name labels the breaker in log messages, typically the provider name.
	Name string

	// MaxFailures is the number of consecutive failures in the closed state
	// before the breaker opens. Default: 5.
	MaxFailures int

	// Cooldown is how long the breaker stays open before probing again.
	// Default: 30s.
	Cooldown time.Duration

	// ProbeBudget is how many successful probe calls the half-open state
	// requires before closing. It also caps concurrent probes. Default: 3.
	ProbeBudget int
}

// Breaker implements the three-state circuit breaker pattern.
type Breaker struct {
	name        string
	failLimit   int
	cooldown    time.Duration
	probeBudget int

	mu         sync.Mutex
	state      State
	failures   int
	openedAt   time.Time
	probeCalls int
	probeWins  int
}

// NewBreaker creates a [Breaker] from cfg, filling zero fields with defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.ProbeBudget <= 0 {
		cfg.ProbeBudget = 3
	}
	return &Breaker{
		name:        cfg.Name,
		failLimit:   cfg.MaxFailures,
		cooldown:    cfg.Cooldown,
		probeBudget: cfg.ProbeBudget,
		state:       StateClosed,
	}
}

// Execute runs fn if the breaker allows it. In the open state fn is not
// called and ErrBreakerOpen is returned. In the half-open state at most
// ProbeBudget probes run.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case StateOpen:
		if time.Since(b.openedAt) < b.cooldown {
			b.mu.Unlock()
			return ErrBreakerOpen
		}
		b.state = StateHalfOpen
		b.probeCalls = 0
		b.probeWins = 0
		slog.Info("breaker probing backend", "name", b.name)

	case StateHalfOpen:
		if b.probeCalls >= b.probeBudget {
			b.mu.Unlock()
			return ErrBreakerOpen
		}
	}

	probing := b.state == StateHalfOpen
	if probing {
		b.probeCalls++
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case err == nil:
		b.succeed(probing)
	case errors.Is(err, context.Canceled):
		// The caller hung up; the backend may be perfectly healthy.
		if probing {
			b.probeCalls--
		}
	default:
		b.fail(probing)
	}
	return err
}

// fail updates accounting after a failed call. Caller holds b.mu.
func (b *Breaker) fail(probing bool) {
	if probing {
		b.state = StateOpen
		b.openedAt = time.Now()
		b.failures = b.failLimit
		slog.Warn("breaker re-opened, probe failed", "name", b.name)
		return
	}
	b.failures++
	if b.state == StateClosed && b.failures >= b.failLimit {
		b.state = StateOpen
		b.openedAt = time.Now()
		slog.Warn("breaker opened",
			"name", b.name,
			"consecutive_failures", b.failures)
	}
}

// succeed updates accounting after a successful call. Caller holds b.mu.
func (b *Breaker) succeed(probing bool) {
	if probing {
		b.probeWins++
		if b.probeWins >= b.probeBudget {
			b.state = StateClosed
			b.failures = 0
			b.probeCalls = 0
			b.probeWins = 0
			slog.Info("breaker closed, backend recovered", "name", b.name)
		}
		return
	}
	b.failures = 0
}

// State reports the breaker's mode. An open breaker whose cooldown has
// elapsed reports StateHalfOpen; the actual transition happens on the next
// Execute call.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && time.Since(b.openedAt) >= b.cooldown {
		return StateHalfOpen
	}
	return b.state
}

// Reset forces the breaker back to closed and clears all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.probeCalls = 0
	b.probeWins = 0
	slog.Info("breaker manually reset", "name", b.name)
}
