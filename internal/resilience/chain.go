package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrExhausted is returned when every entry in a [Chain] failed or had an
// open breaker. The individual provider errors are joined into the chain so
// errors.Is still classifies the underlying failure.
var ErrExhausted = errors.New("resilience: all providers exhausted")

// chainEntry pairs one provider value with its dedicated breaker.
type chainEntry[T any] struct {
	name    string
	value   T
	breaker *Breaker
}

// Chain holds an ordered list of interchangeable providers, each guarded by
// its own [Breaker]. Entries are tried in registration order; the first entry
// is the preferred backend.
//
// Chain is safe for concurrent use once assembly via Add is complete.
type Chain[T any] struct {
	entries []chainEntry[T]
	cfg     BreakerConfig
}

// NewChain creates an empty chain. cfg seeds the per-entry breakers; the
// Name field is overwritten with each entry's own name.
func NewChain[T any](cfg BreakerConfig) *Chain[T] {
	return &Chain[T]{cfg: cfg}
}

// Add appends a provider to the chain. Not safe to call concurrently with
// Run; register all entries during startup.
func (c *Chain[T]) Add(name string, value T) {
	cfg := c.cfg
	cfg.Name = name
	c.entries = append(c.entries, chainEntry[T]{
		name:    name,
		value:   value,
		breaker: NewBreaker(cfg),
	})
}

// Names returns the entry names in trial order.
func (c *Chain[T]) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.name
	}
	return names
}

// Run tries fn against each entry until one succeeds. Entries with open
// breakers are skipped. When ctx is done the remaining entries are not
// tried: a deadline spent on the primary buys nothing for a fallback.
//
// On total failure the returned error wraps ErrExhausted together with every
// per-entry error. Run is a package-level function because Go does not
// support method-level type parameters.
func Run[T any, R any](ctx context.Context, c *Chain[T], fn func(T) (R, error)) (R, error) {
	var (
		zero R
		errs []error
	)
	for i := range c.entries {
		entry := &c.entries[i]
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		var result R
		err := entry.breaker.Execute(func() error {
			var innerErr error
			result, innerErr = fn(entry.value)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", entry.name, err))
		if errors.Is(err, ErrBreakerOpen) {
			slog.Debug("skipping provider, breaker open", "provider", entry.name)
		} else {
			slog.Warn("provider failed, trying next",
				"provider", entry.name, "error", err)
		}
	}
	if len(errs) == 0 {
		return zero, ErrExhausted
	}
	return zero, fmt.Errorf("%w: %w", ErrExhausted, errors.Join(errs...))
}
