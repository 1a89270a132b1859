// Package ipacache caches phonetic transcriptions across requests.
//
// Grapheme-to-phoneme conversion is pure: the same (language, text) pair
// always yields the same IPA string. That makes its output safe to cache
// indefinitely and share between requests, sessions and processes. The
// request-level memoization inside the trainer only deduplicates within a
// single attempt; this package carries the results across attempts.
//
// Two backends are provided: Memory for single-process deployments and tests,
// and Redis for deployments where several instances should share one cache.
// Wrap decorates any phoneme.Transcriber with read-through caching:
//
//	store := ipacache.NewMemory(0)
//	tr := ipacache.Wrap(goruut.New(), store)
//
// Cache failures are never fatal. A backend that errors on read or write is
// logged and bypassed, and the wrapped transcriber is consulted directly.
package ipacache

import (
	"context"
	"log/slog"

	"github.com/MrWong99/accentor/pkg/phoneme"
)

// Store is a persistence backend for phonetic transcriptions.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the cached IPA for (language, text). The boolean reports
	// whether the entry was present; a miss is not an error.
	Get(ctx context.Context, language, text string) (string, bool, error)

	// Set stores the IPA for (language, text), overwriting any previous value.
	Set(ctx context.Context, language, text, ipa string) error
}

// Ensure Cached implements phoneme.Transcriber at compile time.
var _ phoneme.Transcriber = (*Cached)(nil)

// Cached is a phoneme.Transcriber that consults a Store before delegating to
// the wrapped transcriber. Errors from the wrapped transcriber are returned
// as-is and never cached, so a transient backend failure does not poison the
// cache.
type Cached struct {
	inner    phoneme.Transcriber
	store    Store
	log      *slog.Logger
	onLookup func(ctx context.Context, hit bool)
}

// Option configures a Cached transcriber.
type Option func(*Cached)

// WithLogger sets the logger used to report cache backend failures.
// Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(c *Cached) { c.log = log }
}

// WithLookupFunc registers a callback invoked after every store lookup with
// its outcome. Store errors do not count as lookups. Used to feed hit rate
// metrics without coupling this package to a metrics backend.
func WithLookupFunc(fn func(ctx context.Context, hit bool)) Option {
	return func(c *Cached) { c.onLookup = fn }
}

// Wrap returns a Cached transcriber that reads through store. Both inner and
// store must be non-nil.
func Wrap(inner phoneme.Transcriber, store Store, opts ...Option) *Cached {
	c := &Cached{
		inner: inner,
		store: store,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "ipacache")
	return c
}

// ToIPA implements phoneme.Transcriber.
func (c *Cached) ToIPA(ctx context.Context, text, language string) (string, error) {
	ipa, ok, err := c.store.Get(ctx, language, text)
	switch {
	case err != nil:
		c.log.LogAttrs(ctx, slog.LevelWarn, "cache read failed",
			slog.String("language", language),
			slog.String("error", err.Error()))
	case ok:
		if c.onLookup != nil {
			c.onLookup(ctx, true)
		}
		return ipa, nil
	default:
		if c.onLookup != nil {
			c.onLookup(ctx, false)
		}
	}

	ipa, err = c.inner.ToIPA(ctx, text, language)
	if err != nil {
		return "", err
	}
	if err := c.store.Set(ctx, language, text, ipa); err != nil {
		c.log.LogAttrs(ctx, slog.LevelWarn, "cache write failed",
			slog.String("language", language),
			slog.String("error", err.Error()))
	}
	return ipa, nil
}
