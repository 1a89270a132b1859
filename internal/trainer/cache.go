package trainer

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Factory constructs a Trainer for a language on first use.
type Factory func(ctx context.Context, language string) (*Trainer, error)

// Cache hands out one Trainer per language. Construction is lazy and
// at-most-once: concurrent first requests for the same language share a
// single factory call, and a failed construction is not cached so the next
// request retries.
type Cache struct {
	factory Factory
	group   singleflight.Group

	mu       sync.RWMutex
	trainers map[string]*Trainer
}

// NewCache creates an empty Cache backed by factory.
func NewCache(factory Factory) *Cache {
	return &Cache{
		factory:  factory,
		trainers: make(map[string]*Trainer),
	}
}

// GetOrCreate returns the Trainer for language, constructing it on first
// use. Safe for concurrent use.
func (c *Cache) GetOrCreate(ctx context.Context, language string) (*Trainer, error) {
	c.mu.RLock()
	tr, ok := c.trainers[language]
	c.mu.RUnlock()
	if ok {
		return tr, nil
	}

	v, err, _ := c.group.Do(language, func() (any, error) {
		// A racing caller may have finished construction between our read
		// miss and entering the flight.
		c.mu.RLock()
		tr, ok := c.trainers[language]
		c.mu.RUnlock()
		if ok {
			return tr, nil
		}

		tr, err := c.factory(ctx, language)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.trainers[language] = tr
		c.mu.Unlock()
		return tr, nil
	})
	if err != nil {
		return nil, fmt.Errorf("trainer: build for %q: %w", language, err)
	}
	return v.(*Trainer), nil
}

// Reset discards every constructed trainer, forcing the factory to run
// again on next use. Called after a config reload changes scoring
// parameters so new trainers pick them up.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.trainers)
}

// Languages returns the languages with a constructed trainer, sorted.
func (c *Cache) Languages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	langs := make([]string, 0, len(c.trainers))
	for l := range c.trainers {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}
