package history

import (
	"context"
	"sync"
)

// Ensure Memory implements Store at compile time.
var _ Store = (*Memory)(nil)

// Memory is an in-process Store for tests and deployments without a
// database. Attempts live only as long as the process.
type Memory struct {
	mu       sync.RWMutex
	attempts []Attempt
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Save implements Store.
func (m *Memory) Save(_ context.Context, attempt Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, attempt)
	return nil
}

// Recent implements Store. Attempts are returned newest first, assuming
// Save order is creation order.
func (m *Memory) Recent(_ context.Context, f Filter) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit := f.limit()
	out := make([]Attempt, 0, limit)
	for i := len(m.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		a := m.attempts[i]
		if f.Language != "" && a.Language != f.Language {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// Len returns the number of stored attempts.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.attempts)
}
