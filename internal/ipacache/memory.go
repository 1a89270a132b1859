package ipacache

import (
	"context"
	"sync"
)

// Ensure Memory implements Store at compile time.
var _ Store = (*Memory)(nil)

type memoryKey struct {
	language string
	text     string
}

// Memory is an in-process Store backed by a map. It is the default backend
// when no external cache is configured.
type Memory struct {
	mu      sync.RWMutex
	entries map[memoryKey]string
	max     int
}

// NewMemory returns an empty in-memory store. maxEntries bounds the number of
// cached transcriptions; zero or negative means unbounded. When the bound is
// reached an arbitrary entry is evicted, which is adequate here because every
// entry is equally cheap to recompute.
func NewMemory(maxEntries int) *Memory {
	return &Memory{
		entries: make(map[memoryKey]string),
		max:     maxEntries,
	}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, language, text string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ipa, ok := m.entries[memoryKey{language: language, text: text}]
	return ipa, ok, nil
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, language, text, ipa string) error {
	key := memoryKey{language: language, text: text}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; !exists && m.max > 0 && len(m.entries) >= m.max {
		for victim := range m.entries {
			delete(m.entries, victim)
			break
		}
	}
	m.entries[key] = ipa
	return nil
}

// Len returns the number of cached transcriptions.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
