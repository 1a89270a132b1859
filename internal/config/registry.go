package config

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/accentor/pkg/phoneme"
	"github.com/MrWong99/accentor/pkg/provider/asr"
)

// ErrProviderNotRegistered is returned when a config names a provider that
// no factory was registered for.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// ASRFactory builds a speech recognition provider from its config entry.
type ASRFactory func(ctx context.Context, entry ProviderEntry) (asr.Provider, error)

// PhonemeFactory builds a phoneme transcriber from its config entry.
type PhonemeFactory func(ctx context.Context, entry ProviderEntry) (phoneme.Transcriber, error)

// Registry maps provider names to factories. The main package registers
// every provider it ships during startup; the app then instantiates them
// from the config by name. Registration and lookup are safe to interleave,
// though in practice all registration happens before the first lookup.
type Registry struct {
	mu      sync.RWMutex
	asr     map[string]ASRFactory
	phoneme map[string]PhonemeFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		asr:     make(map[string]ASRFactory),
		phoneme: make(map[string]PhonemeFactory),
	}
}

// RegisterASR registers a speech recognition factory under name,
// replacing any previous registration.
func (r *Registry) RegisterASR(name string, factory ASRFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.asr[name] = factory
}

// RegisterPhoneme registers a phoneme transcriber factory under name,
// replacing any previous registration.
func (r *Registry) RegisterPhoneme(name string, factory PhonemeFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phoneme[name] = factory
}

// NewASR instantiates the speech recognition provider the entry names.
func (r *Registry) NewASR(ctx context.Context, entry ProviderEntry) (asr.Provider, error) {
	r.mu.RLock()
	factory, ok := r.asr[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: asr/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(ctx, entry)
}

// NewPhoneme instantiates the phoneme transcriber the entry names.
func (r *Registry) NewPhoneme(ctx context.Context, entry ProviderEntry) (phoneme.Transcriber, error) {
	r.mu.RLock()
	factory, ok := r.phoneme[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: phoneme/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(ctx, entry)
}

// ASRNames returns the registered speech recognition provider names.
func (r *Registry) ASRNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.asr))
	for name := range r.asr {
		names = append(names, name)
	}
	return names
}
