// Package mock provides a test double for the phoneme package interfaces.
//
// Use Transcriber to feed controlled IPA values and inspect which
// (text, language) pairs were requested:
//
//	tr := &mock.Transcriber{IPA: map[string]string{"hello": "həˈloʊ"}}
//	got, _ := tr.ToIPA(ctx, "hello", "en")
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/accentor/pkg/phoneme"
)

// ToIPACall records a single invocation of Transcriber.ToIPA.
type ToIPACall struct {
	// Text is the text passed to ToIPA.
	Text string
	// Language is the language code passed to ToIPA.
	Language string
}

// Transcriber is a mock implementation of phoneme.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// IPA maps input text to the IPA string ToIPA returns. Texts not present
	// fall through to Fallback.
	IPA map[string]string

	// Fallback, if non-nil, computes the IPA for texts missing from IPA.
	// When nil, missing texts echo back unchanged.
	Fallback func(text string) string

	// Err, if non-nil, is returned as the error from every ToIPA call.
	Err error

	// ErrFor, if non-empty, makes ToIPA fail only for these exact texts,
	// letting tests exercise per-word fallback behavior.
	ErrFor map[string]error

	// Calls records every call to ToIPA in order.
	Calls []ToIPACall
}

// ToIPA records the call and returns the scripted IPA value or error.
func (t *Transcriber) ToIPA(_ context.Context, text, language string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = append(t.Calls, ToIPACall{Text: text, Language: language})
	if t.Err != nil {
		return "", t.Err
	}
	if err, ok := t.ErrFor[text]; ok {
		return "", err
	}
	if ipa, ok := t.IPA[text]; ok {
		return ipa, nil
	}
	if t.Fallback != nil {
		return t.Fallback(text), nil
	}
	return text, nil
}

// CallCount returns the number of ToIPA calls. Thread-safe.
func (t *Transcriber) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Calls)
}

// CallsFor returns how many times ToIPA was invoked for the exact text.
func (t *Transcriber) CallsFor(text string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.Calls {
		if c.Text == text {
			n++
		}
	}
	return n
}

// Reset clears all recorded calls. Thread-safe.
func (t *Transcriber) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = nil
}

// Ensure Transcriber implements phoneme.Transcriber at compile time.
var _ phoneme.Transcriber = (*Transcriber)(nil)
