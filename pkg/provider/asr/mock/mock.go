// Package mock provides a test double for the asr.Provider interface.
//
// Pre-populate Result (or Results for per-call scripting) with the
// Transcription values the consumer should receive, then inspect Calls to
// verify the clip and language the caller passed.
//
// Example:
//
//	p := &mock.Provider{
//	    Result: &asr.Transcription{Text: "hello world"},
//	}
//	tr, _ := p.Transcribe(ctx, clip, "en")
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/accentor/pkg/audio"
	"github.com/MrWong99/accentor/pkg/provider/asr"
)

// TranscribeCall records a single invocation of Provider.Transcribe.
type TranscribeCall struct {
	// Clip is the audio clip passed to Transcribe.
	Clip audio.Clip
	// Language is the language hint passed to Transcribe.
	Language string
}

// Provider is a mock implementation of asr.Provider.
type Provider struct {
	mu sync.Mutex

	// Result is returned by every Transcribe call when Results is empty.
	// If both are nil, Transcribe returns an empty Transcription.
	Result *asr.Transcription

	// Results, when non-empty, scripts consecutive Transcribe calls: call n
	// returns Results[n]. Calls beyond the script fall back to Result.
	Results []*asr.Transcription

	// Err, if non-nil, is returned as the error from every Transcribe call.
	Err error

	// Delay, when non-nil, is waited on before returning so tests can
	// exercise context cancellation. Transcribe returns ctx.Err() if the
	// context ends first.
	Delay <-chan struct{}

	// Calls records every call to Transcribe.
	Calls []TranscribeCall
}

// Transcribe records the call and returns the scripted result or error.
func (p *Provider) Transcribe(ctx context.Context, clip audio.Clip, language string) (*asr.Transcription, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, TranscribeCall{Clip: clip, Language: language})
	n := len(p.Calls) - 1
	delay := p.Delay
	p.mu.Unlock()

	if delay != nil {
		select {
		case <-delay:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	if n < len(p.Results) {
		return p.Results[n], nil
	}
	if p.Result != nil {
		return p.Result, nil
	}
	return &asr.Transcription{}, nil
}

// CallCount returns the number of Transcribe calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}

// Ensure Provider implements asr.Provider at compile time.
var _ asr.Provider = (*Provider)(nil)
