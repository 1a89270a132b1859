package resilience

import (
	"context"

	"github.com/MrWong99/accentor/pkg/audio"
	"github.com/MrWong99/accentor/pkg/provider/asr"
)

// ASRFailover implements [asr.Provider] with automatic failover across
// several transcription backends, each behind its own breaker.
//
// Because the per-entry errors are joined, callers can still classify the
// outcome with errors.Is against the asr sentinels even when every backend
// failed.
type ASRFailover struct {
	chain *Chain[asr.Provider]
}

// Compile-time interface assertion.
var _ asr.Provider = (*ASRFailover)(nil)

// NewASRFailover creates an empty failover group. Register backends with Add
// in preference order before first use.
func NewASRFailover(cfg BreakerConfig) *ASRFailover {
	return &ASRFailover{chain: NewChain[asr.Provider](cfg)}
}

// Add registers a backend. The first one added is the preferred backend.
func (f *ASRFailover) Add(name string, provider asr.Provider) {
	f.chain.Add(name, provider)
}

// Providers returns the backend names in trial order, for startup summaries.
func (f *ASRFailover) Providers() []string {
	return f.chain.Names()
}

// Transcribe implements [asr.Provider] against the first healthy backend.
func (f *ASRFailover) Transcribe(ctx context.Context, clip audio.Clip, language string) (*asr.Transcription, error) {
	return Run(ctx, f.chain, func(p asr.Provider) (*asr.Transcription, error) {
		return p.Transcribe(ctx, clip, language)
	})
}
