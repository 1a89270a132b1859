package observe

import (
	"context"
	"time"

	"github.com/MrWong99/accentor/pkg/audio"
	"github.com/MrWong99/accentor/pkg/phoneme"
	"github.com/MrWong99/accentor/pkg/provider/asr"
)

// instrumentedASR decorates a speech recognition provider with latency and
// request metrics.
type instrumentedASR struct {
	name    string
	inner   asr.Provider
	metrics *Metrics
}

var _ asr.Provider = (*instrumentedASR)(nil)

// InstrumentASR wraps p so every Transcribe call records its duration and a
// request counter under the given provider name. Errors additionally bump
// the provider error counter. The wrapped provider is otherwise transparent.
func InstrumentASR(name string, p asr.Provider, m *Metrics) asr.Provider {
	return &instrumentedASR{name: name, inner: p, metrics: m}
}

func (i *instrumentedASR) Transcribe(ctx context.Context, clip audio.Clip, language string) (*asr.Transcription, error) {
	start := time.Now()
	tr, err := i.inner.Transcribe(ctx, clip, language)
	i.metrics.ASRDuration.Record(ctx, time.Since(start).Seconds())

	status := "ok"
	if err != nil {
		status = "error"
		i.metrics.RecordProviderError(ctx, i.name, "asr")
	}
	i.metrics.RecordProviderRequest(ctx, i.name, "asr", status)
	return tr, err
}

// instrumentedPhoneme decorates a phonetic transcriber with latency and
// request metrics.
type instrumentedPhoneme struct {
	name    string
	inner   phoneme.Transcriber
	metrics *Metrics
}

var _ phoneme.Transcriber = (*instrumentedPhoneme)(nil)

// InstrumentPhoneme wraps tr so every ToIPA call records its duration and a
// request counter under the given provider name. Errors additionally bump
// the provider error counter.
func InstrumentPhoneme(name string, tr phoneme.Transcriber, m *Metrics) phoneme.Transcriber {
	return &instrumentedPhoneme{name: name, inner: tr, metrics: m}
}

func (i *instrumentedPhoneme) ToIPA(ctx context.Context, text, language string) (string, error) {
	start := time.Now()
	ipa, err := i.inner.ToIPA(ctx, text, language)
	i.metrics.PhonemizeDuration.Record(ctx, time.Since(start).Seconds())

	status := "ok"
	if err != nil {
		status = "error"
		i.metrics.RecordProviderError(ctx, i.name, "phoneme")
	}
	i.metrics.RecordProviderRequest(ctx, i.name, "phoneme", status)
	return ipa, err
}
