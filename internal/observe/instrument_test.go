package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/accentor/pkg/audio"
	phonememock "github.com/MrWong99/accentor/pkg/phoneme/mock"
	"github.com/MrWong99/accentor/pkg/provider/asr"
	asrmock "github.com/MrWong99/accentor/pkg/provider/asr/mock"
)

func testClip() audio.Clip {
	return audio.Clip{
		Rate:    audio.SampleRate,
		Samples: make([]int16, audio.SampleRate/10),
	}
}

// counterValue returns the summed value of all data points whose attributes
// include key=value.
func counterValue(t *testing.T, rm metricdata.ResourceMetrics, name, key, value string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		return 0
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not a sum", name)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == key && kv.Value.AsString() == value {
				total += dp.Value
			}
		}
	}
	return total
}

func TestInstrumentASR_Success(t *testing.T) {
	m, reader := newTestMetrics(t)
	want := &asr.Transcription{Text: "hello world"}
	inner := &asrmock.Provider{Result: want}

	p := InstrumentASR("whisper-api", inner, m)
	got, err := p.Transcribe(context.Background(), testClip(), "en")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got != want {
		t.Error("Transcribe() did not pass the inner result through")
	}

	rm := collect(t, reader)
	if got := counterValue(t, rm, "accentor.provider.requests", "status", "ok"); got != 1 {
		t.Errorf("provider requests with status=ok = %d, want 1", got)
	}
	if got := counterValue(t, rm, "accentor.provider.errors", "provider", "whisper-api"); got != 0 {
		t.Errorf("provider errors = %d, want 0", got)
	}
	met := findMetric(rm, "accentor.asr.duration")
	if met == nil {
		t.Fatal("asr duration histogram not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) == 0 || hist.DataPoints[0].Count != 1 {
		t.Error("asr duration not recorded exactly once")
	}
}

func TestInstrumentASR_Error(t *testing.T) {
	m, reader := newTestMetrics(t)
	boom := errors.New("backend down")
	inner := &asrmock.Provider{Err: boom}

	p := InstrumentASR("whisper-api", inner, m)
	_, err := p.Transcribe(context.Background(), testClip(), "en")
	if !errors.Is(err, boom) {
		t.Fatalf("Transcribe() error = %v, want the inner error", err)
	}

	rm := collect(t, reader)
	if got := counterValue(t, rm, "accentor.provider.requests", "status", "error"); got != 1 {
		t.Errorf("provider requests with status=error = %d, want 1", got)
	}
	if got := counterValue(t, rm, "accentor.provider.errors", "provider", "whisper-api"); got != 1 {
		t.Errorf("provider errors = %d, want 1", got)
	}
}

func TestInstrumentPhoneme_Success(t *testing.T) {
	m, reader := newTestMetrics(t)
	inner := &phonememock.Transcriber{IPA: map[string]string{"hello": "həloʊ"}}

	tr := InstrumentPhoneme("goruut", inner, m)
	ipa, err := tr.ToIPA(context.Background(), "hello", "en")
	if err != nil {
		t.Fatalf("ToIPA() error = %v", err)
	}
	if ipa != "həloʊ" {
		t.Errorf("ToIPA() = %q, want %q", ipa, "həloʊ")
	}

	rm := collect(t, reader)
	if got := counterValue(t, rm, "accentor.provider.requests", "kind", "phoneme"); got != 1 {
		t.Errorf("provider requests with kind=phoneme = %d, want 1", got)
	}
	met := findMetric(rm, "accentor.phonemize.duration")
	if met == nil {
		t.Fatal("phonemize duration histogram not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) == 0 || hist.DataPoints[0].Count != 1 {
		t.Error("phonemize duration not recorded exactly once")
	}
}

func TestInstrumentPhoneme_Error(t *testing.T) {
	m, reader := newTestMetrics(t)
	boom := errors.New("backend down")
	inner := &phonememock.Transcriber{Err: boom}

	tr := InstrumentPhoneme("goruut", inner, m)
	if _, err := tr.ToIPA(context.Background(), "hello", "en"); !errors.Is(err, boom) {
		t.Fatalf("ToIPA() error = %v, want the inner error", err)
	}

	rm := collect(t, reader)
	if got := counterValue(t, rm, "accentor.provider.errors", "kind", "phoneme"); got != 1 {
		t.Errorf("provider errors with kind=phoneme = %d, want 1", got)
	}
}
