// Package native provides an asr.Provider backed by the whisper.cpp CGO
// bindings, eliminating network overhead entirely. The whisper.cpp static
// library (libwhisper.a) and headers (whisper.h) must be available at link
// time via LIBRARY_PATH and C_INCLUDE_PATH environment variables.
//
// The model is loaded once at construction and shared across all Transcribe
// calls; each call creates its own whisper context, so concurrent requests do
// not interfere. Word-level timestamps come from running inference with
// single-word segmentation (token timestamps plus a max segment length of
// one), the standard whisper.cpp recipe for per-word timing.
package native

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/accentor/pkg/audio"
	"github.com/MrWong99/accentor/pkg/provider/asr"
)

// Compile-time assertion that Provider satisfies asr.Provider.
var _ asr.Provider = (*Provider)(nil)

// Provider implements asr.Provider using whisper.cpp Go bindings (CGO).
type Provider struct {
	model   whisperlib.Model
	threads uint
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithThreads sets the number of CPU threads used per inference. Zero leaves
// the whisper.cpp default in place.
func WithThreads(n uint) Option {
	return func(p *Provider) { p.threads = n }
}

// New creates a Provider that loads the whisper.cpp model from the given
// file path. The model is loaded once and shared across all concurrent
// Transcribe calls. The caller must call Close when the provider is no
// longer needed.
func New(modelPath string, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, errors.New("native: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("native: load model %q: %w", modelPath, err)
	}

	p := &Provider{model: model}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model. Must be called when the provider is no
// longer needed.
func (p *Provider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Transcribe implements asr.Provider. Inference runs synchronously in CGO
// and cannot be interrupted mid-flight; the context is honored before the
// call starts and its deadline is reported as asr.ErrTimeout if it expired
// while inference was running.
func (p *Provider) Transcribe(ctx context.Context, clip audio.Clip, language string) (*asr.Transcription, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("native: context already cancelled: %w", err)
	}
	if clip.Rate != audio.SampleRate {
		return nil, fmt.Errorf("native: clip sample rate %d Hz, whisper.cpp requires %d Hz", clip.Rate, audio.SampleRate)
	}

	// Create a new whisper context for this inference. Each context is NOT
	// thread-safe, but the model can be shared across goroutines.
	wctx, err := p.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("native: create context: %w", err)
	}

	lang := language
	if lang == "" {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		if language == "" {
			slog.Warn("native: failed to enable language auto-detect", "error", err)
		} else {
			// Transcribing in the wrong language would produce garbage
			// scores downstream, so an explicit unknown code is an error,
			// not a fallback.
			return nil, fmt.Errorf("native: %w: %q: %v", asr.ErrLanguageUnsupported, language, err)
		}
	}
	wctx.SetTranslate(false)
	if p.threads > 0 {
		wctx.SetThreads(p.threads)
	}

	// Single-word segments: with token timestamps enabled and segments
	// capped at one token of text, each segment's start and end bound
	// exactly one spoken word.
	wctx.SetTokenTimestamps(true)
	wctx.SetSplitOnWord(true)
	wctx.SetMaxSegmentLength(1)

	if err := wctx.Process(clip.Float32(), nil, nil, nil); err != nil {
		return nil, fmt.Errorf("native: process audio: %w", err)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("native: %w: inference outlived the request deadline", asr.ErrTimeout)
	}

	tr := &asr.Transcription{Duration: clip.Duration()}
	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("native: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
		tr.Words = append(tr.Words, asr.Word{
			Text:  text,
			Start: segment.Start.Seconds(),
			End:   segment.End.Seconds(),
		})
	}
	tr.Text = strings.Join(parts, " ")

	return tr, nil
}
