// Package asr defines the Provider interface for automatic speech
// recognition backends.
//
// An ASR provider wraps a transcription service (a remote Whisper-compatible
// HTTP API, the OpenAI SDK, or a local whisper.cpp model) and exposes a
// uniform batch interface: a complete audio clip goes in, a Transcription
// comes out. Pronunciation scoring does not need streaming partials, so the
// interface is deliberately simpler than a live-captioning one — each request
// is independent and carries its own context for timeout and cancellation.
//
// Implementations must be safe for concurrent use. Providers that can report
// per-word timestamps populate Transcription.Words; providers that cannot
// leave it empty, and callers fall back to distributing word timings over the
// clip duration.
package asr

import (
	"context"
	"errors"

	"github.com/MrWong99/accentor/pkg/audio"
)

// Sentinel errors returned by Transcribe implementations. Providers wrap
// these with fmt.Errorf("...: %w", ...) so callers can match with errors.Is
// and react differently to each class: an auth failure is permanent, a rate
// limit is retryable after backoff, and a timeout may succeed on a failover
// provider.
var (
	// ErrAuthFailed indicates the provider rejected the configured
	// credentials. Retrying with the same configuration will not succeed.
	ErrAuthFailed = errors.New("asr: authentication failed")

	// ErrRateLimited indicates the provider refused the request due to
	// quota or rate limiting. The request may succeed after a delay.
	ErrRateLimited = errors.New("asr: rate limited")

	// ErrTimeout indicates the request exceeded its deadline before the
	// provider produced a transcription.
	ErrTimeout = errors.New("asr: request timed out")

	// ErrLanguageUnsupported indicates the provider cannot recognize the
	// requested language. Only providers that know their language set can
	// detect this; HTTP providers surface it as a generic request error.
	ErrLanguageUnsupported = errors.New("asr: language not supported")
)

// Word is a single recognized word with its position in the audio clip.
// Start and End are offsets in seconds from the beginning of the clip.
type Word struct {
	// Text is the recognized word, including any punctuation the provider
	// attached to it.
	Text string

	// Start is the word onset in seconds from the start of the clip.
	Start float64

	// End is the word offset in seconds from the start of the clip.
	End float64
}

// Transcription is the result of recognizing one audio clip.
type Transcription struct {
	// Text is the full recognized transcript. Empty when the provider
	// detected no speech in the clip; that is a valid result, not an error.
	Text string

	// Words holds per-word timestamps when the provider supports them.
	// A nil or empty slice means timings are unavailable and callers must
	// estimate word positions themselves.
	Words []Word

	// Duration is the audio duration in seconds as reported by the
	// provider, or 0 when not reported.
	Duration float64
}

// Provider is the abstraction over any speech recognition backend.
//
// Implementations must be safe for concurrent use; the scoring service calls
// Transcribe from many request handlers at once.
type Provider interface {
	// Transcribe recognizes speech in the given clip. The language is an
	// ISO 639-1 code ("en", "de", "fr") hinting the expected language;
	// providers that support detection may ignore it when empty.
	//
	// The context bounds the whole operation. When the deadline expires
	// the returned error matches ErrTimeout; authentication and quota
	// failures match ErrAuthFailed and ErrRateLimited respectively.
	//
	// A clip that contains no recognizable speech yields a Transcription
	// with empty Text and a nil error.
	Transcribe(ctx context.Context, clip audio.Clip, language string) (*Transcription, error)
}
