// Package phoneme defines the Transcriber interface for grapheme-to-phoneme
// backends.
//
// A phonetic transcriber converts orthographic text into an IPA string for a
// given language. The scoring engine treats the conversion as a black box: it
// never inspects or reimplements grapheme-to-phoneme rules, it only consumes
// the resulting IPA symbols. Implementations must be pure with respect to
// their inputs — the same (text, language) pair always yields the same IPA —
// which is what makes request-level memoization and the cross-request cache
// (internal/ipacache) sound.
//
// Implementations must be safe for concurrent use.
package phoneme

import (
	"context"
	"errors"
)

// ErrLanguageUnsupported is returned when a transcriber has no
// grapheme-to-phoneme rules for the requested language code.
var ErrLanguageUnsupported = errors.New("phoneme: language not supported")

// Transcriber is the abstraction over any grapheme-to-phoneme backend.
type Transcriber interface {
	// ToIPA converts text (a single word or a whole sentence) to its IPA
	// transcription for the given ISO-ish language code (e.g. "en", "de").
	// Word boundaries in the input are preserved as spaces in the output.
	//
	// Returns ErrLanguageUnsupported (possibly wrapped) when the language is
	// unknown to the backend. Other errors indicate backend failure and may
	// be recovered per-word by the caller.
	ToIPA(ctx context.Context, text, language string) (string, error)
}
