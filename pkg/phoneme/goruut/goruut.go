// Package goruut implements phoneme.Transcriber on top of the embedded
// goruut grapheme-to-phoneme engine.
//
// goruut runs fully in-process: no subprocess, no network call. Language
// dictionaries are loaded lazily on first use per language, so the first
// ToIPA call for a language is noticeably slower than subsequent ones.
package goruut

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/neurlang/goruut/lib"
	"github.com/neurlang/goruut/models/requests"

	"github.com/MrWong99/accentor/pkg/phoneme"
)

// Ensure Transcriber implements phoneme.Transcriber at compile time.
var _ phoneme.Transcriber = (*Transcriber)(nil)

// languageNames maps the ISO-ish codes used throughout the scoring API to the
// full language names goruut expects.
var languageNames = map[string]string{
	"en": "English",
	"de": "German",
	"fr": "French",
	"es": "Spanish",
	"it": "Italian",
	"pt": "Portuguese",
	"nl": "Dutch",
	"pl": "Polish",
	"ru": "Russian",
}

// Transcriber wraps one goruut phonemizer instance.
type Transcriber struct {
	// mu serializes Sentence calls: the engine mutates its internal
	// dictionary cache while lazily loading a language.
	mu sync.Mutex
	p  *lib.Phonemizer
}

// New returns a Transcriber backed by a fresh goruut phonemizer with default
// engine options.
func New() *Transcriber {
	return &Transcriber{p: lib.NewPhonemizer(nil)}
}

// ToIPA implements phoneme.Transcriber. Each whitespace-separated word of
// text is phonemized independently and the results are joined with single
// spaces, preserving word boundaries for the aligner.
func (t *Transcriber) ToIPA(ctx context.Context, text, language string) (string, error) {
	name, ok := languageNames[strings.ToLower(language)]
	if !ok {
		return "", fmt.Errorf("goruut: %w: %q", phoneme.ErrLanguageUnsupported, language)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("goruut: %w", err)
	}

	t.mu.Lock()
	resp := t.p.Sentence(requests.PhonemizeSentence{
		Language: name,
		Sentence: text,
	})
	t.mu.Unlock()

	var sb strings.Builder
	for i, word := range resp.Words {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(word.Phonetic)
	}
	return sb.String(), nil
}

// Languages returns the ISO-ish codes this transcriber accepts, sorted order
// not guaranteed.
func Languages() []string {
	out := make([]string, 0, len(languageNames))
	for code := range languageNames {
		out = append(out, code)
	}
	return out
}
