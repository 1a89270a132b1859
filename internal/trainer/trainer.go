// Package trainer orchestrates one pronunciation scoring pass end to end:
// speech recognition, tokenization, phonemization, alignment, scoring, and
// per-word timing.
//
// A Trainer is built once per language and shared across requests; all of its
// collaborators are injected so tests can run the full pipeline with mock
// providers. The per-language Cache constructs trainers lazily with
// at-most-once semantics under concurrent first requests.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/MrWong99/accentor/pkg/align"
	"github.com/MrWong99/accentor/pkg/audio"
	"github.com/MrWong99/accentor/pkg/phoneme"
	"github.com/MrWong99/accentor/pkg/provider/asr"
	"github.com/MrWong99/accentor/pkg/score"
	"github.com/MrWong99/accentor/pkg/types"
)

// defaultASRTimeout bounds a single recognition call when the caller's
// context carries no tighter deadline.
const defaultASRTimeout = 30 * time.Second

// ErrEmptyReference is returned when the reference text contains no
// scoreable words. Scoring against nothing is a caller error, not a
// degenerate zero-score result.
var ErrEmptyReference = errors.New("trainer: reference text is empty")

// Option is a functional option for configuring a Trainer.
type Option func(*Trainer)

// WithASR sets the speech recognition provider. Required.
func WithASR(p asr.Provider) Option {
	return func(t *Trainer) { t.recognizer = p }
}

// WithTranscriber sets the grapheme-to-phoneme backend. Required.
func WithTranscriber(tr phoneme.Transcriber) Option {
	return func(t *Trainer) { t.phonemes = tr }
}

// WithAlignConfig overrides the word-level insertion/deletion costs.
func WithAlignConfig(cfg align.Config) Option {
	return func(t *Trainer) { t.aligner = align.New(cfg) }
}

// WithScoreOptions overrides the scorer configuration (category thresholds).
func WithScoreOptions(opts ...score.Option) Option {
	return func(t *Trainer) { t.scorer = score.New(opts...) }
}

// WithASRTimeout bounds each recognition call. Zero disables the
// trainer-level timeout, leaving only the caller's context deadline.
// Defaults to 30 s.
func WithASRTimeout(d time.Duration) Option {
	return func(t *Trainer) { t.asrTimeout = d }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Trainer) { t.log = l }
}

// Trainer scores spoken attempts at sentences in a single language.
// It is safe for concurrent use: all fields are read-only after New and all
// per-request state lives on the Evaluate stack.
type Trainer struct {
	language   string
	tag        language.Tag
	recognizer asr.Provider
	phonemes   phoneme.Transcriber
	aligner    *align.Aligner
	scorer     *score.Scorer
	asrTimeout time.Duration
	log        *slog.Logger
}

// New creates a Trainer for the given ISO 639-1 language code. An ASR
// provider and a phonetic transcriber must be supplied via options.
func New(lang string, opts ...Option) (*Trainer, error) {
	if strings.TrimSpace(lang) == "" {
		return nil, errors.New("trainer: language must not be empty")
	}
	t := &Trainer{
		language:   lang,
		tag:        language.Make(lang),
		aligner:    align.New(align.DefaultConfig()),
		scorer:     score.New(),
		asrTimeout: defaultASRTimeout,
		log:        slog.Default(),
	}
	for _, o := range opts {
		o(t)
	}
	if t.recognizer == nil {
		return nil, errors.New("trainer: an ASR provider is required")
	}
	if t.phonemes == nil {
		return nil, errors.New("trainer: a phonetic transcriber is required")
	}
	t.log = t.log.With("component", "trainer", "language", lang)
	return t, nil
}

// Language returns the language code this trainer scores.
func (t *Trainer) Language() string { return t.language }

// Evaluate scores one recorded attempt at speaking reference.
//
// Recognition and reference phonemization run concurrently; both respect ctx
// and the configured ASR timeout. A transcript with no recognizable words is
// not an error: the attempt degrades to all-deletion scores with overall
// accuracy 0. Provider failures, unsupported languages, and an empty
// reference are surfaced as errors.
func (t *Trainer) Evaluate(ctx context.Context, reference string, clip audio.Clip) (*types.ScoringResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, ErrEmptyReference
	}
	refTokens := t.tokenize(reference)
	if len(refTokens) == 0 {
		return nil, fmt.Errorf("%w: no scoreable words in %q", ErrEmptyReference, reference)
	}

	started := time.Now()

	// The recognizer does not depend on the reference and the reference IPA
	// does not depend on the transcript, so the two run in parallel. The
	// memo is owned by the phonemize goroutine until Wait returns, then
	// reused for the transcript words.
	var (
		recognized *asr.Transcription
		refWords   []types.Word
	)
	memo := map[string]string{}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		actx := egCtx
		if t.asrTimeout > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(egCtx, t.asrTimeout)
			defer cancel()
		}
		tr, err := t.recognizer.Transcribe(actx, clip, t.language)
		if err != nil {
			return fmt.Errorf("trainer: transcribe: %w", err)
		}
		recognized = tr
		return nil
	})
	eg.Go(func() error {
		words, err := t.resolveWords(egCtx, refTokens, memo)
		if err != nil {
			return fmt.Errorf("trainer: phonemize reference: %w", err)
		}
		refWords = words
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	transcript := strings.TrimSpace(recognized.Text)
	recTokens := t.tokenize(transcript)
	recWords, err := t.resolveWords(ctx, recTokens, memo)
	if err != nil {
		return nil, fmt.Errorf("trainer: phonemize transcript: %w", err)
	}

	pairs := t.aligner.Align(refWords, recWords)
	scores, overall := t.scorer.Score(refWords, recWords, pairs)

	starts, ends := recognizedTimes(recognized, recTokens, clip)
	for _, p := range pairs {
		if p.Kind != types.Match && p.Kind != types.Substitution {
			continue
		}
		scores[p.RefIndex].StartTime = starts[p.RecIndex]
		scores[p.RefIndex].EndTime = ends[p.RecIndex]
	}

	result := &types.ScoringResult{
		Reference:     reference,
		Transcript:    transcript,
		ReferenceIPA:  joinIPA(refWords),
		TranscriptIPA: joinIPA(recWords),
		Accuracy:      overall,
		Words:         scores,
		Pairs:         pairs,
	}

	t.log.LogAttrs(ctx, slog.LevelDebug, "scored attempt",
		slog.Float64("accuracy", overall),
		slog.Int("reference_words", len(refWords)),
		slog.Int("recognized_words", len(recWords)),
		slog.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

// resolveWords turns tokens into Words with their phonetic forms resolved at
// most once per distinct token. A failure for a single word falls back to
// its orthographic form so one odd token does not sink the whole attempt;
// an unsupported language or a dead context still aborts.
func (t *Trainer) resolveWords(ctx context.Context, tokens []string, memo map[string]string) ([]types.Word, error) {
	words := make([]types.Word, len(tokens))
	for i, tok := range tokens {
		ipa, ok := memo[tok]
		if !ok {
			var err error
			ipa, err = t.phonemes.ToIPA(ctx, tok, t.language)
			if err != nil {
				if errors.Is(err, phoneme.ErrLanguageUnsupported) || ctx.Err() != nil {
					return nil, err
				}
				t.log.LogAttrs(ctx, slog.LevelWarn, "phonemize failed, using orthographic form",
					slog.String("word", tok),
					slog.Any("error", err),
				)
				ipa = tok
			}
			memo[tok] = ipa
		}
		words[i] = types.Word{Text: tok, IPA: ipa, Index: i}
	}
	return words, nil
}

// recognizedTimes returns per-token start and end times for the recognized
// words. Provider timestamps are used when they line up one-to-one with the
// tokens; otherwise the clip duration is split across the tokens
// proportionally to their rune length. With no duration information at all
// every slot is types.NoTime.
func recognizedTimes(tr *asr.Transcription, tokens []string, clip audio.Clip) (starts, ends []float64) {
	starts = make([]float64, len(tokens))
	ends = make([]float64, len(tokens))
	if len(tokens) == 0 {
		return starts, ends
	}

	// On a count mismatch (a provider splitting a contraction, say) all
	// provider timestamps are discarded and estimated instead of partially
	// mapped; there is no reliable token correspondence to map through.
	if len(tr.Words) == len(tokens) {
		for i, w := range tr.Words {
			starts[i] = w.Start
			ends[i] = w.End
		}
		return starts, ends
	}

	total := tr.Duration
	if total <= 0 {
		total = clip.Duration()
	}
	if total <= 0 {
		for i := range tokens {
			starts[i] = types.NoTime
			ends[i] = types.NoTime
		}
		return starts, ends
	}

	totalRunes := 0
	for _, tok := range tokens {
		totalRunes += utf8.RuneCountInString(tok)
	}
	at := 0.0
	for i, tok := range tokens {
		span := total * float64(utf8.RuneCountInString(tok)) / float64(totalRunes)
		starts[i] = at
		ends[i] = at + span
		at += span
	}
	return starts, ends
}

// joinIPA renders a word sequence as a space-separated IPA sentence.
func joinIPA(words []types.Word) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.IPA
	}
	return strings.Join(parts, " ")
}
