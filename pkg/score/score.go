// Package score converts word alignments into learner-facing accuracy scores.
//
// Each reference word becomes one WordScore: matches and substitutions score
// 100×(1−normalized phonetic distance), deletions score 0, insertions are
// dropped (extra speech is not penalized against any reference word). The
// sentence score is the unweighted mean of the word scores — per-word length
// normalization already happened inside the phonetic distance.
package score

import (
	"github.com/MrWong99/accentor/pkg/align"
	"github.com/MrWong99/accentor/pkg/types"
)

const (
	defaultGoodThreshold = 80
	defaultOKThreshold   = 60
)

// Option is a functional option for configuring a [Scorer].
type Option func(*Scorer)

// WithThresholds sets the category cut points: accuracy >= good is Good,
// accuracy >= ok is OK, anything lower is Bad. Defaults: 80 and 60.
func WithThresholds(good, ok float64) Option {
	return func(s *Scorer) {
		s.goodThreshold = good
		s.okThreshold = ok
	}
}

// Scorer converts alignment pairs into per-word and sentence-level accuracy.
// All methods are safe for concurrent use — the Scorer is read-only after
// construction.
type Scorer struct {
	goodThreshold float64
	okThreshold   float64
}

// New returns a new [Scorer] configured with the supplied options.
func New(opts ...Option) *Scorer {
	s := &Scorer{
		goodThreshold: defaultGoodThreshold,
		okThreshold:   defaultOKThreshold,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Score converts pairs into one WordScore per reference word, in sentence
// order, plus the overall sentence accuracy.
//
// pairs must come from aligning ref against rec (see package align): every
// reference index appears exactly once among the match/substitution/deletion
// pairs, so the returned slice always has len(ref) entries. Insertions are
// skipped. Timing fields are left at types.NoTime; the orchestrator fills
// them in from provider timestamps.
func (s *Scorer) Score(ref, rec []types.Word, pairs []types.AlignmentPair) ([]types.WordScore, float64) {
	scores := make([]types.WordScore, 0, len(ref))
	for _, p := range pairs {
		switch p.Kind {
		case types.Insertion:
			continue
		case types.Deletion:
			refWord := ref[p.RefIndex]
			scores = append(scores, types.WordScore{
				Text:        refWord.Text,
				Matched:     "-",
				Accuracy:    0,
				Category:    s.Category(0),
				LetterMarks: make([]bool, len([]rune(refWord.Text))),
				StartTime:   types.NoTime,
				EndTime:     types.NoTime,
			})
		default:
			refWord := ref[p.RefIndex]
			recWord := rec[p.RecIndex]
			acc := 100 * (1 - align.WordDistance(refWord, recWord))
			if acc < 0 {
				acc = 0
			}
			ws := types.WordScore{
				Text:        refWord.Text,
				Matched:     recWord.Text,
				Accuracy:    acc,
				Category:    s.Category(acc),
				LetterMarks: LetterMarks(refWord.Text, recWord.Text),
				StartTime:   types.NoTime,
				EndTime:     types.NoTime,
			}
			if ws.Category != types.Good && SoundsLike(refWord.Text, recWord.Text) {
				ws.SoundsLike = true
			}
			scores = append(scores, ws)
		}
	}

	if len(scores) == 0 {
		return scores, 0
	}
	var sum float64
	for _, ws := range scores {
		sum += ws.Accuracy
	}
	return scores, sum / float64(len(scores))
}

// Category maps an accuracy value in [0, 100] to its feedback tier.
func (s *Scorer) Category(accuracy float64) types.Category {
	switch {
	case accuracy >= s.goodThreshold:
		return types.Good
	case accuracy >= s.okThreshold:
		return types.OK
	default:
		return types.Bad
	}
}
