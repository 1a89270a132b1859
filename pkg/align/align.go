// Package align aligns a recognized word sequence to a reference word
// sequence despite recognition noise.
//
// The alignment is the same dynamic-programming edit distance as package
// lexdist, with the word as the unit instead of the character: the
// substitution cost between two words is their normalized phonetic distance,
// so a misrecognized but similar-sounding word aligns to its reference slot
// instead of splitting into a deletion plus an insertion. Backtracking the
// cost table yields the ordered pair list consumed by the scorer.
package align

import (
	"github.com/MrWong99/accentor/pkg/lexdist"
	"github.com/MrWong99/accentor/pkg/types"
)

// Config holds the fixed word-level gap costs. The normalized substitution
// cost lives in [0, 1], so with both gap costs at 1.0 a substitution never
// loses to the delete+insert pair (cost 2.0) and a clean match (cost 0)
// always wins.
type Config struct {
	// InsertionCost is charged for a recognized word with no reference
	// counterpart. Zero means "use the default".
	InsertionCost float64

	// DeletionCost is charged for a reference word that was never
	// recognized. Zero means "use the default".
	DeletionCost float64
}

// DefaultConfig returns the standard gap costs.
func DefaultConfig() Config {
	return Config{InsertionCost: 1, DeletionCost: 1}
}

// Aligner computes word-level alignments. The zero value uses DefaultConfig.
type Aligner struct {
	cfg Config
}

// New returns an Aligner with cfg. Zero-valued cost fields fall back to the
// defaults.
func New(cfg Config) *Aligner {
	def := DefaultConfig()
	if cfg.InsertionCost == 0 {
		cfg.InsertionCost = def.InsertionCost
	}
	if cfg.DeletionCost == 0 {
		cfg.DeletionCost = def.DeletionCost
	}
	return &Aligner{cfg: cfg}
}

// WordDistance returns the normalized phonetic distance between a reference
// word and a recognized word in [0, 1]: the character-level edit distance of
// their IPA forms divided by the reference IPA length, clamped. Words with
// identical normalized text are distance 0 regardless of IPA.
func WordDistance(ref, rec types.Word) float64 {
	if ref.Text == rec.Text {
		return 0
	}
	refIPA := lexdist.Runes(ref.IPA)
	recIPA := lexdist.Runes(rec.IPA)
	if len(refIPA) == 0 {
		if len(recIPA) == 0 {
			return 0
		}
		return 1
	}
	d := lexdist.Distance(refIPA, recIPA, lexdist.DefaultCosts()) / float64(len(refIPA))
	if d > 1 {
		return 1
	}
	return d
}

// Align aligns rec against ref and returns the ordered pair list.
//
// The result satisfies reference-completeness (every reference index appears
// in exactly one match, substitution, or deletion pair) and both index
// sequences are monotonically non-decreasing. An empty rec yields all
// deletions; an empty ref yields all insertions.
func (a *Aligner) Align(ref, rec []types.Word) []types.AlignmentPair {
	cfg := a.cfg
	if cfg.InsertionCost == 0 && cfg.DeletionCost == 0 {
		cfg = DefaultConfig()
	}

	// Word texts are the DP symbols; the cost model resolves them back to
	// their phonetic forms. Normalized text is unique per IPA within one
	// request, so the text-keyed lookup is unambiguous.
	refTexts := make([]string, len(ref))
	refByText := make(map[string]types.Word, len(ref))
	for i, w := range ref {
		refTexts[i] = w.Text
		refByText[w.Text] = w
	}
	recTexts := make([]string, len(rec))
	recByText := make(map[string]types.Word, len(rec))
	for i, w := range rec {
		recTexts[i] = w.Text
		recByText[w.Text] = w
	}

	costs := lexdist.Costs{
		Substitution: func(refText, recText string) float64 {
			return WordDistance(refByText[refText], recByText[recText])
		},
		Insertion: cfg.InsertionCost,
		Deletion:  cfg.DeletionCost,
	}

	_, ops := lexdist.Trace(refTexts, recTexts, costs)

	pairs := make([]types.AlignmentPair, 0, len(ops))
	for _, op := range ops {
		switch op.Kind {
		case lexdist.OpMatch:
			pairs = append(pairs, types.AlignmentPair{RefIndex: op.APos, RecIndex: op.BPos, Kind: types.Match})
		case lexdist.OpSubstitute:
			pairs = append(pairs, types.AlignmentPair{RefIndex: op.APos, RecIndex: op.BPos, Kind: types.Substitution})
		case lexdist.OpDelete:
			pairs = append(pairs, types.AlignmentPair{RefIndex: op.APos, RecIndex: types.NoIndex, Kind: types.Deletion})
		case lexdist.OpInsert:
			pairs = append(pairs, types.AlignmentPair{RefIndex: types.NoIndex, RecIndex: op.BPos, Kind: types.Insertion})
		}
	}
	return pairs
}
