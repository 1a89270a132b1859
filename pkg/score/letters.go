package score

import "github.com/MrWong99/accentor/pkg/lexdist"

// LetterMarks reports which letters of the reference word were realized
// correctly in the recognized word, derived from the character-level edit
// script between the two orthographic forms. marks[i] is true when rune i of
// refWord survives as an exact match; substituted or deleted runes are false.
// Runes only present in recWord do not produce marks — the mask is indexed by
// the reference spelling shown to the learner.
func LetterMarks(refWord, recWord string) []bool {
	refRunes := lexdist.Runes(refWord)
	marks := make([]bool, len(refRunes))
	if recWord == "" {
		return marks
	}
	if refWord == recWord {
		for i := range marks {
			marks[i] = true
		}
		return marks
	}

	_, ops := lexdist.Trace(refRunes, lexdist.Runes(recWord), lexdist.DefaultCosts())
	for _, op := range ops {
		if op.Kind == lexdist.OpMatch {
			marks[op.APos] = true
		}
	}
	return marks
}
