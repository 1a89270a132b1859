// Package types defines the shared data model used across all Accentor packages.
//
// These types form the lingua franca between the alignment engine, the scorer,
// the providers, and the orchestrator. Each package defines its own domain
// types; the structures that cross package boundaries live here to avoid
// circular imports.
package types

// NoIndex marks the absent side of an insertion or deletion pair.
const NoIndex = -1

// NoTime marks an unknown word timestamp. Word timing is optional: providers
// without word-level timestamps and deleted reference words report NoTime.
const NoTime = -1

// Word is a single token from either the reference or the recognized
// sequence, with its phonetic form resolved exactly once.
type Word struct {
	// Text is the normalized orthographic form (lowercased, punctuation stripped).
	Text string

	// IPA is the phonetic transcription of Text. When phonemization fails for
	// this word, IPA falls back to Text itself.
	IPA string

	// Index is the zero-based position of the word in its sentence.
	Index int
}

// PairKind classifies one alignment correspondence.
type PairKind int

const (
	// Match pairs a reference word with an identically-normalized recognized word.
	Match PairKind = iota

	// Substitution pairs a reference word with a different recognized word.
	Substitution

	// Insertion is a recognized word with no reference counterpart.
	Insertion

	// Deletion is a reference word that was never recognized.
	Deletion
)

// String returns the human-readable name of the pair kind.
func (k PairKind) String() string {
	switch k {
	case Match:
		return "match"
	case Substitution:
		return "substitution"
	case Insertion:
		return "insertion"
	case Deletion:
		return "deletion"
	default:
		return "unknown"
	}
}

// AlignmentPair is one correspondence between the reference and recognized
// word sequences. Exactly one of RefIndex/RecIndex is NoIndex for
// insertions and deletions; both are set for matches and substitutions.
type AlignmentPair struct {
	// RefIndex is the reference word index, or NoIndex for an insertion.
	RefIndex int

	// RecIndex is the recognized word index, or NoIndex for a deletion.
	RecIndex int

	// Kind classifies the correspondence.
	Kind PairKind
}

// Category is the discrete feedback tier derived from a word's accuracy.
type Category int

const (
	// Good marks a word pronounced at or above the upper threshold.
	Good Category = iota

	// OK marks a word between the two thresholds.
	OK

	// Bad marks a word below the lower threshold, including deletions.
	Bad
)

// String returns the human-readable name of the category.
func (c Category) String() string {
	switch c {
	case Good:
		return "good"
	case OK:
		return "ok"
	case Bad:
		return "bad"
	default:
		return "unknown"
	}
}

// Code returns the numeric wire code used by the scoring API:
// 0 = good, 1 = ok, 2 = bad.
func (c Category) Code() int {
	switch c {
	case Good:
		return 0
	case OK:
		return 1
	default:
		return 2
	}
}

// WordScore is the per-reference-word result of scoring one attempt.
type WordScore struct {
	// Text is the reference word being scored.
	Text string

	// Matched is the recognized word this reference word aligned to, or
	// "-" when the word was deleted (never recognized).
	Matched string

	// Accuracy is the pronunciation accuracy in [0, 100].
	Accuracy float64

	// Category is the feedback tier for Accuracy.
	Category Category

	// LetterMarks flags each letter of Text as correctly (true) or
	// incorrectly (false) realized, derived from the character-level edit
	// script against the matched word.
	LetterMarks []bool

	// SoundsLike is set when the matched word is phonetically equivalent to
	// the reference word under Double Metaphone despite a low accuracy,
	// hinting that the mistake is orthographic rather than phonetic.
	SoundsLike bool

	// StartTime and EndTime bound the spoken word within the audio clip, in
	// seconds. Both are NoTime when the word was deleted or the provider
	// supplied no usable timing.
	StartTime float64
	EndTime   float64
}

// ScoringResult is the complete outcome of scoring one recorded attempt
// against a reference sentence.
type ScoringResult struct {
	// Reference is the expected sentence as submitted (display form).
	Reference string

	// Transcript is the raw recognized transcript, punctuation retained.
	Transcript string

	// ReferenceIPA and TranscriptIPA are the sentence-level phonetic
	// transcriptions of the two texts.
	ReferenceIPA  string
	TranscriptIPA string

	// Accuracy is the overall sentence accuracy in [0, 100]: the unweighted
	// mean of the per-word accuracies.
	Accuracy float64

	// Words holds one WordScore per reference word, in sentence order.
	Words []WordScore

	// Pairs is the raw alignment, kept for diagnostics.
	Pairs []AlignmentPair
}

// MatchedTexts returns the recognized word aligned to each reference word in
// sentence order, with "-" placeholders for deletions.
func (r *ScoringResult) MatchedTexts() []string {
	out := make([]string, len(r.Words))
	for i, w := range r.Words {
		out[i] = w.Matched
	}
	return out
}
