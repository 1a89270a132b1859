// Package history persists scored pronunciation attempts.
//
// Persistence is optional: when no backend is configured the rest of the
// service runs unchanged and the attempts listing is simply empty. Two Store
// implementations exist, Postgres for deployments and Memory for tests and
// single-process setups.
//
// Attempt IDs are ULIDs, so ordering by ID is ordering by creation time and
// IDs remain unique across instances sharing one database.
package history

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/MrWong99/accentor/pkg/types"
)

// Attempt is one scored pronunciation attempt.
type Attempt struct {
	// ID is a ULID minted when the attempt is recorded.
	ID string
	// Language is the ISO-ish code the attempt was scored against.
	Language string
	// Reference is the expected sentence, punctuation retained.
	Reference string
	// Transcript is the raw recognized sentence.
	Transcript string
	// Accuracy is the overall score in [0,100].
	Accuracy float64
	// Words holds the per-word breakdown as produced by the scorer.
	Words []types.WordScore
	// CreatedAt is when the attempt was recorded, in UTC.
	CreatedAt time.Time
}

// Filter narrows a Recent listing.
type Filter struct {
	// Language restricts results to one language code. Empty matches all.
	Language string
	// Limit caps the number of returned attempts. Zero or negative selects
	// DefaultLimit.
	Limit int
}

// DefaultLimit is the page size used when Filter.Limit is unset.
const DefaultLimit = 50

// Store persists attempts and lists them newest first.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Save records an attempt. The attempt's ID must be unique.
	Save(ctx context.Context, attempt Attempt) error

	// Recent returns attempts matching f, newest first.
	Recent(ctx context.Context, f Filter) ([]Attempt, error)
}

// New builds an Attempt from a scoring result, minting a fresh ULID and
// stamping the current time.
func New(language string, result *types.ScoringResult) Attempt {
	return Attempt{
		ID:         ulid.Make().String(),
		Language:   language,
		Reference:  result.Reference,
		Transcript: result.Transcript,
		Accuracy:   result.Accuracy,
		Words:      result.Words,
		CreatedAt:  time.Now().UTC(),
	}
}

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return DefaultLimit
	}
	return f.Limit
}
