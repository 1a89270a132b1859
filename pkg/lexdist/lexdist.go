// Package lexdist computes minimum-cost edit distances between symbol
// sequences with configurable operation costs.
//
// A symbol is any string: the same machinery scores phoneme strings
// rune-by-rune (via [Runes]) and word sequences word-by-word. Costs are
// float64 so callers can plug in fractional substitution costs such as
// normalized phonetic distances.
package lexdist

// Costs is the cost model for one distance computation.
type Costs struct {
	// Substitution returns the cost of replacing symbol a with symbol b.
	// It must return 0 for symbols that count as identical.
	Substitution func(a, b string) float64

	// Insertion is the cost of inserting one symbol of b.
	Insertion float64

	// Deletion is the cost of deleting one symbol of a.
	Deletion float64
}

// DefaultCosts is the classic Levenshtein model: substitutions cost 0 for
// identical symbols and 1 otherwise, insertions and deletions cost 1.
func DefaultCosts() Costs {
	return Costs{
		Substitution: func(a, b string) float64 {
			if a == b {
				return 0
			}
			return 1
		},
		Insertion: 1,
		Deletion:  1,
	}
}

// OpKind classifies one step of an edit script.
type OpKind int

const (
	// OpMatch keeps a symbol unchanged (zero-cost substitution).
	OpMatch OpKind = iota

	// OpSubstitute replaces a symbol of a with a symbol of b.
	OpSubstitute

	// OpInsert inserts a symbol of b absent from a.
	OpInsert

	// OpDelete removes a symbol of a absent from b.
	OpDelete
)

// Op is one step of the edit script transforming sequence a into sequence b.
// APos/BPos index into the respective input sequence; the position on the
// side an operation does not touch is -1.
type Op struct {
	Kind OpKind
	APos int
	BPos int
}

// Distance returns the minimum total cost of transforming a into b under
// costs. It runs in O(len(a)·len(b)) time and O(len(b)) space.
func Distance(a, b []string, costs Costs) float64 {
	la, lb := len(a), len(b)
	if la == 0 {
		return float64(lb) * costs.Insertion
	}
	if lb == 0 {
		return float64(la) * costs.Deletion
	}

	// Two-row DP keeps memory linear; the full table is only needed when
	// the caller wants the edit script (see Trace).
	prev := make([]float64, lb+1)
	cur := make([]float64, lb+1)
	for j := 1; j <= lb; j++ {
		prev[j] = prev[j-1] + costs.Insertion
	}

	for i := 1; i <= la; i++ {
		cur[0] = prev[0] + costs.Deletion
		for j := 1; j <= lb; j++ {
			sub := prev[j-1] + costs.Substitution(a[i-1], b[j-1])
			del := prev[j] + costs.Deletion
			ins := cur[j-1] + costs.Insertion
			cur[j] = min3(sub, del, ins)
		}
		prev, cur = cur, prev
	}
	return prev[lb]
}

// Trace returns the minimum total transformation cost together with the edit
// script producing it, in order from the start of the sequences. Among
// equal-cost scripts the diagonal (match/substitute) step wins over deletion,
// which wins over insertion, so a single differing symbol reports as one
// substitution rather than a delete+insert pair.
func Trace(a, b []string, costs Costs) (float64, []Op) {
	la, lb := len(a), len(b)

	table := make([][]float64, la+1)
	for i := range table {
		table[i] = make([]float64, lb+1)
	}
	for i := 1; i <= la; i++ {
		table[i][0] = table[i-1][0] + costs.Deletion
	}
	for j := 1; j <= lb; j++ {
		table[0][j] = table[0][j-1] + costs.Insertion
	}
	for i := 1; i <= la; i++ {
		for j := 1; j <= lb; j++ {
			sub := table[i-1][j-1] + costs.Substitution(a[i-1], b[j-1])
			del := table[i-1][j] + costs.Deletion
			ins := table[i][j-1] + costs.Insertion
			table[i][j] = min3(sub, del, ins)
		}
	}

	// Walk the table back from the far corner, preferring the diagonal on
	// ties. Ops come out reversed and are flipped before returning.
	ops := make([]Op, 0, la+lb)
	i, j := la, lb
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && table[i][j] == table[i-1][j-1]+costs.Substitution(a[i-1], b[j-1]):
			kind := OpSubstitute
			if costs.Substitution(a[i-1], b[j-1]) == 0 {
				kind = OpMatch
			}
			ops = append(ops, Op{Kind: kind, APos: i - 1, BPos: j - 1})
			i--
			j--
		case i > 0 && table[i][j] == table[i-1][j]+costs.Deletion:
			ops = append(ops, Op{Kind: OpDelete, APos: i - 1, BPos: -1})
			i--
		default:
			ops = append(ops, Op{Kind: OpInsert, APos: -1, BPos: j - 1})
			j--
		}
	}
	for l, r := 0, len(ops)-1; l < r; l, r = l+1, r-1 {
		ops[l], ops[r] = ops[r], ops[l]
	}
	return table[la][lb], ops
}

// Runes splits s into one symbol per rune, the form Distance and Trace
// expect for character-level comparisons of IPA or orthographic strings.
func Runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func min3(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
