package lexdist_test

import (
	"testing"

	"github.com/MrWong99/accentor/pkg/lexdist"
)

func TestDistance_Levenshtein(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "kitten", "kitten", 0},
		{"classic", "kitten", "sitting", 3},
		{"single substitution", "world", "word", 1},
		{"empty a", "", "abc", 3},
		{"empty b", "abc", "", 3},
		{"both empty", "", "", 0},
		{"unicode ipa", "həˈloʊ", "həˈloʊ", 0},
		{"unicode one off", "wɝld", "wɝd", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := lexdist.Distance(lexdist.Runes(tt.a), lexdist.Runes(tt.b), lexdist.DefaultCosts())
			if got != tt.want {
				t.Errorf("Distance(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDistance_CustomCosts(t *testing.T) {
	t.Parallel()

	costs := lexdist.Costs{
		Substitution: func(a, b string) float64 {
			if a == b {
				return 0
			}
			return 0.5
		},
		Insertion: 2,
		Deletion:  3,
	}

	// "ab" -> "cb": one substitution at half cost.
	if got := lexdist.Distance([]string{"a", "b"}, []string{"c", "b"}, costs); got != 0.5 {
		t.Errorf("substitution cost: got %v, want 0.5", got)
	}
	// "" -> "ab": two insertions.
	if got := lexdist.Distance(nil, []string{"a", "b"}, costs); got != 4 {
		t.Errorf("insertion cost: got %v, want 4", got)
	}
	// "ab" -> "": two deletions.
	if got := lexdist.Distance([]string{"a", "b"}, nil, costs); got != 6 {
		t.Errorf("deletion cost: got %v, want 6", got)
	}
}

func TestTrace_MatchesDistance(t *testing.T) {
	t.Parallel()

	pairs := [][2]string{
		{"kitten", "sitting"},
		{"hello", "hello"},
		{"", "abc"},
		{"abc", ""},
		{"world", "word"},
	}
	for _, p := range pairs {
		a, b := lexdist.Runes(p[0]), lexdist.Runes(p[1])
		want := lexdist.Distance(a, b, lexdist.DefaultCosts())
		got, _ := lexdist.Trace(a, b, lexdist.DefaultCosts())
		if got != want {
			t.Errorf("Trace(%q, %q) cost = %v, Distance = %v", p[0], p[1], got, want)
		}
	}
}

func TestTrace_EditScript(t *testing.T) {
	t.Parallel()

	// "world" -> "word": w-o-r match, l deleted, d match.
	cost, ops := lexdist.Trace(lexdist.Runes("world"), lexdist.Runes("word"), lexdist.DefaultCosts())
	if cost != 1 {
		t.Fatalf("cost: got %v, want 1", cost)
	}
	kinds := make([]lexdist.OpKind, len(ops))
	for i, op := range ops {
		kinds[i] = op.Kind
	}
	want := []lexdist.OpKind{lexdist.OpMatch, lexdist.OpMatch, lexdist.OpMatch, lexdist.OpDelete, lexdist.OpMatch}
	if len(kinds) != len(want) {
		t.Fatalf("op count: got %d (%v), want %d", len(kinds), kinds, len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("op %d: got %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestTrace_PrefersDiagonalOnTie(t *testing.T) {
	t.Parallel()

	// With insertion and deletion at 0.5 each, "a" -> "b" costs 1.0 both as
	// a single substitution and as a delete+insert pair. The diagonal must win.
	costs := lexdist.DefaultCosts()
	costs.Insertion = 0.5
	costs.Deletion = 0.5

	cost, ops := lexdist.Trace([]string{"a"}, []string{"b"}, costs)
	if cost != 1 {
		t.Fatalf("cost: got %v, want 1", cost)
	}
	if len(ops) != 1 {
		t.Fatalf("op count: got %d (%v), want 1", len(ops), ops)
	}
	if ops[0].Kind != lexdist.OpSubstitute {
		t.Errorf("tie broken to %v, want OpSubstitute", ops[0].Kind)
	}
}

func TestTrace_Positions(t *testing.T) {
	t.Parallel()

	_, ops := lexdist.Trace(lexdist.Runes("ab"), lexdist.Runes("b"), lexdist.DefaultCosts())
	for _, op := range ops {
		switch op.Kind {
		case lexdist.OpInsert:
			if op.APos != -1 || op.BPos < 0 {
				t.Errorf("insert positions: %+v", op)
			}
		case lexdist.OpDelete:
			if op.BPos != -1 || op.APos < 0 {
				t.Errorf("delete positions: %+v", op)
			}
		default:
			if op.APos < 0 || op.BPos < 0 {
				t.Errorf("diagonal positions: %+v", op)
			}
		}
	}
}

func TestRunes(t *testing.T) {
	t.Parallel()

	got := lexdist.Runes("həˈl")
	want := []string{"h", "ə", "ˈ", "l"}
	if len(got) != len(want) {
		t.Fatalf("length: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rune %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
