package score

import "github.com/antzucaro/matchr"

// SoundsLike reports whether two words share a Double Metaphone code, i.e.
// whether an English speaker would pronounce them near-identically despite
// different spellings. The scorer uses it to annotate low-scoring words whose
// mistake is likely orthographic (ASR picked a homophone) rather than a
// mispronunciation.
func SoundsLike(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	ap, as := matchr.DoubleMetaphone(a)
	bp, bs := matchr.DoubleMetaphone(b)
	if ap == "" && as == "" {
		return false
	}
	for _, x := range []string{ap, as} {
		if x == "" {
			continue
		}
		if x == bp || (bs != "" && x == bs) {
			return true
		}
	}
	return false
}
