package trainer

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// tokenize splits s into comparable word tokens: maximal runs of letters,
// digits, and apostrophes, lowercased with the trainer's locale rules so the
// reference and the transcript fold case the same way (Turkish dotted I,
// German eszett). Surrounding apostrophes are quotation marks and are
// stripped; interior ones ("don't", "l'eau") stay part of the word.
//
// A fresh Caser per call: cases.Caser carries internal transform state and
// is not safe for concurrent use, while one Trainer serves many requests.
func (t *Trainer) tokenize(s string) []string {
	lowered := cases.Lower(t.tag).String(s)

	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		tok := strings.Trim(b.String(), "'’")
		if tok != "" {
			tokens = append(tokens, tok)
		}
		b.Reset()
	}
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '’' {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}
