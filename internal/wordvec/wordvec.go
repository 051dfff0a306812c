// Package wordvec provides lexical word-vector sources for semantic
// distance computation.
package wordvec

import (
	"strings"
	"unicode"
)

// Source supplies pre-trained word vectors for arbitrary text. Embed
// returns one vector per recognized token, in token order. Tokens absent
// from the underlying vocabulary are dropped; an empty result means the
// text produced no usable tokens.
type Source interface {
	Embed(text string) ([][]float64, error)
	Dim() int
}

// Tokenize lowercases text and splits it into word tokens. Apostrophes
// are kept so contractions survive as single tokens.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}
