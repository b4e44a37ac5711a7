// Package text normalizes sentence text and splits phoneme strings into tokens.
package text

import (
	"strings"
	"unicode/utf8"
)

// punctuation is the set of marks kept as standalone tokens. IPA modifier
// letters such as ˈ and ː are deliberately absent.
const punctuation = `.,;:!?"()[]…«»“”—`

// IsPunct reports whether r is a punctuation mark that separates tokens.
func IsPunct(r rune) bool {
	return strings.ContainsRune(punctuation, r)
}

// Tokenize splits s on whitespace and splits punctuation runs off the words
// they touch, so "həloʊ, wɜːld." becomes ["həloʊ", ",", "wɜːld", "."].
func Tokenize(s string) []string {
	var tokens []string
	for _, field := range strings.Fields(s) {
		tokens = appendSplit(tokens, field)
	}
	return tokens
}

// JoinTokens re-tokenizes s and joins the tokens with single spaces.
func JoinTokens(s string) string {
	return strings.Join(Tokenize(s), " ")
}

func appendSplit(tokens []string, field string) []string {
	start := 0
	inPunct := false
	for i, r := range field {
		p := IsPunct(r)
		if i > start && p != inPunct {
			tokens = append(tokens, field[start:i])
			start = i
		}
		inPunct = p
	}
	if start < len(field) {
		tokens = append(tokens, field[start:])
	}
	return tokens
}

// Piece is a run of either words or punctuation within a phrase.
type Piece struct {
	Text  string
	Punct bool
}

// SplitPunctuation cuts s into alternating word and punctuation pieces.
// Word pieces are trimmed and empty ones skipped; punctuation runs are kept
// verbatim without surrounding space.
func SplitPunctuation(s string) []Piece {
	var pieces []Piece
	start := 0
	inPunct := false

	flush := func(end int) {
		chunk := s[start:end]
		if !inPunct {
			chunk = strings.TrimSpace(chunk)
		}
		if chunk != "" {
			pieces = append(pieces, Piece{Text: chunk, Punct: inPunct})
		}
		start = end
	}

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		p := IsPunct(r)
		if i > start && p != inPunct {
			flush(i)
		}
		inPunct = p
		i += size
	}
	if start < len(s) {
		flush(len(s))
	}

	return pieces
}
