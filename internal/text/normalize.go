package text

import (
	"errors"
	"strings"
)

// ErrEmptyText is returned when the input text is empty or whitespace-only.
var ErrEmptyText = errors.New("text is empty")

// Normalize prepares sentence text for phonemization. Manifests are line
// based, so every whitespace run, line breaks included, collapses to a
// single space. Empty or whitespace-only input is rejected.
func Normalize(s string) (string, error) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "", ErrEmptyText
	}
	return s, nil
}
