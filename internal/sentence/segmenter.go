package sentence

import (
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

// Segmenter groups timed words into training sentences.
//
// A sentence closes after a terminator word once it spans at least
// MinDuration seconds, unless it ends in a "Mr."/"Ms." abbreviation. At each
// such boundary a weighted draw may instead merge it with the following
// sentence; two boundaries in a row are never merged.
type Segmenter struct {
	// MultiSentenceShare is the percent chance (0-100) of merging at a boundary.
	MultiSentenceShare float64
	MinDuration        float64
	SpeakerID          string
	// StrictTerminators only accepts a bare "." or endings "..", "?", "!".
	StrictTerminators bool

	Rand  *rand.Rand
	NewID func() string
}

// NewSegmenter returns a Segmenter with the default 1 s minimum and UUID ids.
func NewSegmenter(share float64, speakerID string, rng *rand.Rand) *Segmenter {
	return &Segmenter{
		MultiSentenceShare: share,
		MinDuration:        1.0,
		SpeakerID:          speakerID,
		Rand:               rng,
		NewID:              uuid.NewString,
	}
}

// Segment converts words into derived sentences in a single pass. Words left
// over after the last boundary are dropped.
func (s *Segmenter) Segment(words []Word) []Sentence {
	var (
		out    []Sentence
		buf    []Word
		text   strings.Builder
		merged bool
	)

	for _, w := range words {
		buf = append(buf, w)
		text.WriteString(w.Text)

		if buf[len(buf)-1].End-buf[0].Start < s.MinDuration {
			continue
		}
		if !s.isTerminator(w.Text) {
			continue
		}
		if endsWithAbbreviation(text.String()) {
			continue
		}

		if !merged && s.drawMerge() {
			merged = true
			continue
		}

		out = append(out, Sentence{
			ID:        s.newID(),
			SpeakerID: s.SpeakerID,
			Source:    Derived{Words: buf},
		})
		buf = nil
		text.Reset()
		merged = false
	}

	return out
}

func (s *Segmenter) isTerminator(word string) bool {
	if s.StrictTerminators {
		return word == "." ||
			strings.HasSuffix(word, "..") ||
			strings.HasSuffix(word, "?") ||
			strings.HasSuffix(word, "!")
	}
	w := strings.TrimSpace(word)
	return strings.HasSuffix(w, ".") ||
		strings.HasSuffix(w, "?") ||
		strings.HasSuffix(w, "!")
}

// endsWithAbbreviation matches " mr." or " ms." at the end of the raw
// concatenated text; a sentence that only holds "Mr." still closes.
func endsWithAbbreviation(text string) bool {
	t := strings.ToLower(strings.TrimRight(text, " \t"))
	return strings.HasSuffix(t, " mr.") || strings.HasSuffix(t, " ms.")
}

func (s *Segmenter) drawMerge() bool {
	if s.MultiSentenceShare <= 0 {
		return false
	}
	if s.MultiSentenceShare >= 100 {
		return true
	}
	var f float64
	if s.Rand != nil {
		f = s.Rand.Float64()
	} else {
		f = rand.Float64()
	}
	return f*100 < s.MultiSentenceShare
}

func (s *Segmenter) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}
