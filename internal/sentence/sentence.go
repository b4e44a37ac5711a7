// Package sentence holds the in-memory model of transcribed words and the
// training sentences built from them.
package sentence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidSentenceState is returned when a sentence has both words and
// literal content, or neither.
var ErrInvalidSentenceState = errors.New("invalid sentence state: exactly one of content and words must be set")

// Word is a single timed token from the transcript. Times are in seconds.
type Word struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Source is the provenance of a sentence: either Derived or Imported.
type Source interface {
	text() string
	isSource()
}

// Derived sentences come from segmenting a local transcript.
type Derived struct {
	Words []Word
}

func (d Derived) text() string {
	var b strings.Builder
	for _, w := range d.Words {
		b.WriteString(w.Text)
	}
	return strings.TrimSpace(b.String())
}

func (Derived) isSource() {}

// Imported sentences arrive from a merge source already paired with audio.
type Imported struct {
	Content string
}

func (i Imported) text() string { return strings.TrimSpace(i.Content) }

func (Imported) isSource() {}

// Sentence is one training example.
type Sentence struct {
	ID        string
	SpeakerID string
	Source    Source
}

// NewDerived builds a sentence from a non-empty run of words.
func NewDerived(id, speakerID string, words []Word) (Sentence, error) {
	if len(words) == 0 {
		return Sentence{}, fmt.Errorf("%w: derived sentence %q has no words", ErrInvalidSentenceState, id)
	}
	return Sentence{
		ID:        id,
		SpeakerID: speakerID,
		Source:    Derived{Words: append([]Word(nil), words...)},
	}, nil
}

// NewImported builds a sentence from literal content.
func NewImported(id, speakerID, content string) (Sentence, error) {
	if content == "" {
		return Sentence{}, fmt.Errorf("%w: imported sentence %q has no content", ErrInvalidSentenceState, id)
	}
	return Sentence{
		ID:        id,
		SpeakerID: speakerID,
		Source:    Imported{Content: content},
	}, nil
}

// Text is the transcript text of the sentence.
func (s Sentence) Text() string {
	if s.Source == nil {
		return ""
	}
	return s.Source.text()
}

// Words returns the sentence words; nil for imported sentences.
func (s Sentence) Words() []Word {
	if d, ok := s.Source.(Derived); ok {
		return d.Words
	}
	return nil
}

// Timed reports whether the sentence carries word timing.
func (s Sentence) Timed() bool {
	d, ok := s.Source.(Derived)
	return ok && len(d.Words) > 0
}

// Start is the first word's start. Zero for untimed sentences.
func (s Sentence) Start() float64 {
	if !s.Timed() {
		return 0
	}
	return s.Words()[0].Start
}

// End is the last word's end. Zero for untimed sentences.
func (s Sentence) End() float64 {
	if !s.Timed() {
		return 0
	}
	w := s.Words()
	return w[len(w)-1].End
}

// Duration is End minus Start.
func (s Sentence) Duration() float64 {
	return s.End() - s.Start()
}

// Record is the persisted shape of a sentence.
type Record struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	SpeakerID string `json:"speaker_id"`
	Words     []Word `json:"words"`
}

// FromRecord restores a sentence and its provenance from storage.
func FromRecord(r Record) (Sentence, error) {
	hasWords := len(r.Words) > 0
	hasContent := r.Content != ""

	switch {
	case hasWords && hasContent:
		return Sentence{}, fmt.Errorf("%w: record %q has both content and words", ErrInvalidSentenceState, r.ID)
	case hasWords:
		s, err := NewDerived(r.ID, r.SpeakerID, r.Words)
		if err != nil {
			return Sentence{}, err
		}
		if s.ID == "" {
			s.ID = legacyID(s.Start(), s.End())
		}
		return s, nil
	case hasContent:
		return NewImported(r.ID, r.SpeakerID, r.Content)
	default:
		return Sentence{}, fmt.Errorf("%w: record %q has neither content nor words", ErrInvalidSentenceState, r.ID)
	}
}

// ToRecord converts a sentence into its persisted shape.
func (s Sentence) ToRecord() Record {
	r := Record{
		ID:        s.ID,
		SpeakerID: s.SpeakerID,
		Words:     []Word{},
	}
	switch src := s.Source.(type) {
	case Derived:
		r.Words = append(r.Words, src.Words...)
	case Imported:
		r.Content = src.Content
	}
	return r
}

// legacyID is the "{start}-{end}" id older stores derived from timing.
func legacyID(start, end float64) string {
	return formatSeconds(start) + "-" + formatSeconds(end)
}

func formatSeconds(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
