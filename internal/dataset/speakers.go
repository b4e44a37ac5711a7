// Package dataset turns a project's sentence store into phonemized
// train/validation manifests and a zip archive.
package dataset

import "github.com/example/go-dswav/internal/sentence"

// SpeakerTable maps speaker ids to dense 1-based numbers in first-seen order.
type SpeakerTable struct {
	ids   map[string]int
	order []string
}

// NewSpeakerTable scans sentences in order and numbers each new speaker.
func NewSpeakerTable(sentences []sentence.Sentence) *SpeakerTable {
	t := &SpeakerTable{ids: make(map[string]int)}
	for _, s := range sentences {
		if _, ok := t.ids[s.SpeakerID]; ok {
			continue
		}
		t.order = append(t.order, s.SpeakerID)
		t.ids[s.SpeakerID] = len(t.order)
	}
	return t
}

// ID returns the number for speaker, or 0 if it was never seen.
func (t *SpeakerTable) ID(speaker string) int { return t.ids[speaker] }

// Speakers lists speaker ids in numbering order.
func (t *SpeakerTable) Speakers() []string { return append([]string(nil), t.order...) }

func (t *SpeakerTable) Len() int { return len(t.order) }
