package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Entry is one retained training sample.
type Entry struct {
	ID       string
	Text     string
	Phonemes string
	Speaker  int
}

// ManifestLine renders e as "{id}.wav|{phonemes}|{speaker}".
func (e Entry) ManifestLine() string {
	return fmt.Sprintf("%s.wav|%s|%d", e.ID, e.Phonemes, e.Speaker)
}

// FormatManifest joins the manifest lines of entries with "\n". There is no
// trailing newline.
func FormatManifest(entries []Entry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.ManifestLine()
	}
	return strings.Join(lines, "\n")
}

type debugEntry struct {
	Sentence  string `json:"sentence"`
	ID        string `json:"id"`
	Content   string `json:"content"`
	SpeakerID int    `json:"speaker_id"`
}

// FormatDebug renders entries as the indented debug.json document.
func FormatDebug(entries []Entry) ([]byte, error) {
	out := make([]debugEntry, len(entries))
	for i, e := range entries {
		out[i] = debugEntry{Sentence: e.Text, ID: e.ID, Content: e.Phonemes, SpeakerID: e.Speaker}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("encode debug dump: %w", err)
	}
	return buf.Bytes(), nil
}
