// Package stt invokes the external speech-to-text command and decodes the
// word-timed transcript it writes.
package stt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/go-dswav/internal/extcmd"
	"github.com/example/go-dswav/internal/sentence"
)

// ErrInvalidTranscript is returned for transcripts whose words break timing
// order.
var ErrInvalidTranscript = errors.New("invalid transcript")

// Segment is one transcript segment.
type Segment struct {
	Words []sentence.Word `json:"words"`
}

// Transcript is the JSON document produced by the STT command.
type Transcript struct {
	Segments []Segment `json:"segments"`
}

// FlattenSegments concatenates the words of every segment in order.
func FlattenSegments(segments []Segment) []sentence.Word {
	n := 0
	for _, s := range segments {
		n += len(s.Words)
	}
	words := make([]sentence.Word, 0, n)
	for _, s := range segments {
		words = append(words, s.Words...)
	}
	return words
}

// ReadTranscript decodes the transcript at path.
func ReadTranscript(path string) (Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Transcript{}, fmt.Errorf("read transcript: %w", err)
	}
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return Transcript{}, fmt.Errorf("decode transcript %s: %w", path, err)
	}
	for _, seg := range t.Segments {
		for _, w := range seg.Words {
			if w.End < w.Start {
				return Transcript{}, fmt.Errorf("%w: %s: word %q ends at %v before its start %v",
					ErrInvalidTranscript, path, w.Text, w.End, w.Start)
			}
		}
	}
	return t, nil
}

// OutputPath is where the STT command writes the transcript for input:
// the input's base name with a .json extension, inside outDir.
func OutputPath(input, outDir string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base)) + ".json"
	return filepath.Join(outDir, base)
}

// Command is an STT invocation template. The placeholders {input},
// {out_dir} and {lang} are substituted in every argument.
type Command struct {
	Template []string
	Run      extcmd.RunFunc
}

// Expand returns the executable and arguments for one invocation.
func (c *Command) Expand(input, outDir, lang string) (string, []string, error) {
	if len(c.Template) == 0 {
		return "", nil, errors.New("stt: empty command template")
	}
	r := strings.NewReplacer("{input}", input, "{out_dir}", outDir, "{lang}", lang)
	argv := make([]string, len(c.Template))
	for i, a := range c.Template {
		argv[i] = r.Replace(a)
	}
	return argv[0], argv[1:], nil
}

// Transcribe produces the transcript for input in outDir and returns its
// path. An existing transcript is reused without running the command.
func (c *Command) Transcribe(ctx context.Context, input, outDir, lang string) (string, error) {
	out := OutputPath(input, outDir)
	if _, err := os.Stat(out); err == nil {
		slog.Info("reusing existing transcript", "path", out)
		return out, nil
	}

	name, args, err := c.Expand(input, outDir, lang)
	if err != nil {
		return "", err
	}
	run := c.Run
	if run == nil {
		run = extcmd.Run
	}

	slog.Info("running speech-to-text", "input", input, "lang", lang)
	if _, err := run(ctx, name, args, nil); err != nil {
		return "", err
	}
	if err := extcmd.RequireOutput(name, args, out); err != nil {
		return "", err
	}
	return out, nil
}
