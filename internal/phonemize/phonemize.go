// Package phonemize converts transcript text into the space-separated
// phoneme strings written to training manifests.
package phonemize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/go-dswav/internal/extcmd"
	"github.com/example/go-dswav/internal/text"
)

// ErrPhonemization wraps every backend failure. Callers drop the sample.
var ErrPhonemization = errors.New("phonemization failed")

// Phonemizer turns text into phonemes.
type Phonemizer interface {
	Phonemize(ctx context.Context, s string) (string, error)
}

// Func adapts a plain function to Phonemizer.
type Func func(ctx context.Context, s string) (string, error)

func (f Func) Phonemize(ctx context.Context, s string) (string, error) { return f(ctx, s) }

// Espeak phonemizes with the espeak-ng executable in IPA mode, which keeps
// stress marks. Punctuation is not sent to espeak-ng; it is re-inserted
// between the phonemized word runs so the output keeps it.
type Espeak struct {
	Path     string
	Language string
	Run      extcmd.RunFunc
}

// NewEspeak returns an Espeak backend for path and language, falling back to
// "espeak-ng" and "en-us".
func NewEspeak(path, language string) *Espeak {
	if path == "" {
		path = "espeak-ng"
	}
	if language == "" {
		language = "en-us"
	}
	return &Espeak{Path: path, Language: language, Run: extcmd.Run}
}

// Phonemize trims s, converts each word run, re-inserts punctuation and
// normalizes token spacing.
func (e *Espeak) Phonemize(ctx context.Context, s string) (string, error) {
	s, err := text.Normalize(s)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPhonemization, err)
	}

	var b strings.Builder
	for _, p := range text.SplitPunctuation(s) {
		b.WriteByte(' ')
		if p.Punct {
			b.WriteString(p.Text)
			continue
		}
		ph, err := e.convert(ctx, p.Text)
		if err != nil {
			return "", fmt.Errorf("%w: %q: %w", ErrPhonemization, p.Text, err)
		}
		b.WriteString(ph)
	}

	out := text.JoinTokens(b.String())
	if out == "" {
		return "", fmt.Errorf("%w: %q produced no phonemes", ErrPhonemization, s)
	}
	return out, nil
}

func (e *Espeak) convert(ctx context.Context, words string) (string, error) {
	run := e.Run
	if run == nil {
		run = extcmd.Run
	}
	args := []string{"-q", "--ipa", "-v", e.Language, "--stdin"}
	out, err := run(ctx, e.Path, args, strings.NewReader(words))
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(string(out)), " "), nil
}

// Static returns a Phonemizer backed by a fixed table. Unknown text fails
// with ErrPhonemization.
func Static(table map[string]string) Phonemizer {
	return Func(func(_ context.Context, s string) (string, error) {
		ph, ok := table[strings.TrimSpace(s)]
		if !ok {
			return "", fmt.Errorf("%w: no entry for %q", ErrPhonemization, s)
		}
		return text.JoinTokens(ph), nil
	})
}
