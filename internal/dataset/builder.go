package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"unicode/utf8"

	"github.com/example/go-dswav/internal/metrics"
	"github.com/example/go-dswav/internal/phonemize"
	"github.com/example/go-dswav/internal/project"
	"github.com/example/go-dswav/internal/sentence"
)

// Defaults applied when the corresponding Builder field is zero.
const (
	DefaultMaxLen    = 400
	DefaultEOSMarker = " …"
)

// Builder produces the manifests and archive of a project.
type Builder struct {
	Repo       project.Repository
	Phonemizer phonemize.Phonemizer
	Rand       *rand.Rand

	// MaxLen bounds both the input text and the phoneme string, in runes.
	MaxLen int
	// TrainShare is the train fraction in [0, 1].
	TrainShare float64
	// SizeLimit keeps a random subset of at most this many sentences; 0 keeps all.
	SizeLimit int
	EOSMarker string

	Metrics *metrics.Metrics
}

// BuildOptions are per-run switches.
type BuildOptions struct {
	// AddEOS appends EOSMarker to every text before phonemization, for clips
	// that were given a silent tail.
	AddEOS bool
}

// Report summarises one build.
type Report struct {
	Sentences int `json:"sentences"`
	Retained  int `json:"retained"`
	Train     int `json:"train"`
	Val       int `json:"val"`
	Speakers  int `json:"speakers"`
	// Dropped counts excluded sentences per metrics.Reason* value.
	Dropped map[string]int `json:"dropped"`
	Archive string         `json:"archive"`
}

// Build runs the whole build for l. Sentences that cannot be used are
// dropped and counted; any I/O or archive failure aborts the build.
func (b *Builder) Build(ctx context.Context, l project.Layout, opts BuildOptions) (Report, error) {
	rep := Report{Dropped: map[string]int{}}

	if b.TrainShare < 0 || b.TrainShare > 1 {
		return rep, fmt.Errorf("%w: got %v", ErrInvalidSplit, b.TrainShare)
	}

	sentences, err := b.Repo.Read(ctx, l.Name)
	if err != nil {
		return rep, err
	}
	if b.SizeLimit > 0 && len(sentences) > b.SizeLimit {
		shuffle(sentences, b.Rand)
		sentences = sentences[:b.SizeLimit]
	}
	rep.Sentences = len(sentences)

	speakers := NewSpeakerTable(sentences)
	rep.Speakers = speakers.Len()
	slog.Info("building dataset", "project", l.Name, "sentences", len(sentences), "speakers", speakers.Speakers())

	entries := make([]Entry, 0, len(sentences))
	for _, s := range sentences {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		e, reason := b.entry(ctx, l, s, speakers, opts)
		if reason != "" {
			rep.Dropped[reason]++
			continue
		}
		entries = append(entries, e)
	}
	rep.Retained = len(entries)

	for reason, n := range rep.Dropped {
		b.Metrics.SamplesDropped(reason, n)
	}
	if dropped := rep.Sentences - rep.Retained; dropped > 0 {
		slog.Warn("samples dropped", "project", l.Name, "dropped", dropped, "by_reason", rep.Dropped, "max_len", b.maxLen())
	}

	train, val, err := Split(entries, b.TrainShare, b.Rand)
	if err != nil {
		return rep, err
	}
	rep.Train, rep.Val = len(train), len(val)

	if err := b.write(l, entries, train, val); err != nil {
		return rep, err
	}
	b.Metrics.SamplesWritten("train", len(train))
	b.Metrics.SamplesWritten("val", len(val))

	if err := ZipDir(l.DatasetDir(), l.ArchivePath()); err != nil {
		return rep, err
	}
	rep.Archive = l.ArchivePath()

	slog.Info("dataset built", "project", l.Name, "train", rep.Train, "val", rep.Val, "archive", rep.Archive)
	return rep, nil
}

// entry phonemizes s, returning a drop reason instead when s is unusable.
func (b *Builder) entry(ctx context.Context, l project.Layout, s sentence.Sentence, speakers *SpeakerTable, opts BuildOptions) (Entry, string) {
	text := s.Text()
	if text == "" {
		return Entry{}, metrics.ReasonEmptyText
	}
	if opts.AddEOS {
		text += b.eosMarker()
	}
	if utf8.RuneCountInString(text) > b.maxLen() {
		return Entry{}, metrics.ReasonTooLong
	}
	if _, err := os.Stat(l.WavPath(s.ID)); err != nil {
		return Entry{}, metrics.ReasonMissingAudio
	}

	ph, err := b.Phonemizer.Phonemize(ctx, text)
	if err != nil {
		if !errors.Is(err, phonemize.ErrPhonemization) {
			slog.Debug("phonemizer returned unclassified error", "id", s.ID, "err", err)
		}
		return Entry{}, metrics.ReasonPhonemization
	}
	if ph == "" {
		return Entry{}, metrics.ReasonPhonemization
	}
	if utf8.RuneCountInString(ph) > b.maxLen() {
		return Entry{}, metrics.ReasonTooLong
	}

	return Entry{ID: s.ID, Text: s.Text(), Phonemes: ph, Speaker: speakers.ID(s.SpeakerID)}, ""
}

func (b *Builder) write(l project.Layout, all, train, val []Entry) error {
	if err := os.MkdirAll(l.DatasetDir(), 0o755); err != nil {
		return fmt.Errorf("write manifests: %w", err)
	}

	debug, err := FormatDebug(all)
	if err != nil {
		return err
	}
	if err := project.WriteFile(l.DebugPath(), debug); err != nil {
		return err
	}
	if err := project.WriteFile(l.TrainListPath(), []byte(FormatManifest(train))); err != nil {
		return err
	}
	return project.WriteFile(l.ValListPath(), []byte(FormatManifest(val)))
}

func (b *Builder) maxLen() int {
	if b.MaxLen > 0 {
		return b.MaxLen
	}
	return DefaultMaxLen
}

func (b *Builder) eosMarker() string {
	if b.EOSMarker != "" {
		return b.EOSMarker
	}
	return DefaultEOSMarker
}
