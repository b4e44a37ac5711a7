// Package pipeline exposes one entry point per dataset stage. The CLI and
// the HTTP control surface both drive projects through it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/example/go-dswav/internal/audio"
	"github.com/example/go-dswav/internal/config"
	"github.com/example/go-dswav/internal/dataset"
	"github.com/example/go-dswav/internal/ffmpeg"
	"github.com/example/go-dswav/internal/merge"
	"github.com/example/go-dswav/internal/metrics"
	"github.com/example/go-dswav/internal/phonemize"
	"github.com/example/go-dswav/internal/project"
	"github.com/example/go-dswav/internal/sentence"
	"github.com/example/go-dswav/internal/slicer"
	"github.com/example/go-dswav/internal/stt"
	"github.com/example/go-dswav/internal/upload"
)

// ErrMissingInput is returned when transcription is requested without a
// source recording.
var ErrMissingInput = errors.New("input recording is required")

// Pipeline wires every stage to its collaborators.
type Pipeline struct {
	Config     config.Config
	Repo       project.Repository
	STT        *stt.Command
	Slicer     *slicer.Orchestrator
	Phonemizer phonemize.Phonemizer
	Uploader   *upload.Uploader
	Metrics    *metrics.Metrics
}

// New builds a Pipeline backed by the JSON store, ffmpeg, espeak-ng and the
// configured STT command.
func New(cfg config.Config) *Pipeline {
	m := metrics.New()
	return &Pipeline{
		Config: cfg,
		Repo:   project.NewJSONRepository(cfg.Paths.ProjectsDir),
		STT:    &stt.Command{Template: cfg.STT.Command},
		Slicer: &slicer.Orchestrator{
			Extractor: &ffmpeg.Slicer{Path: cfg.Slicer.FFmpegPath},
			Workers:   cfg.Slicer.Workers,
			Metrics:   m,
		},
		Phonemizer: phonemize.NewEspeak(cfg.Phonemize.EspeakPath, cfg.Phonemize.Language),
		Uploader:   &upload.Uploader{},
		Metrics:    m,
	}
}

// Layout resolves a project name under the configured projects dir.
func (p *Pipeline) Layout(name string) (project.Layout, error) {
	return project.NewLayout(p.Config.Paths.ProjectsDir, name)
}

// Setup creates the project directories.
func (p *Pipeline) Setup(_ context.Context, name string) error {
	l, err := p.Layout(name)
	if err != nil {
		return err
	}
	return project.Setup(l)
}

// TranscribeRequest selects the recording to turn into sentences.
type TranscribeRequest struct {
	Input string `json:"input"`
	// Language overrides stt.language when set.
	Language string `json:"language,omitempty"`
	// SpeakerID overrides segment.speaker_id when set.
	SpeakerID string `json:"speaker_id,omitempty"`
}

// TranscribeResult summarises a transcription run.
type TranscribeResult struct {
	Transcript string `json:"transcript"`
	Words      int    `json:"words"`
	Sentences  int    `json:"sentences"`
	Clips      int    `json:"clips"`
}

// Transcribe runs STT on the input, segments the words into sentences,
// replaces the project's sentence store with them and slices one clip per
// sentence.
func (p *Pipeline) Transcribe(ctx context.Context, name string, req TranscribeRequest) (TranscribeResult, error) {
	var res TranscribeResult
	if req.Input == "" {
		return res, ErrMissingInput
	}
	l, err := p.Layout(name)
	if err != nil {
		return res, err
	}
	if err := project.Setup(l); err != nil {
		return res, err
	}
	defer p.flushMetrics()

	lang := firstNonEmpty(req.Language, p.Config.STT.Language)
	res.Transcript, err = p.STT.Transcribe(ctx, req.Input, l.Root, lang)
	if err != nil {
		return res, err
	}

	tr, err := stt.ReadTranscript(res.Transcript)
	if err != nil {
		return res, err
	}
	words := stt.FlattenSegments(tr.Segments)
	res.Words = len(words)

	seg := sentence.NewSegmenter(
		p.Config.Segment.MultiSentenceShare,
		firstNonEmpty(req.SpeakerID, p.Config.Segment.SpeakerID),
		newRand(p.Config.Segment.Seed),
	)
	seg.MinDuration = p.Config.Segment.MinDuration
	seg.StrictTerminators = p.Config.Segment.StrictTerminators

	sentences := seg.Segment(words)
	res.Sentences = len(sentences)
	p.Metrics.SentencesSegmented(len(sentences))
	slog.Info("transcript segmented", "project", name, "words", res.Words, "sentences", res.Sentences)

	if err := p.Repo.Write(ctx, name, sentences); err != nil {
		return res, err
	}

	sliced, err := p.Slicer.Slice(ctx, req.Input, l.WavDir(), sentences)
	if err != nil {
		return res, err
	}
	res.Clips = sliced.Extracted
	return res, nil
}

// Merge imports the given source directories into the project.
func (p *Pipeline) Merge(ctx context.Context, name string, sources []string) (merge.Report, error) {
	l, err := p.Layout(name)
	if err != nil {
		return merge.Report{}, err
	}
	defer p.flushMetrics()

	im := &merge.Importer{Repo: p.Repo, Metrics: p.Metrics}
	return im.Merge(ctx, l, sources)
}

// FixAudio pads clips shorter than repair.min_ms.
func (p *Pipeline) FixAudio(ctx context.Context, name string) (audio.RepairReport, error) {
	l, err := p.Layout(name)
	if err != nil {
		return audio.RepairReport{}, err
	}
	defer p.flushMetrics()

	r := &audio.Repairer{Metrics: p.Metrics}
	return r.PadToMinimum(ctx, l.WavDir(), p.Config.Repair.MinMS, p.Config.Repair.Strict)
}

// AddSilence appends repair.silence_ms of silence to every clip.
func (p *Pipeline) AddSilence(ctx context.Context, name string) (audio.RepairReport, error) {
	l, err := p.Layout(name)
	if err != nil {
		return audio.RepairReport{}, err
	}
	defer p.flushMetrics()

	r := &audio.Repairer{Metrics: p.Metrics}
	return r.AppendSilence(ctx, l.WavDir(), p.Config.Repair.SilenceMS)
}

// BuildRequest holds per-build switches.
type BuildRequest struct {
	AddEOS bool `json:"add_eos"`
}

// Build writes the manifests and archive of the project.
func (p *Pipeline) Build(ctx context.Context, name string, req BuildRequest) (dataset.Report, error) {
	l, err := p.Layout(name)
	if err != nil {
		return dataset.Report{}, err
	}
	defer p.flushMetrics()

	b := &dataset.Builder{
		Repo:       p.Repo,
		Phonemizer: p.Phonemizer,
		Rand:       newRand(p.Config.Build.Seed),
		MaxLen:     p.Config.Build.MaxLen,
		TrainShare: p.Config.Build.TrainShare,
		SizeLimit:  p.Config.Build.SizeLimit,
		EOSMarker:  p.Config.Build.EOSMarker,
		Metrics:    p.Metrics,
	}
	return b.Build(ctx, l, dataset.BuildOptions{AddEOS: req.AddEOS})
}

// Upload sends the project's archive to target, or upload.target when
// target is empty.
func (p *Pipeline) Upload(ctx context.Context, name, target string) error {
	l, err := p.Layout(name)
	if err != nil {
		return err
	}
	target = firstNonEmpty(target, p.Config.Upload.Target)
	if err := p.Uploader.Upload(ctx, l.ArchivePath(), target); err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	return nil
}

func (p *Pipeline) flushMetrics() {
	if err := p.Metrics.WriteTextfile(p.Config.Metrics.Textfile); err != nil {
		slog.Warn("metrics textfile not written", "err", err)
	}
}

// newRand returns a PCG source for seed, or a randomly seeded one for 0.
func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
