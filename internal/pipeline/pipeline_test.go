package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/go-dswav/internal/config"
	"github.com/example/go-dswav/internal/phonemize"
	"github.com/example/go-dswav/internal/stt"
	"github.com/example/go-dswav/internal/testutil"
)

const transcriptJSON = `{"segments":[{"words":[
 {"word":"The","start":0.0,"end":0.3},
 {"word":" cat","start":0.3,"end":0.6},
 {"word":" sat.","start":0.6,"end":1.2},
 {"word":" Dogs","start":1.2,"end":1.8},
 {"word":" bark!","start":1.8,"end":2.6}
]}]}`

// fakeExtractor writes a 100 ms fixture for every requested window.
type fakeExtractor struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, _ string, _, _ float64, out string) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return os.WriteFile(out, testutil.MakeWAV(testutil.WAVSpec{SampleRate: 1000, Channels: 1, BitDepth: 16, Frames: 100}), 0o644)
}

func newTestPipeline(t *testing.T) (*Pipeline, *fakeExtractor) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Paths.ProjectsDir = t.TempDir()
	cfg.Segment.MultiSentenceShare = 0
	cfg.Segment.Seed = 7
	cfg.Build.Seed = 7
	cfg.Build.TrainShare = 0.5
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "dswav.prom")

	p := New(cfg)
	p.STT.Run = func(_ context.Context, _ string, args []string, _ io.Reader) ([]byte, error) {
		var outDir, input string
		for _, a := range args {
			if v, ok := strings.CutPrefix(a, "OUT_DIR="); ok {
				outDir = v
			}
			if v, ok := strings.CutPrefix(a, "FILE="); ok {
				input = v
			}
		}
		return nil, os.WriteFile(stt.OutputPath(input, outDir), []byte(transcriptJSON), 0o644)
	}
	ext := &fakeExtractor{}
	p.Slicer.Extractor = ext
	p.Phonemizer = phonemize.Static(map[string]string{
		"The cat sat.": "ðə kæt sæt.",
		"Dogs bark!":   "dɔɡz bɑːɹk!",
	})
	return p, ext
}

func TestTranscribe_SegmentsStoresAndSlices(t *testing.T) {
	p, ext := newTestPipeline(t)
	ctx := context.Background()

	res, err := p.Transcribe(ctx, "demo", TranscribeRequest{Input: "/rec/session.wav"})
	require.NoError(t, err)

	assert.Equal(t, 5, res.Words)
	assert.Equal(t, 2, res.Sentences)
	assert.Equal(t, 2, res.Clips)
	assert.Equal(t, 2, ext.calls)
	assert.Equal(t, filepath.Join(p.Config.Paths.ProjectsDir, "demo", "session.json"), res.Transcript)

	stored, err := p.Repo.Read(ctx, "demo")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "The cat sat.", stored[0].Text())
	assert.Equal(t, "default", stored[0].SpeakerID)

	_, err = os.Stat(p.Config.Metrics.Textfile)
	assert.NoError(t, err)
}

func TestTranscribe_RequiresInput(t *testing.T) {
	p, _ := newTestPipeline(t)
	_, err := p.Transcribe(context.Background(), "demo", TranscribeRequest{})
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestTranscribe_SpeakerOverride(t *testing.T) {
	p, _ := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.Transcribe(ctx, "demo", TranscribeRequest{Input: "/rec/a.wav", SpeakerID: "narrator"})
	require.NoError(t, err)

	stored, err := p.Repo.Read(ctx, "demo")
	require.NoError(t, err)
	for _, s := range stored {
		assert.Equal(t, "narrator", s.SpeakerID)
	}
}

func TestBuild_AfterTranscribe(t *testing.T) {
	p, _ := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.Transcribe(ctx, "demo", TranscribeRequest{Input: "/rec/session.wav"})
	require.NoError(t, err)

	rep, err := p.Build(ctx, "demo", BuildRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Retained)
	assert.Equal(t, 2, rep.Train+rep.Val)

	l, err := p.Layout("demo")
	require.NoError(t, err)
	_, err = os.Stat(l.ArchivePath())
	assert.NoError(t, err)

	var debug []map[string]any
	data, err := os.ReadFile(l.DebugPath())
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &debug))
	assert.Len(t, debug, 2)
}

func TestFixAudioAndAddSilence(t *testing.T) {
	p, _ := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.Transcribe(ctx, "demo", TranscribeRequest{Input: "/rec/session.wav"})
	require.NoError(t, err)

	fixed, err := p.FixAudio(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, 2, fixed.Scanned)
	assert.Equal(t, 2, fixed.Repaired)

	padded, err := p.AddSilence(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, 2, padded.Repaired)

	l, err := p.Layout("demo")
	require.NoError(t, err)
	entries, err := os.ReadDir(l.WavDir())
	require.NoError(t, err)
	for _, e := range entries {
		spec := testutil.ReadWAVSpec(t, filepath.Join(l.WavDir(), e.Name()))
		// 1001 ms after the strict pad, then 100 ms of silence.
		assert.Equal(t, 1101, spec.Frames)
	}
}

func TestUpload_DefaultsToConfiguredTarget(t *testing.T) {
	p, _ := newTestPipeline(t)
	ctx := context.Background()
	p.Config.Upload.Target = "scp % host:/data/"

	var gotName string
	var gotArgs []string
	p.Uploader.Run = func(_ context.Context, name string, args []string, _ io.Reader) ([]byte, error) {
		gotName, gotArgs = name, args
		return nil, nil
	}

	_, err := p.Transcribe(ctx, "demo", TranscribeRequest{Input: "/rec/session.wav"})
	require.NoError(t, err)
	_, err = p.Build(ctx, "demo", BuildRequest{})
	require.NoError(t, err)

	require.NoError(t, p.Upload(ctx, "demo", ""))
	l, _ := p.Layout("demo")
	assert.Equal(t, "scp", gotName)
	assert.Equal(t, []string{l.ArchivePath(), "host:/data/"}, gotArgs)
}

func TestLayout_RejectsBadName(t *testing.T) {
	p, _ := newTestPipeline(t)
	_, err := p.Layout("../escape")
	assert.Error(t, err)
}
