package slicer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/go-dswav/internal/sentence"
)

type call struct {
	src        string
	start, dur float64
	out        string
}

type fakeExtractor struct {
	mu     sync.Mutex
	calls  []call
	failOn map[string]error
	delay  time.Duration
	// cancelled counts calls whose context was done when the extraction ended.
	cancelled atomic.Int32

	inflight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeExtractor) Extract(ctx context.Context, src string, start, dur float64, out string) error {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if ctx.Err() != nil {
		f.cancelled.Add(1)
	}

	f.mu.Lock()
	f.calls = append(f.calls, call{src, start, dur, out})
	f.mu.Unlock()

	return f.failOn[filepath.Base(out)]
}

func derived(t *testing.T, id string, start, end float64) sentence.Sentence {
	t.Helper()
	s, err := sentence.NewDerived(id, "default", []sentence.Word{{Text: "Word.", Start: start, End: end}})
	require.NoError(t, err)
	return s
}

func TestSlice_DispatchesTimedSentences(t *testing.T) {
	imported, err := sentence.NewImported("imp", "guest", "Hello.")
	require.NoError(t, err)

	sentences := []sentence.Sentence{
		derived(t, "a", 0.0, 1.2),
		imported,
		derived(t, "b", 1.2, 3.0),
	}

	ext := &fakeExtractor{}
	o := &Orchestrator{Extractor: ext, Workers: 4}

	res, err := o.Slice(context.Background(), "/media/talk.wav", "/p/ds/wavs", sentences)
	require.NoError(t, err)
	assert.Equal(t, Result{Extracted: 2, Untimed: 1}, res)

	require.Len(t, ext.calls, 2)
	byOut := map[string]call{}
	for _, c := range ext.calls {
		byOut[c.out] = c
	}
	a := byOut["/p/ds/wavs/a.wav"]
	assert.Equal(t, "/media/talk.wav", a.src)
	assert.InDelta(t, 0.0, a.start, 1e-9)
	assert.InDelta(t, 1.2, a.dur, 1e-9)

	b := byOut["/p/ds/wavs/b.wav"]
	assert.InDelta(t, 1.2, b.start, 1e-9)
	assert.InDelta(t, 1.8, b.dur, 1e-9)
}

func TestSlice_BoundedConcurrency(t *testing.T) {
	var sentences []sentence.Sentence
	for i := range 20 {
		sentences = append(sentences, derived(t, fmt.Sprintf("s%02d", i), float64(i), float64(i)+1))
	}

	ext := &fakeExtractor{delay: 5 * time.Millisecond}
	o := &Orchestrator{Extractor: ext, Workers: 3}

	_, err := o.Slice(context.Background(), "src.wav", "wavs", sentences)
	require.NoError(t, err)

	assert.Len(t, ext.calls, 20)
	assert.LessOrEqual(t, ext.peak.Load(), int32(3))
}

func TestSlice_FailTogether(t *testing.T) {
	var sentences []sentence.Sentence
	for i := range 10 {
		sentences = append(sentences, derived(t, fmt.Sprintf("s%d", i), float64(i), float64(i)+1))
	}

	boom := errors.New("ffmpeg exploded")
	ext := &fakeExtractor{failOn: map[string]error{"s2.wav": boom}}
	o := &Orchestrator{Extractor: ext, Workers: 2}

	_, err := o.Slice(context.Background(), "src.wav", "wavs", sentences)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "s2")

	// Siblings of the failed job still ran.
	assert.Len(t, ext.calls, 10)
}

func TestSlice_DuplicateIDsRejectedBeforeDispatch(t *testing.T) {
	sentences := []sentence.Sentence{
		derived(t, "same", 0, 1),
		derived(t, "other", 1, 2),
		derived(t, "same", 2, 3),
	}

	ext := &fakeExtractor{}
	o := &Orchestrator{Extractor: ext}

	_, err := o.Slice(context.Background(), "src.wav", "wavs", sentences)
	require.ErrorIs(t, err, ErrDuplicateID)
	assert.Empty(t, ext.calls)
}

func TestSlice_Empty(t *testing.T) {
	o := &Orchestrator{Extractor: &fakeExtractor{}}
	res, err := o.Slice(context.Background(), "src.wav", "wavs", nil)
	require.NoError(t, err)
	assert.Zero(t, res.Extracted)
}

func TestSlice_CancelAfterDispatchLetsJobsFinish(t *testing.T) {
	ext := &fakeExtractor{delay: 30 * time.Millisecond}
	o := &Orchestrator{Extractor: ext, Workers: 8}

	var sentences []sentence.Sentence
	for i := range 8 {
		sentences = append(sentences, derived(t, fmt.Sprintf("s%d", i), float64(i), float64(i)+1.5))
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	res, err := o.Slice(ctx, "src.wav", "/wavs", sentences)
	require.NoError(t, err)
	assert.Equal(t, 8, res.Extracted)
	assert.Len(t, ext.calls, 8)
	assert.Zero(t, ext.cancelled.Load(), "dispatched extractions saw a cancelled context")
}
