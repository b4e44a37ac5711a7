package audio

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/go-dswav/internal/metrics"
	"github.com/example/go-dswav/internal/testutil"
)

func mono16(rate, frames int) testutil.WAVSpec {
	return testutil.WAVSpec{SampleRate: rate, Channels: 1, BitDepth: 16, Frames: frames}
}

func TestPadToMinimum(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteWAV(t, dir, "short.wav", mono16(16000, 8000))   // 500 ms
	testutil.WriteWAV(t, dir, "exact.wav", mono16(16000, 16000))  // 1000 ms
	testutil.WriteWAV(t, dir, "long.wav", mono16(16000, 32000))   // 2000 ms
	stereo := testutil.WAVSpec{SampleRate: 8000, Channels: 2, BitDepth: 16, Frames: 4000}
	testutil.WriteWAV(t, dir, "stereo.wav", stereo) // 500 ms
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := &Repairer{Metrics: metrics.New()}
	rep, err := r.PadToMinimum(context.Background(), dir, 1000, false)
	if err != nil {
		t.Fatalf("PadToMinimum: %v", err)
	}

	if rep.Scanned != 4 || rep.Repaired != 2 || rep.AddedMS != 1000 {
		t.Errorf("report = %+v, want 4 scanned, 2 repaired, 1000 ms added", rep)
	}

	testutil.AssertWAVFrames(t, filepath.Join(dir, "short.wav"), mono16(16000, 16000))
	testutil.AssertWAVFrames(t, filepath.Join(dir, "exact.wav"), mono16(16000, 16000))
	testutil.AssertWAVFrames(t, filepath.Join(dir, "long.wav"), mono16(16000, 32000))
	stereo.Frames = 8000
	testutil.AssertWAVFrames(t, filepath.Join(dir, "stereo.wav"), stereo)
}

func TestPadToMinimum_StrictAddsOneMillisecond(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteWAV(t, dir, "short.wav", mono16(16000, 8000)) // 500 ms

	r := &Repairer{}
	rep, err := r.PadToMinimum(context.Background(), dir, 1000, true)
	if err != nil {
		t.Fatalf("PadToMinimum: %v", err)
	}
	if rep.AddedMS != 501 {
		t.Errorf("AddedMS = %d, want 501", rep.AddedMS)
	}
	testutil.AssertWAVFrames(t, filepath.Join(dir, "short.wav"), mono16(16000, 16016))

	// Now at least 1000 ms long, a second pass leaves it alone.
	rep, err = r.PadToMinimum(context.Background(), dir, 1000, true)
	if err != nil {
		t.Fatalf("PadToMinimum: %v", err)
	}
	if rep.Repaired != 0 {
		t.Errorf("second pass repaired %d clips, want 0", rep.Repaired)
	}
}

func TestAppendSilence_NotIdempotent(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteWAV(t, dir, "a.wav", mono16(24000, 24000))
	testutil.WriteWAV(t, dir, "b.wav", mono16(24000, 100))

	r := &Repairer{}
	for range 2 {
		rep, err := r.AppendSilence(context.Background(), dir, 100)
		if err != nil {
			t.Fatalf("AppendSilence: %v", err)
		}
		if rep.Repaired != 2 {
			t.Errorf("Repaired = %d, want 2", rep.Repaired)
		}
	}

	testutil.AssertWAVFrames(t, filepath.Join(dir, "a.wav"), mono16(24000, 24000+2*2400))
	testutil.AssertWAVFrames(t, filepath.Join(dir, "b.wav"), mono16(24000, 100+2*2400))
}

func TestRepair_MissingDir(t *testing.T) {
	r := &Repairer{}
	if _, err := r.AppendSilence(context.Background(), filepath.Join(t.TempDir(), "nope"), 100); err == nil {
		t.Fatal("expected error for missing wav folder")
	}
}

func TestRepair_InvalidClipIsFatal(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.wav"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := &Repairer{}
	if _, err := r.PadToMinimum(context.Background(), dir, 1000, true); err == nil {
		t.Fatal("expected error for undecodable clip")
	}
}

func TestRepair_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteWAV(t, dir, "a.wav", mono16(8000, 80))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Repairer{}
	if _, err := r.AppendSilence(ctx, dir, 100); err == nil {
		t.Fatal("expected context error")
	}
}
