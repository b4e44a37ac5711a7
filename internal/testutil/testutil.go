// Package testutil provides shared skip helpers and WAV fixtures for tests.
//
// Each Require helper calls t.Skip with a clear human-readable reason when
// the named prerequisite is absent, so integration tests remain runnable in
// partial environments without failing noisily.
//
// Typical usage:
//
//	func TestSliceIntegration(t *testing.T) {
//	    testutil.RequireFFmpeg(t)
//	    src := testutil.WriteWAV(t, dir, "talk.wav", testutil.WAVSpec{SampleRate: 16000, Channels: 1, BitDepth: 16, Frames: 48000})
//	    ...
//	}
package testutil

import (
	"os"
	"os/exec"
	"testing"
)

// RequireFFmpeg skips the test if ffmpeg is not in PATH or at the path given
// by DSWAV_SLICER_FFMPEG_PATH.
func RequireFFmpeg(tb testing.TB) string {
	tb.Helper()
	return requireBinary(tb, "DSWAV_SLICER_FFMPEG_PATH", "ffmpeg")
}

// RequireEspeak skips the test if espeak-ng is not in PATH or at the path
// given by DSWAV_PHONEMIZE_ESPEAK_PATH.
func RequireEspeak(tb testing.TB) string {
	tb.Helper()
	return requireBinary(tb, "DSWAV_PHONEMIZE_ESPEAK_PATH", "espeak-ng")
}

func requireBinary(tb testing.TB, env, fallback string) string {
	tb.Helper()

	exe := os.Getenv(env)
	if exe == "" {
		exe = fallback
	}

	path, err := exec.LookPath(exe)
	if err != nil {
		tb.Skipf("%s not available (%q not in PATH); set %s to override", fallback, exe, env)
	}
	return path
}
