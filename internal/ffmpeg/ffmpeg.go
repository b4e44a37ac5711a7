// Package ffmpeg wraps the ffmpeg invocations used to cut sentence clips
// out of a source recording.
package ffmpeg

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/example/go-dswav/internal/extcmd"
)

// Slicer cuts clips with an ffmpeg executable.
type Slicer struct {
	// Path is the ffmpeg executable. Defaults to "ffmpeg".
	Path string
	// Run is the process runner. Defaults to extcmd.Run.
	Run extcmd.RunFunc
}

// SliceArgs builds the ffmpeg arguments for a copy-codec extraction of
// dur seconds starting at start.
func SliceArgs(src string, start, dur float64, out string) []string {
	return []string{
		"-y",
		"-i", src,
		"-ss", formatSeconds(start),
		"-t", formatSeconds(dur),
		"-acodec", "copy",
		out,
	}
}

// Extract writes the [start, start+dur) window of src to out. A tool that
// exits cleanly without writing out is reported as an *extcmd.ToolError.
func (s *Slicer) Extract(ctx context.Context, src string, start, dur float64, out string) error {
	exe := s.Path
	if exe == "" {
		exe = "ffmpeg"
	}
	run := s.Run
	if run == nil {
		run = extcmd.Run
	}

	args := SliceArgs(src, start, dur, out)
	slog.Debug("extracting clip", "input", filepath.Base(src), "output", filepath.Base(out), "start", start, "duration", dur)

	if _, err := run(ctx, exe, args, nil); err != nil {
		return err
	}
	return extcmd.RequireOutput(exe, args, out)
}

func formatSeconds(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
