package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/example/go-dswav/internal/metrics"
)

// Repair modes, also used as metric labels.
const (
	ModePad     = "pad"
	ModeSilence = "silence"
)

// RepairReport summarises one repair pass over a wav folder.
type RepairReport struct {
	Mode     string `json:"mode"`
	Scanned  int    `json:"scanned"`
	Repaired int    `json:"repaired"`
	// AddedMS is the total silence appended across all clips.
	AddedMS int `json:"added_ms"`
}

// Repairer rewrites clips in place. Both passes are destructive and not
// idempotent: running AppendSilence twice appends twice.
type Repairer struct {
	Metrics *metrics.Metrics
}

// PadToMinimum appends silence to every clip in dir shorter than minMS so it
// reaches minMS. Strict mode pads one extra millisecond so rounding never
// leaves a clip just under the threshold.
func (r *Repairer) PadToMinimum(ctx context.Context, dir string, minMS int, strict bool) (RepairReport, error) {
	return r.each(ctx, dir, ModePad, func(c Clip) int {
		length := c.LengthMS()
		if length >= minMS {
			return 0
		}
		pad := minMS - length
		if strict {
			pad++
		}
		return pad
	})
}

// AppendSilence appends ms of silence to every clip in dir.
func (r *Repairer) AppendSilence(ctx context.Context, dir string, ms int) (RepairReport, error) {
	return r.each(ctx, dir, ModeSilence, func(Clip) int { return ms })
}

func (r *Repairer) each(ctx context.Context, dir, mode string, padFor func(Clip) int) (RepairReport, error) {
	rep := RepairReport{Mode: mode}

	paths, err := listWAVs(dir)
	if err != nil {
		return rep, err
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Scanned++

		clip, err := ReadClip(path)
		if err != nil {
			return rep, err
		}
		pad := padFor(clip)
		if pad <= 0 {
			continue
		}
		if err := WriteClip(path, clip.WithSilence(pad)); err != nil {
			return rep, err
		}

		rep.Repaired++
		rep.AddedMS += pad
		r.Metrics.ClipRepaired(mode)
		slog.Debug("clip repaired", "path", path, "mode", mode, "added_ms", pad)
	}

	slog.Info("repair pass done", "dir", dir, "mode", mode, "scanned", rep.Scanned, "repaired", rep.Repaired)
	return rep, nil
}

// listWAVs returns the regular .wav files directly inside dir, sorted.
func listWAVs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), ".wav") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
