// Package slicer cuts one clip per timed sentence out of a source recording
// with a bounded number of concurrent extractions.
package slicer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/go-dswav/internal/metrics"
	"github.com/example/go-dswav/internal/sentence"
)

// DefaultWorkers caps concurrent extractions when Workers is unset.
const DefaultWorkers = 32

// ErrDuplicateID is returned before any extraction starts when two sentences
// in a batch would write the same clip.
var ErrDuplicateID = errors.New("duplicate sentence id")

// Extractor writes the [start, start+dur) window of src to out.
type Extractor interface {
	Extract(ctx context.Context, src string, start, dur float64, out string) error
}

// Orchestrator dispatches extractions for a batch of sentences.
type Orchestrator struct {
	Extractor Extractor
	Workers   int
	Metrics   *metrics.Metrics
}

// Result summarises one Slice call.
type Result struct {
	Extracted int
	// Untimed counts imported sentences, which have no timing and are skipped.
	Untimed int
}

// Slice extracts {wavDir}/{id}.wav for every timed sentence. Every job runs
// to completion; the first failure is returned once all have finished.
// Extractions are not retried, and cancelling ctx does not stop them.
func (o *Orchestrator) Slice(ctx context.Context, source, wavDir string, sentences []sentence.Sentence) (Result, error) {
	var res Result

	jobs := make([]sentence.Sentence, 0, len(sentences))
	seen := make(map[string]struct{}, len(sentences))
	for _, s := range sentences {
		if !s.Timed() {
			res.Untimed++
			continue
		}
		if _, dup := seen[s.ID]; dup {
			return res, fmt.Errorf("%w: %q", ErrDuplicateID, s.ID)
		}
		seen[s.ID] = struct{}{}
		jobs = append(jobs, s)
	}

	workers := o.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	slog.Info("slicing clips", "source", source, "clips", len(jobs), "workers", workers)
	began := time.Now()

	jobCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(workers)

	for _, s := range jobs {
		out := filepath.Join(wavDir, s.ID+".wav")
		g.Go(func() error {
			if err := o.Extractor.Extract(jobCtx, source, s.Start(), s.Duration(), out); err != nil {
				return fmt.Errorf("slice sentence %s: %w", s.ID, err)
			}
			o.Metrics.ClipSliced()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, err
	}

	res.Extracted = len(jobs)
	slog.Info("slicing done", "clips", res.Extracted, "skipped_untimed", res.Untimed, "elapsed", time.Since(began).String())
	return res, nil
}
