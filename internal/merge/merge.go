// Package merge imports externally prepared sentence/audio sets into a
// project.
package merge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/go-dswav/internal/metrics"
	"github.com/example/go-dswav/internal/project"
	"github.com/example/go-dswav/internal/sentence"
)

// IndexEntry is one record of a source's index.json.
type IndexEntry struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	SpeakerID string `json:"speaker_id"`
}

// Report summarises one Merge call.
type Report struct {
	Sources   int `json:"sources"`
	Sentences int `json:"sentences"`
	Copied    int `json:"copied"`
	Skipped   int `json:"skipped"`
}

// Importer appends merge sources to a project's sentence store and copies
// their audio into the project's wav folder.
type Importer struct {
	Repo    project.Repository
	Metrics *metrics.Metrics
}

// Merge imports every source directory in order. Each source holds an
// index.json and a wavs/ folder. Existing clips in the project are never
// overwritten. Sentences are appended without deduplication, so merging a
// source twice lists its sentences twice.
func (im *Importer) Merge(ctx context.Context, l project.Layout, sources []string) (Report, error) {
	var rep Report

	all, err := im.Repo.Read(ctx, l.Name)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return rep, err
	}

	if err := os.MkdirAll(l.WavDir(), 0o755); err != nil {
		return rep, fmt.Errorf("merge: %w", err)
	}

	for _, src := range sources {
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		imported, err := ReadIndex(filepath.Join(src, "index.json"))
		if err != nil {
			return rep, err
		}
		all = append(all, imported...)
		rep.Sentences += len(imported)

		copied, skipped, err := im.copyWavs(filepath.Join(src, "wavs"), l.WavDir())
		if err != nil {
			return rep, err
		}
		rep.Copied += copied
		rep.Skipped += skipped
		rep.Sources++

		slog.Info("merged source", "project", l.Name, "source", src,
			"sentences", len(imported), "copied", copied, "skipped", skipped)
	}

	if err := im.Repo.Write(ctx, l.Name, all); err != nil {
		return rep, err
	}
	im.Metrics.SentencesMerged(rep.Sentences)
	return rep, nil
}

// ReadIndex loads a source index as imported sentences.
func ReadIndex(path string) ([]sentence.Sentence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read merge index: %w", err)
	}

	var entries []IndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	out := make([]sentence.Sentence, 0, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("%s: entry %d has no id", path, i)
		}
		if e.SpeakerID == "" {
			return nil, fmt.Errorf("%s: entry %q has no speaker_id", path, e.ID)
		}
		s, err := sentence.NewImported(e.ID, e.SpeakerID, e.Content)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (im *Importer) copyWavs(srcDir, dstDir string) (copied, skipped int, err error) {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return 0, 0, fmt.Errorf("list merge audio: %w", err)
	}

	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		dst := filepath.Join(dstDir, e.Name())
		if _, err := os.Lstat(dst); err == nil {
			skipped++
			continue
		}
		if err := copyFile(filepath.Join(srcDir, e.Name()), dst); err != nil {
			return copied, skipped, err
		}
		copied++
		im.Metrics.WavCopied()
	}
	return copied, skipped, nil
}

// copyFile copies src to a new file dst, keeping permissions and
// modification time.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
