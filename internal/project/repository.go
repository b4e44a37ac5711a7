package project

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/go-dswav/internal/sentence"
)

// Repository persists the sentence list of a project.
type Repository interface {
	Write(ctx context.Context, project string, sentences []sentence.Sentence) error
	Read(ctx context.Context, project string) ([]sentence.Sentence, error)
}

// JSONRepository stores sentences as {projects_dir}/{project}/sentences.json.
type JSONRepository struct {
	ProjectsDir string
}

// NewJSONRepository returns a repository rooted at projectsDir.
func NewJSONRepository(projectsDir string) *JSONRepository {
	return &JSONRepository{ProjectsDir: projectsDir}
}

var _ Repository = (*JSONRepository)(nil)

// Write replaces the stored list. The file is written to a temporary name in
// the same directory and renamed, so readers see the old or the new list.
func (r *JSONRepository) Write(ctx context.Context, project string, sentences []sentence.Sentence) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l, err := NewLayout(r.ProjectsDir, project)
	if err != nil {
		return err
	}

	records := make([]sentence.Record, len(sentences))
	for i, s := range sentences {
		records[i] = s.ToRecord()
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sentences: %w", err)
	}

	if err := os.MkdirAll(l.Root, 0o755); err != nil {
		return fmt.Errorf("write sentences: %w", err)
	}
	return writeFileAtomic(l.SentencesPath(), data, 0o644)
}

// Read loads the stored list. A missing store yields an error wrapping
// fs.ErrNotExist.
func (r *JSONRepository) Read(ctx context.Context, project string) ([]sentence.Sentence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l, err := NewLayout(r.ProjectsDir, project)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(l.SentencesPath())
	if err != nil {
		return nil, fmt.Errorf("read sentences: %w", err)
	}

	var records []sentence.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", l.SentencesPath(), err)
	}

	out := make([]sentence.Sentence, 0, len(records))
	for i, rec := range records {
		s, err := sentence.FromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("sentence %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// WriteFile writes data to path atomically with mode 0644.
func WriteFile(path string, data []byte) error {
	return writeFileAtomic(path, data, 0o644)
}
