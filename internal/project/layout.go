// Package project owns the on-disk layout of a dataset project and the
// sentence store that hands work from one pipeline stage to the next.
package project

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidProjectName is returned for names that are empty or would escape
// the projects directory.
var ErrInvalidProjectName = errors.New("invalid project name")

// Layout resolves every path of one project:
//
//	{root}/
//	  sentences.json
//	  debug.json
//	  ds.zip
//	  ds/
//	    train_list.txt
//	    val_list.txt
//	    wavs/{id}.wav
type Layout struct {
	Name string
	Root string
}

// ValidateName rejects names that are not a single path element.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidProjectName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidProjectName, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidProjectName, name)
	}
	return nil
}

// NewLayout returns the layout of project name under projectsDir.
func NewLayout(projectsDir, name string) (Layout, error) {
	if err := ValidateName(name); err != nil {
		return Layout{}, err
	}
	return Layout{Name: name, Root: filepath.Join(projectsDir, name)}, nil
}

func (l Layout) DatasetDir() string    { return filepath.Join(l.Root, "ds") }
func (l Layout) WavDir() string        { return filepath.Join(l.Root, "ds", "wavs") }
func (l Layout) SentencesPath() string { return filepath.Join(l.Root, "sentences.json") }
func (l Layout) DebugPath() string     { return filepath.Join(l.Root, "debug.json") }
func (l Layout) TrainListPath() string { return filepath.Join(l.Root, "ds", "train_list.txt") }
func (l Layout) ValListPath() string   { return filepath.Join(l.Root, "ds", "val_list.txt") }
func (l Layout) ArchivePath() string   { return filepath.Join(l.Root, "ds.zip") }

// WavPath is the clip path for sentence id.
func (l Layout) WavPath(id string) string {
	return filepath.Join(l.WavDir(), id+".wav")
}

// Setup creates the project directory tree if absent. Existing directories
// and their contents are left alone.
func Setup(l Layout) error {
	for _, dir := range []string{l.Root, l.DatasetDir(), l.WavDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("setup project %s: %w", l.Name, err)
		}
	}
	slog.Info("project ready", "project", l.Name, "root", l.Root)
	return nil
}
