// Package doctor provides environment preflight checks for dswav.
package doctor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/example/go-dswav/internal/extcmd"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// VersionFunc returns a version string or an error if the component is unavailable.
type VersionFunc func() (string, error)

// LookupFunc resolves an executable name to a path.
type LookupFunc func(name string) (string, error)

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// FFmpegVersion returns the first line of `ffmpeg -version`.
	FFmpegVersion VersionFunc
	// EspeakVersion returns the output of `espeak-ng --version`.
	EspeakVersion VersionFunc
	// STTExecutable is the first element of stt.command.
	STTExecutable string
	// Lookup resolves STTExecutable. Defaults to extcmd.Lookup.
	Lookup LookupFunc
	// ProjectsDir must exist (or be creatable) and be writable.
	ProjectsDir string
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	if ver, err := cfg.FFmpegVersion(); err != nil {
		res.fail(fmt.Sprintf("ffmpeg: %v", err))
		fmt.Fprintf(w, "%s ffmpeg: not found (%v)\n", FailMark, err)
	} else {
		fmt.Fprintf(w, "%s ffmpeg: %s\n", PassMark, ver)
	}

	if ver, err := cfg.EspeakVersion(); err != nil {
		res.fail(fmt.Sprintf("espeak-ng: %v", err))
		fmt.Fprintf(w, "%s espeak-ng: not found (%v)\n", FailMark, err)
	} else if verErr := checkEspeakVersion(ver); verErr != nil {
		res.fail(fmt.Sprintf("espeak-ng: %v", verErr))
		fmt.Fprintf(w, "%s espeak-ng %s: %v\n", FailMark, ver, verErr)
	} else {
		fmt.Fprintf(w, "%s espeak-ng: %s\n", PassMark, ver)
	}

	lookup := cfg.Lookup
	if lookup == nil {
		lookup = extcmd.Lookup
	}
	if cfg.STTExecutable == "" {
		res.fail("stt command: empty")
		fmt.Fprintf(w, "%s stt command: not configured\n", FailMark)
	} else if path, err := lookup(cfg.STTExecutable); err != nil {
		res.fail(fmt.Sprintf("stt command %q: %v", cfg.STTExecutable, err))
		fmt.Fprintf(w, "%s stt command %s: not found\n", FailMark, cfg.STTExecutable)
	} else {
		fmt.Fprintf(w, "%s stt command: %s\n", PassMark, path)
	}

	if err := checkWritable(cfg.ProjectsDir); err != nil {
		res.fail(fmt.Sprintf("projects dir %q: %v", cfg.ProjectsDir, err))
		fmt.Fprintf(w, "%s projects dir %s: %v\n", FailMark, cfg.ProjectsDir, err)
	} else {
		fmt.Fprintf(w, "%s projects dir: %s\n", PassMark, cfg.ProjectsDir)
	}

	return res
}

// CommandVersion returns a VersionFunc reporting the first non-empty output
// line of name run with args.
func CommandVersion(ctx context.Context, run extcmd.RunFunc, name string, args ...string) VersionFunc {
	if run == nil {
		run = extcmd.Run
	}
	return func() (string, error) {
		out, err := run(ctx, name, args, nil)
		if err != nil {
			return "", err
		}
		sc := bufio.NewScanner(strings.NewReader(string(out)))
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				return line, nil
			}
		}
		return "", fmt.Errorf("%s printed no version", name)
	}
}

var versionPattern = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)

// checkEspeakVersion requires espeak-ng 1.49 or newer, the first release
// with --ipa output on stdin input.
func checkEspeakVersion(out string) error {
	ver := versionPattern.FindString(out)
	if ver == "" {
		return fmt.Errorf("cannot find version in %q", out)
	}
	major, minor, err := parseMajorMinor(ver)
	if err != nil {
		return fmt.Errorf("cannot parse %q: %w", ver, err)
	}
	if major < 1 || (major == 1 && minor < 49) {
		return fmt.Errorf("requires espeak-ng >=1.49, got %s", ver)
	}
	return nil
}

func parseMajorMinor(ver string) (major, minor int, err error) {
	parts := strings.SplitN(ver, ".", 3)
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("unexpected version format %q", ver)
	}
	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad major in %q: %w", ver, err)
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad minor in %q: %w", ver, err)
	}
	return major, minor, nil
}

func checkWritable(dir string) error {
	if dir == "" {
		return errors.New("not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
