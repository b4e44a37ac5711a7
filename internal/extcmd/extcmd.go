// Package extcmd runs the external tools the pipeline delegates to (STT,
// ffmpeg, espeak-ng, upload commands) and reports their failures uniformly.
package extcmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// ErrExternalTool matches every *ToolError via errors.Is.
var ErrExternalTool = errors.New("external tool failed")

// ToolError describes a tool that exited non-zero, could not be started or
// did not produce its expected output.
type ToolError struct {
	Tool   string
	Args   []string
	Output string
	Err    error
}

func (e *ToolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed", e.Tool)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		fmt.Fprintf(&b, "\n%s", out)
	}
	return b.String()
}

func (e *ToolError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExternalTool}
	}
	return []error{ErrExternalTool, e.Err}
}

// RunFunc is the signature of Run, for callers that stub process execution.
type RunFunc func(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, error)

// Run executes name with args, feeding stdin when non-nil, and returns
// stdout. Stderr is captured into the returned *ToolError on failure.
func Run(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != nil {
		cmd.Stdin = stdin
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &ToolError{
			Tool:   name,
			Args:   args,
			Output: stderr.String(),
			Err:    mapExecError(name, err),
		}
	}
	return stdout.Bytes(), nil
}

// RequireOutput returns a *ToolError when path does not exist after a
// tool reported success.
func RequireOutput(tool string, args []string, path string) error {
	if _, err := os.Stat(path); err != nil {
		return &ToolError{
			Tool: tool,
			Args: args,
			Err:  fmt.Errorf("expected output %s: %w", path, err),
		}
	}
	return nil
}

// Lookup resolves name on PATH.
func Lookup(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", mapExecError(name, err)
	}
	return path, nil
}

func mapExecError(name string, err error) error {
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%s executable not found: %w", name, err)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("%s returned exit code %d: %w", name, exitErr.ExitCode(), err)
	}

	return err
}
