package doctor_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/example/go-dswav/internal/doctor"
)

var errBinaryNotFound = errors.New("executable file not found in $PATH")

func okVersion(v string) doctor.VersionFunc {
	return func() (string, error) { return v, nil }
}

func passingConfig(t *testing.T) doctor.Config {
	t.Helper()
	return doctor.Config{
		FFmpegVersion: okVersion("ffmpeg version 6.1.1"),
		EspeakVersion: okVersion("eSpeak NG text-to-speech: 1.51  Data at: /usr/share/espeak-ng-data"),
		STTExecutable: "make",
		Lookup:        func(name string) (string, error) { return "/usr/bin/" + name, nil },
		ProjectsDir:   t.TempDir(),
	}
}

func hasFailureContaining(failures []string, substr string) bool {
	for _, f := range failures {
		if strings.Contains(f, substr) {
			return true
		}
	}
	return false
}

func TestRun_AllChecksPass(t *testing.T) {
	var out strings.Builder
	result := doctor.Run(passingConfig(t), &out)

	if result.Failed() {
		t.Errorf("expected all checks to pass; failures: %v", result.Failures())
	}
	for _, want := range []string{"ffmpeg", "espeak-ng", "stt command: /usr/bin/make", "projects dir"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output should mention %q:\n%s", want, out.String())
		}
	}
	if strings.Contains(out.String(), doctor.FailMark) {
		t.Errorf("no line should carry the fail mark:\n%s", out.String())
	}
}

func TestRun_FFmpegMissingFails(t *testing.T) {
	cfg := passingConfig(t)
	cfg.FFmpegVersion = func() (string, error) { return "", errBinaryNotFound }

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !result.Failed() {
		t.Fatal("expected failure when ffmpeg is not found")
	}
	if !hasFailureContaining(result.Failures(), "ffmpeg") {
		t.Errorf("expected failure mentioning ffmpeg, got: %v", result.Failures())
	}
	if !strings.Contains(out.String(), doctor.FailMark+" ffmpeg") {
		t.Errorf("want fail mark on ffmpeg line:\n%s", out.String())
	}
}

func TestRun_EspeakMissingFails(t *testing.T) {
	cfg := passingConfig(t)
	cfg.EspeakVersion = func() (string, error) { return "", errBinaryNotFound }

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !hasFailureContaining(result.Failures(), "espeak-ng") {
		t.Errorf("expected failure mentioning espeak-ng, got: %v", result.Failures())
	}
}

func TestRun_EspeakTooOldFails(t *testing.T) {
	cfg := passingConfig(t)
	cfg.EspeakVersion = okVersion("eSpeak NG text-to-speech: 1.48.03")

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !hasFailureContaining(result.Failures(), "espeak-ng") {
		t.Errorf("expected failure mentioning espeak-ng, got: %v", result.Failures())
	}
}

func TestRun_STTExecutableMissingFails(t *testing.T) {
	cfg := passingConfig(t)
	cfg.STTExecutable = "whisperx"
	cfg.Lookup = func(string) (string, error) { return "", errBinaryNotFound }

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !hasFailureContaining(result.Failures(), "whisperx") {
		t.Errorf("expected failure naming the stt executable, got: %v", result.Failures())
	}
}

func TestRun_EmptySTTCommandFails(t *testing.T) {
	cfg := passingConfig(t)
	cfg.STTExecutable = ""

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !hasFailureContaining(result.Failures(), "stt command") {
		t.Errorf("expected stt failure, got: %v", result.Failures())
	}
}

func TestRun_ProjectsDirNotWritableFails(t *testing.T) {
	cfg := passingConfig(t)
	cfg.ProjectsDir = ""

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !hasFailureContaining(result.Failures(), "projects dir") {
		t.Errorf("expected projects dir failure, got: %v", result.Failures())
	}
}

func TestRun_MultipleFailuresAreAllReported(t *testing.T) {
	cfg := passingConfig(t)
	cfg.FFmpegVersion = func() (string, error) { return "", errBinaryNotFound }
	cfg.EspeakVersion = func() (string, error) { return "", errBinaryNotFound }

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if got := len(result.Failures()); got != 2 {
		t.Errorf("want 2 failures, got %d: %v", got, result.Failures())
	}
}

func TestAddFailure(t *testing.T) {
	var r doctor.Result
	r.AddFailure("external check failed")
	if !r.Failed() || r.Failures()[0] != "external check failed" {
		t.Errorf("failures = %v", r.Failures())
	}
}

func TestCommandVersion_FirstNonEmptyLine(t *testing.T) {
	run := func(_ context.Context, name string, args []string, _ io.Reader) ([]byte, error) {
		if name != "ffmpeg" || len(args) != 1 || args[0] != "-version" {
			t.Errorf("unexpected invocation %s %v", name, args)
		}
		return []byte("\nffmpeg version 6.1.1 Copyright\nbuilt with gcc\n"), nil
	}

	got, err := doctor.CommandVersion(context.Background(), run, "ffmpeg", "-version")()
	if err != nil {
		t.Fatalf("CommandVersion: %v", err)
	}
	if got != "ffmpeg version 6.1.1 Copyright" {
		t.Errorf("got %q", got)
	}
}

func TestCommandVersion_PropagatesError(t *testing.T) {
	run := func(context.Context, string, []string, io.Reader) ([]byte, error) {
		return nil, errBinaryNotFound
	}
	_, err := doctor.CommandVersion(context.Background(), run, "espeak-ng", "--version")()
	if !errors.Is(err, errBinaryNotFound) {
		t.Fatalf("want errBinaryNotFound, got %v", err)
	}
}

func TestCommandVersion_EmptyOutput(t *testing.T) {
	run := func(context.Context, string, []string, io.Reader) ([]byte, error) { return nil, nil }
	if _, err := doctor.CommandVersion(context.Background(), run, "x")(); err == nil {
		t.Fatal("want error for empty output")
	}
}
