// Package server exposes the pipeline stages over HTTP so a project can be
// driven from a browser or script instead of the CLI.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/example/go-dswav/internal/audio"
	"github.com/example/go-dswav/internal/config"
	"github.com/example/go-dswav/internal/dataset"
	"github.com/example/go-dswav/internal/merge"
	"github.com/example/go-dswav/internal/pipeline"
	"github.com/example/go-dswav/internal/project"
	"github.com/example/go-dswav/internal/upload"
)

// Stages is the set of pipeline entry points served over HTTP.
// *pipeline.Pipeline implements it.
type Stages interface {
	Setup(ctx context.Context, name string) error
	Transcribe(ctx context.Context, name string, req pipeline.TranscribeRequest) (pipeline.TranscribeResult, error)
	Merge(ctx context.Context, name string, sources []string) (merge.Report, error)
	FixAudio(ctx context.Context, name string) (audio.RepairReport, error)
	AddSilence(ctx context.Context, name string) (audio.RepairReport, error)
	Build(ctx context.Context, name string, req pipeline.BuildRequest) (dataset.Report, error)
	Upload(ctx context.Context, name, target string) error
}

var _ Stages = (*pipeline.Pipeline)(nil)

type options struct {
	maxBodyBytes int64
	logger       *slog.Logger
}

func defaultOptions() options {
	return options{
		maxBodyBytes: 64 << 10,
		logger:       slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxBodyBytes caps the size of JSON request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) { o.maxBodyBytes = n }
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

type handler struct {
	stages Stages
	opts   options
	// sem admits one stage at a time; stages share project files.
	sem chan struct{}
	log *slog.Logger
}

// NewHandler returns an http.Handler serving GET /health and one POST
// endpoint per stage under /projects/{name}/.
func NewHandler(stages Stages, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{
		stages: stages,
		opts:   opts,
		sem:    make(chan struct{}, 1),
		log:    opts.logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("POST /projects/{name}/setup", h.stage("setup", h.setup))
	mux.HandleFunc("POST /projects/{name}/transcribe", h.stage("transcribe", h.transcribe))
	mux.HandleFunc("POST /projects/{name}/merge", h.stage("merge", h.merge))
	mux.HandleFunc("POST /projects/{name}/fix-audio", h.stage("fix-audio", h.fixAudio))
	mux.HandleFunc("POST /projects/{name}/add-silence", h.stage("add-silence", h.addSilence))
	mux.HandleFunc("POST /projects/{name}/build", h.stage("build", h.build))
	mux.HandleFunc("POST /projects/{name}/upload", h.stage("upload", h.upload))
	return mux
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildVersion(),
	})
}

// stageFunc runs one stage for project name and returns the JSON result.
type stageFunc func(ctx context.Context, name string, body []byte) (any, error)

func (h *handler) stage(stage string, run stageFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if err := project.ValidateName(name); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.opts.maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge,
					fmt.Sprintf("body exceeds maximum size of %d bytes", h.opts.maxBodyBytes))
				return
			}
			writeError(w, http.StatusBadRequest, "read body: "+err.Error())
			return
		}

		select {
		case h.sem <- struct{}{}:
		case <-r.Context().Done():
			writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for another stage")
			return
		}
		defer func() { <-h.sem }()

		// A dropped client must not leave a stage half done.
		ctx := context.WithoutCancel(r.Context())

		start := time.Now()
		res, err := run(ctx, name, body)
		durationMS := time.Since(start).Milliseconds()

		if err != nil {
			status := statusFor(err)
			h.log.ErrorContext(r.Context(), "stage failed",
				slog.String("stage", stage),
				slog.String("project", name),
				slog.Int64("duration_ms", durationMS),
				slog.Int("status", status),
				slog.String("error", err.Error()),
			)
			writeError(w, status, err.Error())
			return
		}

		h.log.InfoContext(r.Context(), "stage complete",
			slog.String("stage", stage),
			slog.String("project", name),
			slog.Int64("duration_ms", durationMS),
		)
		writeJSON(w, http.StatusOK, res)
	}
}

func (h *handler) setup(ctx context.Context, name string, _ []byte) (any, error) {
	if err := h.stages.Setup(ctx, name); err != nil {
		return nil, err
	}
	return map[string]string{"status": "ok"}, nil
}

func (h *handler) transcribe(ctx context.Context, name string, body []byte) (any, error) {
	var req pipeline.TranscribeRequest
	if err := decode(body, &req); err != nil {
		return nil, err
	}
	return h.stages.Transcribe(ctx, name, req)
}

type mergeRequest struct {
	Sources []string `json:"sources"`
	// SourceList is a YAML source list file, resolved like --from.
	SourceList string `json:"source_list,omitempty"`
}

func (h *handler) merge(ctx context.Context, name string, body []byte) (any, error) {
	var req mergeRequest
	if err := decode(body, &req); err != nil {
		return nil, err
	}
	sources := req.Sources
	if req.SourceList != "" {
		listed, err := merge.LoadSourceList(req.SourceList)
		if err != nil {
			return nil, err
		}
		sources = append(sources, listed...)
	}
	if len(sources) == 0 {
		return nil, badRequest("at least one source is required")
	}
	return h.stages.Merge(ctx, name, sources)
}

func (h *handler) fixAudio(ctx context.Context, name string, _ []byte) (any, error) {
	return h.stages.FixAudio(ctx, name)
}

func (h *handler) addSilence(ctx context.Context, name string, _ []byte) (any, error) {
	return h.stages.AddSilence(ctx, name)
}

func (h *handler) build(ctx context.Context, name string, body []byte) (any, error) {
	var req pipeline.BuildRequest
	if err := decode(body, &req); err != nil {
		return nil, err
	}
	return h.stages.Build(ctx, name, req)
}

type uploadRequest struct {
	Target string `json:"target"`
}

func (h *handler) upload(ctx context.Context, name string, body []byte) (any, error) {
	var req uploadRequest
	if err := decode(body, &req); err != nil {
		return nil, err
	}
	if err := h.stages.Upload(ctx, name, req.Target); err != nil {
		return nil, err
	}
	return map[string]string{"status": "ok"}, nil
}

type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error { return &requestError{msg: msg} }

// decode unmarshals an optional JSON body; an empty body leaves v zero.
func decode(body []byte, v any) error {
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return badRequest("invalid JSON: " + err.Error())
	}
	return nil
}

func statusFor(err error) int {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr),
		errors.Is(err, pipeline.ErrMissingInput),
		errors.Is(err, project.ErrInvalidProjectName),
		errors.Is(err, dataset.ErrInvalidSplit),
		errors.Is(err, upload.ErrNoTarget):
		return http.StatusBadRequest
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Server wires the handler into a net/http.Server with graceful shutdown.
type Server struct {
	cfg             config.Config
	stages          Stages
	shutdownTimeout time.Duration
}

// New returns a Server for stages. A nil stages builds the default pipeline
// from cfg.
func New(cfg config.Config, stages Stages) *Server {
	if stages == nil {
		stages = pipeline.New(cfg)
	}
	timeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Server{
		cfg:             cfg,
		stages:          stages,
		shutdownTimeout: timeout,
	}
}

// WithShutdownTimeout overrides the graceful-shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           NewHandler(s.stages),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	slog.Info("control server listening", "addr", s.cfg.Server.ListenAddr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http listen: %w", err)
	}
}

// ProbeHTTP checks GET /health on addr.
func ProbeHTTP(addr string) error {
	resp, err := http.Get("http://" + addr + "/health") //nolint:noctx
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}
	return nil
}
