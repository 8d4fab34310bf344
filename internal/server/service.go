// Package server exposes the HTTP API: batch submission, job status
// polling, pattern management, and report download.
package server

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kwalker7631/kyo-qa-tool/internal/common"
	"github.com/kwalker7631/kyo-qa-tool/internal/core"
	"github.com/kwalker7631/kyo-qa-tool/internal/core/async"
	"github.com/kwalker7631/kyo-qa-tool/internal/job"
	"github.com/kwalker7631/kyo-qa-tool/internal/patterns"
)

// Service wires the HTTP handlers to the processing pipeline. The UI drives
// one job at a time, so the service remembers the most recently submitted
// job id and the status endpoint reports on it.
type Service struct {
	logger   *slog.Logger
	cfg      common.ServerConfig
	workDir  string
	launcher async.Launcher
	store    *job.Store
	patterns *patterns.Store
	resolver core.Resolver

	mu         sync.Mutex
	currentJob uuid.UUID
}

type Options struct {
	Logger   *slog.Logger
	Config   common.ServerConfig
	WorkDir  string
	Launcher async.Launcher
	Store    *job.Store
	Patterns *patterns.Store
	Resolver core.Resolver
}

func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:   logger,
		cfg:      opts.Config,
		workDir:  opts.WorkDir,
		launcher: opts.Launcher,
		store:    opts.Store,
		patterns: opts.Patterns,
		resolver: opts.Resolver,
	}
}

// Routes returns the handler for the full API surface.
func (s *Service) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/process", s.handleProcess)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/patterns", s.handleGetPatterns)
	mux.HandleFunc("POST /api/patterns", s.handleSavePatterns)
	mux.HandleFunc("GET /api/result", s.handleResult)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return s.withRequestID(mux)
}

// withRequestID tags every request with a correlation id so handler log
// lines from the same request can be stitched together.
func (s *Service) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := common.WithRequestID(r.Context(), uuid.NewString())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) setCurrentJob(id uuid.UUID) {
	s.mu.Lock()
	s.currentJob = id
	s.mu.Unlock()
}

func (s *Service) getCurrentJob() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentJob
}
