package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/location-import-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMaxUploadBytes caps import uploads when no limit is configured.
const DefaultMaxUploadBytes = 10 << 20

// JobSubmitter queues uploaded files for import.
type JobSubmitter interface {
	Submit(ctx context.Context, fileName string, body io.Reader) (domain.JobResult, error)
}

// Store is the read side the API exposes.
type Store interface {
	GetJobResult(ctx context.Context, id string) (domain.JobResult, error)
	ListJobLogs(ctx context.Context, jobID string) ([]domain.JobLogEntry, error)
	ListLocations(ctx context.Context, filter domain.LocationFilter) ([]domain.Location, error)
}

// Options configures the HTTP server.
type Options struct {
	Addr           string
	MaxUploadBytes int64
}

// Server exposes the import API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	jobs       JobSubmitter
	store      Store
	maxUpload  int64
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /api routes.
func NewServer(opts Options, jobs JobSubmitter, store Store, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}

	s := &Server{
		httpServer: &http.Server{
			Addr:         opts.Addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		jobs:      jobs,
		store:     store,
		maxUpload: maxUpload,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/jobs/location-import", handleJobInfo)
	mux.HandleFunc("POST /api/jobs/location-import", s.handleSubmit)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("GET /api/jobs/{id}/logs", s.handleJobLogs)
	mux.HandleFunc("GET /api/locations", s.handleListLocations)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
