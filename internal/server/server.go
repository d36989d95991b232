// Package server implements the HTTP server that exposes the docqa REST API:
// document upload and lifecycle, question answering, the query log, and
// usage metrics. The server is started by the `docqa serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/docstack/docqa/internal/docstore"
	"github.com/docstack/docqa/internal/metrics"
)

// New constructs a Server from the provided dependencies and config.
func New(docs *docstore.Store, ingest ingestor, queries querier, reporter *metrics.Reporter, cfg *Config) (*Server, error) {
	if docs == nil {
		return nil, fmt.Errorf("server: document store must not be nil")
	}
	if ingest == nil {
		return nil, fmt.Errorf("server: ingestor must not be nil")
	}
	if queries == nil {
		return nil, fmt.Errorf("server: querier must not be nil")
	}
	if reporter == nil {
		return nil, fmt.Errorf("server: reporter must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// Generation against a slow model backend can take a while.
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.MaxUploadSize == 0 {
		cfg.MaxUploadSize = 50 << 20
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	gatherer := prometheus.DefaultGatherer
	if cfg.Registry != nil {
		reg = cfg.Registry
		gatherer = cfg.Registry
	}

	s := &Server{
		docs:     docs,
		ingest:   ingest,
		queries:  queries,
		reporter: reporter,
		cfg:      cfg,
		log:      log,
		pingers:  cfg.Pingers,
		metrics:  newServerMetrics(reg),
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, log)
	s.stopRL = stopRL

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/documents/upload", s.handleUpload)
	mux.HandleFunc("GET /api/documents", s.handleListDocuments)
	mux.HandleFunc("GET /api/documents/{id}", s.handleGetDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", s.handleDeleteDocument)
	mux.HandleFunc("POST /api/query", s.handleQuery)
	mux.HandleFunc("GET /api/queries", s.handleListQueries)
	mux.HandleFunc("GET /api/queries/{id}", s.handleGetQuery)
	mux.HandleFunc("GET /api/metrics/summary", s.handleMetricsSummary)

	// Unauthenticated operational endpoints.
	public := http.NewServeMux()
	public.HandleFunc("GET /api/health", s.handleHealth)
	public.HandleFunc("GET /api/ready", s.handleReady)
	public.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Protected routes get auth and per-IP rate limiting; everything gets
	// request logging and HTTP metrics.
	protected := authMiddleware(cfg.APIKey, rl.middleware(mux))
	if cfg.APIKey == "" {
		log.Warn("server: DOCQA_API_KEY not set, API authentication is disabled")
	}

	root := http.NewServeMux()
	root.Handle("/api/health", public)
	root.Handle("/api/ready", public)
	root.Handle("/metrics", public)
	root.Handle("/", protected)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(log, s.instrument(root)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown, draining any
// in-flight ingestion work.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server: listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		s.background.Wait()
		return nil
	}
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body with the given status.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
