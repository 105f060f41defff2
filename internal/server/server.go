// Package server implements the HTTP server that exposes the retrieval
// service's REST API: querying, feedback, document management, and the
// operational endpoints. The server is started by the `ragline serve` CLI
// command.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies bundles the collaborators a Server serves.
type Dependencies struct {
	// Engine answers queries and processes feedback. Required.
	Engine answerer
	// Pipeline ingests documents. Required.
	Pipeline ingestor
	// Admin clears the index collections. Required.
	Admin collectionAdmin
	// History serves past interactions. Optional; nil disables /api/history.
	History historySource
}

// New constructs a Server from the provided dependencies and config.
func New(deps *Dependencies, cfg *Config) (*Server, error) {
	if deps == nil || deps.Engine == nil {
		return nil, fmt.Errorf("server: engine must not be nil")
	}
	if deps.Pipeline == nil {
		return nil, fmt.Errorf("server: pipeline must not be nil")
	}
	if deps.Admin == nil {
		return nil, fmt.Errorf("server: index admin must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// Generation with a fallback attempt can take two full model timeouts.
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	reg := cfg.MetricsRegistry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{
		engine:   deps.Engine,
		pipeline: deps.Pipeline,
		admin:    deps.Admin,
		history:  deps.History,
		cfg:      cfg,
		log:      cfg.Logger,
		pingers:  cfg.Pingers,
		metrics:  newServerMetrics(reg),
	}

	if cfg.APIKey == "" {
		s.log.Warn("server: RAGLINE_API_KEY not set — API authentication is disabled")
	}

	rps := cfg.RateLimit
	if rps <= 0 {
		rps = defaultRateLimit
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = defaultRateBurst
	}
	rl, stopRL := newRateLimiter(rps, burst, s.log)
	s.stopRL = stopRL

	mux := http.NewServeMux()
	mux.Handle("POST /api/query", s.route("query", s.handleQuery))
	mux.Handle("POST /api/feedback", s.route("feedback", s.handleFeedback))
	mux.Handle("POST /api/documents", s.route("documents", s.handleDocuments))
	mux.Handle("DELETE /api/documents", s.route("documents_clear", s.handleClearDocuments))
	mux.Handle("DELETE /api/learned", s.route("learned_clear", s.handleClearLearned))
	mux.Handle("POST /api/upload", s.route("upload", s.handleUpload))
	mux.Handle("POST /api/seed", s.route("seed", s.handleSeed))
	mux.Handle("GET /api/history", s.route("history", s.handleHistory))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// Middleware order, outermost first: request logging wraps everything so
	// even rejected requests are logged with a request_id.
	handler := requestLogger(s.log, rl.middleware(mux))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// route wraps a protected API handler with authentication and per-handler
// metrics. name is the metrics "handler" label.
func (s *Server) route(name string, h http.HandlerFunc) http.Handler {
	return authMiddleware(s.cfg.APIKey, s.metrics.instrument(name, h))
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening", slog.String("addr", s.httpServer.Addr))
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
		return nil
	}
}
