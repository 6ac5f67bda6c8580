// Package server runs the small observability HTTP server that sits
// beside a GVSP receiver: health/readiness checks and a Prometheus-text
// metrics endpoint. It never touches the receiver's frame or enable
// locks directly — only the Stats snapshot and IsReceiving accessor
// internal/gvsp exposes for exactly this purpose.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rschre/gvsprecv/internal/config"
	"github.com/rschre/gvsprecv/internal/gvsp"
)

// Server is the observability HTTP server.
type Server struct {
	cfg      *config.ObservabilityConfig
	logger   *slog.Logger
	http     *http.Server
	metrics  *Metrics
	receiver *gvsp.Receiver
}

// New creates a new observability server bound to a receiver. broadcast
// may be nil, in which case no WebSocket endpoint is mounted. It does
// nothing until Start is called.
func New(cfg *config.ObservabilityConfig, r *gvsp.Receiver, broadcast http.Handler, broadcastPath string, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		receiver: r,
		metrics:  NewMetrics(r),
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", NewHealthHandler(r))
	mux.Handle("/readyz", NewHealthHandler(r))

	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	mux.Handle(metricsPath, s.metrics.Handler())

	if broadcast != nil {
		if broadcastPath == "" {
			broadcastPath = "/frames"
		}
		mux.Handle(broadcastPath, broadcast)
	}

	s.http = &http.Server{
		Addr:         cfg.Address,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	return s
}

// Start begins listening for HTTP connections. It blocks until Stop
// shuts the server down, returning http.ErrServerClosed in that case.
func (s *Server) Start() error {
	s.logger.Info("observability server starting", "address", s.cfg.Address)
	return s.http.ListenAndServe()
}

// Stop gracefully shuts down the observability server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("observability server shutting down")
	return s.http.Shutdown(ctx)
}
