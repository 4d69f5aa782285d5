// Package http exposes the ingestion core's observability surface: a
// small net/http mux for /metrics, /healthz and /readyz, deliberately not the
// gin-based API router the rest of the teacher's codebase uses, since
// this core has no HTTP API surface of its own.
package http

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/readiness"
)

// Server wraps the observability HTTP mux with the same lifecycle shape
// as the gRPC server.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	logger     *slog.Logger
	port       int
}

// NewServer builds the observability mux: /metrics in Prometheus text
// format, /healthz for liveness and /readyz for schema readiness (503
// until the supervisor reports ready), mirroring the gRPC health channel
// for operators without a gRPC health client.
func NewServer(port int, registry *prometheus.Registry, ready *readiness.Supervisor, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !ready.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	return &Server{
		httpServer: &http.Server{Handler: mux},
		logger:     logger,
		port:       port,
	}
}

// Start begins listening and serving HTTP requests (blocking).
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}
	s.listener = lis

	s.logger.Info("starting observability HTTP server", "port", s.port)

	if err := s.httpServer.Serve(lis); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("observability HTTP server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("gracefully stopping observability HTTP server")
	return s.httpServer.Shutdown(ctx)
}
