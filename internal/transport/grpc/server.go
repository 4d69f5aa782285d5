package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/readiness"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/receiver"
)

// Server wraps gRPC server with lifecycle management
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener
	logger     *slog.Logger
	port       int
}

// NewServer creates a new gRPC server for OTLP ingestion, registering the
// three signal Export services plus the standard health service.
func NewServer(
	ctx context.Context,
	port int,
	traces *receiver.TraceServer,
	logs *receiver.LogsServer,
	metrics *receiver.MetricsServer,
	ready *readiness.Supervisor,
	healthPollInterval time.Duration,
	logger *slog.Logger,
) (*Server, error) {
	grpcServer := grpc.NewServer(
		// Memory limiter runs first so it rejects before any ingestion work starts.
		grpc.ChainUnaryInterceptor(
			MemoryLimiterInterceptor(DefaultMemoryLimiterConfig(), logger),
			LoggingInterceptor(logger),
		),

		// Size limits
		grpc.MaxRecvMsgSize(10*1024*1024), // 10MB max request
		grpc.MaxSendMsgSize(10*1024*1024), // 10MB max response

		// Keepalive settings for long-lived collector connections
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    1 * time.Minute,  // Send keepalive ping every 1 minute
			Timeout: 20 * time.Second, // Wait 20s for ping ack before closing
		}),

		// Enforce keepalive from clients
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             30 * time.Second, // Min time between pings
			PermitWithoutStream: true,             // Allow pings without active streams
		}),
	)

	receiver.RegisterServices(grpcServer, traces, logs, metrics)
	receiver.RegisterHealth(ctx, grpcServer, ready, healthPollInterval)

	return &Server{
		grpcServer: grpcServer,
		logger:     logger,
		port:       port,
	}, nil
}

// Start begins listening and serving gRPC requests (blocking)
func (s *Server) Start() error {
	// Create TCP listener
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}
	s.listener = lis

	s.logger.Info("Starting gRPC OTLP server", "port", s.port)

	// Start serving (blocks until server stops)
	if err := s.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("gRPC server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully stops the gRPC server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Gracefully stopping gRPC server")

	// Graceful stop with timeout
	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		// Timeout exceeded - force stop
		s.logger.Warn("Graceful shutdown timeout, forcing stop")
		s.grpcServer.Stop()
		return ctx.Err()
	case <-stopped:
		s.logger.Info("gRPC server stopped gracefully")
		return nil
	}
}
