package receiver

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/readiness"
)

// RegisterHealth wires the standard gRPC health service to the readiness
// supervisor: liveness (the "" service) is always SERVING, since a
// process that can answer RPCs at all is alive per the source's liveness
// model, while the named "readiness" service tracks the supervisor.
func RegisterHealth(ctx context.Context, srv *grpc.Server, ready *readiness.Supervisor, pollInterval time.Duration) *health.Server {
	h := health.NewServer()
	h.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, h)

	go watchReadiness(ctx, h, ready, pollInterval)
	return h
}

// watchReadiness mirrors the supervisor's opinion into the health
// service's "readiness" entry so gRPC health clients don't need to know
// about this core's internal readiness type.
func watchReadiness(ctx context.Context, h *health.Server, ready *readiness.Supervisor, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := healthpb.HealthCheckResponse_NOT_SERVING
	for {
		status := healthpb.HealthCheckResponse_NOT_SERVING
		if ready.Ready() {
			status = healthpb.HealthCheckResponse_SERVING
		}
		if status != last {
			h.SetServingStatus("readiness", status)
			last = status
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
