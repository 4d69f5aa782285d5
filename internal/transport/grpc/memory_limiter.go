package grpc

import (
	"context"
	"runtime"

	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MemoryLimiterConfig holds memory limiter configuration, following OTEL
// Collector memory_limiter processor semantics: LimitMiB is the soft
// limit where graceful rejection starts, SpikeLimitMiB is additional
// headroom above it for traffic spikes, and the hard limit is their sum.
type MemoryLimiterConfig struct {
	LimitMiB      int64
	SpikeLimitMiB int64
}

// DefaultMemoryLimiterConfig returns OTEL Collector-compatible defaults.
func DefaultMemoryLimiterConfig() *MemoryLimiterConfig {
	return &MemoryLimiterConfig{
		LimitMiB:      1500,
		SpikeLimitMiB: 512,
	}
}

// MemoryLimiterInterceptor rejects requests with ResourceExhausted once
// heap usage crosses the configured limit, protecting the process from
// OOM during ingest spikes.
func MemoryLimiterInterceptor(cfg *MemoryLimiterConfig, logger *slog.Logger) grpc.UnaryServerInterceptor {
	if cfg == nil {
		cfg = DefaultMemoryLimiterConfig()
	}
	hardLimitMiB := cfg.LimitMiB + cfg.SpikeLimitMiB

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)
		usedMiB := int64(memStats.Alloc / 1024 / 1024)

		if usedMiB > cfg.LimitMiB {
			logger.Warn("memory limit exceeded, rejecting request",
				"used_mib", usedMiB,
				"soft_limit_mib", cfg.LimitMiB,
				"hard_limit_mib", hardLimitMiB,
				"method", info.FullMethod,
			)
			return nil, status.Error(codes.ResourceExhausted, "server memory limit exceeded, try again later")
		}

		return handler(ctx, req)
	}
}
