package grpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestMemoryLimiterAllowsRequestUnderLimit(t *testing.T) {
	cfg := &MemoryLimiterConfig{LimitMiB: 1 << 30, SpikeLimitMiB: 1 << 30}
	interceptor := MemoryLimiterInterceptor(cfg, discardLogger())
	info := &grpc.UnaryServerInfo{FullMethod: "/otlp.Logs/Export"}

	resp, err := interceptor(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
}

func TestMemoryLimiterRejectsOverLimit(t *testing.T) {
	cfg := &MemoryLimiterConfig{LimitMiB: 0, SpikeLimitMiB: 0}
	interceptor := MemoryLimiterInterceptor(cfg, discardLogger())
	info := &grpc.UnaryServerInfo{FullMethod: "/otlp.Logs/Export"}

	called := false
	_, err := interceptor(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		called = true
		return "ok", nil
	})
	require.Error(t, err)
	assert.False(t, called, "handler must not run once the memory limit is exceeded")
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestDefaultMemoryLimiterConfigMatchesCollectorDefaults(t *testing.T) {
	cfg := DefaultMemoryLimiterConfig()
	assert.Equal(t, int64(1500), cfg.LimitMiB)
	assert.Equal(t, int64(512), cfg.SpikeLimitMiB)
}

func TestMemoryLimiterInterceptorDefaultsConfigWhenNil(t *testing.T) {
	interceptor := MemoryLimiterInterceptor(nil, discardLogger())
	info := &grpc.UnaryServerInfo{FullMethod: "/otlp.Logs/Export"}
	_, err := interceptor(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
}
