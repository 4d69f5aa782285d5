package receiver

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	colmetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"

	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/ingesterrors"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/metrics"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/readiness"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/storage"
	"github.com/ryanfaircloth/ollyscale-sub000/pkg/logging"
	"github.com/ryanfaircloth/ollyscale-sub000/pkg/ulid"
)

// TraceServer implements the OTLP TraceService gRPC contract over a
// TracesStorage, gated by the readiness supervisor and bounded by the
// shared worker pool.
type TraceServer struct {
	coltracepb.UnimplementedTraceServiceServer
	storage *storage.TracesStorage
	pool    *WorkerPool
	ready   *readiness.Supervisor
	telem   *metrics.Metrics
	logger  *slog.Logger
}

// NewTraceServer constructs a TraceServer.
func NewTraceServer(s *storage.TracesStorage, pool *WorkerPool, ready *readiness.Supervisor, telem *metrics.Metrics, logger *slog.Logger) *TraceServer {
	return &TraceServer{storage: s, pool: pool, ready: ready, telem: telem, logger: logger}
}

// Export implements TraceService.Export.
func (h *TraceServer) Export(ctx context.Context, req *coltracepb.ExportTraceServiceRequest) (*coltracepb.ExportTraceServiceResponse, error) {
	if !h.ready.Ready() {
		return nil, status.Error(codes.Unavailable, "schema not ready")
	}
	if len(req.ResourceSpans) == 0 {
		return nil, status.Error(codes.InvalidArgument, "export request must contain at least one resource span")
	}

	batchID := ulid.New()
	logger := logging.WithBatch(h.logger, string(storage.SignalTraces), batchID.String())
	start := time.Now()

	var outcome storage.Outcome
	err := h.pool.Do(func() error {
		batch := convertTraces(req)
		var storeErr error
		outcome, storeErr = h.storage.Store(ctx, batch)
		return storeErr
	})
	h.telem.BatchDuration.WithLabelValues(string(storage.SignalTraces)).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, h.fail(logger, storage.SignalTraces, err)
	}

	h.recordOutcome(storage.SignalTraces, outcome)
	logger.Info("batch stored",
		"received", outcome.RecordsReceived, "stored", outcome.RecordsStored, "dropped", outcome.RecordsDropped)
	return &coltracepb.ExportTraceServiceResponse{}, nil
}

// LogsServer implements the OTLP LogsService gRPC contract over a
// LogsStorage.
type LogsServer struct {
	collogspb.UnimplementedLogsServiceServer
	storage *storage.LogsStorage
	pool    *WorkerPool
	ready   *readiness.Supervisor
	telem   *metrics.Metrics
	logger  *slog.Logger
}

// NewLogsServer constructs a LogsServer.
func NewLogsServer(s *storage.LogsStorage, pool *WorkerPool, ready *readiness.Supervisor, telem *metrics.Metrics, logger *slog.Logger) *LogsServer {
	return &LogsServer{storage: s, pool: pool, ready: ready, telem: telem, logger: logger}
}

// Export implements LogsService.Export.
func (h *LogsServer) Export(ctx context.Context, req *collogspb.ExportLogsServiceRequest) (*collogspb.ExportLogsServiceResponse, error) {
	if !h.ready.Ready() {
		return nil, status.Error(codes.Unavailable, "schema not ready")
	}
	if len(req.ResourceLogs) == 0 {
		return nil, status.Error(codes.InvalidArgument, "export request must contain at least one resource log")
	}

	batchID := ulid.New()
	logger := logging.WithBatch(h.logger, string(storage.SignalLogs), batchID.String())
	start := time.Now()

	var outcome storage.Outcome
	err := h.pool.Do(func() error {
		batch := convertLogs(req)
		var storeErr error
		outcome, storeErr = h.storage.Store(ctx, batch)
		return storeErr
	})
	h.telem.BatchDuration.WithLabelValues(string(storage.SignalLogs)).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, h.fail(logger, storage.SignalLogs, err)
	}

	h.recordOutcome(storage.SignalLogs, outcome)
	logger.Info("batch stored",
		"received", outcome.RecordsReceived, "stored", outcome.RecordsStored, "dropped", outcome.RecordsDropped)
	return &collogspb.ExportLogsServiceResponse{}, nil
}

// MetricsServer implements the OTLP MetricsService gRPC contract over a
// MetricsStorage.
type MetricsServer struct {
	colmetricspb.UnimplementedMetricsServiceServer
	storage *storage.MetricsStorage
	pool    *WorkerPool
	ready   *readiness.Supervisor
	telem   *metrics.Metrics
	logger  *slog.Logger
}

// NewMetricsServer constructs a MetricsServer.
func NewMetricsServer(s *storage.MetricsStorage, pool *WorkerPool, ready *readiness.Supervisor, telem *metrics.Metrics, logger *slog.Logger) *MetricsServer {
	return &MetricsServer{storage: s, pool: pool, ready: ready, telem: telem, logger: logger}
}

// Export implements MetricsService.Export.
func (h *MetricsServer) Export(ctx context.Context, req *colmetricspb.ExportMetricsServiceRequest) (*colmetricspb.ExportMetricsServiceResponse, error) {
	if !h.ready.Ready() {
		return nil, status.Error(codes.Unavailable, "schema not ready")
	}
	if len(req.ResourceMetrics) == 0 {
		return nil, status.Error(codes.InvalidArgument, "export request must contain at least one resource metric")
	}

	batchID := ulid.New()
	logger := logging.WithBatch(h.logger, string(storage.SignalMetrics), batchID.String())
	start := time.Now()

	var outcome storage.Outcome
	err := h.pool.Do(func() error {
		batch := convertMetrics(req)
		var storeErr error
		outcome, storeErr = h.storage.Store(ctx, batch)
		return storeErr
	})
	h.telem.BatchDuration.WithLabelValues(string(storage.SignalMetrics)).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, h.fail(logger, storage.SignalMetrics, err)
	}

	h.recordOutcome(storage.SignalMetrics, outcome)
	logger.Info("batch stored",
		"received", outcome.RecordsReceived, "stored", outcome.RecordsStored, "dropped", outcome.RecordsDropped)
	return &colmetricspb.ExportMetricsServiceResponse{}, nil
}

// fail classifies a storage error into a gRPC status, incrementing the
// error counter and logging once at the boundary.
func (h *TraceServer) fail(logger *slog.Logger, signal storage.Signal, err error) error {
	return failAs(logger, h.telem, signal, err)
}

func (h *LogsServer) fail(logger *slog.Logger, signal storage.Signal, err error) error {
	return failAs(logger, h.telem, signal, err)
}

func (h *MetricsServer) fail(logger *slog.Logger, signal storage.Signal, err error) error {
	return failAs(logger, h.telem, signal, err)
}

func failAs(logger *slog.Logger, telem *metrics.Metrics, signal storage.Signal, err error) error {
	kind := ingesterrors.BatchTransient
	if ie, ok := ingesterrors.As(err); ok {
		kind = ie.Kind
	}
	telem.ErrorsTotal.WithLabelValues(string(kind), string(signal)).Inc()
	telem.BatchesTotal.WithLabelValues(string(signal), "error").Inc()
	logger.Error("batch failed", "kind", kind, "error", err)
	return status.Error(ingesterrors.GRPCCode(kind), err.Error())
}

func (h *TraceServer) recordOutcome(signal storage.Signal, outcome storage.Outcome) {
	recordOutcome(h.telem, signal, outcome)
}

func (h *LogsServer) recordOutcome(signal storage.Signal, outcome storage.Outcome) {
	recordOutcome(h.telem, signal, outcome)
}

func (h *MetricsServer) recordOutcome(signal storage.Signal, outcome storage.Outcome) {
	recordOutcome(h.telem, signal, outcome)
}

func recordOutcome(telem *metrics.Metrics, signal storage.Signal, outcome storage.Outcome) {
	telem.BatchesTotal.WithLabelValues(string(signal), "ok").Inc()
	telem.RecordsStoredTotal.WithLabelValues(string(signal)).Add(float64(outcome.RecordsStored))
	if outcome.RecordsDropped > 0 {
		telem.RecordsDroppedTotal.WithLabelValues(string(signal), "invalid").Add(float64(outcome.RecordsDropped))
	}
}

// RegisterServices registers all three OTLP signal services against srv.
func RegisterServices(srv *grpc.Server, traces *TraceServer, logs *LogsServer, metrics *MetricsServer) {
	coltracepb.RegisterTraceServiceServer(srv, traces)
	collogspb.RegisterLogsServiceServer(srv, logs)
	colmetricspb.RegisterMetricsServiceServer(srv, metrics)
}
