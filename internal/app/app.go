// Package app wires the ingestion core's components into a running
// process: configuration, both database pools, the dimension and
// attribute-routing machinery, the three signal storages, the receiver
// services, and the readiness supervisor.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ryanfaircloth/ollyscale-sub000/internal/config"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/infrastructure/database"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/dimensions"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/keys"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/metrics"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/promotion"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/readiness"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/receiver"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/router"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/storage"
	grpctransport "github.com/ryanfaircloth/ollyscale-sub000/internal/transport/grpc"
	httptransport "github.com/ryanfaircloth/ollyscale-sub000/internal/transport/http"
)

// App holds every long-lived component the ingestion core runs, assembled
// once at startup and torn down once at shutdown.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Pools     *database.Pools
	Readiness *readiness.Supervisor
	Registry  *prometheus.Registry
	Telemetry *metrics.Metrics

	GRPCServer *grpctransport.Server
	HTTPServer *httptransport.Server
}

// New assembles the ingestion core's components from cfg. It opens both
// database pools and starts the readiness supervisor but does not apply
// migrations — that is cmd/migrate's job.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	pools, err := database.NewPools(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database pools: %w", err)
	}

	policy, err := promotion.Load(cfg.Promotion.BasePath, cfg.Promotion.OverridePath)
	if err != nil {
		pools.Close()
		return nil, fmt.Errorf("loading promotion policy: %w", err)
	}

	registry := prometheus.NewRegistry()
	telemetry := metrics.New(registry)

	keyRegistry, err := keys.New(pools.Autocommit)
	if err != nil {
		pools.Close()
		return nil, fmt.Errorf("constructing attribute key registry: %w", err)
	}

	dimCfg := dimensions.Config{
		LastSeenThreshold: cfg.Dimensions.LastSeenThreshold,
		CacheTTL:          cfg.Dimensions.CacheTTL,
	}
	dims := dimensions.New(pools.Autocommit, dimCfg, time.Now)
	metricDims := dimensions.NewMetricManager(pools.Autocommit, dimCfg, time.Now)

	attrRouter := router.New(policy, keyRegistry)

	orchestrator := &storage.Orchestrator{
		Autocommit:    pools.Autocommit,
		Transactional: pools.Transactional,
		Dims:          dims,
		Keys:          keyRegistry,
		Router:        attrRouter,
		Metrics:       telemetry,
		Logger:        logger,
	}

	tracesStorage := storage.NewTracesStorage(orchestrator)
	logsStorage := storage.NewLogsStorage(orchestrator)
	metricsStorage := storage.NewMetricsStorage(orchestrator, metricDims)

	sup := readiness.New(pools.Transactional, cfg.Database.MigrationsTable, cfg.Health.CheckInterval, logger)
	go sup.Run(ctx)

	pool := receiver.NewWorkerPool(cfg.Workers.PoolSize)
	traceServer := receiver.NewTraceServer(tracesStorage, pool, sup, telemetry, logger)
	logsServer := receiver.NewLogsServer(logsStorage, pool, sup, telemetry, logger)
	metricsServer := receiver.NewMetricsServer(metricsStorage, pool, sup, telemetry, logger)

	grpcServer, err := grpctransport.NewServer(
		ctx, cfg.GRPC.Port, traceServer, logsServer, metricsServer, sup, cfg.Health.CheckInterval, logger,
	)
	if err != nil {
		pools.Close()
		return nil, fmt.Errorf("constructing gRPC server: %w", err)
	}

	httpServer := httptransport.NewServer(cfg.HTTP.Port, registry, sup, logger)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Pools:      pools,
		Readiness:  sup,
		Registry:   registry,
		Telemetry:  telemetry,
		GRPCServer: grpcServer,
		HTTPServer: httpServer,
	}, nil
}

// Run starts the gRPC and observability HTTP servers and blocks until
// either stops or ctx is done, then gracefully shuts both down.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)
	go func() { errCh <- a.GRPCServer.Start() }()
	go func() { errCh <- a.HTTPServer.Start() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		grpcErr := a.GRPCServer.Shutdown(shutdownCtx)
		httpErr := a.HTTPServer.Shutdown(shutdownCtx)
		if grpcErr != nil {
			return grpcErr
		}
		return httpErr
	case err := <-errCh:
		return err
	}
}

// Close releases the database pools. Safe to call after Run returns.
func (a *App) Close() {
	a.Pools.Close()
}
