// Package main is the entry point for the OTLP ingestion core: a gRPC
// server accepting trace, log, and metric Export RPCs and an
// observability HTTP mux exposing /metrics, /healthz, and /readyz.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/ryanfaircloth/ollyscale-sub000/internal/app"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/config"
	"github.com/ryanfaircloth/ollyscale-sub000/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := logging.NewLoggerWithFormat(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", "error", err)
		log.Fatalf("failed to initialize application: %v", err)
	}
	defer application.Close()

	logger.Info("starting ingestion core", "environment", cfg.Environment, "grpc_port", cfg.GRPC.Port, "http_port", cfg.HTTP.Port)

	if err := application.Run(ctx); err != nil {
		logger.Error("application stopped with error", "error", err)
		fmt.Println("ingestion core stopped with error:", err)
		return
	}

	logger.Info("ingestion core stopped")
}
