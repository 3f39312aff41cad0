package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riskibarqy/football-etl/internal/app"
	"github.com/riskibarqy/football-etl/internal/config"
	"github.com/riskibarqy/football-etl/internal/observability"
	"github.com/riskibarqy/football-etl/internal/platform/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		logging.NewJSON(logging.LevelError, "football-etl").Error("load config", "error", err)
		return 1
	}

	logger := logging.NewJSON(cfg.LogLevel, cfg.ServiceName).Named("pipeline")
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("shutdown uptrace", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := app.NewPipeline(ctx, cfg, nil, logger)
	if err != nil {
		logger.Error("build pipeline", "error", err)
		return 1
	}

	report, err := svc.Run(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "pipeline run failed", "error", err, "run_id", report.RunID, "state", string(report.State))
		return 1
	}

	logger.InfoContext(ctx, "pipeline run committed",
		"run_id", report.RunID,
		"tables", len(report.Tables),
		"duration", report.FinishedAt.Sub(report.StartedAt).String(),
	)
	return 0
}
