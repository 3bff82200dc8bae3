package main

import (
	"context"
	"flag"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/BaSui01/agentscaffold/internal/metrics"
	"github.com/BaSui01/agentscaffold/internal/server"
	"github.com/BaSui01/agentscaffold/internal/telemetry"
)

// =============================================================================
// 🖥️ serve command
// =============================================================================

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "Path to config file")
	envFile := fs.String("env-file", ".env", "Path to dotenv file")
	storeKind := fs.String("store", storeMemory, "Checkpoint store: none, memory, redis, sql")
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := loadSettings(*configPath, *envFile)
	if err != nil {
		return err
	}
	logger, err := initLogger(settings)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting agentscaffold",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("environment", settings.Environment),
	)

	providers, err := telemetry.Init(settings.Telemetry, logger,
		telemetry.WithEnvironment(settings.Environment),
		telemetry.WithServiceVersion(Version),
	)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	} else {
		defer func() { _ = providers.Shutdown(context.Background()) }()
	}

	store, err := openStore(*storeKind, settings, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	checks := map[string]server.Checker{}
	if store.Check != nil {
		checks[*storeKind] = store.Check
	}

	collector := metrics.NewCollector("agentscaffold", prometheus.DefaultRegisterer, logger)
	runner := newDemoRunner(demoDeps{
		Logger:         logger,
		Metrics:        collector,
		Checkpointer:   store.CheckpointStore,
		RecursionLimit: settings.Workflow.RecursionLimit,
	})

	handler := server.NewHandler(server.HandlerOptions{
		Run: func(ctx context.Context, req server.RunRequest) (any, error) {
			return executeDemo(ctx, runner, req.Input, req.ThreadID, false)
		},
		Metrics: collector.Handler(),
		Checks:  checks,
		Logger:  logger,
	})

	cfg := server.DefaultConfig()
	cfg.Addr = settings.App.Addr()
	manager := server.NewManager(handler, cfg, logger)
	if err := manager.Start(); err != nil {
		return err
	}

	err = manager.WaitForShutdown(ctx)
	logger.Info("agentscaffold stopped")
	return err
}
