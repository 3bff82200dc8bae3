package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/BaSui01/agentscaffold/config"
	"github.com/BaSui01/agentscaffold/internal/checkpoint"
	"github.com/BaSui01/agentscaffold/internal/metrics"
	"github.com/BaSui01/agentscaffold/internal/server"
	"github.com/BaSui01/agentscaffold/internal/telemetry"
	"github.com/BaSui01/agentscaffold/types"
	"github.com/BaSui01/agentscaffold/workflow"
)

// Checkpoint store kinds accepted by --store.
const (
	storeNone   = "none"
	storeMemory = "memory"
	storeRedis  = "redis"
	storeSQL    = "sql"
)

// =============================================================================
// ▶️ run command
// =============================================================================

// runResult is printed by the run command.
type runResult struct {
	ThreadID string         `json:"thread_id,omitempty"`
	State    workflow.State `json:"state"`
}

func runWorkflow(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "Path to config file")
	envFile := fs.String("env-file", ".env", "Path to dotenv file")
	input := fs.String("input", "Hello!", "Human message to send")
	storeKind := fs.String("store", storeNone, "Checkpoint store: none, memory, redis, sql")
	threadID := fs.String("thread", "", "Thread ID for checkpoints")
	resume := fs.Bool("resume", false, "Resume the thread from its latest checkpoint")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *resume && (*threadID == "" || *storeKind == storeNone) {
		return types.NewValidationError("--resume requires --thread and a persistent --store")
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

	providers, err := telemetry.Init(settings.Telemetry, logger,
		telemetry.WithEnvironment(settings.Environment),
		telemetry.WithServiceVersion(Version),
	)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	} else {
		defer func() { _ = providers.Shutdown(context.Background()) }()
	}

	if *storeKind != storeNone && *threadID == "" {
		*threadID = uuid.NewString()
	}

	store, err := openStore(*storeKind, settings, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	runner := newDemoRunner(demoDeps{
		Logger:         logger,
		Metrics:        metrics.NewCollector("agentscaffold", prometheus.NewRegistry(), logger),
		Checkpointer:   store.CheckpointStore,
		RecursionLimit: settings.Workflow.RecursionLimit,
	})

	result, err := executeDemo(ctx, runner, *input, *threadID, *resume)
	if err != nil {
		return err
	}
	return writeJSON(out, result)
}

func executeDemo(ctx context.Context, runner *workflow.Runner[workflow.State], input, threadID string, resume bool) (runResult, error) {
	if resume {
		state, err := runner.Resume(ctx, threadID)
		return runResult{ThreadID: threadID, State: state}, err
	}

	if threadID != "" {
		ctx = types.WithThreadID(ctx, threadID)
	}
	state, err := runner.Run(ctx, workflow.State{
		Messages: []types.Message{types.NewHumanMessage(input)},
	})
	return runResult{ThreadID: threadID, State: state}, err
}

// =============================================================================
// 💾 Checkpoint store selection
// =============================================================================

// storeHandle is a checkpoint store plus its health check and cleanup.
type storeHandle struct {
	workflow.CheckpointStore
	Check server.Checker
	close func() error
}

func (h *storeHandle) Close() {
	if h.close != nil {
		_ = h.close()
	}
}

func openStore(kind string, s *config.Settings, logger *zap.Logger) (*storeHandle, error) {
	switch kind {
	case "", storeNone:
		return &storeHandle{}, nil

	case storeMemory:
		return &storeHandle{CheckpointStore: workflow.NewMemoryCheckpointStore()}, nil

	case storeRedis:
		client, err := checkpoint.DialRedis(s.Redis, logger)
		if err != nil {
			return nil, err
		}
		rs := checkpoint.NewRedisStore(client, s.ProjectName+":", 0, logger)
		return &storeHandle{CheckpointStore: rs, Check: rs.Ping, close: client.Close}, nil

	case storeSQL:
		if dir := sqliteDir(s.Database); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database dir: %w", err)
			}
		}
		db, err := checkpoint.OpenSQL(s.Database, logger)
		if err != nil {
			return nil, err
		}
		ss, err := checkpoint.NewSQLStore(db, logger)
		if err != nil {
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				_ = sqlDB.Close()
			}
			return nil, err
		}
		return &storeHandle{CheckpointStore: ss, Check: ss.Ping, close: ss.Close}, nil

	default:
		return nil, types.NewValidationError(fmt.Sprintf("unknown checkpoint store %q", kind))
	}
}

// sqliteDir returns the directory of a file-backed SQLite DSN, or "" for other
// drivers and in-memory databases.
func sqliteDir(cfg config.DatabaseConfig) string {
	switch strings.ToLower(cfg.Driver) {
	case "sqlite", "sqlite3":
	default:
		return ""
	}

	path := strings.TrimPrefix(cfg.DSN, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || strings.Contains(path, ":memory:") || strings.Contains(cfg.DSN, "mode=memory") {
		return ""
	}
	return filepath.Dir(path)
}
