// =============================================================================
// agentscaffold entry point
// =============================================================================
// Usage:
//
//	agentscaffold run --input "hello"               # run the demo workflow
//	agentscaffold run --store redis --thread t1      # persist checkpoints
//	agentscaffold serve --config config.yaml         # serve health, metrics and runs
//	agentscaffold config                             # print effective settings
//	agentscaffold version
// =============================================================================
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/BaSui01/agentscaffold/config"
	"github.com/BaSui01/agentscaffold/internal/logging"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "run":
		err = runWorkflow(ctx, os.Args[2:], os.Stdout)
	case "serve":
		err = runServe(ctx, os.Args[2:])
	case "config":
		err = runConfig(os.Args[2:], os.Stdout)
	case "version":
		printVersion(os.Stdout)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// 📋 config / version / help
// =============================================================================

func runConfig(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "Path to config file")
	envFile := fs.String("env-file", ".env", "Path to dotenv file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := loadSettings(*configPath, *envFile)
	if err != nil {
		return err
	}
	return writeJSON(out, settings.Sanitized())
}

func printVersion(out io.Writer) {
	fmt.Fprintf(out, "agentscaffold %s\n", Version)
	fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, `agentscaffold - LLM agent workflow scaffold

Usage:
  agentscaffold <command> [options]

Commands:
  run       Run the demo workflow once and print the final state
  serve     Serve /healthz, /metrics and POST /v1/run
  config    Print effective settings (secrets redacted)
  version   Show version information
  help      Show this help message

Common options:
  --config <path>     YAML config file (default config.yaml, optional)
  --env-file <path>   dotenv file (default .env, optional)

Options for 'run':
  --input <text>      Human message to send (default "Hello!")
  --store <kind>      Checkpoint store: none, memory, redis, sql (default none)
  --thread <id>       Thread ID for checkpoints
  --resume            Resume the thread from its latest checkpoint

Options for 'serve':
  --store <kind>      Checkpoint store: none, memory, redis, sql (default memory)`)
}

// =============================================================================
// 🔧 Shared setup
// =============================================================================

func loadSettings(configPath, envFile string) (*config.Settings, error) {
	return config.NewLoader().
		WithConfigPath(configPath).
		WithEnvFile(envFile).
		Load()
}

// initLogger builds the process logger.
func initLogger(s *config.Settings) (*zap.Logger, error) {
	cfg, err := loggingConfig(s)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg)
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("project", s.ProjectName)), nil
}

// loggingConfig maps settings to the logger config. A relative log file is
// placed in the logs directory and production consoles are not colorized.
func loggingConfig(s *config.Settings) (logging.Config, error) {
	cfg := logging.Config{
		Level:         s.LogLevel,
		File:          s.Log.File,
		RotationMB:    s.Log.RotationMB,
		RetentionDays: s.Log.RetentionDays,
		Compress:      s.Log.Compress,
		NoColor:       s.IsProduction(),
	}
	if cfg.File != "" && !filepath.IsAbs(cfg.File) {
		dir, err := s.LogsDir()
		if err != nil {
			return logging.Config{}, err
		}
		cfg.File = filepath.Join(dir, cfg.File)
	}
	return cfg, nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
