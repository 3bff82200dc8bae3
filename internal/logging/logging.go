// Package logging builds the process-wide zap logger.
// This package is internal and should not be imported by external projects.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// =============================================================================
// 🔧 Logger construction
// =============================================================================

// Config describes the console sink and the optional rotating file sink.
type Config struct {
	// Level: debug, info, warning, error (case-insensitive)
	Level string
	// File enables the file sink when non-empty
	File string
	// RotationMB rotates the file once it reaches this size
	RotationMB int
	// RetentionDays deletes rotated files older than this
	RetentionDays int
	// Compress gzips rotated files
	Compress bool
	// NoColor disables ANSI level colors on the console sink
	NoColor bool
}

// DefaultConfig mirrors the defaults of the settings layer.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		RotationMB:    500,
		RetentionDays: 10,
		Compress:      true,
	}
}

// New builds a logger with a colorized console core and, if cfg.File is set,
// a JSON file core backed by lumberjack. Both cores share the same level.
func New(cfg Config) (*zap.Logger, error) {
	return build(cfg, zapcore.Lock(os.Stdout))
}

func build(cfg Config, console zapcore.WriteSyncer) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(ParseLevel(cfg.Level))

	consoleEnc := zap.NewDevelopmentEncoderConfig()
	consoleEnc.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	consoleEnc.ConsoleSeparator = " | "
	if cfg.NoColor {
		consoleEnc.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		consoleEnc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEnc), console, level),
	}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		fileEnc := zap.NewProductionEncoderConfig()
		fileEnc.TimeKey = "timestamp"
		fileEnc.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(fileEnc),
			zapcore.AddSync(&lumberjack.Logger{
				Filename: cfg.File,
				MaxSize:  cfg.RotationMB,
				MaxAge:   cfg.RetentionDays,
				Compress: cfg.Compress,
			}),
			level,
		))
	}

	logger := zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	logger.Info(fmt.Sprintf("Logger initialized with level: %s", strings.ToUpper(level.String())))
	return logger, nil
}

// =============================================================================
// 🎚️ Level resolution
// =============================================================================

// ParseLevel maps a configured sink level to a zap level. It also accepts
// "trace" and "critical". Unknown names resolve to info.
func ParseLevel(name string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug", "trace":
		return zapcore.DebugLevel
	case "info", "":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error", "critical":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// MessageLevel resolves the level of a single message. Only debug, info,
// warning (or warn) and error are recognized; every other name is info.
func MessageLevel(name string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Emit writes msg at the level named by MessageLevel. A nil logger drops the
// entry. Emit is meant to be called from a one-frame helper: the reported
// caller is the helper's caller.
func Emit(logger *zap.Logger, level, msg string) {
	if logger == nil {
		return
	}
	if ce := logger.WithOptions(zap.AddCallerSkip(2)).Check(MessageLevel(level), msg); ce != nil {
		ce.Write()
	}
}
