// Copyright (c) 2025 A Bit of Help, Inc.

// Package logger builds the zap logger used by the CLI and the engine
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLevel is used when no level is configured
const DefaultLevel = "info"

// Config selects the level and encoding for New
type Config struct {
	// Level is one of debug, info, warn, error
	Level string

	// Console switches from JSON to the human readable console encoder
	Console bool
}

// New builds a production zap logger with ISO8601 timestamps under the
// "timestamp" key. An unknown level is an error.
func New(cfg Config) (*zap.Logger, error) {
	levelName := strings.TrimSpace(cfg.Level)
	if levelName == "" {
		levelName = DefaultLevel
	}
	level, err := zap.ParseAtomicLevel(strings.ToLower(levelName))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	config := zap.NewProductionConfig()
	config.Level = level
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Console {
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// SafeSync syncs the logger and ignores "bad file descriptor" and "invalid
// argument" errors which show up when stderr is a terminal or already closed
func SafeSync(logger *zap.Logger) {
	if logger == nil {
		return
	}

	if err := logger.Sync(); err != nil && !ignorableSyncError(err) {
		// Can't use logger here as we're syncing it
		fmt.Fprintf(os.Stderr, "Failed to sync logger: %v\n", err)
	}
}

func ignorableSyncError(err error) bool {
	msg := err.Error()
	return strings.HasSuffix(msg, "bad file descriptor") ||
		strings.HasSuffix(msg, "invalid argument") ||
		strings.HasSuffix(msg, "inappropriate ioctl for device")
}
