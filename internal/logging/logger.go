// Package logging builds the zap logger shared by every agent-panel component.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevelEnvVar overrides the configured level when set.
// Valid values: "debug", "info", "warn", "error", "off".
const LogLevelEnvVar = "AGENT_PANEL_LOG_LEVEL"

// New creates a logger for the given level and encoding ("console" or "json").
// The AGENT_PANEL_LOG_LEVEL environment variable takes precedence over level.
// Level "off" returns a no-op logger.
func New(level, encoding string) (*zap.Logger, error) {
	if env := os.Getenv(LogLevelEnvVar); env != "" {
		level = env
	}
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "off" {
		return zap.NewNop(), nil
	}

	zapLevel, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	if encoding == "" {
		encoding = "console"
	}
	if encoding != "console" && encoding != "json" {
		return nil, fmt.Errorf("unknown log encoding %q", encoding)
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         encoding,
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	if encoding == "console" {
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

func parseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}
