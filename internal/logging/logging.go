// Package logging configures the zap logger used across corpus-fetch,
// adapted from antfly-go's libaf/logging package.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level names accepted by --log-level, per spec.md §6.
const (
	Debug   = "DEBUG"
	Info    = "INFO"
	Warning = "WARNING"
	Error   = "ERROR"
)

// New builds a console-encoded zap logger at the requested level. An
// unrecognized level falls back to Info rather than failing the run.
func New(level string) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		// zap's own development config is never expected to fail to build;
		// fall back to a no-op logger rather than panic mid-run.
		return zap.NewNop()
	}
	return logger
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case Debug:
		return zapcore.DebugLevel
	case Info, "":
		return zapcore.InfoLevel
	case Warning, "WARN":
		return zapcore.WarnLevel
	case Error:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
