// Package logging builds the per-worker *zap.Logger spec.md treats as an
// external collaborator (logging/log formatting is explicitly out of
// scope for the core per spec.md §1), wired with go.uber.org/zap for
// structured logging and gopkg.in/natefinch/lumberjack.v2 for log file
// rotation, per SPEC_FULL.md §4.10.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/config"
)

// New builds a *zap.Logger from a config.Logging block, namespaced with
// the caller-supplied fields (the worker passes its PID). Console
// output uses a human-readable encoder; file output (when cfg.File is
// set) uses JSON via a lumberjack-backed rotating writer. The returned
// func closes the rotating writer(s); call it when the logger is no
// longer needed.
func New(cfg config.Logging, fields ...zap.Field) (*zap.Logger, func(), error) {
	level := parseLevel(cfg.MinLevel)

	var cores []zapcore.Core
	var closers []func()

	if !cfg.Enabled {
		return zap.NewNop(), func() {}, nil
	}

	consoleEncoder := zapcore.NewConsoleEncoder(consoleEncoderConfig())
	cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), level))

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    100, // megabytes
			MaxBackups: 7,
			MaxAge:     28, // days
			Compress:   true,
		}
		jsonEncoder := zapcore.NewJSONEncoder(jsonEncoderConfig())
		cores = append(cores, zapcore.NewCore(jsonEncoder, zapcore.AddSync(rotator), level))
		closers = append(closers, func() { _ = rotator.Close() })
	}

	if cfg.ErrorFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.ErrorFile,
			MaxSize:    100,
			MaxBackups: 7,
			MaxAge:     28,
			Compress:   true,
		}
		jsonEncoder := zapcore.NewJSONEncoder(jsonEncoderConfig())
		errOnly := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= zapcore.ErrorLevel })
		cores = append(cores, zapcore.NewCore(jsonEncoder, zapcore.AddSync(rotator), errOnly))
		closers = append(closers, func() { _ = rotator.Close() })
	}

	logger := zap.New(zapcore.NewTee(cores...)).With(fields...)

	return logger, func() {
		_ = logger.Sync()
		for _, c := range closers {
			c()
		}
	}, nil
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	return ec
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	return ec
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "":
		return zapcore.InfoLevel
	default:
		return zapcore.InfoLevel
	}
}
