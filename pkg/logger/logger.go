// Package logger owns the process-wide zap logger. It is a no-op until InitWithOptions runs.
package logger

import (
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var global atomic.Pointer[zap.Logger]

func init() {
	global.Store(zap.NewNop())
}

type Options struct {
	// Level is a zap level name. Unknown values mean info.
	Level string
	// Format is "json" (default) or "console".
	Format string
}

// InitWithOptions builds a logger from opts and installs it globally.
func InitWithOptions(opts Options) error {
	built, err := build(opts)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	Replace(built)
	return nil
}

func build(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.TrimSpace(opts.Level))
	if err != nil {
		level = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if strings.EqualFold(strings.TrimSpace(opts.Format), "console") {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}

// Replace installs l as the global logger; nil installs a no-op logger.
func Replace(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	global.Store(l)
}

func Logger() *zap.Logger {
	return global.Load()
}

func Sync() error {
	return Logger().Sync()
}

// WithModule tags entries with the emitting component.
func WithModule(module string) *zap.Logger {
	return Logger().With(zap.String("module", module))
}
