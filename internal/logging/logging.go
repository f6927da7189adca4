package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"settings-service/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the service logger. With a directory configured it appends to
// one file per day, log_YYYY-MM-DD.log; otherwise it writes to stdout.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	zapConfig.EncoderConfig.TimeKey = "time"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.OutputPaths = []string{"stdout"}

	if cfg.Directory != "" {
		path, err := dailyLogFile(cfg.Directory, time.Now())
		if err != nil {
			return nil, err
		}
		zapConfig.OutputPaths = []string{path}
	}

	return zapConfig.Build()
}

func dailyLogFile(dir string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}
	return filepath.Join(dir, fmt.Sprintf("log_%s.log", now.Format("2006-01-02"))), nil
}

// OrNop returns logger, or a no-op logger when it is nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
