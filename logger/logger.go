package logger

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger - Replace the global zap logger. With an empty logPath nothing
// is written, since stdout carries the MCP protocol.
func InitLogger(debug bool, logPath string) error {
	if logPath == "" {
		zap.ReplaceGlobals(zap.NewNop())
		return nil
	}

	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{logPath}
	cfg.ErrorOutputPaths = []string{logPath}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return errors.Wrapf(err, "failed to build logger writing to %s", logPath)
	}

	zap.ReplaceGlobals(l)
	return nil
}

// Sync flushes the global logger
func Sync() {
	_ = zap.L().Sync()
}
