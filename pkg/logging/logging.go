package logging

import (
	"github.com/canopy-network/nodedist/pkg/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. LOG_LEVEL (debug, info, warn, error) and LOG_ENCODING
// (json, console) select level and encoder. The service name is attached to every entry.
func New(service string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(utils.Env("LOG_LEVEL", "info"))
	if err != nil || level > zapcore.ErrorLevel {
		level = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Development = level == zapcore.DebugLevel
	cfg.Encoding = utils.Env("LOG_ENCODING", "json")
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	enc := &cfg.EncoderConfig
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Encoding == "console" {
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if service != "" {
		l = l.With(zap.String("service", service))
	}
	return l, nil
}
