// Package logging builds the zap logger every service binary shares.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production JSON logger writing to stdout, tagged with the
// service name so aggregated logs stay attributable.
func New(service string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stdout"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	cfg.InitialFields = map[string]any{"service": service}
	return cfg.Build()
}

// MustNew is New but panics when the logger cannot be built; only used
// during process startup.
func MustNew(service string) *zap.Logger {
	l, err := New(service)
	if err != nil {
		panic(err)
	}
	return l
}
