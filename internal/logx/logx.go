// Package logx builds the structured logger used throughout the
// pipeline. The teacher's go.mod already requires go.uber.org/zap but no
// package in the teacher tree imports it; this wires it into an actual
// component instead of leaving it dead weight.
package logx

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mgpai22/subtrans/internal/events"
)

// New builds a SugaredLogger from zap's development config (console
// encoding with caller info) at info level, or at debug level with
// stack traces when debug is true.
func New(debug bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		cfg.DisableStacktrace = true
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// ConnectBus subscribes log, warn, and error handlers to bus's
// info/warning/error signals, the Go equivalent of
// TranslationEvents.connect_logger.
func ConnectBus(bus *events.Bus, log *zap.SugaredLogger) {
	bus.OnInfo(func(message string) { log.Info(message) })
	bus.OnWarning(func(message string) { log.Warn(message) })
	bus.OnError(func(message string) { log.Error(message) })
}
