package headermapper

import (
	"context"
	"fmt"
	"log/slog"
)

// Logger interface for logging (can be implemented by any logger)
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
}

// NoOpLogger is a no-operation logger
type NoOpLogger struct{}

func (n NoOpLogger) Debug(args ...interface{}) {}
func (n NoOpLogger) Info(args ...interface{})  {}
func (n NoOpLogger) Warn(args ...interface{})  {}
func (n NoOpLogger) Error(args ...interface{}) {}

// SlogLogger adapts a *slog.Logger to Logger. The first argument becomes the
// message; the rest are passed as slog attributes.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps logger, falling back to slog.Default when nil
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger}
}

func (l *SlogLogger) Debug(args ...interface{}) { l.log(slog.LevelDebug, args) }
func (l *SlogLogger) Info(args ...interface{})  { l.log(slog.LevelInfo, args) }
func (l *SlogLogger) Warn(args ...interface{})  { l.log(slog.LevelWarn, args) }
func (l *SlogLogger) Error(args ...interface{}) { l.log(slog.LevelError, args) }

func (l *SlogLogger) log(level slog.Level, args []interface{}) {
	ctx := context.Background()
	if !l.logger.Enabled(ctx, level) {
		return
	}
	if len(args) == 0 {
		l.logger.Log(ctx, level, "")
		return
	}
	msg, ok := args[0].(string)
	if !ok {
		msg = fmt.Sprint(args[0])
	}
	l.logger.Log(ctx, level, msg, args[1:]...)
}
