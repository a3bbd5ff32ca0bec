package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
)

// LogFields are the key/value pairs attached to a line. They share Watermill's
// representation so fields cross the transport boundary without copying.
type LogFields = watermill.LogFields

// ServiceLogger is what the engine, the hooks and the CLI log through.
type ServiceLogger interface {
	With(fields LogFields) ServiceLogger
	Debug(msg string, fields LogFields)
	Info(msg string, fields LogFields)
	Error(msg string, err error, fields LogFields)
}

// Watermill traces below slog's debug level; fold them into debug so a debug
// worker sees broker chatter.
var levelMapping = map[slog.Level]slog.Level{
	watermill.LevelTrace: slog.LevelDebug,
}

// ParseLevel maps a configured level name onto slog. "trace" is an alias for
// debug.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("phaseflow: unknown log level %q", level)
}

// New builds a ServiceLogger writing to w. format is "text" or "json".
func New(level, format string, w io.Writer) (ServiceLogger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("phaseflow: unknown log format %q", format)
	}
	return NewSlogServiceLogger(slog.New(handler)), nil
}

// NewSlogServiceLogger wraps a slog.Logger so it satisfies ServiceLogger.
func NewSlogServiceLogger(log *slog.Logger) ServiceLogger {
	if log == nil {
		panic("phaseflow: slog logger cannot be nil")
	}
	return &serviceLogger{inner: watermill.NewSlogLoggerWithLevelMapping(log, levelMapping)}
}

// Discard returns a ServiceLogger that drops every line.
func Discard() ServiceLogger {
	return &serviceLogger{inner: watermill.NopLogger{}}
}

type serviceLogger struct {
	inner watermill.LoggerAdapter
}

func (l *serviceLogger) With(fields LogFields) ServiceLogger {
	if len(fields) == 0 {
		return l
	}
	return &serviceLogger{inner: l.inner.With(fields)}
}

func (l *serviceLogger) Debug(msg string, fields LogFields) { l.inner.Debug(msg, fields) }
func (l *serviceLogger) Info(msg string, fields LogFields)  { l.inner.Info(msg, fields) }

func (l *serviceLogger) Error(msg string, err error, fields LogFields) {
	l.inner.Error(msg, err, fields)
}

// NewWatermillAdapter hands a ServiceLogger to the transports so broker logs
// reach the same sink. Loggers built by this package are unwrapped; others
// get their trace lines at debug.
func NewWatermillAdapter(log ServiceLogger) watermill.LoggerAdapter {
	if log == nil {
		panic("phaseflow: ServiceLogger cannot be nil")
	}
	if l, ok := log.(*serviceLogger); ok {
		return l.inner
	}
	return watermillAdapter{base: log}
}

type watermillAdapter struct {
	base ServiceLogger
}

func (a watermillAdapter) Error(msg string, err error, fields LogFields) {
	a.base.Error(msg, err, fields)
}

func (a watermillAdapter) Info(msg string, fields LogFields)  { a.base.Info(msg, fields) }
func (a watermillAdapter) Debug(msg string, fields LogFields) { a.base.Debug(msg, fields) }
func (a watermillAdapter) Trace(msg string, fields LogFields) { a.base.Debug(msg, fields) }

func (a watermillAdapter) With(fields LogFields) watermill.LoggerAdapter {
	return watermillAdapter{base: a.base.With(fields)}
}
