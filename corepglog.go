package corepg

import (
	"log/slog"
	"os"
	"sync"
)

// Logger wraps slog.Logger with a dynamically adjustable level, used
// at Debug severity for Sink reassembly events, Fiber lifecycle
// transitions, and Grammar.Finalize timing.
type Logger struct {
	slog  *slog.Logger
	level *slog.LevelVar
}

var (
	defaultLogger     *Logger
	defaultLoggerOnce sync.Once
)

// NewLogger returns a Logger writing JSON-formatted records to w at
// the given level ("debug", "info", "warn", or "error"; anything else
// is treated as "info").
func NewLogger(w *os.File, level string) *Logger {
	lv := &slog.LevelVar{}
	lv.Set(parseLevel(level))
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lv})
	return &Logger{slog: slog.New(handler), level: lv}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug", "DEBUG":
		return slog.LevelDebug
	case "warn", "WARN", "warning":
		return slog.LevelWarn
	case "error", "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DefaultLogger returns the process-wide Logger, writing to stderr at
// info level, creating it on first use.
func DefaultLogger() *Logger {
	defaultLoggerOnce.Do(func() {
		defaultLogger = NewLogger(os.Stderr, "info")
	})
	return defaultLogger
}

// SetDefaultLogger replaces the process-wide Logger.
func SetDefaultLogger(l *Logger) { defaultLogger = l }

// SetLevel adjusts the logger's minimum severity without replacing
// its handler.
func (l *Logger) SetLevel(level string) { l.level.Set(parseLevel(level)) }

// With returns a child Logger that always includes the given
// key/value attributes, e.g. a grammar name or production symbol.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...), level: l.level}
}

func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.slog.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.slog.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// Slog returns the underlying slog.Logger, for callers that want to
// pass it on to another library expecting one.
func (l *Logger) Slog() *slog.Logger { return l.slog }
