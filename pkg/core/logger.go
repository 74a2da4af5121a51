package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger provides leveled, structured logging.
// Implementations must be safe for concurrent use by workers.
type Logger interface {
	// Error logs an error message
	Error(args ...interface{})

	// Errorf logs a formatted error message
	Errorf(format string, args ...interface{})

	// Warn logs a warning message
	Warn(args ...interface{})

	// Warnf logs a formatted warning message
	Warnf(format string, args ...interface{})

	// Info logs an informational message
	Info(args ...interface{})

	// Infof logs a formatted informational message
	Infof(format string, args ...interface{})

	// Debug logs a debug message
	Debug(args ...interface{})

	// Debugf logs a formatted debug message
	Debugf(format string, args ...interface{})

	// WithFields returns a logger that attaches fields to every record
	WithFields(fields map[string]interface{}) Logger
}

// slogLogger implements Logger on top of log/slog.
type slogLogger struct {
	l *slog.Logger
}

// NewDefaultLogger creates a text logger on stderr at info level.
func NewDefaultLogger() Logger {
	return NewLoggerAtLevel(os.Stderr, "info")
}

// NewLoggerAtLevel creates a text logger writing to w at the named level
// (debug, info, warn, error). Unknown levels fall back to info.
func NewLoggerAtLevel(w io.Writer, level string) Logger {
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// NewLogger wraps an arbitrary slog.Handler.
func NewLogger(h slog.Handler) Logger {
	return &slogLogger{l: slog.New(h)}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (s *slogLogger) log(level slog.Level, msg string) {
	s.l.Log(context.Background(), level, msg)
}

func (s *slogLogger) Error(args ...interface{}) { s.log(slog.LevelError, fmt.Sprint(args...)) }

func (s *slogLogger) Errorf(format string, args ...interface{}) {
	s.log(slog.LevelError, fmt.Sprintf(format, args...))
}

func (s *slogLogger) Warn(args ...interface{}) { s.log(slog.LevelWarn, fmt.Sprint(args...)) }

func (s *slogLogger) Warnf(format string, args ...interface{}) {
	s.log(slog.LevelWarn, fmt.Sprintf(format, args...))
}

func (s *slogLogger) Info(args ...interface{}) { s.log(slog.LevelInfo, fmt.Sprint(args...)) }

func (s *slogLogger) Infof(format string, args ...interface{}) {
	s.log(slog.LevelInfo, fmt.Sprintf(format, args...))
}

func (s *slogLogger) Debug(args ...interface{}) { s.log(slog.LevelDebug, fmt.Sprint(args...)) }

func (s *slogLogger) Debugf(format string, args ...interface{}) {
	s.log(slog.LevelDebug, fmt.Sprintf(format, args...))
}

func (s *slogLogger) WithFields(fields map[string]interface{}) Logger {
	if len(fields) == 0 {
		return s
	}
	attrs := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		attrs = append(attrs, k, v)
	}
	return &slogLogger{l: s.l.With(attrs...)}
}
