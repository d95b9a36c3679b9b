// Package log provides structured diagnostics for facegate.
// User-facing status lines are printed by the ui package; this is for the rest.
package log

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	logger *slog.Logger
	mu     sync.Mutex
)

// ParseLevel maps "debug", "info", "warn", "error" to a slog level.
// Anything else is info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init installs the global logger at the given level, writing to stderr.
func Init(level string) {
	InitWriter(os.Stderr, level)
}

// InitWriter installs the global logger writing to w.
// JSON is used when GO_ENV=production, text otherwise.
func InitWriter(w io.Writer, level string) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var l *slog.Logger
	if os.Getenv("GO_ENV") == "production" {
		l = slog.New(slog.NewJSONHandler(w, opts))
	} else {
		l = slog.New(slog.NewTextHandler(w, opts))
	}

	mu.Lock()
	logger = l
	mu.Unlock()
}

// L returns the global logger instance.
func L() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	return logger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

