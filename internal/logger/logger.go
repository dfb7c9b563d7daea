// Package logger builds the process logger: log/slog on top of a
// charmbracelet/log handler.
package logger

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// ParseLevel maps debug, info, warn and error to a level; anything else is info
func ParseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// New creates a slog logger writing to w at the given level
func New(level string, w io.Writer) *slog.Logger {
	handler := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           ParseLevel(level),
	})
	return slog.New(handler)
}

// WithComponent tags records with a component prefix
func WithComponent(l *slog.Logger, name string) *slog.Logger {
	return l.With("component", name)
}
