// Package log configures the process-wide slog logger for the strato daemons.
package log

import (
	"log/slog"
	"os"
)

// Setup installs a text handler on stderr at the requested level as the
// default slog logger. Unknown levels fall back to info.
func Setup(logLevel string) {
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// WithModule returns a logger tagged with the daemon or subsystem name.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
