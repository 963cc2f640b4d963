package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mossburn/greenhouse-core/internal/infrastructure/config"
)

// Logger is the structured logger used throughout Greenhouse Core.
//
// It embeds slog.Logger, so the slog API (Info, Warn, Error, Debug with
// alternating key/value args) is available directly. Every record
// carries service and version attributes, which matters once several
// daemons share one log pipeline on the same box.
//
// Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from the logging section of config.yaml: level
// and format (json for collectors, text for a terminal) plus the output
// stream. Unrecognised values fall back to info/json/stdout rather
// than failing startup, since the logger has to exist before anything
// can report a config problem.
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		output = os.Stderr
	default:
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewJSONHandler(output, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "greenhouse"),
		slog.String("version", version),
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// parseLevel maps a config string to a slog.Level, defaulting to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// With returns a Logger whose records all carry the given key/value
// attributes. Long-lived components tag themselves once this way:
//
//	logger.With("component", "scheduler")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// Default returns a json/info/stdout logger for use before the config
// file has been read, and in tests that just need a logger.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
