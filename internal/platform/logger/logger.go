package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/phrazzld/genpoll/internal/config"
)

// ParseLevel converts a configured level name (case-insensitive) into a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// New creates a JSON logger writing to w at the given level name.
// Unknown level names fall back to info and the fallback is logged.
func New(w io.Writer, levelName string) *slog.Logger {
	level, err := ParseLevel(levelName)

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	if err != nil {
		logger.Warn("invalid log level configured, using default level",
			"configured_level", levelName,
			"default_level", "info")
	}
	return logger
}

// Setup initializes the application's logging system from the server
// configuration. It creates a structured JSON logger on stdout, sets it as
// the default slog logger, and returns it.
func Setup(cfg config.ServerConfig) (*slog.Logger, error) {
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	logger := New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	return logger, nil
}
