package app

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/heartmarshall/proposal-backend/internal/config"
)

// NewLogger creates the process logger from cfg, writes to os.Stderr and
// installs it as the slog default.
//
// Format "json" produces structured JSON output (production).
// Format "text" produces human-readable output with source info (development).
// Level is one of: debug, info, warn (or warning), error (case-insensitive);
// defaults to info.
func NewLogger(cfg config.LogConfig) *slog.Logger {
	logger := newLogger(os.Stderr, cfg)
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: strings.EqualFold(cfg.Format, "text"),
	}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// driverLogLevel returns the level driver command events are logged at.
// ok is false when the driver log is off, the default.
func driverLogLevel(cfg config.LogConfig) (level slog.Level, ok bool) {
	switch strings.ToLower(strings.TrimSpace(cfg.DriverLevel)) {
	case "", "off":
		return 0, false
	}
	return parseLevel(cfg.DriverLevel), true
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
