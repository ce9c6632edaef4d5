package mongo

import (
	"context"
	"log/slog"
)

// logSink forwards driver log messages to slog. Driver errors are always
// logged at error level; every other message at the configured level.
type logSink struct {
	log   *slog.Logger
	level slog.Level
}

func newLogSink(log *slog.Logger, level slog.Level) *logSink {
	return &logSink{log: log.With("source", "driver"), level: level}
}

func (s *logSink) Info(_ int, msg string, keysAndValues ...any) {
	s.log.Log(context.Background(), s.level, msg, keysAndValues...)
}

func (s *logSink) Error(err error, msg string, keysAndValues ...any) {
	args := append([]any{slog.String("error", err.Error())}, keysAndValues...)
	s.log.Log(context.Background(), slog.LevelError, msg, args...)
}
