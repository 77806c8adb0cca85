package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger — общий интерфейс логирования приложения.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(err error, format string, args ...any)
}

// SlogLogger реализует Logger поверх log/slog.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger создаёт JSON-логгер в stdout. Уровень берётся из LOG_LEVEL (debug, info, warn, error).
func NewSlogLogger() *SlogLogger {
	return NewSlogLoggerWithWriter(os.Stdout, os.Getenv("LOG_LEVEL"))
}

// NewSlogLoggerWithWriter создаёт JSON-логгер, пишущий в w.
func NewSlogLoggerWithWriter(w io.Writer, level string) *SlogLogger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	})

	return &SlogLogger{log: slog.New(handler)}
}

// NewNopLogger возвращает логгер, который ничего не пишет.
func NewNopLogger() *SlogLogger {
	return &SlogLogger{log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func (l *SlogLogger) Debugf(format string, args ...any) {
	l.logf(slog.LevelDebug, nil, format, args...)
}

func (l *SlogLogger) Infof(format string, args ...any) {
	l.logf(slog.LevelInfo, nil, format, args...)
}

func (l *SlogLogger) Warnf(format string, args ...any) {
	l.logf(slog.LevelWarn, nil, format, args...)
}

func (l *SlogLogger) Errorf(err error, format string, args ...any) {
	l.logf(slog.LevelError, err, format, args...)
}

func (l *SlogLogger) logf(level slog.Level, err error, format string, args ...any) {
	ctx := context.Background()
	if !l.log.Enabled(ctx, level) {
		return
	}

	msg := fmt.Sprintf(format, args...)
	if err != nil {
		l.log.Log(ctx, level, msg, slog.String("error", err.Error()))
		return
	}

	l.log.Log(ctx, level, msg)
}

func parseLevel(level string) slog.Level {
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
