package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"co2gdp-api/internal/config"
)

// Logger bundles the slog logger with the level variable backing it so the
// level can be changed after startup.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
}

func NewLogger(cfg config.LoggerConfig) *Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(w io.Writer, cfg config.LoggerConfig) *Logger {
	level := new(slog.LevelVar)
	level.Set(parseLogLevel(cfg.Level))

	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	}

	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{Logger: slog.New(handler), level: level}
}

func (l *Logger) SetLevel(level string) {
	l.level.Set(parseLogLevel(level))
}

func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type contextKey string

const RequestIDKey contextKey = "request_id"

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
