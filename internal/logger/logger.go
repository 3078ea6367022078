package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	globalLogger *slog.Logger
	initOnce     sync.Once
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // json or text
}

// Init initializes the global logger from environment variables.
// Safe to call more than once; only the first call wins.
func Init() {
	initOnce.Do(func() {
		InitWithConfig(LoadConfigFromEnv())
	})
}

// LoadConfigFromEnv loads logging configuration from environment variables.
func LoadConfigFromEnv() LogConfig {
	return LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "INFO"),
		Format: getEnvOrDefault("LOG_FORMAT", "text"),
	}
}

// InitWithConfig initializes the global logger with a specific configuration.
func InitWithConfig(config LogConfig) {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(config.Level),
	}

	var handler slog.Handler
	if strings.EqualFold(config.Format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func get() *slog.Logger {
	if globalLogger == nil {
		Init()
	}
	return globalLogger
}

// Debug logs a debug message with key-value attributes.
func Debug(ctx context.Context, msg string, args ...any) {
	get().DebugContext(ctx, msg, args...)
}

// Info logs an informational message with key-value attributes.
func Info(ctx context.Context, msg string, args ...any) {
	get().InfoContext(ctx, msg, args...)
}

// Warn logs a warning message with key-value attributes.
func Warn(ctx context.Context, msg string, args ...any) {
	get().WarnContext(ctx, msg, args...)
}

// Error logs an error message with key-value attributes.
func Error(ctx context.Context, msg string, args ...any) {
	get().ErrorContext(ctx, msg, args...)
}

// ErrorWithErr logs an error message attaching the error value.
func ErrorWithErr(ctx context.Context, msg string, err error, args ...any) {
	all := make([]any, 0, len(args)+2)
	all = append(all, "error", err)
	all = append(all, args...)
	get().ErrorContext(ctx, msg, all...)
}
