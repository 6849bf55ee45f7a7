package logging

import (
	"log/slog"
	"os"
)

// Init sets up the process-wide JSON logger and returns it so callers can
// pass it down explicitly instead of reaching for the global.
func Init(service string) *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_DEBUG") == "true" {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler).With(slog.String("service", service))
	slog.SetDefault(logger)
	return logger
}
