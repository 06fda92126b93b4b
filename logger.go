package kernel

import (
	"io"
	"log/slog"
)

// Logger defines the interface for application logging.
// The kernel uses structured logging with key-value pairs so that any
// structured logger can be plugged in. *slog.Logger satisfies it directly:
//
//	app, err := kernel.New(opts, kernel.WithLogger(slog.Default()))
//
// There is no dedicated critical level; critical entries are written with
// Error and carry a "severity"="critical" pair.
type Logger interface {
	// Info logs an informational message with optional key-value pairs.
	Info(msg string, args ...any)

	// Error logs an error message with optional key-value pairs.
	Error(msg string, args ...any)

	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, args ...any)

	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, args ...any)
}

// logCritical writes a critical entry through the Error level.
func logCritical(logger Logger, msg string, args ...any) {
	logger.Error(msg, append([]any{"severity", "critical"}, args...)...)
}

// discardLogger is used when no logger is configured.
func discardLogger() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
