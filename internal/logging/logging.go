// Package logging sets up the application's slog loggers.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	defaultLogger *slog.Logger
	closeFunc     func() error
)

// Init initializes the logging system. Logs go to a rotating JSON file when
// logFilePath is set, and to a human-readable text handler on stderr
// otherwise. Call once at process start, before any component requests a
// logger; pair with Shutdown to flush the file writer.
func Init(debug bool, logFilePath string) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	if logFilePath != "" {
		logger, closer, err := NewFileLogger(logFilePath, "auditlog", level)
		if err == nil {
			defaultLogger = logger
			closeFunc = closer
			slog.SetDefault(defaultLogger)
			return
		}
		// Fall back to stderr when the log file cannot be opened
		fmt.Fprintf(os.Stderr, "failed to open log file %s: %v\n", logFilePath, err)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// Shutdown closes the log file writer opened by Init, if any.
func Shutdown() {
	if closeFunc != nil {
		_ = closeFunc()
		closeFunc = nil
	}
}

// ForService returns a child logger carrying a 'service' attribute.
// Falls back to the process default logger when Init has not been called (tests).
func ForService(serviceName string) *slog.Logger {
	if defaultLogger == nil {
		return slog.Default().With("service", serviceName)
	}
	return defaultLogger.With("service", serviceName)
}

// NewFileLogger creates a slog.Logger writing JSON logs to the given file
// path through a lumberjack rotating writer. It includes a 'service'
// attribute in all records and returns the logger together with a close
// function for the underlying writer.
func NewFileLogger(filePath, serviceName string, level slog.Leveler) (*slog.Logger, func() error, error) {
	// lumberjack does not create directories
	logDir := filepath.Dir(filePath)
	if logDir != "." {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}
	}

	logWriter := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    100, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}

	handler := slog.NewJSONHandler(logWriter, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(handler).With("service", serviceName)

	return logger, logWriter.Close, nil
}
