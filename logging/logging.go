// Package logging configures the process-wide slog logger: text to the
// console and JSON to a weekly rotating file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Options configures Init.
type Options struct {
	Level          string
	Dir            string // empty disables file output
	RetentionWeeks int
	MaxFileSize    int64
	Console        io.Writer // defaults to os.Stdout
}

// Service owns the configured logger and the file writer behind it.
type Service struct {
	Logger *slog.Logger
	writer *RotatingWriter
}

var (
	mu      sync.RWMutex
	current *Service
)

// ParseLevel maps a LOG_LEVEL value to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
}

// New builds a Service without installing it.
func New(opts Options) (*Service, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	consoleHandler := slog.NewTextHandler(console, handlerOpts)

	if opts.Dir == "" {
		return &Service{Logger: slog.New(consoleHandler)}, nil
	}

	writer, err := NewRotatingWriter(opts.Dir, opts.RetentionWeeks, opts.MaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to open log directory: %w", err)
	}

	handler := &fanoutHandler{
		handlers: []slog.Handler{consoleHandler, slog.NewJSONHandler(writer, handlerOpts)},
	}
	return &Service{Logger: slog.New(handler), writer: writer}, nil
}

// Init builds a Service, makes it the package and slog default, and closes
// the one it replaces.
func Init(opts Options) (*Service, error) {
	svc, err := New(opts)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	previous := current
	current = svc
	mu.Unlock()

	slog.SetDefault(svc.Logger)
	if previous != nil {
		_ = previous.Close()
	}
	return svc, nil
}

// Close stops background cleanup and closes the log file.
func (s *Service) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	return s.writer.Close()
}

// Logger returns the installed logger, or a stderr text logger before Init.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil || current.Logger == nil {
		return fallback
	}
	return current.Logger
}

var fallback = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// Package-level functions for direct access

func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}
