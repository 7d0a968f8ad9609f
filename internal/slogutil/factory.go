package slogutil

import (
	"io"
	"log/slog"
	"sync"

	"codeatlas/internal/config"
	"codeatlas/internal/paths"
)

// LoggerFactory hands out subsystem loggers ("generate", "serve") that
// write to the console handler and, when file logging is enabled, to
// .atlas/logs/<subsystem>.log.
type LoggerFactory struct {
	root    string
	cfg     *config.Config
	console slog.Handler

	mu      sync.Mutex
	closers []io.Closer
}

// NewLoggerFactory creates a factory. A nil console handler discards
// console output; a nil cfg uses the defaults.
func NewLoggerFactory(root string, cfg *config.Config, console slog.Handler) *LoggerFactory {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if console == nil {
		console = NewDiscardLogger().Handler()
	}
	return &LoggerFactory{root: root, cfg: cfg, console: console}
}

// Console returns the console-only logger.
func (f *LoggerFactory) Console() *slog.Logger {
	return slog.New(f.console)
}

// Subsystem returns the logger for a subsystem. When the log file cannot
// be opened the console logger is returned and the failure is logged there.
func (f *LoggerFactory) Subsystem(name string) *slog.Logger {
	console := slog.New(f.console)
	if f.root == "" || !f.cfg.Logging.File {
		return console.With("subsystem", name)
	}

	path := paths.LogPath(f.root, name)
	fileLogger, closer, err := NewFileLoggerWithRotation(path, f.cfg.Logging.Format,
		LevelFromString(f.cfg.Logging.Level), f.cfg.Logging.MaxSize, f.cfg.Logging.MaxBackups)
	if err != nil {
		console.Warn("Cannot open log file, logging to console only", "path", path, "error", err)
		return console.With("subsystem", name)
	}

	f.mu.Lock()
	f.closers = append(f.closers, closer)
	f.mu.Unlock()

	return slog.New(NewTeeHandler(f.console, fileLogger.Handler())).With("subsystem", name)
}

// Close closes all open log files.
func (f *LoggerFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
