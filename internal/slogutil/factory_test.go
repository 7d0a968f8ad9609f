package slogutil

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"

	"codeatlas/internal/config"
	"codeatlas/internal/paths"
)

func TestLoggerFactory_Subsystem(t *testing.T) {
	t.Setenv(paths.HomeEnvVar, "")
	root := t.TempDir()
	var console bytes.Buffer
	f := NewLoggerFactory(root, config.DefaultConfig(), NewLineHandler(&console, &slog.HandlerOptions{Level: slog.LevelWarn}))

	logger := f.Subsystem("serve")
	logger.Info("listening", "addr", "localhost:9130")
	logger.Warn("slow query")
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(paths.LogPath(root, "serve"))
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "listening") || !strings.Contains(string(data), "subsystem=serve") {
		t.Errorf("log file = %q", data)
	}
	if strings.Contains(console.String(), "listening") {
		t.Error("console should filter info records")
	}
	if !strings.Contains(console.String(), "slow query") {
		t.Error("console should receive warnings")
	}
}

func TestLoggerFactory_FileLoggingDisabled(t *testing.T) {
	t.Setenv(paths.HomeEnvVar, "")
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Logging.File = false

	f := NewLoggerFactory(root, cfg, nil)
	f.Subsystem("generate").Error("boom")
	_ = f.Close()

	if _, err := os.Stat(paths.LogPath(root, "generate")); !os.IsNotExist(err) {
		t.Errorf("no log file expected, stat error = %v", err)
	}
}
