package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"codeatlas/internal/api"
	"codeatlas/internal/watcher"
)

var (
	serveAddr    string
	serveNoWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP query server",
	Long: `Serve Blueprint queries over HTTP. The artifact is reloaded when it changes on
disk (unless --no-watch) or on POST /reload; a failed reload keeps the last
good Blueprint. Prometheus metrics are exposed on /metrics.

Examples:
  atlas serve
  atlas serve --addr=0.0.0.0:9130 --no-watch`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (default: from config)")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Do not reload the artifact when it changes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	env, err := newEnv("serve")
	if err != nil {
		return err
	}
	defer env.Close()
	logger := env.logger

	addr := serveAddr
	if addr == "" {
		addr = env.cfg.Server.Addr
	}
	artifact := env.artifactPath()

	engine, err := env.newEngine()
	if err != nil {
		return err
	}
	// A missing artifact is not fatal: /health reports degraded until one
	// appears and is picked up by the watcher or POST /reload.
	if err := engine.Reload(artifact); err != nil {
		logger.Warn("Starting without a Blueprint", "path", artifact, "error", err.Error())
	}

	server := api.NewServer(addr, artifact, engine, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	if env.cfg.Server.Watch && !serveNoWatch {
		if err := os.MkdirAll(filepath.Dir(artifact), 0755); err != nil {
			return fmt.Errorf("failed to create artifact directory: %w", err)
		}
		w := watcher.New(artifact, engine, watcher.Config{
			Debounce: time.Duration(env.cfg.Server.DebounceMs) * time.Millisecond,
			OnReload: server.Metrics().RecordReload,
		}, env.logs.Subsystem("watcher"))

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(ctx); err != nil {
				logger.Error("Artifact watcher failed", "error", err.Error())
			}
		}()
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting atlas HTTP server", "addr", addr, "artifact", artifact)
		fmt.Printf("atlas HTTP server listening on http://%s\n", addr)
		fmt.Println("Press Ctrl+C to stop")
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		cancel()
		wg.Wait()
		if err != nil {
			logger.Error("Server error", "error", err.Error())
			return err
		}
	case sig := <-shutdown:
		logger.Info("Received shutdown signal", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during shutdown", "error", err.Error())
			return err
		}
		wg.Wait()
		logger.Info("Server stopped gracefully")
	}

	return nil
}
