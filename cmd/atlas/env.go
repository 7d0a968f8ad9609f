package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"codeatlas/internal/architecture"
	"codeatlas/internal/config"
	"codeatlas/internal/deptree"
	"codeatlas/internal/paths"
	"codeatlas/internal/query"
	"codeatlas/internal/slogutil"
	"codeatlas/internal/storage"
)

// cliEnv is what every command needs: the project root, its configuration
// and loggers.
type cliEnv struct {
	root   string
	cfg    *config.Config
	logs   *slogutil.LoggerFactory
	logger *slog.Logger
}

// newEnv resolves the project root, loads its configuration and builds the
// logger for subsystem. Callers must Close the env.
func newEnv(subsystem string) (*cliEnv, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, err
	}

	level := slogutil.LevelFromVerbosity(verboseFlag, quietFlag)
	cfg, err := config.LoadConfig(root)
	if err != nil {
		slog.New(slogutil.NewHandler(os.Stderr, slogutil.FormatHuman, level)).
			Warn("Failed to load config, using defaults", "error", err.Error())
		cfg = config.DefaultConfig()
	}
	console := slogutil.NewHandler(os.Stderr, cfg.Logging.Format, level)

	logs := slogutil.NewLoggerFactory(root, cfg, console)
	return &cliEnv{
		root:   root,
		cfg:    cfg,
		logs:   logs,
		logger: logs.Subsystem(subsystem),
	}, nil
}

// Close releases log files.
func (e *cliEnv) Close() {
	_ = e.logs.Close()
}

// projectRoot returns --root or the working directory, made absolute.
func projectRoot() (string, error) {
	if rootFlag == "" {
		return os.Getwd()
	}
	abs, err := filepath.Abs(rootFlag)
	if err != nil {
		return "", fmt.Errorf("invalid --root %q: %w", rootFlag, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("project root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project root %s is not a directory", abs)
	}
	return abs, nil
}

// artifactPath returns --blueprint or the configured artifact location.
func (e *cliEnv) artifactPath() string {
	if blueprintFlag != "" {
		return paths.Resolve(e.root, blueprintFlag)
	}
	return configuredArtifact(e.root, e.cfg)
}

func configuredArtifact(root string, cfg *config.Config) string {
	p := paths.Resolve(root, cfg.Artifact.Path)
	if cfg.Artifact.Compress && !strings.HasSuffix(p, ".zst") {
		p += ".zst"
	}
	return p
}

// engineOptions builds query options from the configuration, the project's
// heuristic overrides and its declared blocks.
func (e *cliEnv) engineOptions() (query.Options, error) {
	opts := query.DefaultOptions()

	h, err := config.LoadProjectHeuristics(e.root, e.cfg)
	if err != nil {
		return opts, err
	}
	classifier, err := h.Classifier()
	if err != nil {
		return opts, err
	}
	opts.Classifier = classifier
	opts.ScoringTable = h.EntryPoints

	blocks, err := architecture.LoadDeclaredBlocks(paths.WorkspaceDir(e.root), e.cfg.Heuristics.BlocksFile)
	if err != nil {
		return opts, err
	}
	opts.DeclaredBlocks = blocks

	q := e.cfg.Queries
	opts.Tree = deptree.Options{MaxDepth: q.TreeMaxDepth, MaxNodes: q.TreeMaxNodes}
	opts.FlowMaxDepth = q.FlowMaxDepth
	opts.FlowMaxNodes = q.FlowMaxNodes
	opts.CallGraphDepth = q.CallGraphDepth
	opts.TopN = q.TopN
	return opts, nil
}

// newEngine creates a query engine without loading anything.
func (e *cliEnv) newEngine() (*query.Engine, error) {
	opts, err := e.engineOptions()
	if err != nil {
		return nil, err
	}
	return query.NewEngine(opts, e.logs.Subsystem("query")), nil
}

// loadEngine creates a query engine and loads the artifact into it.
func (e *cliEnv) loadEngine() (*query.Engine, error) {
	engine, err := e.newEngine()
	if err != nil {
		return nil, err
	}
	if err := engine.Reload(e.artifactPath()); err != nil {
		return nil, err
	}
	return engine, nil
}

// openCatalog opens the snapshot catalog. The returned func closes it.
func (e *cliEnv) openCatalog() (*storage.Catalog, func(), error) {
	db, err := storage.Open(paths.Resolve(e.root, e.cfg.Catalog.Path), e.logs.Subsystem("catalog"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return storage.NewCatalog(db), func() { _ = db.Close() }, nil
}

// newContext returns a context cancelled on SIGINT or SIGTERM.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// printResponse formats resp with the --format flag and writes it to stdout.
func printResponse(resp interface{}) error {
	out, err := FormatResponse(resp, OutputFormat(formatFlag))
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
