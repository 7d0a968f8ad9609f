// Package query provides the engine that answers every Blueprint query.
// It holds the loaded Blueprint view, caches derived views, and shapes
// responses for the CLI and the HTTP server.
package query

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"codeatlas/internal/architecture"
	"codeatlas/internal/blueprint"
	"codeatlas/internal/deptree"
	"codeatlas/internal/entrypoints"
	"codeatlas/internal/errors"
	"codeatlas/internal/flow"
	"codeatlas/internal/statistics"
)

// Options configure the engine's heuristics and defaults.
type Options struct {
	Classifier     *architecture.Classifier
	ScoringTable   entrypoints.ScoringTable
	DeclaredBlocks []architecture.BlockDeclaration
	Tree           deptree.Options
	FlowMaxDepth   int
	FlowMaxNodes   int
	CallGraphDepth int
	TopN           int
}

// DefaultOptions returns the stock engine options.
func DefaultOptions() Options {
	return Options{
		Classifier:     architecture.MustClassifier(architecture.DefaultRules()),
		ScoringTable:   entrypoints.DefaultScoringTable(),
		Tree:           deptree.DefaultOptions(),
		FlowMaxDepth:   flow.DefaultMaxDepth,
		FlowMaxNodes:   flow.DefaultMaxNodes,
		CallGraphDepth: 2,
		TopN:           statistics.DefaultTopN,
	}
}

// state is one loaded Blueprint. It is replaced wholesale, never mutated.
type state struct {
	view     *blueprint.View
	source   string
	loadedAt time.Time
	cacheKey string

	statsOnce sync.Once
	stats     *blueprint.Statistics
}

// Engine is the central query coordinator. It is safe for concurrent use;
// queries in flight when a new Blueprint is swapped in finish against the
// old one.
type Engine struct {
	current   atomic.Pointer[state]
	loads     atomic.Int64
	archCache *architecture.ArchitectureCache
	opts      Options
	logger    *slog.Logger
}

// NewEngine creates an engine with no Blueprint loaded.
func NewEngine(opts Options, logger *slog.Logger) *Engine {
	defaults := DefaultOptions()
	if opts.Classifier == nil {
		opts.Classifier = defaults.Classifier
	}
	if len(opts.ScoringTable.Patterns) == 0 {
		opts.ScoringTable = defaults.ScoringTable
	}
	if opts.Tree.MaxDepth <= 0 {
		opts.Tree.MaxDepth = defaults.Tree.MaxDepth
	}
	if opts.Tree.MaxNodes <= 0 {
		opts.Tree.MaxNodes = defaults.Tree.MaxNodes
	}
	if opts.FlowMaxDepth <= 0 {
		opts.FlowMaxDepth = defaults.FlowMaxDepth
	}
	if opts.FlowMaxNodes <= 0 {
		opts.FlowMaxNodes = defaults.FlowMaxNodes
	}
	if opts.CallGraphDepth <= 0 {
		opts.CallGraphDepth = defaults.CallGraphDepth
	}
	if opts.TopN <= 0 {
		opts.TopN = defaults.TopN
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		archCache: architecture.NewArchitectureCache(),
		opts:      opts,
		logger:    logger,
	}
}

// Swap replaces the loaded Blueprint. source names where it came from and is
// only reported back in Meta.
func (e *Engine) Swap(bp *blueprint.Blueprint, source string) {
	seq := e.loads.Add(1)
	st := &state{
		view:     blueprint.NewView(bp),
		source:   source,
		loadedAt: time.Now(),
		cacheKey: cacheKey(bp.Meta.GenerationID, seq),
	}
	e.current.Store(st)
	e.archCache.Clear()
	e.logger.Info("Blueprint loaded",
		"source", source,
		"generationId", bp.Meta.GenerationID,
		"modules", len(bp.Modules),
		"symbols", st.view.SymbolCount(),
	)
}

func cacheKey(generationID string, seq int64) string {
	if generationID == "" {
		generationID = "anonymous"
	}
	return generationID + "#" + strconv.FormatInt(seq, 10)
}

// Reload reads a Blueprint file and swaps it in. On failure the previously
// loaded Blueprint stays in place.
func (e *Engine) Reload(path string) error {
	bp, err := blueprint.LoadFile(path)
	if err != nil {
		e.logger.Warn("Blueprint reload failed", "path", path, "error", err.Error())
		return err
	}
	e.Swap(bp, path)
	return nil
}

// Loaded reports whether a Blueprint is available.
func (e *Engine) Loaded() bool {
	return e.current.Load() != nil
}

// View returns the loaded view.
func (e *Engine) View() (*blueprint.View, error) {
	st, err := e.state(context.Background())
	if err != nil {
		return nil, err
	}
	return st.view, nil
}

func (e *Engine) state(ctx context.Context) (*state, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.New(errors.Cancelled, "query cancelled", err)
	}
	st := e.current.Load()
	if st == nil {
		return nil, errors.New(errors.BlueprintMissing, "no Blueprint loaded", nil)
	}
	return st, nil
}

// statistics returns the persisted statistics or computes them once.
func (e *Engine) statistics(st *state) *blueprint.Statistics {
	st.statsOnce.Do(func() {
		if persisted := st.view.Blueprint().Statistics; persisted != nil {
			st.stats = persisted
			return
		}
		table := e.opts.ScoringTable
		st.stats = statistics.Compute(st.view, statistics.Options{
			TopN:        e.opts.TopN,
			Classifier:  e.opts.Classifier,
			EntryPoints: &table,
		})
	})
	return st.stats
}

// Provenance describes the Blueprint a response was computed from.
type Provenance struct {
	GenerationID    string `json:"generationId,omitempty"`
	GeneratedAt     string `json:"generatedAt"`
	FormatVersion   string `json:"formatVersion"`
	CachedAt        string `json:"cachedAt,omitempty"`
	QueryDurationMs int64  `json:"queryDurationMs"`
}

func newProvenance(st *state, start time.Time) *Provenance {
	meta := st.view.Blueprint().Meta
	return &Provenance{
		GenerationID:    meta.GenerationID,
		GeneratedAt:     meta.GeneratedAt.Format(time.RFC3339),
		FormatVersion:   meta.Version,
		QueryDurationMs: time.Since(start).Milliseconds(),
	}
}
