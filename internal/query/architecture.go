package query

import (
	"context"
	"time"

	"codeatlas/internal/architecture"
	"codeatlas/internal/blueprint"
	"codeatlas/internal/deptree"
	"codeatlas/internal/entrypoints"
)

// EntryPointsResponse is the response for DetectEntryPoints.
type EntryPointsResponse struct {
	EntryPoints []entrypoints.Candidate `json:"entryPoints"`
	Heuristic   bool                    `json:"heuristic"`
	Provenance  *Provenance             `json:"provenance"`
}

// DetectEntryPoints ranks likely startup modules.
func (e *Engine) DetectEntryPoints(ctx context.Context) (*EntryPointsResponse, error) {
	start := time.Now()
	st, err := e.state(ctx)
	if err != nil {
		return nil, err
	}

	candidates := entrypoints.Detect(st.view, e.opts.ScoringTable)
	if candidates == nil {
		candidates = []entrypoints.Candidate{}
	}
	return &EntryPointsResponse{
		EntryPoints: candidates,
		Heuristic:   true,
		Provenance:  newProvenance(st, start),
	}, nil
}

// DependencyTreeOptions contains options for BuildDependencyTree.
type DependencyTreeOptions struct {
	RootID   string // Empty picks the best detected entry point
	MaxDepth int    // Zero uses the engine default
	MaxNodes int
}

// DependencyTreeResponse is the response for BuildDependencyTree.
type DependencyTreeResponse struct {
	RootID       string        `json:"rootId"`
	RootDetected bool          `json:"rootDetected"`
	Found        bool          `json:"found"`
	Tree         *deptree.Tree `json:"tree,omitempty"`
	Circular     []string      `json:"circular,omitempty"`
	Suggestions  []string      `json:"suggestions,omitempty"`
	Provenance   *Provenance   `json:"provenance"`
}

// BuildDependencyTree expands module imports from a root. An unknown root is
// a not-found response with suggestions, not an error.
func (e *Engine) BuildDependencyTree(ctx context.Context, opts DependencyTreeOptions) (*DependencyTreeResponse, error) {
	start := time.Now()
	st, err := e.state(ctx)
	if err != nil {
		return nil, err
	}

	treeOpts := e.opts.Tree
	if opts.MaxDepth > 0 {
		treeOpts.MaxDepth = opts.MaxDepth
	}
	if opts.MaxNodes > 0 {
		treeOpts.MaxNodes = opts.MaxNodes
	}

	resp := &DependencyTreeResponse{
		RootID:       entrypoints.ResolveRoot(st.view, opts.RootID, e.opts.ScoringTable),
		RootDetected: opts.RootID == "",
	}
	if tree := deptree.Build(st.view, resp.RootID, treeOpts); tree != nil {
		resp.Found = true
		resp.Tree = tree
		resp.Circular = tree.CircularNodes()
	} else if resp.RootID != "" {
		resp.Suggestions = st.view.SuggestModules(resp.RootID)
	}
	resp.Provenance = newProvenance(st, start)
	return resp, nil
}

// ArchitectureResponse is the response for GetArchitectureView.
type ArchitectureResponse struct {
	*architecture.View
	Provenance *Provenance `json:"provenance"`
}

// GetArchitectureView classifies modules into layers and blocks. The view is
// computed once per loaded Blueprint.
func (e *Engine) GetArchitectureView(ctx context.Context) (*ArchitectureResponse, error) {
	start := time.Now()
	st, err := e.state(ctx)
	if err != nil {
		return nil, err
	}

	cached := true
	view := e.archCache.GetOrCompute(st.cacheKey, func() *architecture.View {
		cached = false
		return architecture.Generate(st.view, e.opts.Classifier, e.opts.DeclaredBlocks)
	})

	prov := newProvenance(st, start)
	if cached {
		if entry, ok := e.archCache.Get(st.cacheKey); ok {
			prov.CachedAt = entry.ComputedAt.Format(time.RFC3339)
		}
	}
	return &ArchitectureResponse{View: view, Provenance: prov}, nil
}

// StatisticsResponse is the response for GetStatistics.
type StatisticsResponse struct {
	*blueprint.Statistics
	Persisted  bool        `json:"persisted"`
	Provenance *Provenance `json:"provenance"`
}

// GetStatistics returns the artifact's statistics, computing them when the
// artifact carries none.
func (e *Engine) GetStatistics(ctx context.Context) (*StatisticsResponse, error) {
	start := time.Now()
	st, err := e.state(ctx)
	if err != nil {
		return nil, err
	}
	return &StatisticsResponse{
		Statistics: e.statistics(st),
		Persisted:  st.view.Blueprint().Statistics != nil,
		Provenance: newProvenance(st, start),
	}, nil
}
