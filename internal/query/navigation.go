package query

import (
	"context"
	"time"

	"codeatlas/internal/flow"
	"codeatlas/internal/references"
)

// ReferencesResponse is the response for GetSymbolReferences.
type ReferencesResponse struct {
	*references.Result
	Provenance *Provenance `json:"provenance"`
}

// GetSymbolReferences lists callers, callees and type relations of a symbol.
func (e *Engine) GetSymbolReferences(ctx context.Context, symbolID string) (*ReferencesResponse, error) {
	start := time.Now()
	st, err := e.state(ctx)
	if err != nil {
		return nil, err
	}
	return &ReferencesResponse{
		Result:     references.Query(st.view, symbolID),
		Provenance: newProvenance(st, start),
	}, nil
}

// CallGraphOptions contains options for GetCallGraph.
type CallGraphOptions struct {
	SymbolID  string
	Direction references.Direction
	Depth     int // Zero uses the engine default
}

// CallGraphResponse is the response for GetCallGraph.
type CallGraphResponse struct {
	*references.CallGraph
	Direction  references.Direction `json:"direction"`
	Depth      int                  `json:"depth"`
	Provenance *Provenance          `json:"provenance"`
}

// GetCallGraph returns the bounded caller/callee neighborhood of a symbol.
func (e *Engine) GetCallGraph(ctx context.Context, opts CallGraphOptions) (*CallGraphResponse, error) {
	start := time.Now()
	st, err := e.state(ctx)
	if err != nil {
		return nil, err
	}

	depth := opts.Depth
	if depth <= 0 {
		depth = e.opts.CallGraphDepth
	}
	if depth > references.MaxCallGraphDepth {
		depth = references.MaxCallGraphDepth
	}
	dir := opts.Direction
	if dir == "" {
		dir = references.DirectionBoth
	}
	return &CallGraphResponse{
		CallGraph:  references.BuildCallGraph(st.view, opts.SymbolID, dir, depth),
		Direction:  dir,
		Depth:      depth,
		Provenance: newProvenance(st, start),
	}, nil
}

// ScenarioFlowOptions contains options for BuildScenarioFlow.
type ScenarioFlowOptions struct {
	Name     string
	EntryIDs []string
	MaxDepth int // Zero uses the engine default
	MaxNodes int
}

// ScenarioFlowResponse is the response for BuildScenarioFlow.
type ScenarioFlowResponse struct {
	*flow.Flow
	Mermaid    string      `json:"mermaid"`
	Provenance *Provenance `json:"provenance"`
}

// BuildScenarioFlow walks call edges from entry symbols into a flow graph.
// Unknown entries are listed in MissingEntries.
func (e *Engine) BuildScenarioFlow(ctx context.Context, opts ScenarioFlowOptions) (*ScenarioFlowResponse, error) {
	start := time.Now()
	st, err := e.state(ctx)
	if err != nil {
		return nil, err
	}

	req := flow.Request{
		Name:     opts.Name,
		EntryIDs: opts.EntryIDs,
		MaxDepth: opts.MaxDepth,
		MaxNodes: opts.MaxNodes,
	}
	if req.MaxDepth <= 0 {
		req.MaxDepth = e.opts.FlowMaxDepth
	}
	if req.MaxNodes <= 0 {
		req.MaxNodes = e.opts.FlowMaxNodes
	}
	f := flow.Build(st.view, req)
	return &ScenarioFlowResponse{
		Flow:       f,
		Mermaid:    flow.Mermaid(f),
		Provenance: newProvenance(st, start),
	}, nil
}
