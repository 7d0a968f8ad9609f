package query

import (
	"context"
	"time"

	"codeatlas/internal/blueprint"
)

// MetaResponse describes the loaded Blueprint.
type MetaResponse struct {
	Meta     blueprint.Meta    `json:"meta"`
	Project  blueprint.Project `json:"project"`
	Source   string            `json:"source,omitempty"`
	LoadedAt string            `json:"loadedAt"`
	Modules  int               `json:"modules"`
	Symbols  int               `json:"symbols"`
	Edges    EdgeCounts        `json:"edges"`
}

// EdgeCounts counts each edge list.
type EdgeCounts struct {
	ModuleDeps  int `json:"moduleDeps"`
	SymbolCalls int `json:"symbolCalls"`
	TypeRefs    int `json:"typeRefs"`
}

// Meta reports what is loaded.
func (e *Engine) Meta(ctx context.Context) (*MetaResponse, error) {
	st, err := e.state(ctx)
	if err != nil {
		return nil, err
	}
	bp := st.view.Blueprint()
	return &MetaResponse{
		Meta:     bp.Meta,
		Project:  bp.Project,
		Source:   st.source,
		LoadedAt: st.loadedAt.Format(time.RFC3339),
		Modules:  len(bp.Modules),
		Symbols:  st.view.SymbolCount(),
		Edges: EdgeCounts{
			ModuleDeps:  len(bp.References.ModuleDeps),
			SymbolCalls: len(bp.References.SymbolCalls),
			TypeRefs:    len(bp.References.TypeRefs),
		},
	}, nil
}
