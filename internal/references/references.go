// Package references answers symbol-centric questions: who calls a symbol,
// what it calls, and which types it extends or is extended by.
//
// Every lookup goes through the endpoint indexes built with the view, so the
// cost of a query is proportional to the edges touching the symbol.
package references

import (
	"sort"

	"codeatlas/internal/blueprint"
	"codeatlas/internal/graph"
)

// MaxCallGraphDepth bounds CallGraph expansion.
const MaxCallGraphDepth = 4

// Endpoint describes the far end of an edge. Resolved is false when the id is
// not in the Blueprint; the edge is still reported.
type Endpoint struct {
	ID       string               `json:"id"`
	Name     string               `json:"name"`
	ModuleID string               `json:"moduleId,omitempty"`
	Kind     blueprint.SymbolKind `json:"kind,omitempty"`
	Resolved bool                 `json:"resolved"`
}

// CallRef is one call edge touching the queried symbol.
type CallRef struct {
	Call blueprint.SymbolCall `json:"call"`
	Peer Endpoint             `json:"peer"`
}

// TypeRef is one type edge touching the queried symbol. Outgoing is true when
// the queried symbol is the edge's source.
type TypeRef struct {
	Ref      blueprint.TypeReference `json:"ref"`
	Peer     Endpoint                `json:"peer"`
	Outgoing bool                    `json:"outgoing"`
}

// Result is the answer to Query.
type Result struct {
	SymbolID    string            `json:"symbolId"`
	Found       bool              `json:"found"`
	Symbol      *blueprint.Symbol `json:"symbol,omitempty"`
	ModuleID    string            `json:"moduleId,omitempty"`
	Callers     []CallRef         `json:"callers"`
	Callees     []CallRef         `json:"callees"`
	TypeRefs    []TypeRef         `json:"typeRefs"`
	Suggestions []string          `json:"suggestions,omitempty"`
}

// Query collects the edges touching symbolID. An absent symbol is not an
// error: Found is false, suggestions are attached, and any edges that still
// name the id are returned so counts match the raw edge lists.
func Query(v *blueprint.View, symbolID string) *Result {
	res := &Result{
		SymbolID: symbolID,
		Callers:  []CallRef{},
		Callees:  []CallRef{},
		TypeRefs: []TypeRef{},
	}
	if e, ok := v.Symbol(symbolID); ok {
		res.Found = true
		res.Symbol = e.Symbol
		res.ModuleID = e.ModuleID
	} else {
		res.Suggestions = v.SuggestSymbols(symbolID)
	}

	for _, e := range v.Calls().In(symbolID) {
		c := v.Call(e)
		res.Callers = append(res.Callers, CallRef{Call: c, Peer: resolve(v, c.CallerSymbolID)})
	}
	for _, e := range v.Calls().Out(symbolID) {
		c := v.Call(e)
		res.Callees = append(res.Callees, CallRef{Call: c, Peer: resolve(v, c.CalleeSymbolID)})
	}

	// A self-referencing type edge shows up in both directions; report it once.
	seen := make(map[int]bool)
	for _, e := range v.TypeRefs().Out(symbolID) {
		seen[e.Ordinal] = true
		r := v.TypeRef(e)
		res.TypeRefs = append(res.TypeRefs, TypeRef{Ref: r, Peer: resolve(v, r.Target), Outgoing: true})
	}
	for _, e := range v.TypeRefs().In(symbolID) {
		if seen[e.Ordinal] {
			continue
		}
		r := v.TypeRef(e)
		res.TypeRefs = append(res.TypeRefs, TypeRef{Ref: r, Peer: resolve(v, r.Source)})
	}
	return res
}

// resolve looks up id. Unresolved endpoints keep the raw id as their name.
func resolve(v *blueprint.View, id string) Endpoint {
	e, ok := v.Symbol(id)
	if !ok {
		return Endpoint{ID: id, Name: id}
	}
	return Endpoint{
		ID:       id,
		Name:     e.Symbol.Name,
		ModuleID: e.ModuleID,
		Kind:     e.Symbol.Kind,
		Resolved: true,
	}
}

// Direction selects which call edges CallGraph follows.
type Direction string

const (
	DirectionCallers Direction = "callers"
	DirectionCallees Direction = "callees"
	DirectionBoth    Direction = "both"
)

// ParseDirection converts a string to Direction, defaulting to both.
func ParseDirection(s string) Direction {
	switch s {
	case "callers":
		return DirectionCallers
	case "callees":
		return DirectionCallees
	default:
		return DirectionBoth
	}
}

// GraphNode is a symbol in a call-graph neighborhood.
type GraphNode struct {
	Endpoint
	Depth int `json:"depth"`
}

// GraphEdge is a call between two nodes of the neighborhood.
type GraphEdge struct {
	From     string `json:"from"`
	To       string `json:"to"`
	CallType string `json:"callType,omitempty"`
}

// CallGraph is the bounded call neighborhood of a symbol.
type CallGraph struct {
	Root        string      `json:"root"`
	Found       bool        `json:"found"`
	Nodes       []GraphNode `json:"nodes"`
	Edges       []GraphEdge `json:"edges"`
	Suggestions []string    `json:"suggestions,omitempty"`
}

// BuildCallGraph expands callers and/or callees of symbolID breadth-first up
// to depth hops (clamped to 1..MaxCallGraphDepth). Each symbol appears once,
// at the depth it was first reached.
func BuildCallGraph(v *blueprint.View, symbolID string, dir Direction, depth int) *CallGraph {
	if depth < 1 {
		depth = 1
	}
	if depth > MaxCallGraphDepth {
		depth = MaxCallGraphDepth
	}

	cg := &CallGraph{Root: symbolID, Nodes: []GraphNode{}, Edges: []GraphEdge{}}
	if _, ok := v.Symbol(symbolID); ok {
		cg.Found = true
	} else {
		cg.Suggestions = v.SuggestSymbols(symbolID)
	}

	depthOf := map[string]int{symbolID: 0}
	edgeSeen := make(map[int]bool)
	frontier := []string{symbolID}
	calls := v.Calls()

	for d := 1; d <= depth && len(frontier) > 0; d++ {
		var next []string
		visit := func(e graph.Edge, peer string) {
			if !edgeSeen[e.Ordinal] {
				edgeSeen[e.Ordinal] = true
				c := v.Call(e)
				cg.Edges = append(cg.Edges, GraphEdge{From: c.CallerSymbolID, To: c.CalleeSymbolID, CallType: c.CallType})
			}
			if _, ok := depthOf[peer]; ok {
				return
			}
			depthOf[peer] = d
			next = append(next, peer)
		}
		for _, id := range frontier {
			if dir != DirectionCallees {
				for _, e := range calls.In(id) {
					visit(e, e.From)
				}
			}
			if dir != DirectionCallers {
				for _, e := range calls.Out(id) {
					visit(e, e.To)
				}
			}
		}
		frontier = next
	}

	for id, d := range depthOf {
		cg.Nodes = append(cg.Nodes, GraphNode{Endpoint: resolve(v, id), Depth: d})
	}
	sort.Slice(cg.Nodes, func(i, j int) bool {
		if cg.Nodes[i].Depth != cg.Nodes[j].Depth {
			return cg.Nodes[i].Depth < cg.Nodes[j].Depth
		}
		return cg.Nodes[i].ID < cg.Nodes[j].ID
	})
	sort.SliceStable(cg.Edges, func(i, j int) bool {
		if cg.Edges[i].From != cg.Edges[j].From {
			return cg.Edges[i].From < cg.Edges[j].From
		}
		return cg.Edges[i].To < cg.Edges[j].To
	})
	return cg
}
