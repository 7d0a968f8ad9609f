// Package flow derives scenario flow graphs from call edges.
//
// The walk is breadth-first with one visited set for the whole walk, so a
// symbol reached along several paths becomes a single node and recursive
// call graphs terminate. The dependency tree keeps a visited set per path
// instead, since it must preserve tree shape.
package flow

import (
	"strings"
	"unicode"

	"codeatlas/internal/blueprint"
)

const (
	DefaultMaxDepth = 5
	DefaultMaxNodes = 200
)

// Role classifies a node in the flow.
type Role string

const (
	RoleEntry    Role = "entry"
	RoleProcess  Role = "process"
	RoleDecision Role = "decision"
	RoleData     Role = "data"
	RoleEnd      Role = "end"
)

// EdgeType classifies a flow edge.
type EdgeType string

const (
	EdgeNormal      EdgeType = "normal"
	EdgeConditional EdgeType = "conditional"
	EdgeLoop        EdgeType = "loop"
	EdgeAsync       EdgeType = "async"
)

// Request describes the scenario to extract.
type Request struct {
	Name     string   `json:"name"`
	EntryIDs []string `json:"entryIds"`
	MaxDepth int      `json:"maxDepth"`
	MaxNodes int      `json:"maxNodes"`
}

// Node is one symbol in the flow.
type Node struct {
	ID       string               `json:"id"`
	Label    string               `json:"label"`
	Role     Role                 `json:"role"`
	Kind     blueprint.SymbolKind `json:"kind,omitempty"`
	ModuleID string               `json:"moduleId,omitempty"`
	Depth    int                  `json:"depth"`
	External bool                 `json:"external,omitempty"`
}

// Edge is one call in the flow.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Type EdgeType `json:"type"`
}

// Flow is the result of Build.
type Flow struct {
	Name           string   `json:"name"`
	Nodes          []Node   `json:"nodes"`
	Edges          []Edge   `json:"edges"`
	MissingEntries []string `json:"missingEntries,omitempty"`
	Truncated      bool     `json:"truncated"`
}

// Build walks call edges breadth-first from the entry symbols. Nodes at
// MaxDepth are emitted but not expanded. Entry ids absent from the Blueprint
// are reported in MissingEntries and skipped.
func Build(v *blueprint.View, req Request) *Flow {
	if req.MaxDepth <= 0 {
		req.MaxDepth = DefaultMaxDepth
	}
	if req.MaxNodes <= 0 {
		req.MaxNodes = DefaultMaxNodes
	}

	f := &Flow{Name: req.Name, Nodes: []Node{}, Edges: []Edge{}}
	index := make(map[string]int)
	calls := v.Calls()

	add := func(id string, depth int) bool {
		if _, ok := index[id]; ok {
			return true
		}
		if len(f.Nodes) >= req.MaxNodes {
			f.Truncated = true
			return false
		}
		index[id] = len(f.Nodes)
		f.Nodes = append(f.Nodes, newNode(v, id, depth))
		return true
	}

	var queue []string
	for _, id := range req.EntryIDs {
		if _, ok := v.Symbol(id); !ok {
			f.MissingEntries = append(f.MissingEntries, id)
			continue
		}
		if _, dup := index[id]; dup {
			continue
		}
		if !add(id, 0) {
			break
		}
		f.Nodes[index[id]].Role = RoleEntry
		queue = append(queue, id)
	}

	edgeSeen := make(map[[2]string]bool)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		node := f.Nodes[index[id]]
		if node.External || node.Depth >= req.MaxDepth {
			continue
		}

		for _, e := range calls.Out(id) {
			c := v.Call(e)
			_, known := index[c.CalleeSymbolID]
			if !add(c.CalleeSymbolID, node.Depth+1) {
				continue
			}
			key := [2]string{id, c.CalleeSymbolID}
			if !edgeSeen[key] {
				edgeSeen[key] = true
				f.Edges = append(f.Edges, Edge{From: id, To: c.CalleeSymbolID, Type: classifyEdge(c)})
			}
			if !known {
				queue = append(queue, c.CalleeSymbolID)
			}
		}
	}

	for i := range f.Nodes {
		if f.Nodes[i].Role == "" {
			f.Nodes[i].Role = classifyRole(v, f.Nodes[i])
		}
	}
	return f
}

func newNode(v *blueprint.View, id string, depth int) Node {
	e, ok := v.Symbol(id)
	if !ok {
		return Node{ID: id, Label: id, Depth: depth, External: true}
	}
	return Node{
		ID:       id,
		Label:    e.Symbol.Name,
		Kind:     e.Symbol.Kind,
		ModuleID: e.ModuleID,
		Depth:    depth,
	}
}

// classifyRole assigns roles from the full call graph, not the truncated
// flow, so a node cut off by the depth bound is not mistaken for an end.
func classifyRole(v *blueprint.View, n Node) Role {
	if n.External {
		return RoleEnd
	}
	calls := v.Calls()
	switch distinct := calls.DistinctOut(n.ID); {
	case distinct > 1:
		return RoleDecision
	case distinct == 0 && (n.Kind == blueprint.KindConstant || n.Kind == blueprint.KindVariable):
		return RoleData
	case distinct == 0:
		return RoleEnd
	default:
		return RoleProcess
	}
}

var edgeTokens = map[string]EdgeType{
	"cond":        EdgeConditional,
	"conditional": EdgeConditional,
	"if":          EdgeConditional,
	"branch":      EdgeConditional,
	"switch":      EdgeConditional,
	"case":        EdgeConditional,
	"ternary":     EdgeConditional,
	"loop":        EdgeLoop,
	"iter":        EdgeLoop,
	"iterate":     EdgeLoop,
	"each":        EdgeLoop,
	"foreach":     EdgeLoop,
	"for":         EdgeLoop,
	"while":       EdgeLoop,
	"async":       EdgeAsync,
	"await":       EdgeAsync,
	"promise":     EdgeAsync,
	"callback":    EdgeAsync,
	"go":          EdgeAsync,
	"goroutine":   EdgeAsync,
	"spawn":       EdgeAsync,
	"event":       EdgeAsync,
}

// classifyEdge derives an edge type from the words of the call type. Self
// calls are loops.
func classifyEdge(c blueprint.SymbolCall) EdgeType {
	if c.CallerSymbolID == c.CalleeSymbolID {
		return EdgeLoop
	}
	words := strings.FieldsFunc(strings.ToLower(c.CallType), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if t, ok := edgeTokens[w]; ok {
			return t
		}
	}
	return EdgeNormal
}

// Node returns the node with the given id.
func (f *Flow) Node(id string) (Node, bool) {
	for _, n := range f.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}
