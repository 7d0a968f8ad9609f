// Package graph provides the edge index shared by the Blueprint traversals.
//
// The index is append-only while a Blueprint view is being built and
// read-only afterwards, so lookups need no locking.
package graph

import (
	"sort"
)

// Edge represents a directed edge in a fact graph.
type Edge struct {
	From    string // Source node ID
	To      string // Target node ID
	Kind    string // Edge kind: "import", "call", "parent", "child"
	Ordinal int    // Position of the originating fact in its edge list
}

// Index is a sparse directed multigraph indexed by both endpoints.
type Index struct {
	edges []Edge

	// Adjacency lists hold positions into edges.
	out map[string][]int
	in  map[string][]int
}

// NewIndex creates an empty index sized for roughly n edges.
func NewIndex(n int) *Index {
	return &Index{
		edges: make([]Edge, 0, n),
		out:   make(map[string][]int),
		in:    make(map[string][]int),
	}
}

// Add appends a directed edge. The ordinal is the position of the edge in
// insertion order, which callers use to map back to their own fact slice.
func (x *Index) Add(from, to, kind string) {
	pos := len(x.edges)
	x.edges = append(x.edges, Edge{From: from, To: to, Kind: kind, Ordinal: pos})
	x.out[from] = append(x.out[from], pos)
	x.in[to] = append(x.in[to], pos)
}

// Len returns the total number of edges, duplicates included.
func (x *Index) Len() int {
	return len(x.edges)
}

// Out returns the outgoing edges of id in insertion order.
func (x *Index) Out(id string) []Edge {
	return x.collect(x.out[id])
}

// In returns the incoming edges of id in insertion order.
func (x *Index) In(id string) []Edge {
	return x.collect(x.in[id])
}

// OutDegree returns the number of outgoing edges, duplicates included.
func (x *Index) OutDegree(id string) int {
	return len(x.out[id])
}

// InDegree returns the number of incoming edges, duplicates included.
func (x *Index) InDegree(id string) int {
	return len(x.in[id])
}

// OutTargets returns the distinct targets of id sorted ascending.
func (x *Index) OutTargets(id string) []string {
	positions := x.out[id]
	if len(positions) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(positions))
	targets := make([]string, 0, len(positions))
	for _, pos := range positions {
		to := x.edges[pos].To
		if _, ok := seen[to]; ok {
			continue
		}
		seen[to] = struct{}{}
		targets = append(targets, to)
	}
	sort.Strings(targets)
	return targets
}

// DistinctOut returns the number of distinct targets of id.
func (x *Index) DistinctOut(id string) int {
	positions := x.out[id]
	if len(positions) <= 1 {
		return len(positions)
	}
	seen := make(map[string]struct{}, len(positions))
	for _, pos := range positions {
		seen[x.edges[pos].To] = struct{}{}
	}
	return len(seen)
}

// Targets returns every node that is the target of at least one edge.
func (x *Index) Targets() []string {
	return sortedKeys(x.in)
}

func (x *Index) collect(positions []int) []Edge {
	if len(positions) == 0 {
		return nil
	}
	result := make([]Edge, len(positions))
	for i, pos := range positions {
		result[i] = x.edges[pos]
	}
	return result
}

func sortedKeys(m map[string][]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
