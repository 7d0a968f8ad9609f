// Package deptree expands module imports from a root into a tree.
//
// The walk keeps a visited set per path rather than a global one, so a
// module reachable along two independent paths appears under both. A module
// that reappears on its own ancestor chain is emitted once more, marked
// circular, and not expanded.
package deptree

import (
	"codeatlas/internal/blueprint"
)

const (
	DefaultMaxDepth = 10
	DefaultMaxNodes = 10000
)

// Options bound the expansion.
type Options struct {
	MaxDepth int // Nodes at this depth are emitted without children
	MaxNodes int // Total node budget; exceeding it truncates the tree
}

// DefaultOptions returns the stock bounds.
func DefaultOptions() Options {
	return Options{MaxDepth: DefaultMaxDepth, MaxNodes: DefaultMaxNodes}
}

// Node is one module occurrence in the tree.
type Node struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Path       string              `json:"path"`
	Language   string              `json:"language"`
	Lines      int                 `json:"lines"`
	Semantic   *blueprint.Semantic `json:"semantic,omitempty"`
	Children   []*Node             `json:"children"`
	Depth      int                 `json:"depth"`
	IsCircular bool                `json:"isCircular"`
}

// Tree is the result of Build.
type Tree struct {
	Root      *Node `json:"root"`
	NodeCount int   `json:"nodeCount"`
	Truncated bool  `json:"truncated"`
}

type builder struct {
	view   *blueprint.View
	opts   Options
	onPath map[string]bool
	count  int
	cut    bool
}

// Build expands the import tree rooted at rootID. It returns nil when rootID
// is not a module in the Blueprint.
func Build(v *blueprint.View, rootID string, opts Options) *Tree {
	m, ok := v.Module(rootID)
	if !ok {
		return nil
	}
	if opts.MaxDepth < 0 {
		opts.MaxDepth = 0
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultMaxNodes
	}

	b := &builder{view: v, opts: opts, onPath: make(map[string]bool)}
	root := b.expand(m, 0)
	return &Tree{Root: root, NodeCount: b.count, Truncated: b.cut}
}

func (b *builder) expand(m *blueprint.Module, depth int) *Node {
	node := newNode(m, depth)
	b.count++

	if depth >= b.opts.MaxDepth {
		return node
	}

	b.onPath[m.ID] = true
	defer delete(b.onPath, m.ID)

	// OutTargets is sorted and collapses duplicate imports of one target.
	for _, target := range b.view.ModuleDeps().OutTargets(m.ID) {
		child, ok := b.view.Module(target)
		if !ok {
			continue
		}
		if b.count >= b.opts.MaxNodes {
			b.cut = true
			return node
		}
		if b.onPath[target] {
			circ := newNode(child, depth+1)
			circ.IsCircular = true
			node.Children = append(node.Children, circ)
			b.count++
			continue
		}
		node.Children = append(node.Children, b.expand(child, depth+1))
	}
	return node
}

func newNode(m *blueprint.Module, depth int) *Node {
	name := m.Name
	if name == "" {
		name = m.ID
	}
	return &Node{
		ID:       m.ID,
		Name:     name,
		Path:     m.ID,
		Language: m.Language,
		Lines:    m.Lines,
		Semantic: m.Semantic,
		Children: []*Node{},
		Depth:    depth,
	}
}

// Walk visits every node depth-first, parents before children.
func (t *Tree) Walk(fn func(*Node)) {
	if t == nil || t.Root == nil {
		return
	}
	var visit func(*Node)
	visit = func(n *Node) {
		fn(n)
		for _, c := range n.Children {
			visit(c)
		}
	}
	visit(t.Root)
}

// CircularNodes returns the ids of nodes marked circular in visit order.
func (t *Tree) CircularNodes() []string {
	var ids []string
	t.Walk(func(n *Node) {
		if n.IsCircular {
			ids = append(ids, n.ID)
		}
	})
	return ids
}
