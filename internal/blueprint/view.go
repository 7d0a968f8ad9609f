package blueprint

import (
	"sort"

	"codeatlas/internal/graph"
)

// Edge kinds used in the view's indexes.
const (
	EdgeImport = "import"
	EdgeCall   = "call"
)

// SymbolEntry is a resolved symbol together with its owning module.
type SymbolEntry struct {
	Symbol   *Symbol
	ModuleID string
	ParentID string // Enclosing symbol for nested children
}

// View is a Blueprint plus the lookup indexes every query needs. It is built
// once per loaded Blueprint and is safe for concurrent readers.
type View struct {
	bp *Blueprint

	symbols   map[string]SymbolEntry
	moduleIDs []string
	symbolIDs []string

	deps     *graph.Index
	calls    *graph.Index
	typeRefs *graph.Index
}

// NewView indexes bp. The Blueprint must not be modified afterwards.
func NewView(bp *Blueprint) *View {
	if bp.Modules == nil {
		bp.Modules = make(map[string]*Module)
	}
	v := &View{
		bp:       bp,
		symbols:  make(map[string]SymbolEntry),
		deps:     graph.NewIndex(len(bp.References.ModuleDeps)),
		calls:    graph.NewIndex(len(bp.References.SymbolCalls)),
		typeRefs: graph.NewIndex(len(bp.References.TypeRefs)),
	}

	v.moduleIDs = make([]string, 0, len(bp.Modules))
	for id := range bp.Modules {
		v.moduleIDs = append(v.moduleIDs, id)
	}
	sort.Strings(v.moduleIDs)

	// Walk modules in sorted order so the first occurrence of a duplicated
	// symbol id is deterministic.
	owners := make([]string, 0, len(bp.Symbols))
	for moduleID := range bp.Symbols {
		owners = append(owners, moduleID)
	}
	sort.Strings(owners)
	for _, moduleID := range owners {
		syms := bp.Symbols[moduleID]
		for i := range syms {
			v.indexSymbol(&syms[i], moduleID, "")
		}
	}
	v.symbolIDs = make([]string, 0, len(v.symbols))
	for id := range v.symbols {
		v.symbolIDs = append(v.symbolIDs, id)
	}
	sort.Strings(v.symbolIDs)

	for _, d := range bp.References.ModuleDeps {
		v.deps.Add(d.Source, d.Target, EdgeImport)
	}
	for _, c := range bp.References.SymbolCalls {
		v.calls.Add(c.CallerSymbolID, c.CalleeSymbolID, EdgeCall)
	}
	for _, r := range bp.References.TypeRefs {
		v.typeRefs.Add(r.Source, r.Target, string(r.Direction))
	}
	return v
}

func (v *View) indexSymbol(s *Symbol, moduleID, parentID string) {
	if _, exists := v.symbols[s.ID]; !exists {
		owner := s.ModuleID
		if owner == "" {
			owner = moduleID
		}
		v.symbols[s.ID] = SymbolEntry{Symbol: s, ModuleID: owner, ParentID: parentID}
	}
	for i := range s.Children {
		v.indexSymbol(&s.Children[i], moduleID, s.ID)
	}
}

// Blueprint returns the underlying Blueprint.
func (v *View) Blueprint() *Blueprint {
	return v.bp
}

// Module looks up a module by id.
func (v *View) Module(id string) (*Module, bool) {
	m, ok := v.bp.Modules[id]
	return m, ok
}

// HasModule reports whether id names a module in the Blueprint.
func (v *View) HasModule(id string) bool {
	_, ok := v.bp.Modules[id]
	return ok
}

// Symbol looks up a symbol by id, nested children included.
func (v *View) Symbol(id string) (SymbolEntry, bool) {
	e, ok := v.symbols[id]
	return e, ok
}

// ModuleIDs returns all module ids sorted ascending.
func (v *View) ModuleIDs() []string {
	return v.moduleIDs
}

// SymbolIDs returns all symbol ids sorted ascending.
func (v *View) SymbolIDs() []string {
	return v.symbolIDs
}

// SymbolCount is the number of distinct symbol ids, nested children included.
func (v *View) SymbolCount() int {
	return len(v.symbols)
}

// ModuleDeps is the import index keyed by source and target module id.
func (v *View) ModuleDeps() *graph.Index {
	return v.deps
}

// Calls is the call index keyed by caller and callee symbol id.
func (v *View) Calls() *graph.Index {
	return v.calls
}

// TypeRefs is the type-reference index keyed by source and target symbol id.
func (v *View) TypeRefs() *graph.Index {
	return v.typeRefs
}

// Call returns the SymbolCall a call-index edge was built from.
func (v *View) Call(e graph.Edge) SymbolCall {
	return v.bp.References.SymbolCalls[e.Ordinal]
}

// TypeRef returns the TypeReference a type-index edge was built from.
func (v *View) TypeRef(e graph.Edge) TypeReference {
	return v.bp.References.TypeRefs[e.Ordinal]
}
