// Package blueprint holds the in-memory model of one analyzed project:
// modules, symbols, reference edges and precomputed statistics.
//
// A Blueprint is produced once per generation run and never mutated
// afterwards. Queries run against a View, which adds the lookup indexes
// built at load time.
package blueprint

import "time"

// FormatVersion is the newest artifact format this engine reads and the one
// it writes.
const FormatVersion = "1.0"

// SymbolKind enumerates the kinds of named code entities.
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindClass     SymbolKind = "class"
	KindInterface SymbolKind = "interface"
	KindMethod    SymbolKind = "method"
	KindProperty  SymbolKind = "property"
	KindVariable  SymbolKind = "variable"
	KindConstant  SymbolKind = "constant"
	KindType      SymbolKind = "type"
	KindEnum      SymbolKind = "enum"
)

// TypeDirection tells which end of a TypeReference is the parent type.
type TypeDirection string

const (
	// DirectionParent means target is a parent (base class, implemented interface) of source.
	DirectionParent TypeDirection = "parent"
	// DirectionChild means target is a child (subclass, implementation) of source.
	DirectionChild TypeDirection = "child"
)

// Semantic is the optional natural-language annotation of a module or symbol.
type Semantic struct {
	Description       string   `json:"description,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	ArchitectureLayer string   `json:"architectureLayer,omitempty"`
	BusinessDomain    string   `json:"businessDomain,omitempty"`
}

// HasDescription reports whether s carries a non-empty description.
func (s *Semantic) HasDescription() bool {
	return s != nil && s.Description != ""
}

// Module is one source file's extracted facts.
type Module struct {
	ID       string    `json:"id"` // Project-relative path
	Name     string    `json:"name"`
	Language string    `json:"language"`
	Lines    int       `json:"lines"`
	Imports  []string  `json:"imports"` // Target module ids, may dangle
	Semantic *Semantic `json:"semantic,omitempty"`
}

// Location is a 1-based line range.
type Location struct {
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine"`
}

// Symbol is one named code entity within a module.
type Symbol struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Kind      SymbolKind `json:"kind"`
	ModuleID  string     `json:"moduleId"`
	Location  Location   `json:"location"`
	Signature string     `json:"signature,omitempty"`
	Children  []Symbol   `json:"children,omitempty"`
	Semantic  *Semantic  `json:"semantic,omitempty"`
}

// ModuleDependency is a directed import edge between modules. Duplicates are
// kept since they feed import counts.
type ModuleDependency struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// SymbolCall is a directed call edge between symbols.
type SymbolCall struct {
	CallerSymbolID string `json:"callerSymbolId"`
	CalleeSymbolID string `json:"calleeSymbolId"`
	CallType       string `json:"callType,omitempty"`
}

// TypeReference is an inheritance or implementation edge.
type TypeReference struct {
	Source    string        `json:"source"`
	Target    string        `json:"target"`
	Direction TypeDirection `json:"direction"`
}

// References holds the flat edge lists.
type References struct {
	ModuleDeps  []ModuleDependency `json:"moduleDeps"`
	SymbolCalls []SymbolCall       `json:"symbolCalls"`
	TypeRefs    []TypeReference    `json:"typeRefs"`
}

// ProjectSemantic is the optional project-level summary.
type ProjectSemantic struct {
	Summary string   `json:"summary,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// Project describes the analyzed project.
type Project struct {
	Name      string           `json:"name"`
	RootPath  string           `json:"rootPath"`
	Languages []string         `json:"languages"`
	Semantic  *ProjectSemantic `json:"semantic,omitempty"`
}

// Meta carries format and provenance information.
type Meta struct {
	Version         string    `json:"version"`
	GeneratedAt     time.Time `json:"generatedAt"`
	GenerationID    string    `json:"generationId,omitempty"`
	SemanticVersion string    `json:"semanticVersion,omitempty"`
}

// RankedItem is one entry of a top-N list.
type RankedItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// EntryPoint is a scored candidate root module.
type EntryPoint struct {
	ModuleID string `json:"moduleId"`
	Score    int    `json:"score"`
}

// Statistics are derived summary metrics persisted with the artifact.
type Statistics struct {
	TotalModules           int            `json:"totalModules"`
	TotalSymbols           int            `json:"totalSymbols"`
	TotalLines             int            `json:"totalLines"`
	Languages              map[string]int `json:"languages"`
	SymbolKinds            map[string]int `json:"symbolKinds"`
	MostImported           []RankedItem   `json:"mostImported"`
	MostCalled             []RankedItem   `json:"mostCalled"`
	LargestModules         []RankedItem   `json:"largestModules"`
	SemanticCoverage       float64        `json:"semanticCoverage"`
	SymbolSemanticCoverage float64        `json:"symbolSemanticCoverage"`
	DanglingEdges          int            `json:"danglingEdges"`
	Layers                 map[string]int `json:"layers"`
	EntryPoints            []EntryPoint   `json:"entryPoints,omitempty"`
}

// Blueprint is the aggregate root for one project snapshot.
type Blueprint struct {
	Meta       Meta                `json:"meta"`
	Project    Project             `json:"project"`
	Modules    map[string]*Module  `json:"modules"`
	Symbols    map[string][]Symbol `json:"symbols"` // Keyed by owning module id
	References References          `json:"references"`
	Statistics *Statistics         `json:"statistics,omitempty"`
}

// New returns an empty Blueprint stamped with the current format version.
func New(project Project, generatedAt time.Time) *Blueprint {
	return &Blueprint{
		Meta: Meta{
			Version:     FormatVersion,
			GeneratedAt: generatedAt.UTC(),
		},
		Project: project,
		Modules: make(map[string]*Module),
		Symbols: make(map[string][]Symbol),
		References: References{
			ModuleDeps:  []ModuleDependency{},
			SymbolCalls: []SymbolCall{},
			TypeRefs:    []TypeReference{},
		},
	}
}
