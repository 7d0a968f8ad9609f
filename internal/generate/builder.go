// Package generate turns per-file extraction facts into a Blueprint.
//
// Facts are added one file at a time with Builder.Add, which enforces id
// uniqueness. Build then runs the batch phases: collect, link, enrich,
// analyze and finalize.
package generate

import (
	"fmt"
	"log/slog"
	"path"
	"sync"

	"codeatlas/internal/blueprint"
	atlaserrors "codeatlas/internal/errors"
	"codeatlas/internal/facts"
	"codeatlas/internal/paths"
	"codeatlas/internal/project"
)

var symbolKinds = map[string]blueprint.SymbolKind{
	"function":  blueprint.KindFunction,
	"class":     blueprint.KindClass,
	"interface": blueprint.KindInterface,
	"method":    blueprint.KindMethod,
	"property":  blueprint.KindProperty,
	"variable":  blueprint.KindVariable,
	"constant":  blueprint.KindConstant,
	"type":      blueprint.KindType,
	"enum":      blueprint.KindEnum,
}

// Builder accumulates file facts. It is safe for concurrent Add calls.
type Builder struct {
	mu sync.Mutex

	order     []string // Module ids in insertion order
	modules   map[string]*blueprint.Module
	symbols   map[string][]blueprint.Symbol
	symbolIDs map[string]string // Symbol id -> owning module id
	calls     []blueprint.SymbolCall
	typeRefs  []blueprint.TypeReference
	sources   map[string]string

	logger *slog.Logger
}

// NewBuilder creates an empty Builder.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		modules:   make(map[string]*blueprint.Module),
		symbols:   make(map[string][]blueprint.Symbol),
		symbolIDs: make(map[string]string),
		sources:   make(map[string]string),
		logger:    logger,
	}
}

// Len returns the number of modules added so far.
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order)
}

// Add records one file's facts. A record is accepted whole or not at all:
// a duplicate module or symbol id, an unknown symbol kind, or a malformed
// type reference rejects it with INVALID_FACTS.
func (b *Builder) Add(ff facts.FileFacts) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	moduleID := paths.NormalizeModuleID(ff.Module.ID)
	if moduleID == "" {
		return atlaserrors.New(atlaserrors.InvalidFacts, "module id is required", nil)
	}
	if _, exists := b.modules[moduleID]; exists {
		return atlaserrors.Newf(atlaserrors.InvalidFacts, "duplicate module id %q", moduleID)
	}

	seen := make(map[string]bool)
	symbols := make([]blueprint.Symbol, 0, len(ff.Symbols))
	for _, fs := range ff.Symbols {
		s, err := b.convertSymbol(fs, moduleID, seen)
		if err != nil {
			return err
		}
		symbols = append(symbols, s)
	}

	refs := make([]blueprint.TypeReference, 0, len(ff.TypeRefs))
	for _, tr := range ff.TypeRefs {
		dir := blueprint.TypeDirection(tr.Direction)
		if dir != blueprint.DirectionParent && dir != blueprint.DirectionChild {
			return atlaserrors.Newf(atlaserrors.InvalidFacts,
				"type reference %s -> %s in %s: direction must be parent or child, got %q",
				tr.Source, tr.Target, moduleID, tr.Direction)
		}
		refs = append(refs, blueprint.TypeReference{Source: tr.Source, Target: tr.Target, Direction: dir})
	}

	m := &blueprint.Module{
		ID:       moduleID,
		Name:     ff.Module.Name,
		Language: ff.Module.Language,
		Lines:    ff.Module.Lines,
		Imports:  make([]string, 0, len(ff.Module.Imports)),
	}
	for _, imp := range ff.Module.Imports {
		m.Imports = append(m.Imports, paths.NormalizeModuleID(imp))
	}
	if m.Name == "" {
		m.Name = path.Base(moduleID)
	}
	if m.Language == "" {
		m.Language = string(project.LanguageForFile(moduleID))
	}

	b.order = append(b.order, moduleID)
	b.modules[moduleID] = m
	if len(symbols) > 0 {
		b.symbols[moduleID] = symbols
	}
	for id := range seen {
		b.symbolIDs[id] = moduleID
	}
	for _, c := range ff.Calls {
		b.calls = append(b.calls, blueprint.SymbolCall{
			CallerSymbolID: c.Caller,
			CalleeSymbolID: c.Callee,
			CallType:       c.CallType,
		})
	}
	b.typeRefs = append(b.typeRefs, refs...)
	if ff.Source != "" {
		b.sources[moduleID] = ff.Source
	}
	return nil
}

func (b *Builder) convertSymbol(fs facts.Symbol, moduleID string, seen map[string]bool) (blueprint.Symbol, error) {
	if fs.ID == "" {
		return blueprint.Symbol{}, atlaserrors.Newf(atlaserrors.InvalidFacts, "symbol %q in %s has no id", fs.Name, moduleID)
	}
	if owner, exists := b.symbolIDs[fs.ID]; exists || seen[fs.ID] {
		if owner == "" {
			owner = moduleID
		}
		return blueprint.Symbol{}, atlaserrors.Newf(atlaserrors.InvalidFacts, "duplicate symbol id %q (already in %s)", fs.ID, owner)
	}
	if fs.ModuleID != "" && paths.NormalizeModuleID(fs.ModuleID) != moduleID {
		return blueprint.Symbol{}, atlaserrors.Newf(atlaserrors.InvalidFacts,
			"symbol %q claims module %s but was reported for %s", fs.ID, fs.ModuleID, moduleID)
	}
	kind, ok := symbolKinds[fs.Kind]
	if !ok {
		return blueprint.Symbol{}, atlaserrors.Newf(atlaserrors.InvalidFacts, "symbol %q has unknown kind %q", fs.ID, fs.Kind)
	}
	seen[fs.ID] = true

	s := blueprint.Symbol{
		ID:        fs.ID,
		Name:      fs.Name,
		Kind:      kind,
		ModuleID:  moduleID,
		Location:  blueprint.Location{StartLine: fs.StartLine, EndLine: fs.EndLine},
		Signature: fs.Signature,
	}
	for _, child := range fs.Children {
		c, err := b.convertSymbol(child, moduleID, seen)
		if err != nil {
			return blueprint.Symbol{}, err
		}
		s.Children = append(s.Children, c)
	}
	return s, nil
}

// AddAll adds every record, stopping at the first rejected one.
func (b *Builder) AddAll(records []facts.FileFacts) error {
	for i, ff := range records {
		if err := b.Add(ff); err != nil {
			return fmt.Errorf("record %d (%s): %w", i+1, ff.Module.ID, err)
		}
	}
	return nil
}
