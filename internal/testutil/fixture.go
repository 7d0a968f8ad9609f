// Package testutil provides Blueprint fixtures for tests.
package testutil

import (
	"path"
	"strings"
	"time"

	"codeatlas/internal/blueprint"
)

// FixtureTime is the generation timestamp stamped on every fixture.
var FixtureTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// Fixture assembles a Blueprint fluently. Imports added through Module also
// produce the matching ModuleDependency edges, the way generation does.
type Fixture struct {
	bp *blueprint.Blueprint
}

// NewFixture starts an empty Blueprint for project name.
func NewFixture(name string) *Fixture {
	return &Fixture{bp: blueprint.New(blueprint.Project{
		Name:      name,
		RootPath:  "/src/" + name,
		Languages: []string{},
	}, FixtureTime)}
}

// Module adds a module with the given line count and imports.
func (f *Fixture) Module(id string, lines int, imports ...string) *Fixture {
	f.bp.Modules[id] = &blueprint.Module{
		ID:       id,
		Name:     path.Base(id),
		Language: languageOf(id),
		Lines:    lines,
		Imports:  imports,
	}
	for _, target := range imports {
		f.bp.References.ModuleDeps = append(f.bp.References.ModuleDeps, blueprint.ModuleDependency{
			Source: id,
			Target: target,
		})
	}
	return f
}

// Describe attaches a semantic annotation to an existing module.
func (f *Fixture) Describe(moduleID, description, layer string) *Fixture {
	if m, ok := f.bp.Modules[moduleID]; ok {
		m.Semantic = &blueprint.Semantic{Description: description, ArchitectureLayer: layer}
	}
	return f
}

// Symbol adds a top-level symbol to moduleID. Its id is moduleID#name.
func (f *Fixture) Symbol(moduleID, name string, kind blueprint.SymbolKind) *Fixture {
	f.bp.Symbols[moduleID] = append(f.bp.Symbols[moduleID], blueprint.Symbol{
		ID:       SymbolID(moduleID, name),
		Name:     name,
		Kind:     kind,
		ModuleID: moduleID,
		Location: blueprint.Location{StartLine: 1, EndLine: 10},
	})
	return f
}

// Child adds a nested symbol under the top-level symbol parentName.
func (f *Fixture) Child(moduleID, parentName, name string, kind blueprint.SymbolKind) *Fixture {
	syms := f.bp.Symbols[moduleID]
	for i := range syms {
		if syms[i].Name == parentName {
			syms[i].Children = append(syms[i].Children, blueprint.Symbol{
				ID:       SymbolID(moduleID, parentName+"."+name),
				Name:     name,
				Kind:     kind,
				ModuleID: moduleID,
				Location: blueprint.Location{StartLine: 2, EndLine: 4},
			})
		}
	}
	return f
}

// Call adds a SymbolCall edge between two symbol ids.
func (f *Fixture) Call(caller, callee, callType string) *Fixture {
	f.bp.References.SymbolCalls = append(f.bp.References.SymbolCalls, blueprint.SymbolCall{
		CallerSymbolID: caller,
		CalleeSymbolID: callee,
		CallType:       callType,
	})
	return f
}

// TypeRef adds a TypeReference edge.
func (f *Fixture) TypeRef(source, target string, dir blueprint.TypeDirection) *Fixture {
	f.bp.References.TypeRefs = append(f.bp.References.TypeRefs, blueprint.TypeReference{
		Source:    source,
		Target:    target,
		Direction: dir,
	})
	return f
}

// Blueprint returns the assembled Blueprint.
func (f *Fixture) Blueprint() *blueprint.Blueprint {
	return f.bp
}

// View returns an indexed view over the assembled Blueprint.
func (f *Fixture) View() *blueprint.View {
	return blueprint.NewView(f.bp)
}

// SymbolID is the id scheme fixtures use for symbols.
func SymbolID(moduleID, name string) string {
	return moduleID + "#" + name
}

func languageOf(id string) string {
	switch strings.ToLower(path.Ext(id)) {
	case ".go":
		return "go"
	case ".ts", ".tsx":
		return "typescript"
	case ".js", ".jsx":
		return "javascript"
	case ".py":
		return "python"
	case ".rs":
		return "rust"
	default:
		return "unknown"
	}
}
