// Package statistics derives the summary metrics persisted with a Blueprint.
package statistics

import (
	"sort"

	"codeatlas/internal/architecture"
	"codeatlas/internal/blueprint"
	"codeatlas/internal/entrypoints"
	"codeatlas/internal/graph"
)

// DefaultTopN is the length of every ranked list.
const DefaultTopN = 10

// Options configure Compute.
type Options struct {
	TopN        int
	Classifier  *architecture.Classifier  // Nil skips the layer distribution
	EntryPoints *entrypoints.ScoringTable // Nil skips entry-point detection
}

// Compute derives statistics in one pass over the indexed view. Ranked lists
// break ties by ascending id.
func Compute(v *blueprint.View, opts Options) *blueprint.Statistics {
	topN := opts.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	bp := v.Blueprint()

	stats := &blueprint.Statistics{
		TotalModules: len(bp.Modules),
		TotalSymbols: v.SymbolCount(),
		Languages:    make(map[string]int),
		SymbolKinds:  make(map[string]int),
	}

	described := 0
	largest := make([]blueprint.RankedItem, 0, len(bp.Modules))
	imported := make([]blueprint.RankedItem, 0, len(bp.Modules))
	for _, id := range v.ModuleIDs() {
		m, _ := v.Module(id)
		stats.TotalLines += m.Lines
		lang := m.Language
		if lang == "" {
			lang = "unknown"
		}
		stats.Languages[lang]++
		if m.Semantic.HasDescription() {
			described++
		}
		largest = append(largest, blueprint.RankedItem{ID: id, Name: displayName(m), Count: m.Lines})
		if n := v.ModuleDeps().InDegree(id); n > 0 {
			imported = append(imported, blueprint.RankedItem{ID: id, Name: displayName(m), Count: n})
		}
	}
	if stats.TotalModules > 0 {
		stats.SemanticCoverage = float64(described) / float64(stats.TotalModules)
	}

	symDescribed := 0
	called := make([]blueprint.RankedItem, 0)
	for _, id := range v.SymbolIDs() {
		e, _ := v.Symbol(id)
		stats.SymbolKinds[string(e.Symbol.Kind)]++
		if e.Symbol.Semantic.HasDescription() {
			symDescribed++
		}
		if n := v.Calls().InDegree(id); n > 0 {
			called = append(called, blueprint.RankedItem{ID: id, Name: e.Symbol.Name, Count: n})
		}
	}
	if stats.TotalSymbols > 0 {
		stats.SymbolSemanticCoverage = float64(symDescribed) / float64(stats.TotalSymbols)
	}

	stats.MostImported = top(imported, topN)
	stats.MostCalled = top(called, topN)
	stats.LargestModules = top(largest, topN)
	stats.DanglingEdges = CountDangling(v)

	if opts.Classifier != nil {
		stats.Layers = opts.Classifier.Distribution(v)
	}
	if opts.EntryPoints != nil {
		stats.EntryPoints = entrypoints.ToStatistics(entrypoints.Detect(v, *opts.EntryPoints))
	}
	return stats
}

// CountDangling counts edges whose target is absent from the Blueprint.
func CountDangling(v *blueprint.View) int {
	n := 0
	for _, id := range v.ModuleDeps().Targets() {
		if !v.HasModule(id) {
			n += v.ModuleDeps().InDegree(id)
		}
	}
	for _, idx := range []*graph.Index{v.Calls(), v.TypeRefs()} {
		for _, id := range idx.Targets() {
			if _, ok := v.Symbol(id); !ok {
				n += idx.InDegree(id)
			}
		}
	}
	return n
}

func top(items []blueprint.RankedItem, n int) []blueprint.RankedItem {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].ID < items[j].ID
	})
	if len(items) > n {
		items = items[:n]
	}
	return items
}

func displayName(m *blueprint.Module) string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}
