// Package entrypoints ranks modules by how likely they are to be a program's
// startup file.
//
// Detection is a heuristic. The weights live in a ScoringTable so they can be
// tuned per project without touching code, and a caller-supplied root always
// wins over the ranking.
package entrypoints

import (
	"path"
	"sort"
	"strings"

	"codeatlas/internal/blueprint"
)

// Signal names recorded on candidates.
const (
	SignalNamePattern = "name-pattern"
	SignalRootLike    = "root-like-path"
	SignalUnimported  = "never-imported"
	SignalWiring      = "imports"
)

// ScoringTable holds the weights used to score candidates.
type ScoringTable struct {
	// Patterns are file stems in priority order. A match on position i
	// scores PatternWeight * (len(Patterns) - i).
	Patterns      []string `toml:"patterns" json:"patterns"`
	PatternWeight int      `toml:"pattern_weight" json:"patternWeight"`

	// RootFolders are the top-level folders whose direct children still
	// count as root-like.
	RootFolders   []string `toml:"root_folders" json:"rootFolders"`
	RootLikeBonus int      `toml:"root_like_bonus" json:"rootLikeBonus"`

	UnimportedBonus int `toml:"unimported_bonus" json:"unimportedBonus"`
	ImportCap       int `toml:"import_cap" json:"importCap"`
	Limit           int `toml:"limit" json:"limit"`
}

// DefaultScoringTable returns the stock weights.
func DefaultScoringTable() ScoringTable {
	return ScoringTable{
		Patterns:        []string{"cli", "index", "main", "app", "server", "entry"},
		PatternWeight:   10,
		RootFolders:     []string{"src", "lib", "app", "bin", "cmd"},
		RootLikeBonus:   5,
		UnimportedBonus: 20,
		ImportCap:       10,
		Limit:           5,
	}
}

// Candidate is one ranked entry point.
type Candidate struct {
	ModuleID string   `json:"moduleId"`
	Score    int      `json:"score"`
	Signals  []string `json:"signals,omitempty"`
}

// Score computes the score of a single module along with the signals that
// contributed to it.
func (t ScoringTable) Score(m *blueprint.Module, importedBy int) (int, []string) {
	score := 0
	var signals []string

	if rank := t.patternRank(m.ID); rank > 0 {
		score += t.PatternWeight * rank
		signals = append(signals, SignalNamePattern)
	}
	if t.isRootLike(m.ID) {
		score += t.RootLikeBonus
		signals = append(signals, SignalRootLike)
	}
	if importedBy == 0 {
		score += t.UnimportedBonus
		signals = append(signals, SignalUnimported)
	}
	if n := len(m.Imports); n > 0 {
		if t.ImportCap > 0 && n > t.ImportCap {
			n = t.ImportCap
		}
		score += n
		signals = append(signals, SignalWiring)
	}
	return score, signals
}

// patternRank returns len(Patterns)-i for the first pattern i matching the
// file stem, or 0.
func (t ScoringTable) patternRank(id string) int {
	stem := fileStem(id)
	for i, p := range t.Patterns {
		if stem == strings.ToLower(p) {
			return len(t.Patterns) - i
		}
	}
	return 0
}

func (t ScoringTable) isRootLike(id string) bool {
	parts := strings.Split(strings.Trim(id, "/"), "/")
	switch len(parts) {
	case 1:
		return true
	case 2:
		dir := strings.ToLower(parts[0])
		for _, f := range t.RootFolders {
			if dir == strings.ToLower(f) {
				return true
			}
		}
	}
	return false
}

// fileStem lowercases the base name and strips the last extension and
// surrounding underscores, so "__main__.py" and "Main.java" both yield "main".
func fileStem(id string) string {
	base := path.Base(id)
	base = strings.TrimSuffix(base, path.Ext(base))
	return strings.Trim(strings.ToLower(base), "_")
}

// Detect scores every module and returns at most table.Limit candidates,
// highest score first, ties broken by ascending id. Modules scoring zero are
// dropped.
func Detect(v *blueprint.View, table ScoringTable) []Candidate {
	deps := v.ModuleDeps()

	var candidates []Candidate
	for _, id := range v.ModuleIDs() {
		m, _ := v.Module(id)
		score, signals := table.Score(m, deps.InDegree(id))
		if score <= 0 {
			continue
		}
		candidates = append(candidates, Candidate{ModuleID: id, Score: score, Signals: signals})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ModuleID < candidates[j].ModuleID
	})

	limit := table.Limit
	if limit <= 0 {
		limit = DefaultScoringTable().Limit
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// ResolveRoot picks the module a dependency tree should start from. An
// explicit root is returned as-is, even when absent, so the caller sees a
// not-found result rather than a silently different tree. Otherwise the best
// candidate wins. Returns "" when nothing qualifies.
func ResolveRoot(v *blueprint.View, explicit string, table ScoringTable) string {
	if explicit != "" {
		return explicit
	}
	if best := Detect(v, table); len(best) > 0 {
		return best[0].ModuleID
	}
	return ""
}

// ToStatistics converts candidates to the persisted form.
func ToStatistics(candidates []Candidate) []blueprint.EntryPoint {
	if len(candidates) == 0 {
		return nil
	}
	out := make([]blueprint.EntryPoint, len(candidates))
	for i, c := range candidates {
		out[i] = blueprint.EntryPoint{ModuleID: c.ModuleID, Score: c.Score}
	}
	return out
}
