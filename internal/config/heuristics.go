package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"codeatlas/internal/architecture"
	"codeatlas/internal/entrypoints"
	"codeatlas/internal/paths"
)

// Heuristics are the tunable weights and rule tables, overridable per project
// in .atlas/heuristics.toml:
//
//	[entrypoints]
//	patterns = ["main", "server"]
//	unimported_bonus = 30
//
//	[[layers]]
//	layer = "data"
//	tokens = ["repo", "dao"]
//
// Entry-point keys override individual weights. A non-empty layers list
// replaces the whole rule table, since rule order decides ties.
type Heuristics struct {
	EntryPoints entrypoints.ScoringTable `toml:"entrypoints"`
	Layers      []architecture.Rule      `toml:"layers"`
}

// DefaultHeuristics returns the stock tables.
func DefaultHeuristics() *Heuristics {
	return &Heuristics{
		EntryPoints: entrypoints.DefaultScoringTable(),
		Layers:      architecture.DefaultRules(),
	}
}

// LoadHeuristics reads the override file. A missing file yields the
// defaults; unknown keys are rejected so typos do not silently fall back.
func LoadHeuristics(path string) (*Heuristics, error) {
	h := DefaultHeuristics()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return h, nil
	}

	var overrides struct {
		EntryPoints entrypoints.ScoringTable `toml:"entrypoints"`
		Layers      []architecture.Rule      `toml:"layers"`
	}
	overrides.EntryPoints = h.EntryPoints
	md, err := toml.DecodeFile(path, &overrides)
	if err != nil {
		return nil, &ConfigError{Field: filepath.Base(path), Message: err.Error()}
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, &ConfigError{Field: filepath.Base(path), Message: "unknown keys: " + strings.Join(keys, ", ")}
	}

	h.EntryPoints = overrides.EntryPoints
	if len(overrides.Layers) > 0 {
		h.Layers = overrides.Layers
	}
	if err := h.validate(); err != nil {
		return nil, &ConfigError{Field: filepath.Base(path), Message: err.Error()}
	}
	return h, nil
}

// LoadProjectHeuristics loads the heuristics file named by cfg from the
// project workspace.
func LoadProjectHeuristics(root string, cfg *Config) (*Heuristics, error) {
	return LoadHeuristics(filepath.Join(paths.WorkspaceDir(root), cfg.Heuristics.File))
}

func (h *Heuristics) validate() error {
	t := h.EntryPoints
	if len(t.Patterns) == 0 {
		return fmt.Errorf("entrypoints.patterns must not be empty")
	}
	if t.PatternWeight < 0 || t.RootLikeBonus < 0 || t.UnimportedBonus < 0 || t.ImportCap < 0 {
		return fmt.Errorf("entry-point weights must not be negative")
	}
	if _, err := h.Classifier(); err != nil {
		return err
	}
	return nil
}

// Classifier builds the layer classifier from the rule table.
func (h *Heuristics) Classifier() (*architecture.Classifier, error) {
	return architecture.NewClassifier(h.Layers)
}

// WriteDefaultHeuristics writes the stock tables to path, as a starting
// point for edits.
func WriteDefaultHeuristics(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(DefaultHeuristics())
}
