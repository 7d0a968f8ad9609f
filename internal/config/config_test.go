package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeatlas/internal/architecture"
	"codeatlas/internal/paths"
)

func writeWorkspaceFile(t *testing.T, root, name, content string) string {
	t.Helper()
	dir := filepath.Join(root, paths.WorkspaceDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", cfg.Version, CurrentVersion)
	}
	if cfg.Artifact.Path != filepath.Join(".atlas", "blueprint.json") {
		t.Errorf("Artifact.Path = %q", cfg.Artifact.Path)
	}
	if cfg.Queries.TreeMaxDepth != 10 || cfg.Queries.FlowMaxDepth != 5 || cfg.Queries.FlowMaxNodes != 200 {
		t.Errorf("unexpected query defaults: %+v", cfg.Queries)
	}
	if cfg.Semantic.Enabled {
		t.Error("semantic enrichment should be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad version", func(c *Config) { c.Version = 5 }, "version"},
		{"empty artifact", func(c *Config) { c.Artifact.Path = "" }, "artifact.path"},
		{"negative depth", func(c *Config) { c.Queries.FlowMaxDepth = -1 }, "queries"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad provider", func(c *Config) { c.Semantic.Enabled = true; c.Semantic.Provider = "carrier-pigeon" }, "semantic.provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want field %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Field: "version", Message: "bad"}
	if got := err.Error(); got != "config error in field 'version': bad" {
		t.Errorf("Error() = %q", got)
	}
}

func TestLoadConfig_Default(t *testing.T) {
	t.Setenv(paths.HomeEnvVar, "")
	res, err := LoadConfigWithDetails(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfigWithDetails() error = %v", err)
	}
	if res.ConfigPath != "" {
		t.Errorf("ConfigPath = %q, want empty", res.ConfigPath)
	}
	if res.Config.Server.Addr != DefaultConfig().Server.Addr {
		t.Errorf("Server.Addr = %q", res.Config.Server.Addr)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	t.Setenv(paths.HomeEnvVar, "")
	root := t.TempDir()
	writeWorkspaceFile(t, root, "config.json", `{
  "version": 1,
  "artifact": {"path": "out/bp.json", "compress": true},
  "queries": {"flowMaxDepth": 8},
  "semantic": {"enabled": true, "model": "local-model", "baseURL": "http://localhost:8080/v1"}
}`)

	res, err := LoadConfigWithDetails(root)
	if err != nil {
		t.Fatalf("LoadConfigWithDetails() error = %v", err)
	}
	cfg := res.Config
	if !strings.HasSuffix(res.ConfigPath, "config.json") {
		t.Errorf("ConfigPath = %q", res.ConfigPath)
	}
	if cfg.Artifact.Path != "out/bp.json" || !cfg.Artifact.Compress {
		t.Errorf("Artifact = %+v", cfg.Artifact)
	}
	if cfg.Queries.FlowMaxDepth != 8 {
		t.Errorf("FlowMaxDepth = %d, want 8", cfg.Queries.FlowMaxDepth)
	}
	if cfg.Queries.TreeMaxDepth != 10 {
		t.Errorf("TreeMaxDepth = %d, want default 10", cfg.Queries.TreeMaxDepth)
	}
	if cfg.Semantic.Model != "local-model" || cfg.Semantic.Provider != "openai" {
		t.Errorf("Semantic = %+v", cfg.Semantic)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv(paths.HomeEnvVar, "")
	t.Setenv("ATLAS_SERVER_ADDR", "0.0.0.0:9999")
	t.Setenv("ATLAS_QUERIES_TOPN", "3")
	t.Setenv("ATLAS_SERVER_WATCH", "false")

	res, err := LoadConfigWithDetails(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfigWithDetails() error = %v", err)
	}
	if res.Config.Server.Addr != "0.0.0.0:9999" {
		t.Errorf("Server.Addr = %q", res.Config.Server.Addr)
	}
	if res.Config.Queries.TopN != 3 {
		t.Errorf("Queries.TopN = %d", res.Config.Queries.TopN)
	}
	if res.Config.Server.Watch {
		t.Error("Server.Watch should be overridden to false")
	}
	want := map[string]bool{"server.addr": true, "queries.topN": true, "server.watch": true}
	for _, key := range res.EnvOverrides {
		delete(want, key)
	}
	if len(want) != 0 {
		t.Errorf("EnvOverrides = %v, missing %v", res.EnvOverrides, want)
	}
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	t.Setenv(paths.HomeEnvVar, "")
	root := t.TempDir()
	writeWorkspaceFile(t, root, "config.json", "{not json")
	if _, err := LoadConfig(root); err == nil {
		t.Error("LoadConfig() should fail on invalid JSON")
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	t.Setenv(paths.HomeEnvVar, "")
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Server.Addr = "localhost:7000"
	if err := cfg.Save(root); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.Server.Addr != "localhost:7000" {
		t.Errorf("Server.Addr = %q", loaded.Server.Addr)
	}
}

func TestSupportedEnvVars(t *testing.T) {
	vars := SupportedEnvVars()
	for _, want := range []string{"ATLAS_ARTIFACT_PATH", "ATLAS_SEMANTIC_MODEL", "ATLAS_LOGGING_LEVEL"} {
		found := false
		for _, v := range vars {
			if v == want {
				found = true
			}
		}
		if !found {
			t.Errorf("SupportedEnvVars() missing %s", want)
		}
	}
}

func TestLoadHeuristics(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file yields defaults", func(t *testing.T) {
		h, err := LoadHeuristics(filepath.Join(dir, "absent.toml"))
		if err != nil {
			t.Fatalf("LoadHeuristics() error = %v", err)
		}
		if h.EntryPoints.UnimportedBonus != 20 || len(h.Layers) != len(architecture.DefaultRules()) {
			t.Errorf("unexpected defaults: %+v", h)
		}
	})

	t.Run("partial overrides", func(t *testing.T) {
		path := filepath.Join(dir, "partial.toml")
		content := "[entrypoints]\nunimported_bonus = 35\n\n[[layers]]\nlayer = \"data\"\ntokens = [\"ledger\"]\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		h, err := LoadHeuristics(path)
		if err != nil {
			t.Fatalf("LoadHeuristics() error = %v", err)
		}
		if h.EntryPoints.UnimportedBonus != 35 {
			t.Errorf("UnimportedBonus = %d, want 35", h.EntryPoints.UnimportedBonus)
		}
		if h.EntryPoints.PatternWeight != 10 {
			t.Errorf("PatternWeight = %d, want default 10", h.EntryPoints.PatternWeight)
		}
		if len(h.Layers) != 1 {
			t.Fatalf("Layers = %+v, want the single override rule", h.Layers)
		}
		c, err := h.Classifier()
		if err != nil {
			t.Fatal(err)
		}
		if got := c.ClassifyPath("src/ledger/book.go"); got != architecture.LayerData {
			t.Errorf("ClassifyPath() = %v, want data", got)
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		path := filepath.Join(dir, "typo.toml")
		if err := os.WriteFile(path, []byte("[entrypoints]\nunimportd_bonus = 1\n"), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := LoadHeuristics(path)
		if err == nil || !strings.Contains(err.Error(), "unimportd_bonus") {
			t.Errorf("LoadHeuristics() error = %v, want unknown key", err)
		}
	})

	t.Run("unknown layer", func(t *testing.T) {
		path := filepath.Join(dir, "layer.toml")
		if err := os.WriteFile(path, []byte("[[layers]]\nlayer = \"cloud\"\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadHeuristics(path); err == nil {
			t.Error("LoadHeuristics() should reject unknown layers")
		}
	})
}

func TestWriteDefaultHeuristicsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".atlas", "heuristics.toml")
	if err := WriteDefaultHeuristics(path); err != nil {
		t.Fatalf("WriteDefaultHeuristics() error = %v", err)
	}
	h, err := LoadHeuristics(path)
	if err != nil {
		t.Fatalf("LoadHeuristics() error = %v", err)
	}
	if len(h.Layers) != len(architecture.DefaultRules()) {
		t.Errorf("Layers = %d rules, want %d", len(h.Layers), len(architecture.DefaultRules()))
	}
	if h.EntryPoints.Limit != 5 {
		t.Errorf("Limit = %d, want 5", h.EntryPoints.Limit)
	}
}
