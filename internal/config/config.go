package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"codeatlas/internal/paths"
)

// CurrentVersion is the config schema version this build reads.
const CurrentVersion = 1

// EnvPrefix prefixes environment overrides: ATLAS_SERVER_ADDR overrides
// server.addr.
const EnvPrefix = "ATLAS"

// Config represents the complete atlas configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Artifact   ArtifactConfig   `json:"artifact" mapstructure:"artifact"`
	Catalog    CatalogConfig    `json:"catalog" mapstructure:"catalog"`
	Queries    QueriesConfig    `json:"queries" mapstructure:"queries"`
	Semantic   SemanticConfig   `json:"semantic" mapstructure:"semantic"`
	Server     ServerConfig     `json:"server" mapstructure:"server"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging"`
	Heuristics HeuristicsConfig `json:"heuristics" mapstructure:"heuristics"`
}

// ArtifactConfig locates the Blueprint artifact
type ArtifactConfig struct {
	Path     string `json:"path" mapstructure:"path"`
	Compress bool   `json:"compress" mapstructure:"compress"` // Write <path>.zst
}

// CatalogConfig contains snapshot catalog configuration
type CatalogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
	Keep    int    `json:"keep" mapstructure:"keep"` // Snapshots kept by prune
}

// QueriesConfig contains query defaults
type QueriesConfig struct {
	TreeMaxDepth   int `json:"treeMaxDepth" mapstructure:"treeMaxDepth"`
	TreeMaxNodes   int `json:"treeMaxNodes" mapstructure:"treeMaxNodes"`
	FlowMaxDepth   int `json:"flowMaxDepth" mapstructure:"flowMaxDepth"`
	FlowMaxNodes   int `json:"flowMaxNodes" mapstructure:"flowMaxNodes"`
	CallGraphDepth int `json:"callGraphDepth" mapstructure:"callGraphDepth"`
	TopN           int `json:"topN" mapstructure:"topN"`
}

// SemanticConfig contains semantic enrichment configuration
type SemanticConfig struct {
	Enabled         bool   `json:"enabled" mapstructure:"enabled"`
	Provider        string `json:"provider" mapstructure:"provider"`
	Model           string `json:"model" mapstructure:"model"`
	BaseURL         string `json:"baseURL" mapstructure:"baseURL"`
	APIKeyEnv       string `json:"apiKeyEnv" mapstructure:"apiKeyEnv"`
	Concurrency     int    `json:"concurrency" mapstructure:"concurrency"`
	AnnotateSymbols bool   `json:"annotateSymbols" mapstructure:"annotateSymbols"`
}

// ServerConfig contains HTTP query server configuration
type ServerConfig struct {
	Addr       string `json:"addr" mapstructure:"addr"`
	Watch      bool   `json:"watch" mapstructure:"watch"`
	DebounceMs int    `json:"debounceMs" mapstructure:"debounceMs"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format     string `json:"format" mapstructure:"format"`
	Level      string `json:"level" mapstructure:"level"`
	File       bool   `json:"file" mapstructure:"file"`             // Also write .atlas/logs/<subsystem>.log
	MaxSize    string `json:"maxSize" mapstructure:"maxSize"`       // e.g. "10MB"; empty disables rotation
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups"` // Rotated files kept
}

// HeuristicsConfig names the heuristic override files inside the workspace
type HeuristicsConfig struct {
	File       string `json:"file" mapstructure:"file"`
	BlocksFile string `json:"blocksFile" mapstructure:"blocksFile"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Artifact: ArtifactConfig{
			Path: filepath.Join(paths.WorkspaceDirName, paths.ArtifactFileName),
		},
		Catalog: CatalogConfig{
			Enabled: true,
			Path:    filepath.Join(paths.WorkspaceDirName, paths.CatalogFileName),
			Keep:    20,
		},
		Queries: QueriesConfig{
			TreeMaxDepth:   10,
			TreeMaxNodes:   10000,
			FlowMaxDepth:   5,
			FlowMaxNodes:   200,
			CallGraphDepth: 2,
			TopN:           10,
		},
		Semantic: SemanticConfig{
			Enabled:     false,
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			Concurrency: 4,
		},
		Server: ServerConfig{
			Addr:       "localhost:9130",
			Watch:      true,
			DebounceMs: 500,
		},
		Logging: LoggingConfig{
			Format:     "human",
			Level:      "info",
			File:       true,
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
		Heuristics: HeuristicsConfig{
			File:       paths.HeuristicsFileName,
			BlocksFile: "BLOCKS.toml",
		},
	}
}

// LoadResult reports where the configuration came from.
type LoadResult struct {
	Config       *Config
	ConfigPath   string   // Empty when defaults were used
	EnvOverrides []string // Keys overridden from the environment
}

// LoadConfig loads configuration from .atlas/config.json under root, with
// ATLAS_* environment overrides applied on top.
func LoadConfig(root string) (*Config, error) {
	res, err := LoadConfigWithDetails(root)
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// LoadConfigWithDetails is LoadConfig plus provenance.
func LoadConfigWithDetails(root string) (*LoadResult, error) {
	v := viper.New()
	keys := setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(paths.WorkspaceDir(root))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	res := &LoadResult{}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, &ConfigError{Field: "file", Message: err.Error()}
		}
	} else {
		res.ConfigPath = v.ConfigFileUsed()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Field: "file", Message: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	for _, key := range keys {
		if _, ok := os.LookupEnv(EnvVarName(key)); ok {
			res.EnvOverrides = append(res.EnvOverrides, key)
		}
	}
	res.Config = &cfg
	return res, nil
}

// EnvVarName returns the environment variable overriding a config key.
func EnvVarName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// SupportedEnvVars lists every environment variable LoadConfig honors.
func SupportedEnvVars() []string {
	keys := setDefaults(viper.New(), DefaultConfig())
	vars := make([]string, len(keys))
	for i, key := range keys {
		vars[i] = EnvVarName(key)
	}
	return vars
}

// setDefaults registers every leaf of cfg as a viper default so that
// AutomaticEnv can override keys absent from the file. It returns the keys.
func setDefaults(v *viper.Viper, cfg *Config) []string {
	data, _ := json.Marshal(cfg)
	var tree map[string]interface{}
	_ = json.Unmarshal(data, &tree)

	var keys []string
	var walk func(prefix string, node map[string]interface{})
	walk = func(prefix string, node map[string]interface{}) {
		for k, val := range node {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if child, ok := val.(map[string]interface{}); ok {
				walk(key, child)
				continue
			}
			v.SetDefault(key, val)
			keys = append(keys, key)
		}
	}
	walk("", tree)
	sort.Strings(keys)
	return keys
}

// Save writes the configuration to .atlas/config.json under root
func (c *Config) Save(root string) error {
	dir, err := paths.EnsureWorkspace(root)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, paths.ConfigFileName), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}
	if c.Artifact.Path == "" {
		return &ConfigError{Field: "artifact.path", Message: "must not be empty"}
	}
	if c.Queries.TreeMaxDepth < 0 || c.Queries.FlowMaxDepth < 0 || c.Queries.CallGraphDepth < 0 {
		return &ConfigError{Field: "queries", Message: "depths must not be negative"}
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}
	if c.Semantic.Enabled && c.Semantic.Provider != "openai" {
		return &ConfigError{Field: "semantic.provider", Message: "only openai-compatible providers are supported"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
