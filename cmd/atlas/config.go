package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"codeatlas/internal/config"
)

var configShowDiff bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage atlas configuration",
	Long:  "View atlas configuration stored in .atlas/config.json",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration: file values with ATLAS_* environment
overrides applied.

Examples:
  atlas config show              # Every setting
  atlas config show --diff       # Only non-default values
  atlas config show --format=json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variables",
	Args:  cobra.NoArgs,
	Run:   runConfigEnv,
}

func init() {
	configShowCmd.Flags().BoolVar(&configShowDiff, "diff", false, "Only show non-default values")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEnvCmd)
	rootCmd.AddCommand(configCmd)
}

// ConfigShowResponse is the response format for config show
type ConfigShowResponse struct {
	ConfigPath   string          `json:"configPath,omitempty"`
	UsedDefaults bool            `json:"usedDefaults"`
	EnvOverrides []string        `json:"envOverrides,omitempty"`
	Settings     []ConfigSetting `json:"settings"`
}

// ConfigSetting is one leaf of the configuration.
type ConfigSetting struct {
	Key      string      `json:"key"`
	Value    interface{} `json:"value"`
	Default  interface{} `json:"default"`
	Modified bool        `json:"modified"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	result, err := config.LoadConfigWithDetails(root)
	if err != nil {
		return err
	}

	settings, err := configSettings(result.Config, config.DefaultConfig())
	if err != nil {
		return err
	}
	if configShowDiff {
		modified := settings[:0]
		for _, s := range settings {
			if s.Modified {
				modified = append(modified, s)
			}
		}
		settings = modified
	}

	return printResponse(&ConfigShowResponse{
		ConfigPath:   result.ConfigPath,
		UsedDefaults: result.ConfigPath == "",
		EnvOverrides: result.EnvOverrides,
		Settings:     settings,
	})
}

func runConfigEnv(cmd *cobra.Command, args []string) {
	fmt.Println("Supported environment variables:")
	for _, name := range config.SupportedEnvVars() {
		marker := " "
		if _, ok := os.LookupEnv(name); ok {
			marker = "*"
		}
		fmt.Printf(" %s %s\n", marker, name)
	}
	fmt.Println("\n* set in the current environment")
}

// configSettings flattens cfg into dotted keys, sorted, each paired with its
// default.
func configSettings(cfg, defaults *config.Config) ([]ConfigSetting, error) {
	current, err := flattenJSON(cfg)
	if err != nil {
		return nil, err
	}
	base, err := flattenJSON(defaults)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(current))
	for k := range current {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	settings := make([]ConfigSetting, 0, len(keys))
	for _, k := range keys {
		settings = append(settings, ConfigSetting{
			Key:      k,
			Value:    current[k],
			Default:  base[k],
			Modified: fmt.Sprint(current[k]) != fmt.Sprint(base[k]),
		})
	}
	return settings, nil
}

func flattenJSON(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, err
	}

	out := make(map[string]interface{})
	var walk func(prefix string, node map[string]interface{})
	walk = func(prefix string, node map[string]interface{}) {
		for k, val := range node {
			key := strings.TrimPrefix(prefix+"."+k, ".")
			if child, ok := val.(map[string]interface{}); ok {
				walk(key, child)
				continue
			}
			out[key] = val
		}
	}
	walk("", tree)
	return out, nil
}
