package main

import (
	"github.com/spf13/cobra"
)

var archCmd = &cobra.Command{
	Use:   "arch",
	Short: "Show layers, blocks and block dependencies",
	Long: `Classify modules into architecture layers and group them into blocks.
Blocks declared in .atlas/BLOCKS.toml take precedence over directory-based
grouping; 'atlas init --blocks' writes the detected blocks there as a
starting point.

Examples:
  atlas arch
  atlas arch --format=json`,
	Args: cobra.NoArgs,
	RunE: runArch,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show Blueprint statistics",
	Long: `Show totals, language and kind distributions, the most imported, most called
and largest modules, and semantic coverage.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(archCmd)
	rootCmd.AddCommand(statsCmd)
}

func runArch(cmd *cobra.Command, args []string) error {
	env, err := newEnv("cli")
	if err != nil {
		return err
	}
	defer env.Close()

	engine, err := env.loadEngine()
	if err != nil {
		return err
	}
	ctx, cancel := newContext()
	defer cancel()

	resp, err := engine.GetArchitectureView(ctx)
	if err != nil {
		return err
	}
	return printResponse(resp)
}

func runStats(cmd *cobra.Command, args []string) error {
	env, err := newEnv("cli")
	if err != nil {
		return err
	}
	defer env.Close()

	engine, err := env.loadEngine()
	if err != nil {
		return err
	}
	ctx, cancel := newContext()
	defer cancel()

	resp, err := engine.GetStatistics(ctx)
	if err != nil {
		return err
	}
	return printResponse(resp)
}
