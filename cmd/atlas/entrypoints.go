package main

import (
	"github.com/spf13/cobra"
)

var entrypointsCmd = &cobra.Command{
	Use:   "entrypoints",
	Short: "Rank likely entry modules",
	Long: `Score every module on name patterns, root-like placement and how rarely it is
imported, and list the candidates best first.

Examples:
  atlas entrypoints
  atlas entrypoints --format=json`,
	Args: cobra.NoArgs,
	RunE: runEntrypoints,
}

func init() {
	rootCmd.AddCommand(entrypointsCmd)
}

func runEntrypoints(cmd *cobra.Command, args []string) error {
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

	resp, err := engine.DetectEntryPoints(ctx)
	if err != nil {
		return err
	}
	return printResponse(resp)
}
