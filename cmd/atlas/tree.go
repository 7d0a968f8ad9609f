package main

import (
	"github.com/spf13/cobra"

	"codeatlas/internal/errors"
	"codeatlas/internal/query"
)

var (
	treeMaxDepth int
	treeMaxNodes int
)

var treeCmd = &cobra.Command{
	Use:   "tree [moduleId]",
	Short: "Show the import tree of a module",
	Long: `Expand module imports from a root module. Without an argument the best
detected entry point is used. Import cycles are marked, not followed.

Examples:
  atlas tree
  atlas tree src/main.ts
  atlas tree src/main.ts --max-depth=3`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTree,
}

func init() {
	treeCmd.Flags().IntVar(&treeMaxDepth, "max-depth", 0, "Maximum depth (default: from config)")
	treeCmd.Flags().IntVar(&treeMaxNodes, "max-nodes", 0, "Maximum nodes (default: from config)")
	rootCmd.AddCommand(treeCmd)
}

func runTree(cmd *cobra.Command, args []string) error {
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

	opts := query.DependencyTreeOptions{MaxDepth: treeMaxDepth, MaxNodes: treeMaxNodes}
	if len(args) == 1 {
		opts.RootID = args[0]
	}
	resp, err := engine.BuildDependencyTree(ctx, opts)
	if err != nil {
		return err
	}
	if err := printResponse(resp); err != nil {
		return err
	}
	if !resp.Found {
		if resp.RootID == "" {
			return errors.Newf(errors.UnknownRoot, "no entry point detected")
		}
		return errors.Newf(errors.UnknownRoot, "module %q not found", resp.RootID)
	}
	return nil
}
