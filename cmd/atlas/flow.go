package main

import (
	"github.com/spf13/cobra"

	"codeatlas/internal/query"
)

var (
	flowName     string
	flowMaxDepth int
	flowMaxNodes int
)

var flowCmd = &cobra.Command{
	Use:   "flow <entrySymbolId>...",
	Short: "Trace a scenario flow from entry symbols",
	Long: `Follow call edges from one or more entry symbols and label each step with its
role (entry, process, decision, data, end). --format=mermaid prints a
flowchart instead of the node list.

Examples:
  atlas flow 'src/main.ts#boot'
  atlas flow 'src/api/routes.ts#checkout' --name=checkout --format=mermaid`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFlow,
}

func init() {
	flowCmd.Flags().StringVar(&flowName, "name", "", "Scenario name")
	flowCmd.Flags().IntVar(&flowMaxDepth, "max-depth", 0, "Maximum depth (default: from config)")
	flowCmd.Flags().IntVar(&flowMaxNodes, "max-nodes", 0, "Maximum nodes (default: from config)")
	rootCmd.AddCommand(flowCmd)
}

func runFlow(cmd *cobra.Command, args []string) error {
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

	resp, err := engine.BuildScenarioFlow(ctx, query.ScenarioFlowOptions{
		Name:     flowName,
		EntryIDs: args,
		MaxDepth: flowMaxDepth,
		MaxNodes: flowMaxNodes,
	})
	if err != nil {
		return err
	}
	return printResponse(resp)
}
