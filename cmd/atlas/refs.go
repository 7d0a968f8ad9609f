package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"codeatlas/internal/errors"
	"codeatlas/internal/query"
	"codeatlas/internal/references"
)

var (
	callgraphDirection string
	callgraphDepth     int
)

var refsCmd = &cobra.Command{
	Use:   "refs <symbolId>",
	Short: "List callers, callees and type relations of a symbol",
	Long: `List every call and type edge touching a symbol. Symbol ids have the form
<moduleId>#<Qualified.Name>. An unknown id reports similar ids.

Examples:
  atlas refs 'src/services/cart.ts#add'
  atlas refs 'src/services/cart.ts#Cart.total' --format=json`,
	Args: cobra.ExactArgs(1),
	RunE: runRefs,
}

var callgraphCmd = &cobra.Command{
	Use:   "callgraph <symbolId>",
	Short: "Show the call neighborhood of a symbol",
	Long: fmt.Sprintf(`Walk call edges from a symbol towards its callers, its callees or both,
up to a bounded depth (at most %d).

Examples:
  atlas callgraph 'src/main.ts#boot' --direction=callees
  atlas callgraph 'src/db/store.ts#save' --direction=callers --depth=3`, references.MaxCallGraphDepth),
	Args: cobra.ExactArgs(1),
	RunE: runCallgraph,
}

func init() {
	callgraphCmd.Flags().StringVar(&callgraphDirection, "direction", "both", "Direction (callers, callees, both)")
	callgraphCmd.Flags().IntVar(&callgraphDepth, "depth", 0, "Depth (default: from config)")
	rootCmd.AddCommand(refsCmd)
	rootCmd.AddCommand(callgraphCmd)
}

func runRefs(cmd *cobra.Command, args []string) error {
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

	resp, err := engine.GetSymbolReferences(ctx, args[0])
	if err != nil {
		return err
	}
	if err := printResponse(resp); err != nil {
		return err
	}
	return unknownSymbol(args[0], resp.Found)
}

func runCallgraph(cmd *cobra.Command, args []string) error {
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

	resp, err := engine.GetCallGraph(ctx, query.CallGraphOptions{
		SymbolID:  args[0],
		Direction: references.ParseDirection(callgraphDirection),
		Depth:     callgraphDepth,
	})
	if err != nil {
		return err
	}
	if err := printResponse(resp); err != nil {
		return err
	}
	return unknownSymbol(args[0], resp.Found)
}

// unknownSymbol turns a not-found result into an error after the result
// has been printed, so the exit status reflects it.
func unknownSymbol(id string, found bool) error {
	if found {
		return nil
	}
	return errors.Newf(errors.UnknownSymbol, "symbol %q not found", id)
}
