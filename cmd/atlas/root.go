package main

import (
	"github.com/spf13/cobra"

	"codeatlas/internal/version"
)

var (
	rootFlag      string
	blueprintFlag string
	formatFlag    string
	verboseFlag   int
	quietFlag     bool
)

var rootCmd = &cobra.Command{
	Use:   "atlas",
	Short: "atlas - code ontology and dependency graph engine",
	Long: `atlas turns per-file code facts (symbols, imports, calls) into a Blueprint:
a single JSON artifact describing a project's modules, symbols and the edges
between them. The same Blueprint answers dependency tree, architecture,
statistics, reference, call graph and scenario flow queries, from the CLI or
over HTTP.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("atlas version {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootFlag, "root", "", "Project root (default: current directory)")
	flags.StringVar(&blueprintFlag, "blueprint", "", "Blueprint artifact path (default: from config)")
	flags.StringVar(&formatFlag, "format", string(FormatHuman), "Output format (json, human; flow also mermaid)")
	flags.CountVarP(&verboseFlag, "verbose", "v", "Increase log verbosity (-v, -vv)")
	flags.BoolVarP(&quietFlag, "quiet", "q", false, "Suppress log output")
}
