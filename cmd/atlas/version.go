package main

import (
	"github.com/spf13/cobra"

	"codeatlas/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		build := version.Get()
		return printResponse(&build)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
