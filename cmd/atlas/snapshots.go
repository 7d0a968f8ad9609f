package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"codeatlas/internal/storage"
)

var (
	snapshotsLimit int
	snapshotsKeep  int
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Inspect recorded Blueprint generations",
	Long: `Every 'atlas generate' records the generation in .atlas/catalog.db: its id,
project, counts and the blake2b digest of the written artifact.

Examples:
  atlas snapshots list
  atlas snapshots show 3f2a
  atlas snapshots prune --keep=5`,
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, newest first",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotsList,
}

var snapshotsShowCmd = &cobra.Command{
	Use:   "show [generationId]",
	Short: "Show one snapshot (default: the latest)",
	Long:  "Show one snapshot. A unique prefix of the generation id is enough.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSnapshotsShow,
}

var snapshotsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest snapshots",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotsPrune,
}

func init() {
	snapshotsListCmd.Flags().IntVar(&snapshotsLimit, "limit", 20, "Maximum number of snapshots")
	snapshotsPruneCmd.Flags().IntVar(&snapshotsKeep, "keep", 0, "Snapshots to keep (default: from config)")

	snapshotsCmd.AddCommand(snapshotsListCmd)
	snapshotsCmd.AddCommand(snapshotsShowCmd)
	snapshotsCmd.AddCommand(snapshotsPruneCmd)
	rootCmd.AddCommand(snapshotsCmd)
}

// SnapshotsResponseCLI is the output of snapshots list.
type SnapshotsResponseCLI struct {
	Snapshots []storage.Snapshot `json:"snapshots"`
}

// PruneResponseCLI is the output of snapshots prune.
type PruneResponseCLI struct {
	Kept    int `json:"kept"`
	Deleted int `json:"deleted"`
}

func withCatalog(fn func(env *cliEnv, catalog *storage.Catalog) error) error {
	env, err := newEnv("catalog")
	if err != nil {
		return err
	}
	defer env.Close()

	catalog, closeCatalog, err := env.openCatalog()
	if err != nil {
		return err
	}
	defer closeCatalog()
	return fn(env, catalog)
}

func runSnapshotsList(cmd *cobra.Command, args []string) error {
	return withCatalog(func(env *cliEnv, catalog *storage.Catalog) error {
		ctx, cancel := newContext()
		defer cancel()

		snaps, err := catalog.List(ctx, snapshotsLimit)
		if err != nil {
			return err
		}
		return printResponse(&SnapshotsResponseCLI{Snapshots: snaps})
	})
}

func runSnapshotsShow(cmd *cobra.Command, args []string) error {
	return withCatalog(func(env *cliEnv, catalog *storage.Catalog) error {
		ctx, cancel := newContext()
		defer cancel()

		var snap *storage.Snapshot
		var err error
		if len(args) == 1 {
			snap, err = catalog.Get(ctx, args[0])
		} else {
			snap, err = catalog.Latest(ctx)
			if err == nil && snap == nil {
				err = storage.ErrSnapshotNotFound
			}
		}
		if err != nil {
			return err
		}
		return printResponse(snap)
	})
}

func runSnapshotsPrune(cmd *cobra.Command, args []string) error {
	return withCatalog(func(env *cliEnv, catalog *storage.Catalog) error {
		keep := snapshotsKeep
		if keep == 0 {
			keep = env.cfg.Catalog.Keep
		}
		if keep < 1 {
			return fmt.Errorf("--keep must be at least 1")
		}

		ctx, cancel := newContext()
		defer cancel()

		deleted, err := catalog.Prune(ctx, keep)
		if err != nil {
			return err
		}
		return printResponse(&PruneResponseCLI{Kept: keep, Deleted: deleted})
	})
}
