package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"codeatlas/internal/architecture"
	"codeatlas/internal/config"
	"codeatlas/internal/errors"
	"codeatlas/internal/paths"
	"codeatlas/internal/project"
)

var (
	initForce  bool
	initBlocks bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize atlas configuration",
	Long: `Creates the .atlas/ directory with a default config.json, the stock
heuristics.toml and the detected project.json.

With --blocks, the blocks detected in the current Blueprint are written to
.atlas/BLOCKS.toml so they can be renamed and regrouped by hand.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing configuration files")
	initCmd.Flags().BoolVar(&initBlocks, "blocks", false, "Write BLOCKS.toml from the detected architecture")
	rootCmd.AddCommand(initCmd)
}

// InitResponseCLI lists what init wrote.
type InitResponseCLI struct {
	Workspace string   `json:"workspace"`
	Written   []string `json:"written"`
	Skipped   []string `json:"skipped,omitempty"`
}

func runInit(cmd *cobra.Command, args []string) error {
	env, err := newEnv("cli")
	if err != nil {
		return err
	}
	defer env.Close()

	dir, err := paths.EnsureWorkspace(env.root)
	if err != nil {
		return errors.New(errors.InternalError, "failed to create workspace directory", err)
	}
	resp := &InitResponseCLI{Workspace: dir}

	// Idempotent: existing files are kept unless --force.
	write := func(name string, fn func(path string) error) error {
		path := filepath.Join(dir, name)
		if _, statErr := os.Stat(path); statErr == nil && !initForce {
			resp.Skipped = append(resp.Skipped, path)
			return nil
		}
		if err := fn(path); err != nil {
			return errors.New(errors.InternalError, fmt.Sprintf("failed to write %s", path), err)
		}
		resp.Written = append(resp.Written, path)
		env.logger.Info("Wrote workspace file", "path", path)
		return nil
	}

	type step struct {
		name string
		fn   func(path string) error
	}
	steps := []step{
		{paths.ConfigFileName, func(string) error { return config.DefaultConfig().Save(env.root) }},
		{env.cfg.Heuristics.File, config.WriteDefaultHeuristics},
		{"project.json", func(string) error {
			info := project.Detect(env.root)
			return project.SaveInfo(dir, &info)
		}},
	}
	if initBlocks {
		steps = append(steps, step{env.cfg.Heuristics.BlocksFile, func(path string) error {
			return writeDetectedBlocks(env, path)
		}})
	}

	for _, st := range steps {
		if err := write(st.name, st.fn); err != nil {
			return err
		}
	}
	return printResponse(resp)
}

// writeDetectedBlocks freezes the blocks of the current architecture view
// into a declaration file.
func writeDetectedBlocks(env *cliEnv, path string) error {
	engine, err := env.loadEngine()
	if err != nil {
		return err
	}
	ctx, cancel := newContext()
	defer cancel()

	view, err := engine.GetArchitectureView(ctx)
	if err != nil {
		return err
	}
	return architecture.WriteBlocksFile(path, blocksFromView(view.View))
}

func blocksFromView(view *architecture.View) *architecture.BlocksFile {
	out := &architecture.BlocksFile{Version: 1}
	for _, b := range view.Blocks {
		modules := append([]string(nil), b.Modules...)
		sort.Strings(modules)
		out.Blocks = append(out.Blocks, architecture.BlockDeclaration{
			ID:          b.ID,
			Name:        b.Name,
			Layer:       string(b.Layer),
			Description: b.Description,
			Paths:       modules,
		})
	}
	return out
}
