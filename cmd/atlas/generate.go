package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"codeatlas/internal/backends/scip"
	"codeatlas/internal/blueprint"
	"codeatlas/internal/errors"
	"codeatlas/internal/facts"
	"codeatlas/internal/generate"
	"codeatlas/internal/paths"
	"codeatlas/internal/project"
	"codeatlas/internal/semantic"
	"codeatlas/internal/storage"
)

var (
	generateFacts       []string
	generateFactsFormat string
	generateSCIP        []string
	generateSourceRoot  string
	generateOutput      string
	generateCompress    bool
	generateSemantic    bool
	generateNoCatalog   bool
	generateName        string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Build a Blueprint from code facts",
	Long: `Build a Blueprint from per-file code facts and write it to the artifact path.

Facts come from JSON, JSONL or YAML files produced by a language extractor, or
from SCIP indexes. Several sources may be combined; a module reported twice
fails the build.

Examples:
  atlas generate --facts facts.jsonl
  atlas generate --scip index.scip --source-root .
  atlas generate --facts facts.yaml --semantic --compress`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	flags := generateCmd.Flags()
	flags.StringArrayVar(&generateFacts, "facts", nil, "Facts file (repeatable)")
	flags.StringVar(&generateFactsFormat, "facts-format", "", "Facts format (json, jsonl, yaml; default: from extension)")
	flags.StringArrayVar(&generateSCIP, "scip", nil, "SCIP index file (repeatable)")
	flags.StringVar(&generateSourceRoot, "source-root", "", "Directory SCIP document paths are relative to (default: project root)")
	flags.StringVarP(&generateOutput, "output", "o", "", "Output path (default: configured artifact path)")
	flags.BoolVar(&generateCompress, "compress", false, "Write the artifact zstd-compressed")
	flags.BoolVar(&generateSemantic, "semantic", false, "Annotate modules with an LLM (requires an API key)")
	flags.BoolVar(&generateNoCatalog, "no-catalog", false, "Do not record the snapshot in the catalog")
	flags.StringVar(&generateName, "name", "", "Project name (default: detected from the manifest)")
	rootCmd.AddCommand(generateCmd)
}

// GenerateResponseCLI is the output of the generate command.
type GenerateResponseCLI struct {
	Artifact string            `json:"artifact"`
	Project  blueprint.Project `json:"project"`
	Report   *generate.Report  `json:"report"`
	Snapshot *storage.Snapshot `json:"snapshot,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
}

func runGenerate(cmd *cobra.Command, args []string) error {
	env, err := newEnv("generate")
	if err != nil {
		return err
	}
	defer env.Close()

	if len(generateFacts) == 0 && len(generateSCIP) == 0 {
		return errors.NewAtlasError(errors.InvalidArgument, "no facts given", nil,
			[]errors.FixAction{{
				Type:        errors.RunCommand,
				Command:     "atlas generate --facts <file>",
				Description: "Pass extractor output with --facts or a SCIP index with --scip",
			}}, nil)
	}

	records, err := collectFacts(env)
	if err != nil {
		return err
	}

	builder := generate.NewBuilder(env.logger)
	if err := builder.AddAll(records); err != nil {
		return err
	}

	name := generateName
	if name == "" {
		name = projectName(env)
	}

	resp := &GenerateResponseCLI{}
	annotator, warning := newAnnotator(env)
	if warning != "" {
		resp.Warnings = append(resp.Warnings, warning)
	}

	opts, err := env.engineOptions()
	if err != nil {
		return err
	}
	ctx, cancel := newContext()
	defer cancel()

	bp, report, err := builder.Build(ctx, generate.Options{
		Project:         blueprint.Project{Name: name, RootPath: env.root},
		Annotator:       annotator,
		AnnotateSymbols: env.cfg.Semantic.AnnotateSymbols,
		Concurrency:     env.cfg.Semantic.Concurrency,
		Classifier:      opts.Classifier,
		EntryPoints:     &opts.ScoringTable,
		TopN:            env.cfg.Queries.TopN,
		Progress:        progressLogger(env),
	})
	if err != nil {
		return err
	}

	out := env.artifactPath()
	if generateOutput != "" {
		out = paths.Resolve(env.root, generateOutput)
	}
	if generateCompress && !strings.HasSuffix(out, ".zst") {
		out += ".zst"
	}
	if err := blueprint.SaveFile(out, bp); err != nil {
		return err
	}
	resp.Artifact = out
	resp.Project = bp.Project
	resp.Report = report

	if env.cfg.Catalog.Enabled && !generateNoCatalog {
		snap, err := recordSnapshot(env, bp, out)
		if err != nil {
			// The artifact is already written; a catalog failure only loses history.
			env.logger.Warn("Failed to record snapshot", "error", err.Error())
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("snapshot not recorded: %v", err))
		}
		resp.Snapshot = snap
	}

	return printResponse(resp)
}

// collectFacts reads every --facts file and converts every --scip index.
func collectFacts(env *cliEnv) ([]facts.FileFacts, error) {
	var records []facts.FileFacts

	for _, path := range generateFacts {
		path = paths.Resolve(env.root, path)
		var batch []facts.FileFacts
		var err error
		if generateFactsFormat == "" {
			batch, err = facts.ReadFile(path)
		} else {
			batch, err = readFactsAs(path, generateFactsFormat)
		}
		if err != nil {
			return nil, err
		}
		env.logger.Info("Read facts", "path", path, "records", len(batch))
		records = append(records, batch...)
	}

	sourceRoot := env.root
	if generateSourceRoot != "" {
		sourceRoot = paths.Resolve(env.root, generateSourceRoot)
	}
	converter := scip.NewConverter(scip.Options{SourceRoot: sourceRoot}, env.logs.Subsystem("scip"))
	for _, path := range generateSCIP {
		path = paths.Resolve(env.root, path)
		index, err := scip.LoadIndex(path)
		if err != nil {
			return nil, err
		}
		batch := converter.Convert(index)
		env.logger.Info("Converted SCIP index",
			"path", path,
			"documents", len(index.Documents),
			"records", len(batch),
			"commit", scip.IndexedCommit(index),
		)
		records = append(records, batch...)
	}
	return records, nil
}

func readFactsAs(path, format string) ([]facts.FileFacts, error) {
	f, err := facts.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.New(errors.InvalidArgument, fmt.Sprintf("cannot open facts file %s", path), err)
	}
	defer file.Close()
	return facts.Decode(file, f)
}

// newAnnotator returns the configured annotator, or Noop with a warning when
// enrichment was asked for but cannot run.
func newAnnotator(env *cliEnv) (semantic.Annotator, string) {
	sc := env.cfg.Semantic
	if !generateSemantic && !sc.Enabled {
		return semantic.Noop{}, ""
	}
	key := os.Getenv(sc.APIKeyEnv)
	if key == "" {
		return semantic.Noop{}, fmt.Sprintf("semantic enrichment skipped: %s is not set", sc.APIKeyEnv)
	}
	annotator, err := semantic.NewOpenAIAnnotator(semantic.OpenAIOptions{
		APIKey:  key,
		BaseURL: sc.BaseURL,
		Model:   sc.Model,
		Logger:  env.logs.Subsystem("semantic"),
	})
	if err != nil {
		return semantic.Noop{}, fmt.Sprintf("semantic enrichment skipped: %v", err)
	}
	return annotator, ""
}

// projectName prefers the name pinned by 'atlas init' over detection.
func projectName(env *cliEnv) string {
	if info, err := project.LoadInfo(paths.WorkspaceDir(env.root)); err == nil && info.Name != "" {
		return info.Name
	}
	return project.Detect(env.root).Name
}

func progressLogger(env *cliEnv) generate.ProgressFunc {
	last := time.Time{}
	return func(p generate.Progress) {
		// Enrichment reports per item; throttle so -v stays readable.
		if p.Current < p.Total && time.Since(last) < time.Second {
			return
		}
		last = time.Now()
		env.logger.Info("Progress", "phase", p.Phase, "current", p.Current, "total", p.Total, "item", p.CurrentItem)
	}
}

func recordSnapshot(env *cliEnv, bp *blueprint.Blueprint, path string) (*storage.Snapshot, error) {
	catalog, closeCatalog, err := env.openCatalog()
	if err != nil {
		return nil, err
	}
	defer closeCatalog()

	ctx, cancel := newContext()
	defer cancel()

	snap, err := catalog.RecordFile(ctx, bp, path)
	if err != nil {
		return nil, err
	}
	if keep := env.cfg.Catalog.Keep; keep > 0 {
		if pruned, err := catalog.Prune(ctx, keep); err != nil {
			env.logger.Warn("Failed to prune catalog", "error", err.Error())
		} else if pruned > 0 {
			env.logger.Info("Pruned old snapshots", "count", pruned)
		}
	}
	return snap, nil
}
