package generate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"codeatlas/internal/architecture"
	"codeatlas/internal/blueprint"
	"codeatlas/internal/entrypoints"
	atlaserrors "codeatlas/internal/errors"
	"codeatlas/internal/project"
	"codeatlas/internal/semantic"
	"codeatlas/internal/statistics"
)

// Phase names a generation step.
type Phase string

const (
	PhaseCollect  Phase = "collect"
	PhaseLink     Phase = "link"
	PhaseEnrich   Phase = "enrich"
	PhaseAnalyze  Phase = "analyze"
	PhaseFinalize Phase = "finalize"
)

// Phases lists the phases in execution order.
var Phases = []Phase{PhaseCollect, PhaseLink, PhaseEnrich, PhaseAnalyze, PhaseFinalize}

// Progress is reported during Build.
type Progress struct {
	Phase       Phase  `json:"phase"`
	Current     int    `json:"current"`
	Total       int    `json:"total"`
	CurrentItem string `json:"currentItem,omitempty"`
}

// ProgressFunc receives progress updates. It is called from one goroutine at
// a time.
type ProgressFunc func(Progress)

// DefaultSemanticVersion is stamped on enriched artifacts when Options leave
// it empty.
const DefaultSemanticVersion = "1"

// Options configure Build.
type Options struct {
	Project blueprint.Project // Languages are derived when empty

	Annotator       semantic.Annotator // Nil or Noop skips enrichment
	AnnotateSymbols bool               // Also annotate top-level symbols, not only modules
	Concurrency     int
	SemanticVersion string
	ProjectSemantic *blueprint.ProjectSemantic
	Classifier      *architecture.Classifier
	EntryPoints     *entrypoints.ScoringTable
	TopN            int
	Progress        ProgressFunc
	Now             func() time.Time
}

// Report summarizes what Build did besides producing the Blueprint.
type Report struct {
	GenerationID   string        `json:"generationId"`
	Modules        int           `json:"modules"`
	Symbols        int           `json:"symbols"`
	DroppedCalls   int           `json:"droppedCalls"`
	DroppedRefs    int           `json:"droppedTypeRefs"`
	Annotated      int           `json:"annotated"`
	AnnotationsRun int           `json:"annotationsRequested"`
	Duration       time.Duration `json:"duration"`
}

type run struct {
	b      *Builder
	opts   Options
	logger *slog.Logger
	bp     *blueprint.Blueprint
	report Report
}

// Build assembles a Blueprint from everything added so far. The Builder is
// left untouched so more facts can be added and Build called again. The
// context is checked between phases and between enrichment items; a
// cancelled build returns CANCELLED and no Blueprint.
func (b *Builder) Build(ctx context.Context, opts Options) (*blueprint.Blueprint, *Report, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	start := now()

	r := &run{b: b, opts: opts, logger: b.logger}
	steps := []struct {
		phase Phase
		fn    func(context.Context) error
	}{
		{PhaseCollect, func(context.Context) error { r.collect(start); return nil }},
		{PhaseLink, func(context.Context) error { r.link(); return nil }},
		{PhaseEnrich, r.enrich},
		{PhaseAnalyze, func(context.Context) error { r.analyze(); return nil }},
		{PhaseFinalize, func(context.Context) error { r.finalize(); return nil }},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, nil, cancelled(step.phase, err)
		}
		b.logger.Debug("Generation phase", "phase", step.phase)
		if err := step.fn(ctx); err != nil {
			return nil, nil, err
		}
	}

	r.report.Duration = now().Sub(start)
	b.logger.Info("Blueprint generated",
		"generationId", r.report.GenerationID,
		"modules", r.report.Modules,
		"symbols", r.report.Symbols,
		"droppedCalls", r.report.DroppedCalls,
		"droppedTypeRefs", r.report.DroppedRefs,
		"annotated", r.report.Annotated,
	)
	return r.bp, &r.report, nil
}

func cancelled(phase Phase, cause error) error {
	return atlaserrors.New(atlaserrors.Cancelled, fmt.Sprintf("generation cancelled before %s phase", phase), cause)
}

func (r *run) progress(p Progress) {
	if r.opts.Progress != nil {
		r.opts.Progress(p)
	}
}

// collect copies modules and symbols into a fresh Blueprint.
func (r *run) collect(generatedAt time.Time) {
	r.bp = blueprint.New(r.opts.Project, generatedAt)
	total := len(r.b.order)
	for i, id := range r.b.order {
		m := *r.b.modules[id]
		m.Imports = append([]string{}, m.Imports...)
		r.bp.Modules[id] = &m
		if syms, ok := r.b.symbols[id]; ok {
			r.bp.Symbols[id] = cloneSymbols(syms)
		}
		r.progress(Progress{Phase: PhaseCollect, Current: i + 1, Total: total, CurrentItem: id})
	}
	r.report.Modules = total
	r.report.Symbols = len(r.b.symbolIDs)
}

func cloneSymbols(in []blueprint.Symbol) []blueprint.Symbol {
	out := make([]blueprint.Symbol, len(in))
	for i, s := range in {
		out[i] = s
		if len(s.Children) > 0 {
			out[i].Children = cloneSymbols(s.Children)
		}
	}
	return out
}

// link derives module dependencies from imports and keeps only edges whose
// source exists. Targets may dangle.
func (r *run) link() {
	refs := &r.bp.References
	for _, id := range r.b.order {
		for _, target := range r.b.modules[id].Imports {
			refs.ModuleDeps = append(refs.ModuleDeps, blueprint.ModuleDependency{Source: id, Target: target})
		}
	}

	for _, c := range r.b.calls {
		if _, ok := r.b.symbolIDs[c.CallerSymbolID]; !ok {
			r.report.DroppedCalls++
			r.logger.Warn("Dropping call with unknown caller", "caller", c.CallerSymbolID, "callee", c.CalleeSymbolID)
			continue
		}
		refs.SymbolCalls = append(refs.SymbolCalls, c)
	}
	for _, t := range r.b.typeRefs {
		if _, ok := r.b.symbolIDs[t.Source]; !ok {
			r.report.DroppedRefs++
			r.logger.Warn("Dropping type reference with unknown source", "source", t.Source, "target", t.Target)
			continue
		}
		refs.TypeRefs = append(refs.TypeRefs, t)
	}
	r.progress(Progress{
		Phase:   PhaseLink,
		Current: len(refs.ModuleDeps) + len(refs.SymbolCalls) + len(refs.TypeRefs),
		Total:   len(refs.ModuleDeps) + len(r.b.calls) + len(r.b.typeRefs),
	})
}

// enrich asks the annotator about every module and, optionally, every
// top-level symbol.
func (r *run) enrich(ctx context.Context) error {
	if semantic.IsNoop(r.opts.Annotator) {
		return nil
	}

	reqs := r.annotationRequests()
	r.report.AnnotationsRun = len(reqs)
	enricher := &semantic.Enricher{
		Annotator:   r.opts.Annotator,
		Concurrency: r.opts.Concurrency,
		Logger:      r.logger,
		Progress: func(done, total int, current string) {
			r.progress(Progress{Phase: PhaseEnrich, Current: done, Total: total, CurrentItem: current})
		},
	}
	results, err := enricher.Run(ctx, reqs)
	if err != nil {
		if ctx.Err() != nil {
			return cancelled(PhaseEnrich, err)
		}
		return atlaserrors.New(atlaserrors.InternalError, "semantic enrichment failed", err)
	}

	for _, res := range results {
		sem := toSemantic(res.Annotation)
		switch res.Request.Target {
		case semantic.TargetModule:
			r.bp.Modules[res.Request.ID].Semantic = sem
		case semantic.TargetSymbol:
			syms := r.bp.Symbols[r.b.symbolIDs[res.Request.ID]]
			for i := range syms {
				if syms[i].ID == res.Request.ID {
					syms[i].Semantic = sem
					break
				}
			}
		}
	}
	r.report.Annotated = len(results)

	r.bp.Meta.SemanticVersion = r.opts.SemanticVersion
	if r.bp.Meta.SemanticVersion == "" {
		r.bp.Meta.SemanticVersion = DefaultSemanticVersion
	}
	if r.opts.ProjectSemantic != nil {
		r.bp.Project.Semantic = r.opts.ProjectSemantic
	}
	return nil
}

func (r *run) annotationRequests() []semantic.Request {
	var reqs []semantic.Request
	projectContext := fmt.Sprintf("project %s", r.bp.Project.Name)
	for _, id := range r.b.order {
		m := r.bp.Modules[id]
		source := r.b.sources[id]
		reqs = append(reqs, semantic.Request{
			Target:   semantic.TargetModule,
			ID:       id,
			Name:     m.Name,
			Language: m.Language,
			Snippet:  semantic.Snippet(source, 0, 0),
			Context:  projectContext,
		})
		if !r.opts.AnnotateSymbols {
			continue
		}
		for _, s := range r.bp.Symbols[id] {
			reqs = append(reqs, semantic.Request{
				Target:   semantic.TargetSymbol,
				ID:       s.ID,
				Name:     s.Name,
				Kind:     string(s.Kind),
				Language: m.Language,
				Snippet:  semantic.Snippet(source, s.Location.StartLine, s.Location.EndLine),
				Context:  fmt.Sprintf("module %s in %s", id, projectContext),
			})
		}
	}
	return reqs
}

func toSemantic(a *semantic.Annotation) *blueprint.Semantic {
	return &blueprint.Semantic{
		Description:       a.Description,
		Tags:              append([]string(nil), a.Tags...),
		ArchitectureLayer: a.ArchitectureLayer,
	}
}

// analyze computes the statistics persisted with the artifact.
func (r *run) analyze() {
	classifier := r.opts.Classifier
	if classifier == nil {
		classifier = architecture.MustClassifier(architecture.DefaultRules())
	}
	table := r.opts.EntryPoints
	if table == nil {
		t := entrypoints.DefaultScoringTable()
		table = &t
	}
	r.bp.Statistics = statistics.Compute(blueprint.NewView(r.bp), statistics.Options{
		TopN:        r.opts.TopN,
		Classifier:  classifier,
		EntryPoints: table,
	})
	r.progress(Progress{Phase: PhaseAnalyze, Current: 1, Total: 1})
}

// finalize stamps identity and derived project metadata.
func (r *run) finalize() {
	r.bp.Meta.GenerationID = uuid.New().String()
	r.report.GenerationID = r.bp.Meta.GenerationID

	if len(r.bp.Project.Languages) == 0 {
		r.bp.Project.Languages = project.Languages(r.bp.Statistics.Languages)
	} else {
		r.bp.Project.Languages = append([]string{}, r.bp.Project.Languages...)
		sort.Strings(r.bp.Project.Languages)
	}
	r.progress(Progress{Phase: PhaseFinalize, Current: 1, Total: 1})
}
