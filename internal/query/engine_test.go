package query

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeatlas/internal/blueprint"
	"codeatlas/internal/errors"
	"codeatlas/internal/references"
	"codeatlas/internal/testutil"
)

const fn = blueprint.KindFunction

func shopBlueprint() *blueprint.Blueprint {
	return testutil.NewFixture("shop").
		Module("src/main.ts", 30, "src/services/cart.ts", "src/ui/page.tsx").
		Module("src/services/cart.ts", 120, "src/db/store.ts", "lodash").
		Module("src/ui/page.tsx", 60, "src/services/cart.ts").
		Module("src/db/store.ts", 80, "src/services/cart.ts").
		Describe("src/services/cart.ts", "Cart rules.", "").
		Symbol("src/main.ts", "boot", fn).
		Symbol("src/services/cart.ts", "add", fn).
		Symbol("src/db/store.ts", "save", fn).
		Call("src/main.ts#boot", "src/services/cart.ts#add", "").
		Call("src/services/cart.ts#add", "src/db/store.ts#save", "await").
		Call("src/services/cart.ts#add", "lodash#clone", "").
		Blueprint()
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine(Options{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.Swap(shopBlueprint(), "memory")
	return e
}

func TestQueriesWithoutBlueprint(t *testing.T) {
	e := NewEngine(Options{}, nil)
	ctx := context.Background()
	assert.False(t, e.Loaded())

	_, err := e.DetectEntryPoints(ctx)
	assert.True(t, errors.Is(err, errors.BlueprintMissing))
	_, err = e.BuildDependencyTree(ctx, DependencyTreeOptions{})
	assert.True(t, errors.Is(err, errors.BlueprintMissing))
	_, err = e.GetArchitectureView(ctx)
	assert.True(t, errors.Is(err, errors.BlueprintMissing))
	_, err = e.GetStatistics(ctx)
	assert.True(t, errors.Is(err, errors.BlueprintMissing))
	_, err = e.GetSymbolReferences(ctx, "x")
	assert.True(t, errors.Is(err, errors.BlueprintMissing))
	_, err = e.BuildScenarioFlow(ctx, ScenarioFlowOptions{EntryIDs: []string{"x"}})
	assert.True(t, errors.Is(err, errors.BlueprintMissing))
	_, err = e.GetCallGraph(ctx, CallGraphOptions{SymbolID: "x"})
	assert.True(t, errors.Is(err, errors.BlueprintMissing))
	_, err = e.Meta(ctx)
	assert.True(t, errors.Is(err, errors.BlueprintMissing))
}

func TestCancelledQuery(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.GetStatistics(ctx)
	assert.True(t, errors.Is(err, errors.Cancelled))
}

func TestDetectEntryPoints(t *testing.T) {
	resp, err := newTestEngine(t).DetectEntryPoints(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, resp.EntryPoints)
	assert.Equal(t, "src/main.ts", resp.EntryPoints[0].ModuleID)
	assert.True(t, resp.Heuristic)
	assert.Equal(t, blueprint.FormatVersion, resp.Provenance.FormatVersion)
}

func TestBuildDependencyTree(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	detected, err := e.BuildDependencyTree(ctx, DependencyTreeOptions{})
	require.NoError(t, err)
	assert.True(t, detected.RootDetected)
	assert.True(t, detected.Found)
	assert.Equal(t, "src/main.ts", detected.RootID)
	assert.Contains(t, detected.Circular, "src/services/cart.ts")

	shallow, err := e.BuildDependencyTree(ctx, DependencyTreeOptions{RootID: "src/ui/page.tsx", MaxDepth: 1})
	require.NoError(t, err)
	assert.False(t, shallow.RootDetected)
	require.Len(t, shallow.Tree.Root.Children, 1)
	assert.Empty(t, shallow.Tree.Root.Children[0].Children)

	missing, err := e.BuildDependencyTree(ctx, DependencyTreeOptions{RootID: "src/services/carts.ts"})
	require.NoError(t, err)
	assert.False(t, missing.Found)
	assert.Nil(t, missing.Tree)
	assert.Contains(t, missing.Suggestions, "src/services/cart.ts")
}

func TestGetArchitectureViewIsCachedPerBlueprint(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	first, err := e.GetArchitectureView(ctx)
	require.NoError(t, err)
	assert.Empty(t, first.Provenance.CachedAt)
	layer := first.ModuleLayers["src/ui/page.tsx"]
	assert.Equal(t, "presentation", string(layer))

	second, err := e.GetArchitectureView(ctx)
	require.NoError(t, err)
	assert.Same(t, first.View, second.View)
	assert.NotEmpty(t, second.Provenance.CachedAt)

	e.Swap(shopBlueprint(), "memory")
	third, err := e.GetArchitectureView(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first.View, third.View)
}

func TestGetStatisticsComputesWhenAbsent(t *testing.T) {
	e := newTestEngine(t)
	resp, err := e.GetStatistics(context.Background())
	require.NoError(t, err)
	assert.False(t, resp.Persisted)
	assert.Equal(t, 4, resp.TotalModules)
	assert.Equal(t, 0.25, resp.SemanticCoverage)
	assert.Equal(t, "src/services/cart.ts", resp.MostImported[0].ID)
	assert.Equal(t, 3, resp.MostImported[0].Count)

	bp := shopBlueprint()
	bp.Statistics = &blueprint.Statistics{TotalModules: 99}
	e.Swap(bp, "memory")
	resp, err = e.GetStatistics(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.Persisted)
	assert.Equal(t, 99, resp.TotalModules)
}

func TestGetSymbolReferences(t *testing.T) {
	e := newTestEngine(t)
	resp, err := e.GetSymbolReferences(context.Background(), "src/services/cart.ts#add")
	require.NoError(t, err)
	assert.True(t, resp.Found)
	assert.Len(t, resp.Callers, 1)
	assert.Len(t, resp.Callees, 2)

	missing, err := e.GetSymbolReferences(context.Background(), "src/services/cart.ts#ad")
	require.NoError(t, err)
	assert.False(t, missing.Found)
	assert.Contains(t, missing.Suggestions, "src/services/cart.ts#add")
}

func TestGetCallGraph(t *testing.T) {
	e := newTestEngine(t)
	resp, err := e.GetCallGraph(context.Background(), CallGraphOptions{SymbolID: "src/main.ts#boot", Depth: 99})
	require.NoError(t, err)
	assert.Equal(t, references.MaxCallGraphDepth, resp.Depth)
	assert.Equal(t, references.DirectionBoth, resp.Direction)
	assert.Len(t, resp.Nodes, 4)
}

func TestBuildScenarioFlow(t *testing.T) {
	e := newTestEngine(t)
	resp, err := e.BuildScenarioFlow(context.Background(), ScenarioFlowOptions{
		Name:     "boot",
		EntryIDs: []string{"src/main.ts#boot", "nope"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"nope"}, resp.MissingEntries)
	assert.Len(t, resp.Nodes, 4)
	assert.Contains(t, resp.Mermaid, "flowchart TD")
}

func TestMetaAndReload(t *testing.T) {
	e := NewEngine(Options{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	path := filepath.Join(t.TempDir(), "blueprint.json.zst")
	bp := shopBlueprint()
	bp.Meta.GenerationID = "gen-1"
	require.NoError(t, blueprint.SaveFile(path, bp))

	require.NoError(t, e.Reload(path))
	meta, err := e.Meta(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "gen-1", meta.Meta.GenerationID)
	assert.Equal(t, path, meta.Source)
	assert.Equal(t, 4, meta.Modules)
	assert.Equal(t, 3, meta.Symbols)
	assert.Equal(t, EdgeCounts{ModuleDeps: 6, SymbolCalls: 3, TypeRefs: 0}, meta.Edges)

	err = e.Reload(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.Is(err, errors.BlueprintMissing))
	meta, err = e.Meta(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "gen-1", meta.Meta.GenerationID, "failed reload keeps the previous Blueprint")
}

func TestConcurrentQueriesDuringSwap(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := e.GetArchitectureView(ctx)
			assert.NoError(t, err)
			_, err = e.GetStatistics(ctx)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			e.Swap(shopBlueprint(), "memory")
		}()
	}
	wg.Wait()
}
