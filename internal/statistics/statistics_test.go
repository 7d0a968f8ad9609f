package statistics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeatlas/internal/architecture"
	"codeatlas/internal/blueprint"
	"codeatlas/internal/entrypoints"
	"codeatlas/internal/testutil"
)

func TestComputeTotalsAndLargest(t *testing.T) {
	v := testutil.NewFixture("p").
		Module("a.go", 10).
		Module("b.go", 20).
		Module("c.go", 5).
		View()

	stats := Compute(v, Options{TopN: 1})
	assert.Equal(t, 3, stats.TotalModules)
	assert.Equal(t, 35, stats.TotalLines)
	require.Len(t, stats.LargestModules, 1)
	assert.Equal(t, blueprint.RankedItem{ID: "b.go", Name: "b.go", Count: 20}, stats.LargestModules[0])
	assert.Equal(t, map[string]int{"go": 3}, stats.Languages)
	assert.Equal(t, 0.0, stats.SemanticCoverage)
}

func TestComputeRankings(t *testing.T) {
	fn := blueprint.KindFunction
	v := testutil.NewFixture("p").
		Module("src/app.ts", 50, "src/db.ts", "src/log.ts", "ext/http").
		Module("src/db.ts", 30, "src/log.ts").
		Module("src/log.ts", 10).
		Module("src/cli.py", 5, "src/log.ts").
		Describe("src/db.ts", "database access", "").
		Symbol("src/app.ts", "main", fn).
		Symbol("src/db.ts", "query", fn).
		Symbol("src/log.ts", "Logger", blueprint.KindClass).
		Child("src/log.ts", "Logger", "info", blueprint.KindMethod).
		Call("src/app.ts#main", "src/db.ts#query", "").
		Call("src/app.ts#main", "src/log.ts#Logger.info", "").
		Call("src/db.ts#query", "src/log.ts#Logger.info", "").
		Call("src/db.ts#query", "ext#fetch", "").
		TypeRef("src/log.ts#Logger", "ext#Base", blueprint.DirectionParent).
		View()

	stats := Compute(v, Options{})

	assert.Equal(t, 4, stats.TotalSymbols, "nested children count")
	assert.Equal(t, map[string]int{"function": 2, "class": 1, "method": 1}, stats.SymbolKinds)
	assert.Equal(t, map[string]int{"typescript": 3, "python": 1}, stats.Languages)

	assert.Equal(t, []blueprint.RankedItem{
		{ID: "src/log.ts", Name: "log.ts", Count: 3},
		{ID: "src/db.ts", Name: "db.ts", Count: 1},
	}, stats.MostImported, "dangling targets are not ranked")

	assert.Equal(t, []blueprint.RankedItem{
		{ID: "src/log.ts#Logger.info", Name: "info", Count: 2},
		{ID: "src/db.ts#query", Name: "query", Count: 1},
	}, stats.MostCalled)

	assert.Equal(t, 0.25, stats.SemanticCoverage)
	assert.Equal(t, 0.0, stats.SymbolSemanticCoverage)
	assert.Equal(t, 3, stats.DanglingEdges, "ext/http import, ext#fetch call, ext#Base type ref")
	assert.Nil(t, stats.Layers)
	assert.Nil(t, stats.EntryPoints)
}

func TestComputeTiesBrokenByID(t *testing.T) {
	v := testutil.NewFixture("p").
		Module("z.go", 7).
		Module("m.go", 7).
		Module("a.go", 7).
		View()

	stats := Compute(v, Options{})
	ids := make([]string, len(stats.LargestModules))
	for i, r := range stats.LargestModules {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"a.go", "m.go", "z.go"}, ids)
}

func TestComputeWithLayersAndEntryPoints(t *testing.T) {
	v := testutil.NewFixture("p").
		Module("src/index.ts", 10, "src/services/users.ts").
		Module("src/services/users.ts", 10, "src/models/user.ts").
		Module("src/models/user.ts", 10).
		View()

	table := entrypoints.DefaultScoringTable()
	stats := Compute(v, Options{
		Classifier:  architecture.MustClassifier(nil),
		EntryPoints: &table,
	})

	assert.Equal(t, map[string]int{"infrastructure": 1, "business": 1, "data": 1}, stats.Layers)
	require.NotEmpty(t, stats.EntryPoints)
	assert.Equal(t, "src/index.ts", stats.EntryPoints[0].ModuleID)
}

func TestComputeEmpty(t *testing.T) {
	stats := Compute(testutil.NewFixture("empty").View(), Options{})
	assert.Equal(t, 0, stats.TotalModules)
	assert.Equal(t, 0.0, stats.SemanticCoverage)
	assert.Empty(t, stats.MostImported)
	assert.Empty(t, stats.MostCalled)
	assert.Empty(t, stats.LargestModules)
	assert.Equal(t, 0, stats.DanglingEdges)
}
