package blueprint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeatlas/internal/errors"
)

func sampleBlueprint() *Blueprint {
	bp := New(Project{
		Name:      "shop",
		RootPath:  "/src/shop",
		Languages: []string{"typescript"},
		Semantic:  &ProjectSemantic{Summary: "online shop", Tags: []string{"web"}},
	}, time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC))
	bp.Meta.GenerationID = "gen-1"
	bp.Meta.SemanticVersion = "1"

	bp.Modules["src/index.ts"] = &Module{
		ID: "src/index.ts", Name: "index.ts", Language: "typescript", Lines: 40,
		Imports:  []string{"src/cart.ts", "lib/missing.ts"},
		Semantic: &Semantic{Description: "bootstrap", Tags: []string{"entry"}, ArchitectureLayer: "presentation"},
	}
	bp.Modules["src/cart.ts"] = &Module{
		ID: "src/cart.ts", Name: "cart.ts", Language: "typescript", Lines: 120,
		Imports: []string{},
	}
	bp.Symbols["src/cart.ts"] = []Symbol{{
		ID: "cart.Cart", Name: "Cart", Kind: KindClass, ModuleID: "src/cart.ts",
		Location: Location{StartLine: 3, EndLine: 90}, Signature: "class Cart",
		Children: []Symbol{{
			ID: "cart.Cart.add", Name: "add", Kind: KindMethod, ModuleID: "src/cart.ts",
			Location: Location{StartLine: 10, EndLine: 20},
		}},
	}}
	bp.Symbols["src/index.ts"] = []Symbol{{
		ID: "index.main", Name: "main", Kind: KindFunction, ModuleID: "src/index.ts",
		Location: Location{StartLine: 1, EndLine: 30},
	}}
	bp.References.ModuleDeps = []ModuleDependency{
		{Source: "src/index.ts", Target: "src/cart.ts"},
		{Source: "src/index.ts", Target: "lib/missing.ts"},
	}
	bp.References.SymbolCalls = []SymbolCall{
		{CallerSymbolID: "index.main", CalleeSymbolID: "cart.Cart.add", CallType: "direct"},
		{CallerSymbolID: "index.main", CalleeSymbolID: "external.log"},
	}
	bp.References.TypeRefs = []TypeReference{
		{Source: "cart.Cart", Target: "model.Base", Direction: DirectionParent},
	}
	bp.Statistics = &Statistics{
		TotalModules: 2, TotalSymbols: 3, TotalLines: 160,
		Languages:        map[string]int{"typescript": 2},
		SymbolKinds:      map[string]int{"class": 1, "method": 1, "function": 1},
		MostImported:     []RankedItem{{ID: "src/cart.ts", Name: "cart.ts", Count: 1}},
		MostCalled:       []RankedItem{{ID: "cart.Cart.add", Name: "add", Count: 1}},
		LargestModules:   []RankedItem{{ID: "src/cart.ts", Name: "cart.ts", Count: 120}},
		SemanticCoverage: 0.5, DanglingEdges: 2,
	}
	return bp
}

func TestRoundTrip(t *testing.T) {
	bp := sampleBlueprint()

	data, err := Save(bp)
	require.NoError(t, err)

	loaded, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, bp, loaded)

	again, err := Save(loaded)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again), "saving a loaded blueprint should be byte-stable")
}

func TestRoundTripEmptyStatistics(t *testing.T) {
	bp := New(Project{Name: "empty"}, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	bp.Statistics = &Statistics{
		Languages:      map[string]int{},
		SymbolKinds:    map[string]int{},
		MostImported:   []RankedItem{},
		MostCalled:     []RankedItem{},
		LargestModules: []RankedItem{},
		Layers:         map[string]int{},
	}

	data, err := Save(bp)
	require.NoError(t, err)
	loaded, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, bp, loaded)
}

func TestLoadDanglingEdges(t *testing.T) {
	bp := New(Project{Name: "p"}, time.Now())
	bp.References.ModuleDeps = []ModuleDependency{{Source: "gone.go", Target: "also-gone.go"}}
	data, err := Save(bp)
	require.NoError(t, err)

	loaded, err := Load(data)
	require.NoError(t, err)
	assert.Len(t, loaded.References.ModuleDeps, 1)
}

func TestLoadIncompatibleVersion(t *testing.T) {
	for _, version := range []string{"1.1", "2.0", "10"} {
		t.Run(version, func(t *testing.T) {
			bp := sampleBlueprint()
			bp.Meta.Version = version
			data, err := Save(bp)
			require.NoError(t, err)

			_, err = Load(data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.IncompatibleVersion), "got %v", err)
			assert.False(t, errors.Is(err, errors.MalformedBlueprint))
		})
	}
}

func TestLoadOlderVersion(t *testing.T) {
	bp := sampleBlueprint()
	bp.Meta.Version = "0.9"
	data, err := Save(bp)
	require.NoError(t, err)

	_, err = Load(data)
	assert.NoError(t, err)
}

func TestLoadMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"meta":`},
		{"array", `[]`},
		{"missing modules", `{"meta":{"version":"1.0"},"project":{},"symbols":{},"references":{}}`},
		{"null references", `{"meta":{"version":"1.0"},"project":{},"modules":{},"symbols":{},"references":null}`},
		{"bad version", `{"meta":{"version":"v-one"},"project":{},"modules":{},"symbols":{},"references":{}}`},
		{"wrong module type", `{"meta":{"version":"1.0"},"project":{},"modules":{"a":3},"symbols":{},"references":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.data))
			require.Error(t, err)
			assert.Equal(t, errors.MalformedBlueprint, errors.Code(err), "got %v", err)
		})
	}
}

func TestLoadFillsModuleIDFromKey(t *testing.T) {
	data := `{"meta":{"version":"1.0"},"project":{"name":"p"},"modules":{"a.go":{"lines":3}},"symbols":{},"references":{}}`
	bp, err := Load([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, "a.go", bp.Modules["a.go"].ID)
}

func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	bp := sampleBlueprint()

	for _, name := range []string{"blueprint.json", "blueprint.json.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "nested", name)
			require.NoError(t, SaveFile(path, bp))

			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, strings.HasSuffix(name, ".zst"), IsCompressed(raw))

			loaded, err := LoadFile(path)
			require.NoError(t, err)
			assert.Equal(t, bp, loaded)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.BlueprintMissing))
}

func TestSaveNil(t *testing.T) {
	_, err := Save(nil)
	assert.Error(t, err)
}
