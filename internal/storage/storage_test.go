package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeatlas/internal/blueprint"
)

func openTestCatalog(t *testing.T) (*Catalog, *DB) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := Open(filepath.Join(t.TempDir(), ".atlas", "catalog.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewCatalog(db), db
}

func testBlueprint(id string, at time.Time) *blueprint.Blueprint {
	bp := blueprint.New(blueprint.Project{Name: "shop", RootPath: "/src/shop"}, at)
	bp.Meta.GenerationID = id
	bp.Modules["main.go"] = &blueprint.Module{ID: "main.go", Name: "main.go", Language: "go", Lines: 10}
	bp.Symbols["main.go"] = []blueprint.Symbol{{
		ID: "main.go#Server", Name: "Server", Kind: blueprint.KindClass, ModuleID: "main.go",
		Children: []blueprint.Symbol{{ID: "main.go#Server.Run", Name: "Run", Kind: blueprint.KindMethod, ModuleID: "main.go"}},
	}}
	bp.References.ModuleDeps = []blueprint.ModuleDependency{{Source: "main.go", Target: "lib/util.go"}}
	return bp
}

func TestOpen_CreatesSchema(t *testing.T) {
	_, db := openTestCatalog(t)

	_, err := os.Stat(db.Path())
	require.NoError(t, err)

	version, err := db.getSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpen_ReopenExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := Open(path, logger)
	require.NoError(t, err)
	_, err = NewCatalog(db).Record(context.Background(), testBlueprint("gen-1", time.Now()), "bp.json", []byte("{}"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path, logger)
	require.NoError(t, err)
	defer db.Close()

	list, err := NewCatalog(db).List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCatalog_RecordAndGet(t *testing.T) {
	cat, _ := openTestCatalog(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	data := []byte(`{"meta":{}}`)

	snap, err := cat.Record(ctx, testBlueprint("6f1c2d3e-aaaa", at), ".atlas/blueprint.json", data)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Modules)
	assert.Equal(t, 2, snap.Symbols, "nested symbols counted")
	assert.Equal(t, 1, snap.Edges)
	assert.Equal(t, Digest(data), snap.Digest)
	assert.Len(t, snap.Digest, 64)

	got, err := cat.Get(ctx, "6f1c2d3e-aaaa")
	require.NoError(t, err)
	assert.Equal(t, "shop", got.Project)
	assert.True(t, got.GeneratedAt.Equal(at))
	assert.Equal(t, blueprint.FormatVersion, got.FormatVersion)
	assert.Empty(t, got.SemanticVersion)

	byPrefix, err := cat.Get(ctx, "6f1c")
	require.NoError(t, err)
	assert.Equal(t, "6f1c2d3e-aaaa", byPrefix.ID)

	_, err = cat.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestCatalog_GetAmbiguousPrefix(t *testing.T) {
	cat, _ := openTestCatalog(t)
	ctx := context.Background()
	now := time.Now()
	_, err := cat.Record(ctx, testBlueprint("abc-1", now), "a.json", nil)
	require.NoError(t, err)
	_, err = cat.Record(ctx, testBlueprint("abc-2", now), "b.json", nil)
	require.NoError(t, err)

	_, err = cat.Get(ctx, "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")

	exact, err := cat.Get(ctx, "abc-2")
	require.NoError(t, err)
	assert.Equal(t, "b.json", exact.Path)
}

func TestCatalog_ListLatestPrune(t *testing.T) {
	cat, _ := openTestCatalog(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	latest, err := cat.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	for i, id := range []string{"gen-a", "gen-b", "gen-c", "gen-d"} {
		_, err := cat.Record(ctx, testBlueprint(id, base.Add(time.Duration(i)*time.Hour)), "bp.json", []byte(id))
		require.NoError(t, err)
	}

	list, err := cat.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, "gen-d", list[0].ID)
	assert.Equal(t, "gen-a", list[3].ID)

	limited, err := cat.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	latest, err = cat.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "gen-d", latest.ID)

	removed, err := cat.Prune(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	list, err = cat.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "gen-d", list[0].ID)
	assert.Equal(t, "gen-c", list[1].ID)
}

func TestCatalog_RecordRequiresGenerationID(t *testing.T) {
	cat, _ := openTestCatalog(t)
	_, err := cat.Record(context.Background(), testBlueprint("", time.Now()), "bp.json", nil)
	assert.Error(t, err)
}

func TestCatalog_RecordFile(t *testing.T) {
	cat, _ := openTestCatalog(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "blueprint.json")
	bp := testBlueprint("gen-file", time.Now())
	require.NoError(t, blueprint.SaveFile(path, bp))

	snap, err := cat.RecordFile(context.Background(), bp, path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Digest(data), snap.Digest)
	assert.Equal(t, int64(len(data)), snap.SizeBytes)
}
