package architecture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBlocks(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, BlocksDeclarationFile), []byte(content), 0644))
	return dir
}

func TestLoadDeclaredBlocks(t *testing.T) {
	dir := writeBlocks(t, `
version = 1

[[blocks]]
name = "Payment Core"
layer = "domain"
description = "Charges and refunds"
paths = ["src/payments/**"]

[[blocks]]
id = "web"
paths = ["web"]
`)

	blocks, err := LoadDeclaredBlocks(dir, "")
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	assert.Equal(t, "payment-core", blocks[0].ID)
	assert.Equal(t, "Payment Core", blocks[0].Name)
	assert.Equal(t, "domain", blocks[0].Layer)
	assert.Equal(t, "web", blocks[1].ID)
	assert.Equal(t, "web", blocks[1].Name)
}

func TestLoadDeclaredBlocksMissingFile(t *testing.T) {
	blocks, err := LoadDeclaredBlocks(t.TempDir(), "")
	assert.NoError(t, err)
	assert.Nil(t, blocks)
}

func TestParseBlocksFileErrors(t *testing.T) {
	tests := map[string]string{
		"no paths":      "[[blocks]]\nname = \"a\"\n",
		"duplicate id":  "[[blocks]]\nid = \"a\"\npaths = [\"x\"]\n[[blocks]]\nid = \"a\"\npaths = [\"y\"]\n",
		"unknown layer": "[[blocks]]\nid = \"a\"\nlayer = \"quantum\"\npaths = [\"x\"]\n",
		"no identity":   "[[blocks]]\npaths = [\"x\"]\n",
		"bad toml":      "[[blocks]\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir := writeBlocks(t, content)
			_, err := ParseBlocksFile(filepath.Join(dir, BlocksDeclarationFile))
			assert.Error(t, err)
		})
	}
}

func TestWriteBlocksFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".atlas", BlocksDeclarationFile)
	in := &BlocksFile{
		Version: 1,
		Blocks: []BlockDeclaration{
			{ID: "core", Name: "Core", Layer: "business", Paths: []string{"src/core"}},
		},
	}
	require.NoError(t, WriteBlocksFile(path, in))

	out, err := ParseBlocksFile(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestBlockDeclarationMatches(t *testing.T) {
	d := BlockDeclaration{Paths: []string{"src/services/", "lib/**/*.go"}}

	assert.True(t, d.Matches("src/services/a.ts"))
	assert.True(t, d.Matches("src/services/nested/b.ts"))
	assert.False(t, d.Matches("src/servicesX/a.ts"))
	assert.True(t, d.Matches("lib/x/y.go"))
	assert.False(t, d.Matches("lib/x/y.ts"))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "payment-core", slug("Payment Core"))
	assert.Equal(t, "a-b", slug("  A / B  "))
	assert.Equal(t, "", slug("!!!"))
}
