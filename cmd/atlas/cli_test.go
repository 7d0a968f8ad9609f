package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeatlas/internal/errors"
)

const shopFacts = `[
  {
    "module": {"id": "src/main.ts", "lines": 20, "imports": ["src/cart.ts"]},
    "symbols": [{"id": "src/main.ts#boot", "name": "boot", "kind": "function", "startLine": 1, "endLine": 10}],
    "calls": [{"caller": "src/main.ts#boot", "callee": "src/cart.ts#add"}]
  },
  {
    "module": {"id": "src/cart.ts", "lines": 40},
    "symbols": [{"id": "src/cart.ts#add", "name": "add", "kind": "function", "startLine": 3, "endLine": 12}]
  }
]`

// runCLI executes the root command and returns what it printed to stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stdout
	os.Stdout = w

	done := make(chan string)
	go func() {
		data, _ := io.ReadAll(r)
		done <- string(data)
	}()

	rootCmd.SetArgs(args)
	runErr := rootCmd.Execute()

	w.Close()
	os.Stdout = orig
	return <-done, runErr
}

func TestGenerateThenQuery(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "facts.json"), []byte(shopFacts), 0644))

	out, err := runCLI(t, "--root", root, "--format", "json", "-q", "generate", "--facts", "facts.json")
	require.NoError(t, err)

	var gen GenerateResponseCLI
	require.NoError(t, json.Unmarshal([]byte(out), &gen))
	assert.Equal(t, filepath.Join(root, ".atlas", "blueprint.json"), gen.Artifact)
	require.NotNil(t, gen.Report)
	assert.Equal(t, 2, gen.Report.Modules)
	assert.Equal(t, 2, gen.Report.Symbols)
	require.NotNil(t, gen.Snapshot)
	assert.Equal(t, gen.Report.GenerationID, gen.Snapshot.ID)
	assert.FileExists(t, gen.Artifact)

	t.Run("tree", func(t *testing.T) {
		out, err := runCLI(t, "--root", root, "--format", "json", "-q", "tree", "src/main.ts")
		require.NoError(t, err)

		var resp struct {
			Found bool `json:"found"`
			Tree  struct {
				NodeCount int `json:"nodeCount"`
			} `json:"tree"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.True(t, resp.Found)
		assert.Equal(t, 2, resp.Tree.NodeCount)
	})

	t.Run("refs", func(t *testing.T) {
		out, err := runCLI(t, "--root", root, "--format", "json", "-q", "refs", "src/cart.ts#add")
		require.NoError(t, err)

		var resp struct {
			Found   bool              `json:"found"`
			Callers []json.RawMessage `json:"callers"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.True(t, resp.Found)
		assert.Len(t, resp.Callers, 1)
	})

	t.Run("unknown symbol prints suggestions and exits 4", func(t *testing.T) {
		out, err := runCLI(t, "--root", root, "--format", "json", "-q", "refs", "src/cart.ts#ad")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.UnknownSymbol))
		assert.Equal(t, 4, exitCode(err))
		assert.Contains(t, out, `"found": false`)
		assert.Contains(t, out, "src/cart.ts#add")
	})

	t.Run("unknown ids exit 4", func(t *testing.T) {
		tests := []struct {
			args []string
			code errors.ErrorCode
		}{
			{[]string{"tree", "src/nosuch.ts"}, errors.UnknownRoot},
			{[]string{"refs", "src/nosuch.ts#x"}, errors.UnknownSymbol},
			{[]string{"callgraph", "src/nosuch.ts#x"}, errors.UnknownSymbol},
		}
		for _, tt := range tests {
			t.Run(tt.args[0], func(t *testing.T) {
				args := append([]string{"--root", root, "--format", "json", "-q"}, tt.args...)
				out, err := runCLI(t, args...)
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.code), "got %v", err)
				assert.Equal(t, 4, exitCode(err))
				assert.Contains(t, out, `"found": false`)
			})
		}
	})

	t.Run("snapshots", func(t *testing.T) {
		out, err := runCLI(t, "--root", root, "--format", "json", "-q", "snapshots", "list")
		require.NoError(t, err)

		var resp SnapshotsResponseCLI
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		require.Len(t, resp.Snapshots, 1)
		assert.Equal(t, gen.Snapshot.Digest, resp.Snapshots[0].Digest)
	})

	t.Run("human status", func(t *testing.T) {
		out, err := runCLI(t, "--root", root, "--format", "human", "-q", "status")
		require.NoError(t, err)
		assert.Contains(t, out, "Modules: 2  Symbols: 2")
	})
}

func TestQueryWithoutBlueprint(t *testing.T) {
	root := t.TempDir()

	_, err := runCLI(t, "--root", root, "--format", "json", "-q", "status")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.BlueprintMissing))
	assert.Equal(t, 3, exitCode(err))
}

func TestInitIsIdempotent(t *testing.T) {
	root := t.TempDir()

	out, err := runCLI(t, "--root", root, "--format", "json", "-q", "init")
	require.NoError(t, err)
	var first InitResponseCLI
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	assert.Len(t, first.Written, 3)
	assert.FileExists(t, filepath.Join(root, ".atlas", "config.json"))
	assert.FileExists(t, filepath.Join(root, ".atlas", "heuristics.toml"))

	out, err = runCLI(t, "--root", root, "--format", "json", "-q", "init")
	require.NoError(t, err)
	var second InitResponseCLI
	require.NoError(t, json.Unmarshal([]byte(out), &second))
	assert.Empty(t, second.Written)
	assert.Len(t, second.Skipped, 3)
}
