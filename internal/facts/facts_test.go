package facts

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonArray = `[
  {
    "module": {"id": "src/a.ts", "language": "typescript", "lines": 12, "imports": ["src/b.ts"]},
    "symbols": [{"id": "a.run", "name": "run", "kind": "function", "startLine": 1, "endLine": 10,
                 "children": [{"id": "a.run.inner", "name": "inner", "kind": "function", "startLine": 2, "endLine": 3}]}],
    "calls": [{"caller": "a.run", "callee": "b.help", "callType": "direct"}]
  },
  {"module": {"id": "src/b.ts", "lines": 4}}
]`

const yamlStream = `module:
  id: src/a.ts
  language: typescript
  lines: 12
  imports: [src/b.ts]
symbols:
  - id: a.run
    name: run
    kind: function
    startLine: 1
    endLine: 10
    children:
      - {id: a.run.inner, name: inner, kind: function, startLine: 2, endLine: 3}
calls:
  - {caller: a.run, callee: b.help, callType: direct}
---
module:
  id: src/b.ts
  lines: 4
`

func TestDecodeFormatsAgree(t *testing.T) {
	fromJSON, err := Decode(strings.NewReader(jsonArray), FormatJSON)
	require.NoError(t, err)
	require.Len(t, fromJSON, 2)
	assert.Equal(t, "src/a.ts", fromJSON[0].Module.ID)
	assert.Equal(t, []string{"src/b.ts"}, fromJSON[0].Module.Imports)
	require.Len(t, fromJSON[0].Symbols, 1)
	assert.Equal(t, "a.run.inner", fromJSON[0].Symbols[0].Children[0].ID)
	assert.Equal(t, "direct", fromJSON[0].Calls[0].CallType)

	fromYAML, err := Decode(strings.NewReader(yamlStream), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, fromJSON, fromYAML)

	var jsonl bytes.Buffer
	require.NoError(t, Encode(&jsonl, fromJSON, FormatJSONL))
	assert.Equal(t, 2, strings.Count(jsonl.String(), "\n"))
	fromJSONL, err := Decode(&jsonl, FormatJSONL)
	require.NoError(t, err)
	assert.Equal(t, fromJSON, fromJSONL)
}

func TestDecodeSingleObjectAndEmpty(t *testing.T) {
	one, err := Decode(strings.NewReader(`{"module": {"id": "x.go", "lines": 1}}`), FormatJSON)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "x.go", one[0].Module.ID)

	none, err := Decode(strings.NewReader("  \n"), FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, none)

	none, err = Decode(strings.NewReader(""), FormatYAML)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(strings.NewReader("{\"module\":{\"id\":\"a\"}}\nnot json\n"), FormatJSONL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	_, err = Decode(strings.NewReader("[{"), FormatJSON)
	assert.Error(t, err)

	_, err = Decode(strings.NewReader("module: [unclosed"), FormatYAML)
	assert.Error(t, err)

	_, err = Decode(strings.NewReader(""), Format("xml"))
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "facts.yml")
	require.NoError(t, os.WriteFile(path, []byte(yamlStream), 0644))

	records, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = ReadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatJSONL, FormatFromPath("out/facts.ndjson"))
	assert.Equal(t, FormatJSONL, FormatFromPath("facts.JSONL"))
	assert.Equal(t, FormatYAML, FormatFromPath("facts.yaml"))
	assert.Equal(t, FormatJSON, FormatFromPath("facts.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("facts"))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("csv")
	assert.Error(t, err)
}
