// Package facts defines the per-file facts handed over by an extractor and
// the decoders for the stream formats extractors write.
package facts

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names a facts stream encoding.
type Format string

const (
	FormatJSON  Format = "json"  // One JSON array, or a single object
	FormatJSONL Format = "jsonl" // One object per line
	FormatYAML  Format = "yaml"  // One document per file, "---" separated
)

// Module is the module half of one file's facts.
type Module struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name,omitempty" yaml:"name,omitempty"`
	Language string   `json:"language,omitempty" yaml:"language,omitempty"`
	Lines    int      `json:"lines" yaml:"lines"`
	Imports  []string `json:"imports,omitempty" yaml:"imports,omitempty"`
}

// Symbol is one extracted symbol. ModuleID defaults to the file's module.
type Symbol struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Kind      string   `json:"kind" yaml:"kind"`
	ModuleID  string   `json:"moduleId,omitempty" yaml:"moduleId,omitempty"`
	StartLine int      `json:"startLine" yaml:"startLine"`
	EndLine   int      `json:"endLine" yaml:"endLine"`
	Signature string   `json:"signature,omitempty" yaml:"signature,omitempty"`
	Children  []Symbol `json:"children,omitempty" yaml:"children,omitempty"`
}

// Call is one extracted call edge.
type Call struct {
	Caller   string `json:"caller" yaml:"caller"`
	Callee   string `json:"callee" yaml:"callee"`
	CallType string `json:"callType,omitempty" yaml:"callType,omitempty"`
}

// TypeRef is one extracted inheritance or implementation edge.
type TypeRef struct {
	Source    string `json:"source" yaml:"source"`
	Target    string `json:"target" yaml:"target"`
	Direction string `json:"direction" yaml:"direction"`
}

// FileFacts is everything an extractor knows about one source file.
type FileFacts struct {
	Module   Module    `json:"module" yaml:"module"`
	Symbols  []Symbol  `json:"symbols,omitempty" yaml:"symbols,omitempty"`
	Calls    []Call    `json:"calls,omitempty" yaml:"calls,omitempty"`
	TypeRefs []TypeRef `json:"typeRefs,omitempty" yaml:"typeRefs,omitempty"`

	// Source is the file's text, used only as context for semantic enrichment.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// FormatFromPath infers the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ParseFormat validates a format name. Empty selects JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatJSONL, "ndjson":
		return FormatJSONL, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown facts format %q", s)
	}
}

// Decode reads every FileFacts record from r.
func Decode(r io.Reader, format Format) ([]FileFacts, error) {
	switch format {
	case FormatJSONL:
		return decodeJSONL(r)
	case FormatYAML:
		return decodeYAML(r)
	case FormatJSON, "":
		return decodeJSON(r)
	default:
		return nil, fmt.Errorf("unknown facts format %q", format)
	}
}

// ReadFile decodes a facts file, inferring the format from its extension.
func ReadFile(path string) ([]FileFacts, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open facts file: %w", err)
	}
	defer f.Close()

	records, err := Decode(f, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

func decodeJSON(r io.Reader) ([]FileFacts, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '{' {
		var one FileFacts
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, fmt.Errorf("invalid facts object: %w", err)
		}
		return []FileFacts{one}, nil
	}
	var all []FileFacts
	if err := json.Unmarshal(trimmed, &all); err != nil {
		return nil, fmt.Errorf("invalid facts array: %w", err)
	}
	return all, nil
}

func decodeJSONL(r io.Reader) ([]FileFacts, error) {
	var all []FileFacts
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var ff FileFacts
		if err := json.Unmarshal(text, &ff); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		all = append(all, ff)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return all, nil
}

func decodeYAML(r io.Reader) ([]FileFacts, error) {
	var all []FileFacts
	dec := yaml.NewDecoder(r)
	for doc := 1; ; doc++ {
		var ff FileFacts
		err := dec.Decode(&ff)
		if err == io.EOF {
			return all, nil
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}
		all = append(all, ff)
	}
}

// Encode writes records in the given format.
func Encode(w io.Writer, records []FileFacts, format Format) error {
	switch format {
	case FormatJSONL:
		enc := json.NewEncoder(w)
		for _, ff := range records {
			if err := enc.Encode(ff); err != nil {
				return err
			}
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		for _, ff := range records {
			if err := enc.Encode(ff); err != nil {
				return err
			}
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
}
