// Package semantic attaches natural-language annotations to modules and
// symbols through an injected Annotator. Every derived view works without
// one; the Noop annotator keeps generation fully offline.
package semantic

import (
	"context"
	"strings"
)

// Target says what is being annotated.
type Target string

const (
	TargetModule Target = "module"
	TargetSymbol Target = "symbol"
)

// Request is the context handed to an Annotator for one item.
type Request struct {
	Target   Target `json:"target"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind,omitempty"`
	Language string `json:"language,omitempty"`
	Snippet  string `json:"snippet"`
	Context  string `json:"context,omitempty"` // Surrounding module or project information
}

// Annotation is what an Annotator returns.
type Annotation struct {
	Description       string   `json:"description"`
	Tags              []string `json:"tags,omitempty"`
	ArchitectureLayer string   `json:"architectureLayer,omitempty"`
}

// Empty reports whether a carries nothing worth attaching.
func (a *Annotation) Empty() bool {
	return a == nil || (strings.TrimSpace(a.Description) == "" && len(a.Tags) == 0 && a.ArchitectureLayer == "")
}

// Annotator produces an annotation for one item.
type Annotator interface {
	Annotate(ctx context.Context, req Request) (*Annotation, error)
}

// AnnotatorFunc adapts a function to Annotator.
type AnnotatorFunc func(ctx context.Context, req Request) (*Annotation, error)

// Annotate calls f.
func (f AnnotatorFunc) Annotate(ctx context.Context, req Request) (*Annotation, error) {
	return f(ctx, req)
}

// Noop annotates nothing.
type Noop struct{}

// Annotate returns no annotation.
func (Noop) Annotate(context.Context, Request) (*Annotation, error) {
	return nil, nil
}

// IsNoop reports whether a does no work, so callers can skip the enrichment
// phase entirely.
func IsNoop(a Annotator) bool {
	if a == nil {
		return true
	}
	switch a.(type) {
	case Noop, *Noop:
		return true
	}
	return false
}

// MaxSnippetLines bounds the snippet passed to an annotator.
const MaxSnippetLines = 120

// Snippet cuts lines [start, end] (1-based, inclusive) out of source, capped
// at MaxSnippetLines. A zero range selects the head of the file.
func Snippet(source string, start, end int) string {
	if source == "" {
		return ""
	}
	lines := strings.Split(source, "\n")
	if start <= 0 {
		start = 1
	}
	if end <= 0 || end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	if end-start+1 > MaxSnippetLines {
		end = start + MaxSnippetLines - 1
	}
	return strings.Join(lines[start-1:end], "\n")
}
