package scip

import (
	"fmt"
	"strings"
)

// Identifier is a parsed SCIP symbol string:
// <scheme> <manager> <package> <version> <descriptors>
//
// Examples:
//
//	scip-typescript npm lodash 4.17.21 `lodash`/clone().
//	scip-go gomod codeatlas 0f1e2d `codeatlas/internal/query`/Engine#Reload().
type Identifier struct {
	Scheme      string
	Manager     string
	Package     string
	Version     string
	Descriptors []Descriptor
	Raw         string
}

// Suffix marks what a descriptor names.
type Suffix byte

const (
	SuffixNamespace     Suffix = '/'
	SuffixType          Suffix = '#'
	SuffixTerm          Suffix = '.'
	SuffixMethod        Suffix = '('
	SuffixTypeParameter Suffix = '['
	SuffixParameter     Suffix = ')'
	SuffixMeta          Suffix = ':'
	SuffixMacro         Suffix = '!'
)

// Descriptor is one step of a symbol's descriptor path.
type Descriptor struct {
	Name   string
	Suffix Suffix
}

// IsLocalSymbol reports whether id is document-local ("local 12").
func IsLocalSymbol(id string) bool {
	return strings.HasPrefix(id, "local ")
}

// ParseIdentifier parses a global SCIP symbol. Local symbols are rejected.
func ParseIdentifier(id string) (*Identifier, error) {
	if id == "" {
		return nil, fmt.Errorf("empty SCIP symbol")
	}
	if IsLocalSymbol(id) {
		return nil, fmt.Errorf("local SCIP symbol %q has no descriptors", id)
	}

	parts, rest, err := splitHeader(id)
	if err != nil {
		return nil, err
	}
	descs, err := parseDescriptors(rest)
	if err != nil {
		return nil, fmt.Errorf("invalid SCIP symbol %q: %w", id, err)
	}
	return &Identifier{
		Scheme:      parts[0],
		Manager:     parts[1],
		Package:     parts[2],
		Version:     parts[3],
		Descriptors: descs,
		Raw:         id,
	}, nil
}

// splitHeader splits the four space-separated header fields off id. A
// literal space inside a field is written as two spaces; "." stands for an
// empty field.
func splitHeader(id string) ([4]string, string, error) {
	var parts [4]string
	rest := id
	for i := 0; i < 4; i++ {
		var b strings.Builder
		for {
			j := strings.IndexByte(rest, ' ')
			if j < 0 {
				return parts, "", fmt.Errorf("invalid SCIP symbol %q: expected 5 fields", id)
			}
			b.WriteString(rest[:j])
			rest = rest[j+1:]
			if strings.HasPrefix(rest, " ") {
				b.WriteByte(' ')
				rest = rest[1:]
				continue
			}
			break
		}
		parts[i] = b.String()
		if parts[i] == "." {
			parts[i] = ""
		}
	}
	return parts, rest, nil
}

func parseDescriptors(s string) ([]Descriptor, error) {
	var out []Descriptor
	for len(s) > 0 {
		switch s[0] {
		case '(':
			end := strings.IndexByte(s, ')')
			if end < 0 {
				return nil, fmt.Errorf("unterminated parameter descriptor")
			}
			out = append(out, Descriptor{Name: s[1:end], Suffix: SuffixParameter})
			s = s[end+1:]
			continue
		case '[':
			end := strings.IndexByte(s, ']')
			if end < 0 {
				return nil, fmt.Errorf("unterminated type parameter descriptor")
			}
			out = append(out, Descriptor{Name: s[1:end], Suffix: SuffixTypeParameter})
			s = s[end+1:]
			continue
		}

		name, rest, err := readName(s)
		if err != nil {
			return nil, err
		}
		if rest == "" {
			return nil, fmt.Errorf("descriptor %q has no suffix", name)
		}
		switch rest[0] {
		case '/', '#', '.', ':', '!':
			out = append(out, Descriptor{Name: name, Suffix: Suffix(rest[0])})
			s = rest[1:]
		case '(':
			// method: name(disambiguator).
			end := strings.Index(rest, ").")
			if end < 0 {
				return nil, fmt.Errorf("unterminated method descriptor %q", name)
			}
			out = append(out, Descriptor{Name: name, Suffix: SuffixMethod})
			s = rest[end+2:]
		default:
			return nil, fmt.Errorf("unexpected %q after descriptor %q", rest[0], name)
		}
	}
	return out, nil
}

// readName reads a plain or backtick-escaped name from the start of s.
func readName(s string) (string, string, error) {
	if s[0] != '`' {
		i := 0
		for i < len(s) && isIdentChar(s[i]) {
			i++
		}
		if i == 0 {
			return "", "", fmt.Errorf("expected a name at %q", s)
		}
		return s[:i], s[i:], nil
	}

	var b strings.Builder
	for i := 1; i < len(s); i++ {
		if s[i] != '`' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == '`' {
			b.WriteByte('`')
			i++
			continue
		}
		return b.String(), s[i+1:], nil
	}
	return "", "", fmt.Errorf("unterminated escaped name")
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '+' || c == '-' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// Namespace joins the leading namespace descriptors, e.g. the Go import path
// or the npm package directory.
func (id *Identifier) Namespace() string {
	var parts []string
	for _, d := range id.Descriptors {
		if d.Suffix != SuffixNamespace {
			break
		}
		parts = append(parts, d.Name)
	}
	return strings.Join(parts, "/")
}

// NamePath lists the named descriptors below the namespace: for
// `pkg`/Engine#Reload(). that is [Engine Reload].
func (id *Identifier) NamePath() []Descriptor {
	var out []Descriptor
	for _, d := range id.Descriptors {
		switch d.Suffix {
		case SuffixType, SuffixTerm, SuffixMethod, SuffixMacro:
			out = append(out, d)
		}
	}
	return out
}

// SimpleName is the last named descriptor.
func (id *Identifier) SimpleName() string {
	path := id.NamePath()
	if len(path) == 0 {
		return ""
	}
	return path[len(path)-1].Name
}

// QualifiedName joins NamePath with dots.
func (id *Identifier) QualifiedName() string {
	path := id.NamePath()
	names := make([]string, len(path))
	for i, d := range path {
		names[i] = d.Name
	}
	return strings.Join(names, ".")
}

// IsCallable reports whether the symbol is a function or method.
func (id *Identifier) IsCallable() bool {
	path := id.NamePath()
	return len(path) > 0 && path[len(path)-1].Suffix == SuffixMethod
}

// ExternalModule names the module an external symbol belongs to: its
// namespace when it has one, else its package.
func (id *Identifier) ExternalModule() string {
	if ns := id.Namespace(); ns != "" {
		return ns
	}
	return id.Package
}
