package scip

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"

	"codeatlas/internal/blueprint"
	"codeatlas/internal/facts"
	"codeatlas/internal/paths"
)

// DefaultMaxFunctionLines bounds a function body when the indexer gives no
// enclosing range and no later definition closes it.
const DefaultMaxFunctionLines = 500

// Options controls conversion.
type Options struct {
	// SourceRoot, when set, is where documents are read from for line
	// counts and annotation source text.
	SourceRoot string
}

// definition is a global symbol defined in one of the index's documents.
type definition struct {
	scipID    string
	id        *Identifier
	moduleID  string
	atlasID   string
	parentID  string // atlas id of the enclosing defined symbol, if any
	kind      blueprint.SymbolKind
	name      string
	signature string
	start     int // 0-based
	end       int
	hasRange  bool
}

// Converter turns a SCIP index into per-file facts.
type Converter struct {
	opts   Options
	logger *slog.Logger
}

// NewConverter creates a converter.
func NewConverter(opts Options, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Converter{opts: opts, logger: logger}
}

// Convert produces one FileFacts per document, sorted by module id.
// Imports point at other documents or, for external symbols, at the
// external package. Calls are attributed to the innermost enclosing
// function; implementation relationships become parent type references.
func (c *Converter) Convert(index *scippb.Index) []facts.FileFacts {
	infos := make(map[string]*scippb.SymbolInformation)
	for _, doc := range index.Documents {
		for _, info := range doc.Symbols {
			infos[info.Symbol] = info
		}
	}
	for _, info := range index.ExternalSymbols {
		if _, ok := infos[info.Symbol]; !ok {
			infos[info.Symbol] = info
		}
	}

	docs := append([]*scippb.Document(nil), index.Documents...)
	sort.Slice(docs, func(i, j int) bool { return docs[i].RelativePath < docs[j].RelativePath })

	defs := make(map[string]*definition)
	perDoc := make(map[string][]*definition)
	for _, doc := range docs {
		moduleID := paths.NormalizeModuleID(doc.RelativePath)
		for _, occ := range doc.Occurrences {
			if !hasRole(occ, scippb.SymbolRole_Definition) || IsLocalSymbol(occ.Symbol) {
				continue
			}
			if _, dup := defs[occ.Symbol]; dup {
				continue
			}
			def := c.define(occ, moduleID, infos[occ.Symbol])
			if def == nil {
				continue
			}
			defs[occ.Symbol] = def
			perDoc[moduleID] = append(perDoc[moduleID], def)
		}
	}

	out := make([]facts.FileFacts, 0, len(docs))
	for _, doc := range docs {
		moduleID := paths.NormalizeModuleID(doc.RelativePath)
		ff := facts.FileFacts{Module: facts.Module{
			ID:       moduleID,
			Language: strings.ToLower(doc.Language),
		}}

		text := doc.Text
		if c.opts.SourceRoot != "" {
			if data, err := os.ReadFile(filepath.Join(c.opts.SourceRoot, filepath.FromSlash(doc.RelativePath))); err == nil {
				text = string(data)
			} else {
				c.logger.Debug("Source not readable", "module", moduleID, "error", err.Error())
			}
		}
		ff.Source = text
		ff.Module.Lines = countLines(text, doc)

		local := perDoc[moduleID]
		sort.SliceStable(local, func(i, j int) bool { return local[i].start < local[j].start })
		bodies := functionBodies(local, ff.Module.Lines)
		for _, def := range local {
			if !def.hasRange {
				if r, ok := bodies[def.atlasID]; ok {
					def.end = r.end
				}
			}
		}
		ff.Symbols = nestSymbols(local)

		imports := make(map[string]bool)
		calls := make(map[[2]string]bool)
		for _, occ := range doc.Occurrences {
			if hasRole(occ, scippb.SymbolRole_Definition) || IsLocalSymbol(occ.Symbol) || occ.Symbol == "" {
				continue
			}
			target, ok := defs[occ.Symbol]
			var id *Identifier
			if ok {
				id = target.id
				if target.moduleID != moduleID {
					imports[target.moduleID] = true
				}
			} else {
				parsed, err := ParseIdentifier(occ.Symbol)
				if err != nil {
					c.logger.Debug("Skipping unparsable symbol", "symbol", occ.Symbol, "error", err.Error())
					continue
				}
				id = parsed
				if mod := id.ExternalModule(); mod != "" && mod != moduleID {
					imports[mod] = true
				}
			}

			if !isCallable(target, id, infos[occ.Symbol]) {
				continue
			}
			caller := innermost(bodies, startLine(occ))
			if caller == "" {
				continue
			}
			callee := externalID(id)
			if ok {
				callee = target.atlasID
			}
			key := [2]string{caller, callee}
			if calls[key] {
				continue
			}
			calls[key] = true
			ff.Calls = append(ff.Calls, facts.Call{Caller: caller, Callee: callee})
		}

		for _, def := range local {
			info := infos[def.scipID]
			if info == nil {
				continue
			}
			for _, rel := range info.Relationships {
				if !rel.IsImplementation || IsLocalSymbol(rel.Symbol) {
					continue
				}
				targetID := ""
				if t, ok := defs[rel.Symbol]; ok {
					targetID = t.atlasID
				} else if parsed, err := ParseIdentifier(rel.Symbol); err == nil {
					targetID = externalID(parsed)
				}
				if targetID == "" || targetID == def.atlasID {
					continue
				}
				ff.TypeRefs = append(ff.TypeRefs, facts.TypeRef{
					Source:    def.atlasID,
					Target:    targetID,
					Direction: string(blueprint.DirectionParent),
				})
			}
		}

		for imp := range imports {
			ff.Module.Imports = append(ff.Module.Imports, imp)
		}
		sort.Strings(ff.Module.Imports)
		out = append(out, ff)
	}

	c.logger.Info("Converted SCIP index",
		"documents", len(out),
		"definitions", len(defs),
		"commit", IndexedCommit(index),
	)
	return out
}

func (c *Converter) define(occ *scippb.Occurrence, moduleID string, info *scippb.SymbolInformation) *definition {
	id, err := ParseIdentifier(occ.Symbol)
	if err != nil {
		c.logger.Debug("Skipping unparsable definition", "symbol", occ.Symbol, "error", err.Error())
		return nil
	}
	path := id.NamePath()
	if len(path) == 0 {
		return nil
	}

	names := make([]string, len(path))
	for i, d := range path {
		names[i] = d.Name
	}
	def := &definition{
		scipID:   occ.Symbol,
		id:       id,
		moduleID: moduleID,
		atlasID:  moduleID + "#" + strings.Join(names, "."),
		name:     names[len(names)-1],
		kind:     symbolKind(info, path),
		start:    startLine(occ),
	}
	if len(names) > 1 {
		def.parentID = moduleID + "#" + strings.Join(names[:len(names)-1], ".")
	}
	if info != nil {
		if info.DisplayName != "" {
			def.name = info.DisplayName
		}
		if info.SignatureDocumentation != nil {
			def.signature = strings.TrimSpace(info.SignatureDocumentation.Text)
		}
	}
	if r := occ.EnclosingRange; len(r) >= 3 {
		def.start = int(r[0])
		def.end = endLine(r)
		def.hasRange = true
	} else {
		def.end = endLine(occ.Range)
	}
	return def
}

func hasRole(occ *scippb.Occurrence, role scippb.SymbolRole) bool {
	return occ.SymbolRoles&int32(role) != 0
}

// startLine and endLine read SCIP ranges, which are [line, char, char] or
// [line, char, line, char].
func startLine(occ *scippb.Occurrence) int {
	if len(occ.Range) == 0 {
		return 0
	}
	return int(occ.Range[0])
}

func endLine(r []int32) int {
	switch len(r) {
	case 4:
		return int(r[2])
	case 3:
		return int(r[0])
	default:
		return 0
	}
}

// symbolKind prefers the indexer's kind and falls back to the descriptor.
func symbolKind(info *scippb.SymbolInformation, path []Descriptor) blueprint.SymbolKind {
	nested := len(path) > 1 && path[len(path)-2].Suffix == SuffixType
	if info != nil {
		switch info.Kind {
		case scippb.SymbolInformation_Class, scippb.SymbolInformation_Struct:
			return blueprint.KindClass
		case scippb.SymbolInformation_Interface, scippb.SymbolInformation_Trait, scippb.SymbolInformation_Protocol:
			return blueprint.KindInterface
		case scippb.SymbolInformation_Enum:
			return blueprint.KindEnum
		case scippb.SymbolInformation_Method:
			return blueprint.KindMethod
		case scippb.SymbolInformation_Function, scippb.SymbolInformation_Constructor:
			if nested {
				return blueprint.KindMethod
			}
			return blueprint.KindFunction
		case scippb.SymbolInformation_Property, scippb.SymbolInformation_Field:
			return blueprint.KindProperty
		case scippb.SymbolInformation_Constant, scippb.SymbolInformation_EnumMember:
			return blueprint.KindConstant
		case scippb.SymbolInformation_Variable:
			return blueprint.KindVariable
		case scippb.SymbolInformation_Type, scippb.SymbolInformation_TypeAlias:
			return blueprint.KindType
		}
	}

	last := path[len(path)-1]
	switch last.Suffix {
	case SuffixType:
		return blueprint.KindClass
	case SuffixMethod:
		if nested {
			return blueprint.KindMethod
		}
		return blueprint.KindFunction
	case SuffixMacro:
		return blueprint.KindFunction
	}
	if nested {
		return blueprint.KindProperty
	}
	if isUpper(last.Name) {
		return blueprint.KindConstant
	}
	return blueprint.KindVariable
}

func isUpper(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return letters > 1
}

func isCallable(def *definition, id *Identifier, info *scippb.SymbolInformation) bool {
	if def != nil {
		return def.kind == blueprint.KindFunction || def.kind == blueprint.KindMethod
	}
	if info != nil {
		switch info.Kind {
		case scippb.SymbolInformation_Function, scippb.SymbolInformation_Method, scippb.SymbolInformation_Constructor:
			return true
		}
	}
	return id.IsCallable()
}

// externalID names a symbol outside the index the way module ids name
// external packages: package#Qualified.Name.
func externalID(id *Identifier) string {
	return id.ExternalModule() + "#" + id.QualifiedName()
}

type lineRange struct{ start, end int }

// functionBodies maps each callable definition to its body lines. Without an
// enclosing range a body runs until the next callable definition.
func functionBodies(defs []*definition, lines int) map[string]lineRange {
	var callables []*definition
	for _, d := range defs {
		if d.kind == blueprint.KindFunction || d.kind == blueprint.KindMethod {
			callables = append(callables, d)
		}
	}

	bodies := make(map[string]lineRange, len(callables))
	for i, d := range callables {
		if d.hasRange {
			bodies[d.atlasID] = lineRange{d.start, d.end}
			continue
		}
		end := d.start + DefaultMaxFunctionLines
		if i+1 < len(callables) {
			end = callables[i+1].start - 1
		} else if lines > 0 && lines-1 < end {
			end = lines - 1
		}
		if end < d.start {
			end = d.start
		}
		bodies[d.atlasID] = lineRange{d.start, end}
	}
	return bodies
}

// innermost returns the narrowest body containing line.
func innermost(bodies map[string]lineRange, line int) string {
	best, bestSpan := "", -1
	for id, r := range bodies {
		if line < r.start || line > r.end {
			continue
		}
		span := r.end - r.start
		if bestSpan < 0 || span < bestSpan || (span == bestSpan && id < best) {
			best, bestSpan = id, span
		}
	}
	return best
}

// nestSymbols builds the symbol tree; members whose parent is defined in the
// same document become its children.
func nestSymbols(defs []*definition) []facts.Symbol {
	byID := make(map[string]*definition, len(defs))
	for _, d := range defs {
		byID[d.atlasID] = d
	}
	children := make(map[string][]*definition)
	var roots []*definition
	for _, d := range defs {
		if d.parentID != "" && byID[d.parentID] != nil {
			children[d.parentID] = append(children[d.parentID], d)
			continue
		}
		roots = append(roots, d)
	}

	var build func(d *definition) facts.Symbol
	build = func(d *definition) facts.Symbol {
		s := facts.Symbol{
			ID:        d.atlasID,
			Name:      d.name,
			Kind:      string(d.kind),
			ModuleID:  d.moduleID,
			StartLine: d.start + 1,
			EndLine:   d.end + 1,
			Signature: d.signature,
		}
		for _, child := range children[d.atlasID] {
			s.Children = append(s.Children, build(child))
		}
		return s
	}

	out := make([]facts.Symbol, 0, len(roots))
	for _, d := range roots {
		out = append(out, build(d))
	}
	return out
}

// countLines counts text lines, or estimates from the last occurrence when
// the document carries no text.
func countLines(text string, doc *scippb.Document) int {
	if text != "" {
		n := bytes.Count([]byte(text), []byte("\n"))
		if !strings.HasSuffix(text, "\n") {
			n++
		}
		return n
	}
	last := -1
	for _, occ := range doc.Occurrences {
		if e := endLine(occ.Range); e > last {
			last = e
		}
		if e := endLine(occ.EnclosingRange); e > last {
			last = e
		}
	}
	return last + 1
}
