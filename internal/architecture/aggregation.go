// Package architecture classifies modules into layers and rolls them up into
// blocks with the dependency edges between them.
package architecture

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"codeatlas/internal/blueprint"
)

// maxBlockDescriptions bounds how many module descriptions are stitched into
// an undeclared block's description.
const maxBlockDescriptions = 3

// containerDirs are skipped when picking the directory that names an
// inferred block.
var containerDirs = map[string]bool{
	"src": true, "lib": true, "internal": true, "pkg": true,
	"source": true, "sources": true, "packages": true, "main": true,
}

// Generate builds the architecture view of a Blueprint. Modules matched by a
// declared block belong to the first such block; the rest are grouped by
// layer and first meaningful directory.
func Generate(v *blueprint.View, c *Classifier, declared []BlockDeclaration) *View {
	view := &View{
		ModuleLayers: make(map[string]Layer, len(v.ModuleIDs())),
		ModuleBlocks: make(map[string]string, len(v.ModuleIDs())),
	}

	blocks := make(map[string]*Block)
	declaredIdx := make(map[string]int, len(declared))
	for i, d := range declared {
		declaredIdx[d.ID] = i
	}
	usedDeclared, usedInferred := false, false

	for _, id := range v.ModuleIDs() {
		m, _ := v.Module(id)
		layer := c.Classify(m)
		view.ModuleLayers[id] = layer

		blockID := ""
		for _, d := range declared {
			if d.Matches(id) {
				blockID = d.ID
				break
			}
		}

		b := blocks[blockID]
		switch {
		case blockID != "" && b == nil:
			d := declared[declaredIdx[blockID]]
			b = &Block{ID: d.ID, Name: d.Name, Description: d.Description, Declared: true}
			if l, ok := NormalizeLayer(d.Layer); ok {
				b.Layer = l
			}
			blocks[blockID] = b
			usedDeclared = true
		case blockID == "":
			dir := meaningfulDir(id)
			blockID = string(layer) + ":" + dir
			if b = blocks[blockID]; b == nil {
				b = &Block{ID: blockID, Name: dir, Layer: layer}
				blocks[blockID] = b
				usedInferred = true
			}
		}

		b.Modules = append(b.Modules, id)
		b.FileCount++
		b.Lines += m.Lines
		view.ModuleBlocks[id] = blockID
	}

	ids := make([]string, 0, len(blocks))
	for id := range blocks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		b := blocks[id]
		finishBlock(v, b, view.ModuleLayers)
		view.Blocks = append(view.Blocks, *b)
	}

	view.Edges = blockEdges(v, view.ModuleBlocks)
	view.Layers = summarizeLayers(v, view)

	switch {
	case usedDeclared && usedInferred:
		view.DetectionMethod = DetectionMixed
	case usedDeclared:
		view.DetectionMethod = DetectionDeclared
	default:
		view.DetectionMethod = DetectionInferred
	}
	if view.Blocks == nil {
		view.Blocks = []Block{}
	}
	return view
}

// finishBlock fills the derived fields once membership is final.
func finishBlock(v *blueprint.View, b *Block, layers map[string]Layer) {
	if b.Layer == "" {
		b.Layer = majorityLayer(b.Modules, layers)
	}

	langs := make(map[string]bool)
	for _, id := range b.Modules {
		m, _ := v.Module(id)
		if m.Language != "" {
			langs[m.Language] = true
		}
	}
	b.Languages = make([]string, 0, len(langs))
	for l := range langs {
		b.Languages = append(b.Languages, l)
	}
	sort.Strings(b.Languages)

	if b.Description == "" {
		b.Description = describeBlock(v, b)
	}
}

func majorityLayer(ids []string, layers map[string]Layer) Layer {
	counts := make(map[Layer]int)
	for _, id := range ids {
		counts[layers[id]]++
	}
	best := LayerInfrastructure
	bestCount := -1
	for _, l := range Layers {
		if counts[l] > bestCount {
			best, bestCount = l, counts[l]
		}
	}
	return best
}

// describeBlock joins the descriptions of the largest annotated modules, or
// falls back to a generated summary.
func describeBlock(v *blueprint.View, b *Block) string {
	ordered := append([]string(nil), b.Modules...)
	sort.SliceStable(ordered, func(i, j int) bool {
		mi, _ := v.Module(ordered[i])
		mj, _ := v.Module(ordered[j])
		if mi.Lines != mj.Lines {
			return mi.Lines > mj.Lines
		}
		return ordered[i] < ordered[j]
	})

	var parts []string
	for _, id := range ordered {
		m, _ := v.Module(id)
		if m.Semantic.HasDescription() {
			parts = append(parts, strings.TrimSpace(m.Semantic.Description))
			if len(parts) == maxBlockDescriptions {
				break
			}
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}

	noun := "files"
	if b.FileCount == 1 {
		noun = "file"
	}
	return fmt.Sprintf("%d %s in %s (%s layer, %d lines)", b.FileCount, noun, b.Name, b.Layer, b.Lines)
}

// blockEdges maps every module dependency through the module to block
// assignment. Dangling and intra-block edges are dropped.
func blockEdges(v *blueprint.View, moduleBlocks map[string]string) []BlockEdge {
	type pair struct{ from, to string }
	strength := make(map[pair]int)
	for _, d := range v.Blueprint().References.ModuleDeps {
		from, ok := moduleBlocks[d.Source]
		if !ok {
			continue
		}
		to, ok := moduleBlocks[d.Target]
		if !ok || from == to {
			continue
		}
		strength[pair{from, to}]++
	}

	edges := make([]BlockEdge, 0, len(strength))
	for p, n := range strength {
		edges = append(edges, BlockEdge{From: p.from, To: p.to, Strength: n})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

func summarizeLayers(v *blueprint.View, view *View) []LayerSummary {
	byLayer := make(map[Layer]*LayerSummary, len(Layers))
	summaries := make([]LayerSummary, len(Layers))
	for i, l := range Layers {
		summaries[i] = LayerSummary{Layer: l, Blocks: []string{}}
		byLayer[l] = &summaries[i]
	}
	for id, l := range view.ModuleLayers {
		m, _ := v.Module(id)
		s := byLayer[l]
		s.ModuleCount++
		s.Lines += m.Lines
	}
	for _, b := range view.Blocks {
		s := byLayer[b.Layer]
		s.Blocks = append(s.Blocks, b.ID)
	}
	return summaries
}

// meaningfulDir returns the first directory of id that is not a generic
// source container, or "(root)" for files without one.
func meaningfulDir(id string) string {
	dir := path.Dir(strings.TrimPrefix(id, "./"))
	if dir == "." || dir == "/" {
		return "(root)"
	}
	parts := strings.Split(dir, "/")
	for _, p := range parts {
		if p != "" && !containerDirs[strings.ToLower(p)] {
			return p
		}
	}
	return parts[0]
}
