package architecture

import "strings"

// Layer is one of the coarse architectural layers a module belongs to.
type Layer string

const (
	LayerPresentation   Layer = "presentation"
	LayerBusiness       Layer = "business"
	LayerData           Layer = "data"
	LayerInfrastructure Layer = "infrastructure"
	LayerCrossCutting   Layer = "cross-cutting"
)

// Layers lists every layer in display order.
var Layers = []Layer{
	LayerPresentation,
	LayerBusiness,
	LayerData,
	LayerInfrastructure,
	LayerCrossCutting,
}

var layerSynonyms = map[string]Layer{
	"presentation":   LayerPresentation,
	"ui":             LayerPresentation,
	"api":            LayerPresentation,
	"view":           LayerPresentation,
	"views":          LayerPresentation,
	"frontend":       LayerPresentation,
	"interface":      LayerPresentation,
	"business":       LayerBusiness,
	"domain":         LayerBusiness,
	"service":        LayerBusiness,
	"services":       LayerBusiness,
	"core":           LayerBusiness,
	"application":    LayerBusiness,
	"logic":          LayerBusiness,
	"data":           LayerData,
	"persistence":    LayerData,
	"database":       LayerData,
	"storage":        LayerData,
	"model":          LayerData,
	"infrastructure": LayerInfrastructure,
	"infra":          LayerInfrastructure,
	"platform":       LayerInfrastructure,
	"cross-cutting":  LayerCrossCutting,
	"crosscutting":   LayerCrossCutting,
	"shared":         LayerCrossCutting,
	"common":         LayerCrossCutting,
	"util":           LayerCrossCutting,
	"utils":          LayerCrossCutting,
	"utility":        LayerCrossCutting,
}

// NormalizeLayer maps a free-form layer name onto a known layer.
func NormalizeLayer(s string) (Layer, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "_", "-")
	key = strings.ReplaceAll(key, " ", "-")
	l, ok := layerSynonyms[key]
	return l, ok
}

// Detection methods reported on a View.
const (
	DetectionDeclared = "declared" // Every block came from BLOCKS.toml
	DetectionInferred = "inferred" // Every block was inferred from paths
	DetectionMixed    = "mixed"
)

// LayerSummary aggregates the modules of one layer.
type LayerSummary struct {
	Layer       Layer    `json:"layer"`
	ModuleCount int      `json:"moduleCount"`
	Lines       int      `json:"lines"`
	Blocks      []string `json:"blocks"`
}

// Block is a group of related modules presented as one unit.
type Block struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Layer       Layer    `json:"layer"`
	Modules     []string `json:"modules"`
	FileCount   int      `json:"fileCount"`
	Lines       int      `json:"lines"`
	Languages   []string `json:"languages"`
	Description string   `json:"description"`
	Declared    bool     `json:"declared"`
}

// BlockEdge is a deduplicated dependency between two blocks. Strength
// counts the module dependencies folded into it.
type BlockEdge struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Strength int    `json:"strength"`
}

// View is the architecture of one Blueprint.
type View struct {
	Layers          []LayerSummary    `json:"layers"`
	Blocks          []Block           `json:"blocks"`
	Edges           []BlockEdge       `json:"edges"`
	ModuleLayers    map[string]Layer  `json:"moduleLayers"`
	ModuleBlocks    map[string]string `json:"moduleBlocks"`
	DetectionMethod string            `json:"detectionMethod"`
}

// Block returns the block with the given id.
func (v *View) Block(id string) (*Block, bool) {
	for i := range v.Blocks {
		if v.Blocks[i].ID == id {
			return &v.Blocks[i], true
		}
	}
	return nil, false
}
