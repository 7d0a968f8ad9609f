package architecture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	toml "github.com/pelletier/go-toml/v2"
)

// BlocksDeclarationFile is the default filename for block declarations,
// resolved inside the .atlas directory.
const BlocksDeclarationFile = "BLOCKS.toml"

// BlockDeclaration is one declared block in BLOCKS.toml.
type BlockDeclaration struct {
	// ID is the unique block identifier (optional, derived from Name)
	ID string `toml:"id"`

	// Name is the human-readable name of the block
	Name string `toml:"name"`

	// Layer overrides the layer computed from the block's modules
	Layer string `toml:"layer,omitempty"`

	Description string `toml:"description,omitempty"`

	// Paths are doublestar globs or directory prefixes matched against module ids
	Paths []string `toml:"paths"`
}

// BlocksFile represents the root structure of BLOCKS.toml
type BlocksFile struct {
	Version int                `toml:"version"`
	Blocks  []BlockDeclaration `toml:"blocks"`
}

// ParseBlocksFile parses a BLOCKS.toml file from the given path
func ParseBlocksFile(filePath string) (*BlocksFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", BlocksDeclarationFile, err)
	}

	var blocksFile BlocksFile
	if err := toml.Unmarshal(data, &blocksFile); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", BlocksDeclarationFile, err)
	}
	if blocksFile.Version < 1 {
		blocksFile.Version = 1
	}

	seen := make(map[string]bool)
	for i := range blocksFile.Blocks {
		decl := &blocksFile.Blocks[i]
		if len(decl.Paths) == 0 {
			return nil, fmt.Errorf("block %d (%s) declares no paths", i, decl.Name)
		}
		if decl.ID == "" {
			decl.ID = slug(decl.Name)
		}
		if decl.ID == "" {
			return nil, fmt.Errorf("block %d needs an id or a name", i)
		}
		if decl.Name == "" {
			decl.Name = decl.ID
		}
		if seen[decl.ID] {
			return nil, fmt.Errorf("duplicate block id %q", decl.ID)
		}
		seen[decl.ID] = true
		if decl.Layer != "" {
			if _, ok := NormalizeLayer(decl.Layer); !ok {
				return nil, fmt.Errorf("block %q: unknown layer %q", decl.ID, decl.Layer)
			}
		}
		for _, p := range decl.Paths {
			if !doublestar.ValidatePattern(p) {
				return nil, fmt.Errorf("block %q: invalid path pattern %q", decl.ID, p)
			}
		}
	}

	return &blocksFile, nil
}

// LoadDeclaredBlocks loads block declarations from dir if the file exists.
// A missing file yields no declarations and no error.
func LoadDeclaredBlocks(dir, declarationFile string) ([]BlockDeclaration, error) {
	if declarationFile == "" {
		declarationFile = BlocksDeclarationFile
	}
	filePath := filepath.Join(dir, declarationFile)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, nil
	}
	blocksFile, err := ParseBlocksFile(filePath)
	if err != nil {
		return nil, err
	}
	return blocksFile.Blocks, nil
}

// WriteBlocksFile writes a BlocksFile to the given path
func WriteBlocksFile(filePath string, blocksFile *BlocksFile) error {
	data, err := toml.Marshal(blocksFile)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", BlocksDeclarationFile, err)
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", BlocksDeclarationFile, err)
	}
	return nil
}

// Matches reports whether module id falls in the declared block. A pattern
// without glob meta characters matches itself and everything below it.
func (d BlockDeclaration) Matches(id string) bool {
	for _, p := range d.Paths {
		p = strings.TrimPrefix(p, "./")
		if !strings.ContainsAny(p, "*?[{") {
			prefix := strings.TrimSuffix(p, "/")
			if id == prefix || strings.HasPrefix(id, prefix+"/") {
				return true
			}
			continue
		}
		if ok, _ := doublestar.Match(p, id); ok {
			return true
		}
	}
	return false
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
