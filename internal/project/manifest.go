package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/modfile"
	"gopkg.in/yaml.v3"
)

type nameReader func(data []byte) (string, error)

var nameReaders = []struct {
	file string
	read nameReader
}{
	{"go.mod", goModName},
	{"package.json", packageJSONName},
	{"Cargo.toml", cargoName},
	{"pyproject.toml", pyprojectName},
	{"pubspec.yaml", pubspecName},
	{"composer.json", packageJSONName},
}

// DetectName reads the project name from the first manifest that declares
// one. It returns the manifest the name came from.
func DetectName(root string) (string, string) {
	for _, r := range nameReaders {
		data, err := os.ReadFile(filepath.Join(root, r.file))
		if err != nil {
			continue
		}
		name, err := r.read(data)
		if err == nil && name != "" {
			return name, r.file
		}
	}
	return "", ""
}

// goModName returns the last element of the module path.
func goModName(data []byte) (string, error) {
	modPath := modfile.ModulePath(data)
	if modPath == "" {
		return "", fmt.Errorf("go.mod has no module directive")
	}
	return path.Base(modPath), nil
}

func packageJSONName(data []byte) (string, error) {
	var pkg struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", err
	}
	// Scoped npm names keep only the package part.
	if i := strings.LastIndex(pkg.Name, "/"); i >= 0 {
		return pkg.Name[i+1:], nil
	}
	return pkg.Name, nil
}

func cargoName(data []byte) (string, error) {
	var cargo struct {
		Package struct {
			Name string `toml:"name"`
		} `toml:"package"`
	}
	if err := toml.Unmarshal(data, &cargo); err != nil {
		return "", err
	}
	return cargo.Package.Name, nil
}

func pyprojectName(data []byte) (string, error) {
	var py struct {
		Project struct {
			Name string `toml:"name"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Name string `toml:"name"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if err := toml.Unmarshal(data, &py); err != nil {
		return "", err
	}
	if py.Project.Name != "" {
		return py.Project.Name, nil
	}
	return py.Tool.Poetry.Name, nil
}

func pubspecName(data []byte) (string, error) {
	var pub struct {
		Name string `yaml:"name"`
	}
	if err := yaml.Unmarshal(data, &pub); err != nil {
		return "", err
	}
	return pub.Name, nil
}
