// Package project detects the name and primary language of an analyzed
// project from its manifest files.
package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Language represents a programming language.
type Language string

const (
	LangGo         Language = "go"
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangJava       Language = "java"
	LangKotlin     Language = "kotlin"
	LangDart       Language = "dart"
	LangCSharp     Language = "csharp"
	LangRuby       Language = "ruby"
	LangPHP        Language = "php"
	LangC          Language = "c"
	LangCpp        Language = "cpp"
	LangSwift      Language = "swift"
	LangUnknown    Language = "unknown"
)

// Info stores detected project information.
type Info struct {
	Name         string    `json:"name"`
	Language     Language  `json:"language"`
	ManifestPath string    `json:"manifestPath,omitempty"`
	DetectedAt   time.Time `json:"detectedAt"`
}

// manifests in priority order.
var manifests = []struct {
	path string
	lang Language
}{
	{"go.mod", LangGo},
	{"package.json", LangTypeScript}, // Refined below
	{"Cargo.toml", LangRust},
	{"pyproject.toml", LangPython},
	{"requirements.txt", LangPython},
	{"setup.py", LangPython},
	{"pubspec.yaml", LangDart},
	{"pom.xml", LangJava},
	{"build.gradle", LangJava},
	{"build.gradle.kts", LangKotlin},
	{"Gemfile", LangRuby},
	{"composer.json", LangPHP},
	{"Package.swift", LangSwift},
}

// DetectLanguage detects the primary language of a project from manifest files.
// Returns the language, manifest path, and whether detection succeeded.
func DetectLanguage(root string) (Language, string, bool) {
	for _, m := range manifests {
		if _, err := os.Stat(filepath.Join(root, m.path)); err == nil {
			lang := m.lang
			if m.path == "package.json" {
				lang = detectJSorTS(root)
			}
			return lang, m.path, true
		}
	}
	return LangUnknown, "", false
}

// Detect returns the project's name and primary language. The name falls
// back to the root directory's base name when no manifest declares one.
func Detect(root string) Info {
	info := Info{Language: LangUnknown, DetectedAt: time.Now()}
	if lang, manifest, ok := DetectLanguage(root); ok {
		info.Language = lang
		info.ManifestPath = manifest
	}
	if name, _ := DetectName(root); name != "" {
		info.Name = name
	} else if abs, err := filepath.Abs(root); err == nil {
		info.Name = filepath.Base(abs)
	}
	return info
}

// detectJSorTS checks if a project is TypeScript or JavaScript.
func detectJSorTS(root string) Language {
	if _, err := os.Stat(filepath.Join(root, "tsconfig.json")); err == nil {
		return LangTypeScript
	}
	if hasFileWithExt(root, ".ts") {
		return LangTypeScript
	}
	return LangJavaScript
}

// hasFileWithExt checks if any file with the given extension exists in the
// root or its src directory.
func hasFileWithExt(root, ext string) bool {
	for _, dir := range []string{root, filepath.Join(root, "src")} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == ext {
				return true
			}
		}
	}
	return false
}

var extLanguages = map[string]Language{
	".go":    LangGo,
	".ts":    LangTypeScript,
	".tsx":   LangTypeScript,
	".mts":   LangTypeScript,
	".js":    LangJavaScript,
	".jsx":   LangJavaScript,
	".mjs":   LangJavaScript,
	".cjs":   LangJavaScript,
	".py":    LangPython,
	".rs":    LangRust,
	".java":  LangJava,
	".kt":    LangKotlin,
	".kts":   LangKotlin,
	".dart":  LangDart,
	".cs":    LangCSharp,
	".rb":    LangRuby,
	".php":   LangPHP,
	".c":     LangC,
	".h":     LangC,
	".cc":    LangCpp,
	".cpp":   LangCpp,
	".hpp":   LangCpp,
	".swift": LangSwift,
}

// LanguageForFile maps a file path to a language by extension.
func LanguageForFile(path string) Language {
	if lang, ok := extLanguages[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return LangUnknown
}

// Languages returns the distinct languages in counts, most files first and
// ties by name. Unknown is listed last.
func Languages(counts map[string]int) []string {
	langs := make([]string, 0, len(counts))
	for lang := range counts {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool {
		a, b := langs[i], langs[j]
		if (a == string(LangUnknown)) != (b == string(LangUnknown)) {
			return b == string(LangUnknown)
		}
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		return a < b
	})
	return langs
}

// SaveInfo writes info to dir/project.json.
func SaveInfo(dir string, info *Info) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "project.json"), data, 0644)
}

// LoadInfo reads dir/project.json.
func LoadInfo(dir string) (*Info, error) {
	data, err := os.ReadFile(filepath.Join(dir, "project.json"))
	if err != nil {
		return nil, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// LanguageDisplayName returns a human-readable name for the language.
func LanguageDisplayName(lang Language) string {
	switch lang {
	case LangGo:
		return "Go"
	case LangTypeScript:
		return "TypeScript"
	case LangJavaScript:
		return "JavaScript"
	case LangPython:
		return "Python"
	case LangRust:
		return "Rust"
	case LangJava:
		return "Java"
	case LangKotlin:
		return "Kotlin"
	case LangDart:
		return "Dart"
	case LangCSharp:
		return "C#"
	case LangRuby:
		return "Ruby"
	case LangPHP:
		return "PHP"
	case LangC:
		return "C"
	case LangCpp:
		return "C++"
	case LangSwift:
		return "Swift"
	default:
		return "Unknown"
	}
}
