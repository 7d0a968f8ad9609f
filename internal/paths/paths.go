// Package paths resolves the .atlas workspace layout and normalizes
// project-relative module paths.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// WorkspaceDirName is the per-project directory holding config and artifacts.
	WorkspaceDirName = ".atlas"
	// HomeEnvVar overrides the workspace directory location.
	HomeEnvVar = "ATLAS_HOME"

	ConfigFileName     = "config.json"
	ArtifactFileName   = "blueprint.json"
	CatalogFileName    = "catalog.db"
	HeuristicsFileName = "heuristics.toml"
	LogsDirName        = "logs"
)

// WorkspaceDir returns the workspace directory for a project root. ATLAS_HOME
// takes precedence when set.
func WorkspaceDir(root string) string {
	if home := os.Getenv(HomeEnvVar); home != "" {
		return home
	}
	return filepath.Join(root, WorkspaceDirName)
}

// EnsureWorkspace creates the workspace directory if needed and returns it.
func EnsureWorkspace(root string) (string, error) {
	dir := WorkspaceDir(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// LogPath returns the log file of a subsystem, .atlas/logs/<name>.log.
func LogPath(root, subsystem string) string {
	return filepath.Join(WorkspaceDir(root), LogsDirName, subsystem+".log")
}

// Resolve joins a configured path onto the project root unless it is
// already absolute.
func Resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// CanonicalizePath converts an absolute path to a project-relative canonical path
// - Resolves symlinks to real paths
// - Makes path relative to the project root
// - Converts backslashes to forward slashes
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		// If the file doesn't exist yet, use the path as-is
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if os.IsNotExist(err) {
			rootResolved = root
		} else {
			return "", err
		}
	}

	relativePath, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(relativePath), nil
}

// IsWithinRoot checks if a path is within the project root
func IsWithinRoot(path string, root string) bool {
	canonical, err := CanonicalizePath(path, root)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// NormalizeModuleID turns an extractor-reported path into a module id:
// forward slashes, no leading "./", cleaned.
func NormalizeModuleID(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "./")
	if p == "" {
		return ""
	}
	cleaned := filepath.ToSlash(filepath.Clean(filepath.FromSlash(p)))
	if cleaned == "." {
		return ""
	}
	return cleaned
}
