// Package version holds the atlas build information.
package version

import (
	"fmt"
	"runtime"

	"codeatlas/internal/blueprint"
)

// Set at build time:
// go build -ldflags "-X codeatlas/internal/version.Version=1.0.0 -X codeatlas/internal/version.Commit=abc123"
var (
	Version   = "0.4.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Build is the machine-readable form of the build information.
type Build struct {
	Version       string `json:"version"`
	Commit        string `json:"commit"`
	BuildDate     string `json:"buildDate"`
	FormatVersion string `json:"blueprintFormat"`
	GoVersion     string `json:"goVersion"`
}

// Get returns the current build information.
func Get() Build {
	return Build{
		Version:       Version,
		Commit:        Commit,
		BuildDate:     BuildDate,
		FormatVersion: blueprint.FormatVersion,
		GoVersion:     runtime.Version(),
	}
}

// Info returns a short version string, with the abbreviated commit when known.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns complete version information
func Full() string {
	return fmt.Sprintf("atlas version %s\nCommit: %s\nBuilt: %s\nBlueprint format: %s",
		Version, Commit, BuildDate, blueprint.FormatVersion)
}
