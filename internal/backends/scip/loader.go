package scip

import (
	"fmt"
	"os"
	"strings"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"codeatlas/internal/errors"
)

// LoadIndex reads and parses a SCIP index (index.scip).
func LoadIndex(path string) (*scippb.Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.InvalidArgument, fmt.Sprintf("SCIP index not found at %s", path), err)
		}
		return nil, errors.New(errors.InternalError, fmt.Sprintf("failed to read SCIP index from %s", path), err)
	}
	return ParseIndex(data, path)
}

// ParseIndex decodes an index from its protobuf bytes. name is only used
// in error messages.
func ParseIndex(data []byte, name string) (*scippb.Index, error) {
	var index scippb.Index
	if err := proto.Unmarshal(data, &index); err != nil {
		return nil, errors.NewAtlasError(
			errors.InvalidFacts,
			fmt.Sprintf("failed to parse SCIP index %s", name),
			err,
			[]errors.FixAction{{
				Type:        errors.RunCommand,
				Command:     "scip print --index=" + name,
				Safe:        true,
				Description: "Verify the SCIP index is valid",
			}},
			nil,
		)
	}
	return &index, nil
}

// IndexedCommit extracts the commit an index was built from out of the
// indexer's arguments, or "" when it cannot tell.
func IndexedCommit(index *scippb.Index) string {
	if index.GetMetadata().GetToolInfo() == nil {
		return ""
	}
	info := index.Metadata.ToolInfo
	for i, arg := range info.Arguments {
		for _, prefix := range []string{"--commit=", "--git-commit=", "--module-version="} {
			if v, ok := strings.CutPrefix(arg, prefix); ok && v != "" {
				return v
			}
		}
		if arg == "-c" && i+1 < len(info.Arguments) {
			return info.Arguments[i+1]
		}
	}
	if looksLikeCommitHash(info.Version) {
		return info.Version
	}
	return ""
}

func looksLikeCommitHash(s string) bool {
	if len(s) < 7 || len(s) > 40 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
