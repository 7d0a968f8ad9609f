package blueprint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"codeatlas/internal/errors"
)

// requiredSections must be present and non-null in every artifact.
var requiredSections = []string{"meta", "project", "modules", "symbols", "references"}

// zstdMagic is the frame header of a zstd stream.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Load parses a persisted Blueprint. A payload written by a newer engine
// fails with INCOMPATIBLE_VERSION; anything structurally invalid fails with
// MALFORMED_BLUEPRINT. Dangling edges are accepted.
func Load(data []byte) (*Blueprint, error) {
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, errors.New(errors.MalformedBlueprint, "blueprint is not a JSON object", err)
	}

	var missing []string
	for _, name := range requiredSections {
		raw, ok := sections[name]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Newf(errors.MalformedBlueprint, "blueprint is missing required sections: %s",
			strings.Join(missing, ", ")).WithDetails(map[string]interface{}{"missing": missing})
	}

	// Check the version before decoding the body so that a newer layout
	// reports as incompatible rather than malformed.
	var meta struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(sections["meta"], &meta); err != nil {
		return nil, errors.New(errors.MalformedBlueprint, "blueprint meta is invalid", err)
	}
	if err := CheckVersion(meta.Version); err != nil {
		return nil, err
	}

	var bp Blueprint
	if err := json.Unmarshal(data, &bp); err != nil {
		return nil, errors.New(errors.MalformedBlueprint, "blueprint body is invalid", err)
	}
	for id, m := range bp.Modules {
		if m == nil {
			return nil, errors.Newf(errors.MalformedBlueprint, "module %q is null", id)
		}
		if m.ID == "" {
			m.ID = id
		}
	}
	return &bp, nil
}

// Save serializes a Blueprint. Map keys are written in sorted order, so the
// output is stable for a given Blueprint.
func Save(bp *Blueprint) ([]byte, error) {
	if bp == nil {
		return nil, errors.Newf(errors.InvalidArgument, "cannot save a nil blueprint")
	}
	data, err := json.MarshalIndent(bp, "", "  ")
	if err != nil {
		return nil, errors.New(errors.InternalError, "failed to encode blueprint", err)
	}
	return data, nil
}

// CheckVersion fails when version is unparsable or newer than FormatVersion.
func CheckVersion(version string) error {
	major, minor, ok := parseVersion(version)
	if !ok {
		return errors.Newf(errors.MalformedBlueprint, "blueprint version %q is not of the form major.minor", version)
	}
	supMajor, supMinor, _ := parseVersion(FormatVersion)
	if major > supMajor || (major == supMajor && minor > supMinor) {
		return errors.Newf(errors.IncompatibleVersion, "blueprint version %s is newer than supported %s", version, FormatVersion).
			WithDetails(map[string]string{"found": version, "supported": FormatVersion})
	}
	return nil
}

func parseVersion(v string) (int, int, bool) {
	parts := strings.Split(strings.TrimSpace(v), ".")
	if len(parts) < 1 || len(parts) > 3 || parts[0] == "" {
		return 0, 0, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil || major < 0 {
		return 0, 0, false
	}
	minor := 0
	if len(parts) > 1 {
		minor, err = strconv.Atoi(parts[1])
		if err != nil || minor < 0 {
			return 0, 0, false
		}
	}
	return major, minor, true
}

// IsCompressed reports whether data starts with a zstd frame.
func IsCompressed(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}

// LoadFile reads and parses a Blueprint artifact, decompressing zstd
// payloads transparently.
func LoadFile(path string) (*Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.BlueprintMissing, fmt.Sprintf("no blueprint at %s", path), err)
		}
		return nil, errors.New(errors.InternalError, "failed to read blueprint", err)
	}
	if IsCompressed(data) {
		data, err = decompress(data)
		if err != nil {
			return nil, errors.New(errors.MalformedBlueprint, "blueprint is not a valid zstd stream", err)
		}
	}
	return Load(data)
}

// SaveFile writes a Blueprint artifact atomically. Paths ending in ".zst" are
// written zstd-compressed.
func SaveFile(path string, bp *Blueprint) error {
	data, err := Save(bp)
	if err != nil {
		return err
	}
	if strings.HasSuffix(path, ".zst") {
		data, err = compress(data)
		if err != nil {
			return errors.New(errors.InternalError, "failed to compress blueprint", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.New(errors.InternalError, "failed to create blueprint directory", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.New(errors.InternalError, "failed to write blueprint", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.New(errors.InternalError, "failed to move blueprint into place", err)
	}
	return nil
}

func compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, make([]byte, 0, len(data)/4)), nil
}

func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}
