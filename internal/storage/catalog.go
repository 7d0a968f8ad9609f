package storage

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/blake2b"

	"codeatlas/internal/blueprint"
)

// ErrSnapshotNotFound is returned by Get when no snapshot matches.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is one catalog row.
type Snapshot struct {
	ID              string    `json:"id"` // Generation id
	Project         string    `json:"project"`
	GeneratedAt     time.Time `json:"generatedAt"`
	FormatVersion   string    `json:"formatVersion"`
	SemanticVersion string    `json:"semanticVersion,omitempty"`
	Digest          string    `json:"digest"` // blake2b-256 of the artifact bytes
	Path            string    `json:"path"`
	SizeBytes       int64     `json:"sizeBytes"`
	Modules         int       `json:"modules"`
	Symbols         int       `json:"symbols"`
	Edges           int       `json:"edges"`
	RecordedAt      time.Time `json:"recordedAt"`
}

// Catalog records and lists generated Blueprints.
type Catalog struct {
	db *DB
}

// NewCatalog wraps an open database.
func NewCatalog(db *DB) *Catalog {
	return &Catalog{db: db}
}

// Digest returns the hex blake2b-256 digest of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Record stores a snapshot for bp, whose serialized form (as written to
// path) is data. Recording the same generation id twice replaces the row.
func (c *Catalog) Record(ctx context.Context, bp *blueprint.Blueprint, path string, data []byte) (*Snapshot, error) {
	if bp.Meta.GenerationID == "" {
		return nil, fmt.Errorf("blueprint has no generation id")
	}

	symbols := 0
	var count func([]blueprint.Symbol)
	count = func(list []blueprint.Symbol) {
		for _, s := range list {
			symbols++
			count(s.Children)
		}
	}
	for _, list := range bp.Symbols {
		count(list)
	}

	snap := &Snapshot{
		ID:              bp.Meta.GenerationID,
		Project:         bp.Project.Name,
		GeneratedAt:     bp.Meta.GeneratedAt.UTC(),
		FormatVersion:   bp.Meta.Version,
		SemanticVersion: bp.Meta.SemanticVersion,
		Digest:          Digest(data),
		Path:            path,
		SizeBytes:       int64(len(data)),
		Modules:         len(bp.Modules),
		Symbols:         symbols,
		Edges:           len(bp.References.ModuleDeps) + len(bp.References.SymbolCalls) + len(bp.References.TypeRefs),
		RecordedAt:      time.Now().UTC(),
	}

	err := c.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO snapshots
				(id, project, generated_at, format_version, semantic_version, digest,
				 path, size_bytes, modules, symbols, edges, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			snap.ID, snap.Project, formatTime(snap.GeneratedAt), snap.FormatVersion,
			nullString(snap.SemanticVersion), snap.Digest, snap.Path, snap.SizeBytes,
			snap.Modules, snap.Symbols, snap.Edges, formatTime(snap.RecordedAt),
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record snapshot: %w", err)
	}
	return snap, nil
}

// RecordFile reads the artifact at path and records it.
func (c *Catalog) RecordFile(ctx context.Context, bp *blueprint.Blueprint, path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return c.Record(ctx, bp, path, data)
}

const selectSnapshot = `
	SELECT id, project, generated_at, format_version, semantic_version, digest,
	       path, size_bytes, modules, symbols, edges, recorded_at
	FROM snapshots`

// List returns snapshots newest first. limit <= 0 returns all of them.
func (c *Catalog) List(ctx context.Context, limit int) ([]Snapshot, error) {
	query := selectSnapshot + " ORDER BY generated_at DESC, id ASC"
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := c.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *snap)
	}
	return out, rows.Err()
}

// Latest returns the newest snapshot, or nil when the catalog is empty.
func (c *Catalog) Latest(ctx context.Context) (*Snapshot, error) {
	list, err := c.List(ctx, 1)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

// Get returns the snapshot with the given id. A unique id prefix is
// accepted too, so short ids from `atlas snapshots` can be pasted back.
func (c *Catalog) Get(ctx context.Context, id string) (*Snapshot, error) {
	if id == "" {
		return nil, ErrSnapshotNotFound
	}
	rows, err := c.db.conn.QueryContext(ctx, selectSnapshot+" WHERE substr(id, 1, length(?)) = ? ORDER BY id LIMIT 2", id, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		if snap.ID == id {
			return snap, nil
		}
		matches = append(matches, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, ErrSnapshotNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("snapshot id prefix %q is ambiguous", id)
	}
}

// Prune deletes all but the newest keep snapshots and returns how many
// rows were removed. Artifact files are left alone.
func (c *Catalog) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	var removed int64
	err := c.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM snapshots WHERE id NOT IN (
				SELECT id FROM snapshots ORDER BY generated_at DESC, id ASC LIMIT ?
			)
		`, keep)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	if removed > 0 {
		c.db.logger.Debug("Pruned snapshots", "removed", removed, "kept", keep)
	}
	return int(removed), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*Snapshot, error) {
	var (
		snap                    Snapshot
		semantic                sql.NullString
		generatedAt, recordedAt string
	)
	err := row.Scan(&snap.ID, &snap.Project, &generatedAt, &snap.FormatVersion, &semantic,
		&snap.Digest, &snap.Path, &snap.SizeBytes, &snap.Modules, &snap.Symbols, &snap.Edges, &recordedAt)
	if err != nil {
		return nil, err
	}
	snap.SemanticVersion = semantic.String
	if snap.GeneratedAt, err = time.Parse(time.RFC3339Nano, generatedAt); err != nil {
		return nil, fmt.Errorf("snapshot %s: bad generated_at: %w", snap.ID, err)
	}
	if snap.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
		return nil, fmt.Errorf("snapshot %s: bad recorded_at: %w", snap.ID, err)
	}
	return &snap, nil
}

// formatTime uses a fixed-width layout so that text ordering matches time
// ordering.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
