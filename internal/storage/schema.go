package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 1

func (db *DB) initializeSchema() error {
	return db.WithTx(context.Background(), func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createSnapshotsTable(tx); err != nil {
			return err
		}
		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}
		db.logger.Debug("Catalog schema initialized", "version", currentSchemaVersion)
		return nil
	})
}

func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}
	if version == currentSchemaVersion {
		return nil
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("catalog schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	db.logger.Info("Running catalog migrations",
		"from_version", version,
		"to_version", currentSchemaVersion,
	)

	// Version 0 means the file exists but was never initialized.
	return db.initializeSchema()
}

func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.conn.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return version, nil
}

func setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createSnapshotsTable creates the snapshots table, one row per generation.
func createSnapshotsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			project TEXT NOT NULL,
			generated_at TEXT NOT NULL,
			format_version TEXT NOT NULL,
			semantic_version TEXT,
			digest TEXT NOT NULL,
			path TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			modules INTEGER NOT NULL,
			symbols INTEGER NOT NULL,
			edges INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create snapshots table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_snapshots_generated_at ON snapshots(generated_at)",
		"CREATE INDEX IF NOT EXISTS idx_snapshots_digest ON snapshots(digest)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
