// Package store opens the local SQLite database shared by the profile and homework stores.
package store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS profiles (
    slug TEXT PRIMARY KEY,
    payload_json TEXT NOT NULL,
    updated_at_ms INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS homework (
    id TEXT PRIMARY KEY,
    subject TEXT NOT NULL,
    description TEXT NOT NULL,
    due_date TEXT NOT NULL,
    completed INTEGER NOT NULL DEFAULT 0,
    created_at_ms INTEGER NOT NULL DEFAULT 0
);
`

const currentVersion = 1

// MemoryDSN is an in-memory database kept alive for the lifetime of the pool.
const MemoryDSN = "file::memory:?cache=shared"

// DefaultPath returns the database file under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "could not find user config dir")
	}
	return filepath.Join(dir, "appui", "appui.db"), nil
}

// Open opens dsn with the sqlite3 driver and applies the schema.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	if dsn == "" {
		return nil, errors.New("sqlite store: empty dsn")
	}
	if dsn != MemoryDSN && filepath.Ext(dsn) == ".db" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, errors.Wrapf(err, "could not create directory for %s", dsn)
		}
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %s", dsn)
	}
	// sqlite serializes writers anyway, and a single connection keeps in-memory databases shared
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		return errors.Wrap(err, "could not enable foreign keys")
	}
	if _, err := db.ExecContext(ctx, schemaV1); err != nil {
		return errors.Wrap(err, "could not apply schema")
	}

	var versions []int
	if err := db.SelectContext(ctx, &versions, `SELECT version FROM schema_version`); err != nil {
		return errors.Wrap(err, "could not read schema version")
	}
	if len(versions) == 0 {
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, currentVersion); err != nil {
			return errors.Wrap(err, "could not record schema version")
		}
		log.Debug().Int("version", currentVersion).Msg("Initialized database schema")
		return nil
	}
	if versions[0] > currentVersion {
		return errors.Errorf("database schema version %d is newer than supported version %d", versions[0], currentVersion)
	}
	return nil
}
