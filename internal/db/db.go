// Package db owns the system-of-record store for the fusion engine: a
// single SQLite database (via the pure-Go modernc.org/sqlite driver)
// holding every persisted entity the pipeline derives.
// Geospatial containment and great-circle distance are
// evaluated in Go (internal/geo / internal/patternmath) rather than in
// SQL, since the pure-Go driver carries no PostGIS-equivalent
// extension; the embeddings table stores a JSON-encoded float array
// with cosine distance computed in Go in place of a vector index.
package db

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationsFS returns the embedded migrations subtree rooted so
// golang-migrate's iofs source driver sees the numbered files directly
// (the go:embed directive above roots them under "migrations/").
func MigrationsFS() (fs.FS, error) {
	return fs.Sub(migrationsFS, "migrations")
}

// DB wraps a *sql.DB with the fusion engine's typed query methods.
type DB struct {
	*sql.DB
}

// Open opens (creating if absent) the SQLite database at path and
// applies the pragmas the store relies on: foreign keys, WAL for
// concurrent readers alongside the periodic writers, and a busy
// timeout so competing loop ticks block briefly instead of failing.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := applyPragmas(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return &DB{sqlDB}, nil
}

// OpenInMemory opens a transient in-memory database, used by tests and
// by GetSchemaAtMigration's version-detection scratch space.
func OpenInMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory sqlite: %w", err)
	}
	// Each new pool connection would otherwise see its own empty
	// in-memory database.
	sqlDB.SetMaxOpenConns(1)
	if err := applyPragmas(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return &DB{sqlDB}, nil
}

func applyPragmas(sqlDB *sql.DB) error {
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	return db.DB.Close()
}
