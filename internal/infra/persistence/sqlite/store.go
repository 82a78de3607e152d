// Package sqlite persists the snapshot document in an embedded SQLite
// database, one row per named snapshot.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"hbnb/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const (
	// DefaultPath is the database file used when none is configured.
	DefaultPath = "hbnb.db"
	// DefaultName is the row key holding the registry document.
	DefaultName = "registry"
)

// Compile-time contract assertion ensuring Store satisfies the backend interface.
var _ domain.SnapshotBackend = (*Store)(nil)

// Store keeps the JSON document as a blob in the `snapshot` table.
type Store struct {
	db   *sql.DB
	path string
	name string
}

// NewStore opens (creating if needed) the database at path and ensures the
// snapshot table exists.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS snapshot (
		name TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create snapshot table: %w", err)
	}
	return &Store{db: db, path: path, name: DefaultName}, nil
}

// Driver reports the sqlite driver.
func (s *Store) Driver() domain.Driver { return domain.DriverSQLite }

// Load returns the stored document or domain.ErrNoSnapshot.
func (s *Store) Load(ctx context.Context) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM snapshot WHERE name = ?`, s.name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	return payload, nil
}

// Save upserts the document.
func (s *Store) Save(ctx context.Context, data []byte) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO snapshot(name,payload) VALUES(?,?) ON CONFLICT(name) DO UPDATE SET payload=excluded.payload`, s.name, data); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
