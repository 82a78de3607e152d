package domain

import (
	"context"
	"errors"
)

// Driver identifies a concrete snapshot backend.
type Driver string

// Supported snapshot drivers.
const (
	DriverFile     Driver = "file"     // single JSON file (default)
	DriverMemory   Driver = "memory"   // in-memory only (tests / ephemeral)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
	DriverS3       Driver = "s3"       // S3 / MinIO object
)

// ErrNoSnapshot is returned by Load when nothing has been persisted yet.
var ErrNoSnapshot = errors.New("no snapshot persisted")

// SnapshotBackend stores the single JSON document holding every record. The
// store owns encoding; backends move opaque bytes and fully overwrite on Save.
type SnapshotBackend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Driver() Driver
	Close() error
}
