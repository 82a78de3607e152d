package core

import (
	"context"
	"fmt"

	"hbnb/internal/config"
	"hbnb/internal/infra/persistence/file"
	"hbnb/internal/infra/persistence/memory"
	"hbnb/internal/infra/persistence/postgres"
	"hbnb/internal/infra/persistence/s3"
	"hbnb/internal/infra/persistence/sqlite"
	"hbnb/pkg/domain"
)

// OpenBackend constructs the snapshot backend selected by cfg.Driver.
// Defaults to the JSON file backend when unset.
//
//	file:     cfg.File.Path (default file.json)
//	memory:   process-local, lost on exit
//	sqlite:   cfg.SQLite.Path (default hbnb.db)
//	postgres: cfg.Postgres.DSN
//	s3:       cfg.S3.Bucket / cfg.S3.Key
func OpenBackend(ctx context.Context, cfg config.StorageConfig) (domain.SnapshotBackend, error) {
	driver := domain.Driver(cfg.Driver)
	if driver == "" {
		driver = domain.DriverFile
	}
	switch driver {
	case domain.DriverFile:
		return file.NewStore(cfg.File.Path), nil
	case domain.DriverMemory:
		return memory.NewStore(), nil
	case domain.DriverSQLite:
		st, err := sqlite.NewStore(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return st, nil
	case domain.DriverPostgres:
		st, err := postgres.NewStore(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		return st, nil
	case domain.DriverS3:
		st, err := s3.New(ctx, s3.Config{
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			Key:             cfg.S3.Key,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			SessionToken:    cfg.S3.SessionToken,
			PathStyle:       cfg.S3.PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}
