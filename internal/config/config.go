// Package config loads hbnb settings from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"hbnb/pkg/domain"
)

// DefaultPath is the config file read when no --config flag is given.
const DefaultPath = "hbnb.yaml"

// Config is the root configuration document.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig selects and configures the snapshot backend.
type StorageConfig struct {
	Driver   string         `yaml:"driver"` // file, memory, sqlite, postgres, s3
	File     FileConfig     `yaml:"file"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
	S3       S3Config       `yaml:"s3"`
}

// FileConfig configures the JSON file backend.
type FileConfig struct {
	Path string `yaml:"path"`
}

// SQLiteConfig configures the embedded sqlite backend.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig configures the PostgreSQL backend.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// S3Config configures the object storage backend.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Key             string `yaml:"key"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level       string `yaml:"level"`    // debug, info, warn, error
	Encoding    string `yaml:"encoding"` // json, console
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the built-in defaults: a file.json snapshot in the
// working directory and warn-level console logging.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver:   string(domain.DriverFile),
			File:     FileConfig{Path: "file.json"},
			SQLite:   SQLiteConfig{Path: "hbnb.db"},
			Postgres: PostgresConfig{DSN: "postgres://localhost/hbnb?sslmode=disable"},
			S3:       S3Config{Key: "hbnb/file.json", Region: "us-east-1"},
		},
		Logging: LoggingConfig{
			Level:    "warn",
			Encoding: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ValidDrivers lists the accepted storage.driver values.
var ValidDrivers = []domain.Driver{
	domain.DriverFile,
	domain.DriverMemory,
	domain.DriverSQLite,
	domain.DriverPostgres,
	domain.DriverS3,
}

// Validate checks that the selected driver is known and has what it needs.
func (c *Config) Validate() error {
	switch domain.Driver(c.Storage.Driver) {
	case domain.DriverFile:
		if c.Storage.File.Path == "" {
			return fmt.Errorf("storage.file.path is required for the file driver")
		}
	case domain.DriverMemory:
	case domain.DriverSQLite:
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required for the sqlite driver")
		}
	case domain.DriverPostgres:
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required for the postgres driver (set HBNB_POSTGRES_DSN)")
		}
	case domain.DriverS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required for the s3 driver (set HBNB_S3_BUCKET)")
		}
	default:
		return fmt.Errorf("invalid storage driver: %q (valid: %v)", c.Storage.Driver, ValidDrivers)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %q", c.Logging.Level)
	}
	return nil
}

// applyEnvOverrides applies HBNB_* environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("HBNB_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("HBNB_FILE_PATH"); v != "" {
		c.Storage.File.Path = v
	}
	if v := os.Getenv("HBNB_SQLITE_PATH"); v != "" {
		c.Storage.SQLite.Path = v
	}
	if v := os.Getenv("HBNB_POSTGRES_DSN"); v != "" {
		c.Storage.Postgres.DSN = v
	}
	if v := os.Getenv("HBNB_S3_BUCKET"); v != "" {
		c.Storage.S3.Bucket = v
	}
	if v := os.Getenv("HBNB_S3_KEY"); v != "" {
		c.Storage.S3.Key = v
	}
	if v := os.Getenv("HBNB_S3_REGION"); v != "" {
		c.Storage.S3.Region = v
	}
	if v := os.Getenv("HBNB_S3_ENDPOINT"); v != "" {
		c.Storage.S3.Endpoint = v
	}
	if v := os.Getenv("HBNB_S3_PATH_STYLE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("HBNB_S3_PATH_STYLE: %w", err)
		}
		c.Storage.S3.PathStyle = b
	}
	if v := os.Getenv("HBNB_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}
