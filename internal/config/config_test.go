package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HBNB_STORAGE_DRIVER", "HBNB_FILE_PATH", "HBNB_SQLITE_PATH", "HBNB_POSTGRES_DSN",
		"HBNB_S3_BUCKET", "HBNB_S3_KEY", "HBNB_S3_REGION", "HBNB_S3_ENDPOINT",
		"HBNB_S3_PATH_STYLE", "HBNB_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Storage.Driver != "file" {
		t.Errorf("expected driver=file, got %s", cfg.Storage.Driver)
	}
	if cfg.Storage.File.Path != "file.json" {
		t.Errorf("expected file.json, got %s", cfg.Storage.File.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.Driver != "file" || cfg.Logging.Level != "warn" {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "hbnb.yaml")

	cfg := DefaultConfig()
	cfg.Storage.Driver = "sqlite"
	cfg.Storage.SQLite.Path = "/var/lib/hbnb/hbnb.db"
	cfg.Logging.Development = true
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Storage.Driver != "sqlite" || loaded.Storage.SQLite.Path != "/var/lib/hbnb/hbnb.db" {
		t.Errorf("unexpected storage config %+v", loaded.Storage)
	}
	if !loaded.Logging.Development {
		t.Error("expected development logging to round trip")
	}
	if loaded.Storage.File.Path != "file.json" {
		t.Errorf("expected untouched defaults to survive, got %s", loaded.Storage.File.Path)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "hbnb.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  s3:\n    bucket: snapshots\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.S3.Bucket != "snapshots" || cfg.Storage.S3.Key != "hbnb/file.json" {
		t.Errorf("unexpected s3 config %+v", cfg.Storage.S3)
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "hbnb.yaml")
	if err := os.WriteFile(path, []byte("storage: [unterminated"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HBNB_STORAGE_DRIVER", "s3")
	t.Setenv("HBNB_S3_BUCKET", "env-bucket")
	t.Setenv("HBNB_S3_ENDPOINT", "http://minio:9000")
	t.Setenv("HBNB_S3_PATH_STYLE", "true")
	t.Setenv("HBNB_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.Driver != "s3" || cfg.Storage.S3.Bucket != "env-bucket" {
		t.Errorf("unexpected storage %+v", cfg.Storage)
	}
	if cfg.Storage.S3.Endpoint != "http://minio:9000" || !cfg.Storage.S3.PathStyle {
		t.Errorf("unexpected s3 %+v", cfg.Storage.S3)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug, got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestConfig_EnvOverrideBadBool(t *testing.T) {
	clearEnv(t)
	t.Setenv("HBNB_S3_PATH_STYLE", "sometimes")
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for malformed HBNB_S3_PATH_STYLE")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongo" }},
		{"file without path", func(c *Config) { c.Storage.File.Path = "" }},
		{"sqlite without path", func(c *Config) { c.Storage.Driver = "sqlite"; c.Storage.SQLite.Path = "" }},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = "postgres"; c.Storage.Postgres.DSN = "" }},
		{"s3 without bucket", func(c *Config) { c.Storage.Driver = "s3" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
