package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"hbnb/pkg/domain"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := NewStore(path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStoreLoadEmpty(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "state.db"))
	if _, err := store.Load(context.Background()); !errors.Is(err, domain.ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestSQLiteStorePersistAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()
	store := openTestStore(t, path)
	if err := store.Save(ctx, []byte(`{"User.1":{}}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, []byte(`{"User.2":{}}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	_ = store.Close()

	reopened := openTestStore(t, path)
	got, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != `{"User.2":{}}` {
		t.Fatalf("expected last write, got %q", got)
	}
	var rows int
	if err := reopened.DB().QueryRow(`SELECT COUNT(*) FROM snapshot`).Scan(&rows); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected a single snapshot row, got %d", rows)
	}
}

func TestSQLiteStoreDefaults(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "x.db"))
	if store.Driver() != domain.DriverSQLite {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
	if filepath.Base(store.Path()) != "x.db" {
		t.Fatalf("unexpected path %s", store.Path())
	}
}
