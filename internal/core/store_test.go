package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"hbnb/internal/infra/persistence/memory"
	"hbnb/pkg/domain"
)

var epoch = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

// fixedClock returns the same instant on every call.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func newTestStore(t *testing.T, opts ...Option) (*Store, *memory.Store) {
	t.Helper()
	backend := memory.NewStore()
	opts = append([]Option{WithClock(fixedClock(epoch))}, opts...)
	return NewStore(backend, opts...), backend
}

func mustNew(t *testing.T, s *Store, kind string) domain.Record {
	t.Helper()
	rec, err := s.New(kind)
	if err != nil {
		t.Fatalf("new %s: %v", kind, err)
	}
	return rec
}

func TestNewRegistersUnderCompositeKey(t *testing.T) {
	s, _ := newTestStore(t)
	rec := mustNew(t, s, "User")
	key := "User." + rec.Meta().ID
	if got, ok := s.All()[key]; !ok || got != rec {
		t.Fatalf("expected %s to map to the new record", key)
	}
	if _, err := s.New("Spaceship"); err == nil {
		t.Fatal("expected unknown kind error")
	}
	if len(s.All()) != 1 {
		t.Fatalf("failed construction must not register, have %d", len(s.All()))
	}
}

func TestAllIsLiveView(t *testing.T) {
	s, _ := newTestStore(t)
	all := s.All()
	rec := mustNew(t, s, "State")
	if _, ok := all[domain.Key(rec)]; !ok {
		t.Fatal("expected All() to share the live map")
	}
}

func TestRegisterLastWriteWins(t *testing.T) {
	s, _ := newTestStore(t)
	first := mustNew(t, s, "City")
	second := &domain.City{Base: domain.Base{ID: first.Meta().ID, CreatedAt: epoch, UpdatedAt: epoch}, Name: "Paris"}
	s.Register(second)
	if len(s.All()) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(s.All()))
	}
	if got, _ := s.Get("City", first.Meta().ID); got != second {
		t.Fatal("expected the second record to replace the first")
	}
}

func TestGetAndDeleteErrors(t *testing.T) {
	s, _ := newTestStore(t)
	rec := mustNew(t, s, "Place")
	id := rec.Meta().ID

	tests := []struct {
		name  string
		kind  string
		id    string
		check func(error) bool
	}{
		{"missing kind", "", id, func(err error) bool { return errors.Is(err, domain.ErrMissingKind) }},
		{"unknown kind", "Castle", id, func(err error) bool { var u domain.UnknownKindError; return errors.As(err, &u) }},
		{"missing id", "Place", "", func(err error) bool { return errors.Is(err, ErrMissingID) }},
		{"not found", "Place", "nope", func(err error) bool { var nf ErrNotFound; return errors.As(err, &nf) && nf.ID == "nope" }},
		{"wrong kind", "User", id, func(err error) bool { var nf ErrNotFound; return errors.As(err, &nf) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.Get(tc.kind, tc.id); !tc.check(err) {
				t.Fatalf("get: unexpected error %v", err)
			}
			if err := s.Delete(tc.kind, tc.id); !tc.check(err) {
				t.Fatalf("delete: unexpected error %v", err)
			}
		})
	}

	if err := s.Delete("Place", id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get("Place", id); err == nil {
		t.Fatal("expected record to be gone")
	}
}

func TestListAndCount(t *testing.T) {
	s, _ := newTestStore(t)
	for _, kind := range []string{"User", "User", "State", "Review"} {
		mustNew(t, s, kind)
	}
	users, err := s.List("User")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if domain.Key(users[0]) > domain.Key(users[1]) {
		t.Fatal("expected list sorted by key")
	}
	all, _ := s.List("")
	if len(all) != 4 {
		t.Fatalf("expected 4 records, got %d", len(all))
	}
	for kind, want := range map[string]int{"User": 2, "State": 1, "City": 0, "": 4} {
		got, err := s.Count(kind)
		if err != nil {
			t.Fatalf("count %q: %v", kind, err)
		}
		if got != want {
			t.Errorf("count %q: expected %d, got %d", kind, want, got)
		}
	}
	if _, err := s.Count("Nope"); err == nil {
		t.Fatal("expected unknown kind error")
	}
	if _, err := s.List("Nope"); err == nil {
		t.Fatal("expected unknown kind error")
	}
}

func TestSaveRefreshesUpdatedAtAndPersists(t *testing.T) {
	s, backend := newTestStore(t)
	rec := mustNew(t, s, "Amenity")
	created := rec.Meta().CreatedAt

	// The clock does not advance; updated_at must still strictly increase.
	for i := 0; i < 3; i++ {
		prev := rec.Meta().UpdatedAt
		if err := s.Save(context.Background(), rec); err != nil {
			t.Fatalf("save: %v", err)
		}
		if !rec.Meta().UpdatedAt.After(prev) {
			t.Fatalf("save %d: updated_at %v not after %v", i, rec.Meta().UpdatedAt, prev)
		}
	}
	if !rec.Meta().CreatedAt.Equal(created) {
		t.Fatal("created_at must not change on save")
	}
	if backend.Saves() != 3 {
		t.Fatalf("expected 3 snapshot writes, got %d", backend.Saves())
	}
}

func TestPersistReloadRoundTrip(t *testing.T) {
	s, backend := newTestStore(t)
	user := mustNew(t, s, "User").(*domain.User)
	user.Email = "betty@holberton.io"
	place := mustNew(t, s, "Place").(*domain.Place)
	place.NumberRooms = 3
	place.Latitude = 48.85
	place.AmenityIDs = []string{"a1"}
	if err := domain.SetValue(place, "floors", 2); err != nil {
		t.Fatalf("extra: %v", err)
	}
	mustNew(t, s, "BaseModel")
	if err := s.Persist(context.Background()); err != nil {
		t.Fatalf("persist: %v", err)
	}

	fresh := NewStore(backend)
	report, err := fresh.Reload(context.Background())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !report.Found || report.Corrupt || report.Loaded != 3 || len(report.Skipped) != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if diff := cmp.Diff(s.All(), fresh.All(), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("reload mismatch (-want +got):\n%s", diff)
	}

	// Persisting the reloaded registry yields the same document.
	first, _ := backend.Load(context.Background())
	if err := fresh.Persist(context.Background()); err != nil {
		t.Fatalf("persist: %v", err)
	}
	second, _ := backend.Load(context.Background())
	if string(first) != string(second) {
		t.Fatalf("persist after reload is not idempotent:\n%s\n%s", first, second)
	}
}

func TestPersistReloadKeepsExtraTypes(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		update string
		want   any
	}{
		{"whole float", 2.0, "2.5", 2.5},
		{"fractional float", 3.25, "4", 4.0},
		{"int", 7, "8", 8},
		{"bool", true, "false", false},
		{"string", "blue", "green", "green"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, backend := newTestStore(t)
			user := mustNew(t, s, "User")
			if err := domain.SetValue(user, "score", tc.value); err != nil {
				t.Fatalf("set: %v", err)
			}
			if err := s.Persist(context.Background()); err != nil {
				t.Fatalf("persist: %v", err)
			}

			fresh := NewStore(backend)
			if _, err := fresh.Reload(context.Background()); err != nil {
				t.Fatalf("reload: %v", err)
			}
			got, err := fresh.Get("User", user.Meta().ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if diff := cmp.Diff(tc.value, got.Meta().Extra["score"]); diff != "" {
				t.Fatalf("extra changed across reload (-want +got):\n%s", diff)
			}
			if err := domain.SetAttr(got, "score", tc.update); err != nil {
				t.Fatalf("update after reload: %v", err)
			}
			if diff := cmp.Diff(tc.want, got.Meta().Extra["score"]); diff != "" {
				t.Fatalf("unexpected updated value (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPersistWritesWholeFloatsWithDecimalPoint(t *testing.T) {
	s, backend := newTestStore(t)
	rec := mustNew(t, s, "Amenity")
	if err := domain.SetValue(rec, "rating", 2.0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Persist(context.Background()); err != nil {
		t.Fatalf("persist: %v", err)
	}
	data, err := backend.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !strings.Contains(string(data), `"rating":2.0`) {
		t.Fatalf("expected rating written as 2.0, got %s", data)
	}
}

type failingBackend struct {
	*memory.Store
	loadErr error
	saveErr error
}

func (f *failingBackend) Load(ctx context.Context) ([]byte, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.Store.Load(ctx)
}

func (f *failingBackend) Save(ctx context.Context, data []byte) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.Store.Save(ctx, data)
}

func TestPersistAndReloadPropagateBackendErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	s := NewStore(&failingBackend{Store: memory.NewStore(), loadErr: boom, saveErr: boom})
	mustNew(t, s, "User")
	if err := s.Persist(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected persist error, got %v", err)
	}
	if _, err := s.Reload(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected reload error, got %v", err)
	}
	if s.Ready() {
		t.Fatal("a failed reload must not mark the store ready")
	}
}

func TestNilBackendDefaultsToMemory(t *testing.T) {
	s := NewStore(nil)
	if s.Backend().Driver() != domain.DriverMemory {
		t.Fatalf("expected memory driver, got %s", s.Backend().Driver())
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
