package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrMissingKind is returned when no kind name was supplied.
var ErrMissingKind = errors.New("kind name missing")

// UnknownKindError reports a kind name absent from the registry.
type UnknownKindError struct {
	Kind string
}

func (e UnknownKindError) Error() string {
	return fmt.Sprintf("unknown kind %q", e.Kind)
}

// Factory returns a blank record of one concrete kind.
type Factory func() Record

// Registry maps kind names to typed factories. It is populated once at
// startup and only read afterwards.
type Registry struct {
	factories map[Kind]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Kind]Factory)}
}

// DefaultRegistry returns a registry holding every built-in kind.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for kind, f := range map[Kind]Factory{
		KindBaseModel: func() Record { return &BaseModel{} },
		KindUser:      func() Record { return &User{} },
		KindState:     func() Record { return &State{} },
		KindCity:      func() Record { return &City{} },
		KindAmenity:   func() Record { return &Amenity{} },
		KindPlace:     func() Record { return &Place{} },
		KindReview:    func() Record { return &Review{} },
	} {
		if err := r.Register(kind, f); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a factory. The factory's records must report the same kind.
func (r *Registry) Register(kind Kind, f Factory) error {
	if kind == "" || strings.Contains(string(kind), ".") {
		return fmt.Errorf("invalid kind name %q", kind)
	}
	if f == nil {
		return fmt.Errorf("kind %s: nil factory", kind)
	}
	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("kind %s already registered", kind)
	}
	if got := f().Kind(); got != kind {
		return fmt.Errorf("kind %s: factory builds %s", kind, got)
	}
	r.factories[kind] = f
	return nil
}

// Lookup resolves a kind name.
func (r *Registry) Lookup(name string) (Kind, Factory, error) {
	if name == "" {
		return "", nil, ErrMissingKind
	}
	f, ok := r.factories[Kind(name)]
	if !ok {
		return "", nil, UnknownKindError{Kind: name}
	}
	return Kind(name), f, nil
}

// Has reports whether name is a registered kind.
func (r *Registry) Has(name string) bool {
	_, ok := r.factories[Kind(name)]
	return ok
}

// Kinds lists registered kinds in name order.
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// New builds a fresh record with a new UUID and created_at == updated_at == now.
func (r *Registry) New(name string, now time.Time) (Record, error) {
	_, f, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	rec := f()
	b := rec.Meta()
	b.ID = uuid.NewString()
	t := now.UTC().Truncate(time.Microsecond)
	b.CreatedAt = t
	b.UpdatedAt = t
	return rec, nil
}

// Construct rebuilds a record of the named kind from its dict form.
func (r *Registry) Construct(name string, d Dict) (Record, error) {
	_, f, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	rec := f()
	if err := FromDict(rec, d); err != nil {
		return nil, fmt.Errorf("construct %s: %w", name, err)
	}
	if rec.Meta().ID == "" {
		return nil, fmt.Errorf("construct %s: %s missing", name, FieldID)
	}
	return rec, nil
}
