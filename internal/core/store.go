package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"hbnb/internal/infra/persistence/memory"
	"hbnb/pkg/domain"
)

// Store is the identity-mapped registry of records keyed "<Kind>.<id>". It is
// not safe for concurrent use.
type Store struct {
	objects map[string]domain.Record
	kinds   *domain.Registry
	backend domain.SnapshotBackend
	logger  *zap.Logger
	metrics *Metrics
	now     func() time.Time
	ready   bool
}

// Option customises a Store.
type Option func(*Store)

// WithLogger sets the logger used for reload diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRegistry replaces the default kind registry.
func WithRegistry(r *domain.Registry) Option {
	return func(s *Store) {
		if r != nil {
			s.kinds = r
		}
	}
}

// WithMetrics attaches prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore constructs an empty store persisting through backend. A nil backend
// keeps the snapshot in memory.
func NewStore(backend domain.SnapshotBackend, opts ...Option) *Store {
	if backend == nil {
		backend = memory.NewStore()
	}
	s := &Store{
		objects: make(map[string]domain.Record),
		kinds:   domain.DefaultRegistry(),
		backend: backend,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the kind registry used for construction and reload.
func (s *Store) Registry() *domain.Registry { return s.kinds }

// Backend returns the snapshot backend.
func (s *Store) Backend() domain.SnapshotBackend { return s.backend }

// Ready reports whether Reload has completed at least once.
func (s *Store) Ready() bool { return s.ready }

// Close releases the backend.
func (s *Store) Close() error { return s.backend.Close() }

// All returns the live registry map. Callers share it; no copy is made.
func (s *Store) All() map[string]domain.Record { return s.objects }

// Register inserts rec under its composite key, replacing any previous entry.
func (s *Store) Register(rec domain.Record) {
	s.objects[domain.Key(rec)] = rec
	s.metrics.size(len(s.objects))
}

// New constructs a fresh record of the named kind and registers it.
func (s *Store) New(kind string) (domain.Record, error) {
	rec, err := s.kinds.New(kind, s.now())
	if err != nil {
		return nil, err
	}
	s.Register(rec)
	return rec, nil
}

// Get returns the record registered under kind and id.
func (s *Store) Get(kind, id string) (domain.Record, error) {
	key, err := s.key(kind, id)
	if err != nil {
		return nil, err
	}
	rec, ok := s.objects[key]
	if !ok {
		return nil, ErrNotFound{Kind: domain.Kind(kind), ID: id}
	}
	return rec, nil
}

// Delete removes the record registered under kind and id. The snapshot is not
// rewritten; call Persist afterwards.
func (s *Store) Delete(kind, id string) error {
	key, err := s.key(kind, id)
	if err != nil {
		return err
	}
	if _, ok := s.objects[key]; !ok {
		return ErrNotFound{Kind: domain.Kind(kind), ID: id}
	}
	delete(s.objects, key)
	s.metrics.size(len(s.objects))
	return nil
}

// List returns the records of kind sorted by key, or every record when kind is empty.
func (s *Store) List(kind string) ([]domain.Record, error) {
	var want domain.Kind
	if kind != "" {
		k, _, err := s.kinds.Lookup(kind)
		if err != nil {
			return nil, err
		}
		want = k
	}
	keys := make([]string, 0, len(s.objects))
	for key, rec := range s.objects {
		if want == "" || rec.Kind() == want {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	out := make([]domain.Record, 0, len(keys))
	for _, key := range keys {
		out = append(out, s.objects[key])
	}
	return out, nil
}

// Count returns the number of records of kind, or of every kind when kind is empty.
func (s *Store) Count(kind string) (int, error) {
	if kind == "" {
		return len(s.objects), nil
	}
	k, _, err := s.kinds.Lookup(kind)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, rec := range s.objects {
		if rec.Kind() == k {
			n++
		}
	}
	return n, nil
}

// Save refreshes rec's updated_at and persists the whole registry.
func (s *Store) Save(ctx context.Context, rec domain.Record) error {
	domain.Touch(rec, s.now())
	return s.Persist(ctx)
}

// Persist writes every registered record to the backend as one JSON object
// mapping composite key to dict form.
func (s *Store) Persist(ctx context.Context) error {
	doc := make(map[string]domain.Dict, len(s.objects))
	for key, rec := range s.objects {
		doc[key] = domain.ToDict(rec)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		s.metrics.persisted(err)
		return fmt.Errorf("encode snapshot: %w", err)
	}
	err = s.backend.Save(ctx, data)
	s.metrics.persisted(err)
	if err != nil {
		return fmt.Errorf("persist snapshot (%s): %w", s.backend.Driver(), err)
	}
	return nil
}

// SkippedEntry describes a snapshot entry that Reload could not rebuild.
type SkippedEntry struct {
	Key    string
	Reason string
}

// ReloadReport summarises a Reload call.
type ReloadReport struct {
	Found   bool // a snapshot existed
	Corrupt bool // the snapshot could not be parsed; the registry was left untouched
	Loaded  int
	Skipped []SkippedEntry
}

// Reload reads the snapshot and inserts every entry it can rebuild, replacing
// records under the same key. A missing snapshot is not an error. A document
// that is not a JSON object is logged and ignored. Entries with an unknown
// kind or a malformed body are skipped and reported.
func (s *Store) Reload(ctx context.Context) (ReloadReport, error) {
	var report ReloadReport
	data, err := s.backend.Load(ctx)
	if errors.Is(err, domain.ErrNoSnapshot) {
		s.ready = true
		return report, nil
	}
	if err != nil {
		return report, fmt.Errorf("load snapshot (%s): %w", s.backend.Driver(), err)
	}
	report.Found = true

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		report.Corrupt = true
		s.metrics.corruptDocument()
		s.logger.Warn("snapshot is not a valid JSON document; keeping registry as is",
			zap.String("driver", string(s.backend.Driver())),
			zap.Int("bytes", len(data)),
			zap.Error(err))
		s.ready = true
		return report, nil
	}

	keys := make([]string, 0, len(doc))
	for key := range doc {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		rec, err := s.rebuild(key, doc[key])
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedEntry{Key: key, Reason: err.Error()})
			s.metrics.entry(outcomeSkipped)
			s.logger.Warn("skipping snapshot entry", zap.String("key", key), zap.Error(err))
			continue
		}
		s.objects[key] = rec
		report.Loaded++
		s.metrics.entry(outcomeLoaded)
	}
	s.metrics.size(len(s.objects))
	s.ready = true
	s.logger.Debug("snapshot reloaded",
		zap.String("driver", string(s.backend.Driver())),
		zap.Int("loaded", report.Loaded),
		zap.Int("skipped", len(report.Skipped)))
	return report, nil
}

func (s *Store) rebuild(key string, raw json.RawMessage) (domain.Record, error) {
	kind, id, ok := domain.SplitKey(key)
	if !ok {
		return nil, fmt.Errorf("malformed key %q", key)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var d domain.Dict
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode entry: %w", err)
	}
	if d == nil {
		return nil, errors.New("entry is not an object")
	}
	rec, err := s.kinds.Construct(kind, d)
	if err != nil {
		return nil, err
	}
	if rec.Meta().ID != id {
		return nil, fmt.Errorf("key id %q does not match record id %q", id, rec.Meta().ID)
	}
	return rec, nil
}

func (s *Store) key(kind, id string) (string, error) {
	k, _, err := s.kinds.Lookup(kind)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", ErrMissingID
	}
	return domain.KeyOf(k, id), nil
}
