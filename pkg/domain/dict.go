package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the ISO-8601 shape used for timestamps in the dict form.
const TimeLayout = "2006-01-02T15:04:05.000000"

// Dict is the flat, JSON-serialisable attribute mapping of a record.
type Dict map[string]any

// field binds a dict-form key to a typed struct field. ptr is one of
// *string, *int, *float64 or *[]string.
type field struct {
	name string
	ptr  any
}

func (f field) value() any {
	switch p := f.ptr.(type) {
	case *string:
		return *p
	case *int:
		return *p
	case *float64:
		return *p
	case *[]string:
		if *p == nil {
			return []string{}
		}
		return append([]string(nil), (*p)...)
	default:
		panic(fmt.Sprintf("domain: unsupported field type %T for %s", f.ptr, f.name))
	}
}

func (f field) assign(v any) error {
	switch p := f.ptr.(type) {
	case *string:
		s, ok := v.(string)
		if !ok {
			return TypeMismatchError{Attribute: f.name, Value: v, Want: "string"}
		}
		*p = s
	case *int:
		n, ok := toInt(v)
		if !ok {
			return TypeMismatchError{Attribute: f.name, Value: v, Want: "int"}
		}
		*p = n
	case *float64:
		n, ok := toFloat(v)
		if !ok {
			return TypeMismatchError{Attribute: f.name, Value: v, Want: "float"}
		}
		*p = n
	case *[]string:
		list, ok := toStrings(v)
		if !ok {
			return TypeMismatchError{Attribute: f.name, Value: v, Want: "list of string"}
		}
		*p = list
	default:
		panic(fmt.Sprintf("domain: unsupported field type %T for %s", f.ptr, f.name))
	}
	return nil
}

func lookupField(r Record, name string) (field, bool) {
	for _, f := range r.fields() {
		if f.name == name {
			return f, true
		}
	}
	return field{}, false
}

// Key returns the composite registry key `<Kind>.<id>`.
func Key(r Record) string {
	return KeyOf(r.Kind(), r.Meta().ID)
}

// KeyOf builds a composite key from its parts.
func KeyOf(kind Kind, id string) string {
	return string(kind) + "." + id
}

// SplitKey separates a composite key at its first dot.
func SplitKey(key string) (kind string, id string, ok bool) {
	kind, id, ok = strings.Cut(key, ".")
	if !ok || kind == "" || id == "" {
		return "", "", false
	}
	return kind, id, true
}

// FormatTime renders a timestamp in the dict-form layout (UTC).
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts the dict-form layout, the same layout without
// fractional seconds, and RFC 3339 with an offset.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range []string{TimeLayout, "2006-01-02T15:04:05.999999999", time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q: unsupported layout", s)
}

// ToDict renders the record as a fresh dict form. Extras are copied
// shallowly with floats rendered as numbers that keep a decimal point, and
// typed fields override extras of the same name.
func ToDict(r Record) Dict {
	b := r.Meta()
	fields := r.fields()
	d := make(Dict, len(b.Extra)+len(fields)+4)
	for k, v := range b.Extra {
		d[k] = encodeExtra(v)
	}
	for _, f := range fields {
		d[f.name] = f.value()
	}
	d[FieldID] = b.ID
	d[FieldCreatedAt] = FormatTime(b.CreatedAt)
	d[FieldUpdatedAt] = FormatTime(b.UpdatedAt)
	d[FieldClass] = string(r.Kind())
	return d
}

// FromDict applies a previously serialised dict form to r. The record is
// neither assigned a new id nor registered anywhere.
func FromDict(r Record, d Dict) error {
	b := r.Meta()
	for k, v := range d {
		switch k {
		case FieldClass:
			name, ok := v.(string)
			if !ok || name != string(r.Kind()) {
				return fmt.Errorf("%s: discriminator %v does not match %s", FieldClass, v, r.Kind())
			}
		case FieldID:
			id, ok := v.(string)
			if !ok || id == "" {
				return TypeMismatchError{Attribute: k, Value: v, Want: "non-empty string"}
			}
			b.ID = id
		case FieldCreatedAt, FieldUpdatedAt:
			t, err := toTime(v)
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			if k == FieldCreatedAt {
				b.CreatedAt = t
			} else {
				b.UpdatedAt = t
			}
		default:
			if f, ok := lookupField(r, k); ok {
				if err := f.assign(v); err != nil {
					return err
				}
				continue
			}
			if b.Extra == nil {
				b.Extra = make(map[string]any)
			}
			b.Extra[k] = normalize(v)
		}
	}
	return nil
}

// Display renders `[Kind] (id) {attributes}` for humans. Keys are sorted.
func Display(r Record) string {
	d := ToDict(r)
	delete(d, FieldClass)
	attrs, err := json.Marshal(d)
	if err != nil {
		attrs = []byte(fallbackAttrs(d))
	}
	return fmt.Sprintf("[%s] (%s) %s", r.Kind(), r.Meta().ID, attrs)
}

func fallbackAttrs(d Dict) string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%q: %v", k, d[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return ParseTime(t)
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp value %T", v)
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func toStrings(v any) ([]string, bool) {
	switch list := v.(type) {
	case nil:
		return []string{}, true
	case []string:
		return append([]string{}, list...), true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// encodeExtra writes float extras as json.Number so that whole values such
// as 2.0 keep their decimal point and decode back as float64.
func encodeExtra(v any) any {
	switch t := v.(type) {
	case float64:
		return floatNumber(t)
	case float32:
		return floatNumber(float64(t))
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = encodeExtra(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = encodeExtra(item)
		}
		return out
	default:
		return v
	}
}

func floatNumber(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return json.Number(s)
}

// normalize converts decoder artefacts into plain Go values: json.Number
// becomes int when integral and float64 otherwise.
func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i)
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalize(item)
		}
		return out
	default:
		return v
	}
}
