package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMissingAttribute is returned when an update names no attribute.
	ErrMissingAttribute = errors.New("attribute name missing")
	// ErrMissingValue is returned when an update supplies no value.
	ErrMissingValue = errors.New("value missing")
	// ErrReadOnlyAttribute guards identity, timestamps and the discriminator.
	ErrReadOnlyAttribute = errors.New("attribute is read-only")
)

// TypeMismatchError reports a value that cannot be coerced to an attribute's type.
type TypeMismatchError struct {
	Attribute string
	Value     any
	Want      string
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("attribute %s: cannot use %v (%T) as %s", e.Attribute, e.Value, e.Value, e.Want)
}

func readOnly(name string) bool {
	switch name {
	case FieldID, FieldCreatedAt, FieldUpdatedAt, FieldClass:
		return true
	}
	return false
}

// Attr returns the current value of a named attribute, typed field or extra.
func Attr(r Record, name string) (any, bool) {
	b := r.Meta()
	switch name {
	case FieldID:
		return b.ID, true
	case FieldCreatedAt:
		return b.CreatedAt, true
	case FieldUpdatedAt:
		return b.UpdatedAt, true
	}
	if f, ok := lookupField(r, name); ok {
		return f.value(), true
	}
	v, ok := b.Extra[name]
	return v, ok
}

// SetValue assigns an already-typed value. Typed fields coerce numbers and
// lists; extras store the value as given.
func SetValue(r Record, name string, v any) error {
	if strings.TrimSpace(name) == "" {
		return ErrMissingAttribute
	}
	if readOnly(name) {
		return fmt.Errorf("%s: %w", name, ErrReadOnlyAttribute)
	}
	if f, ok := lookupField(r, name); ok {
		return f.assign(v)
	}
	b := r.Meta()
	if b.Extra == nil {
		b.Extra = make(map[string]any)
	}
	b.Extra[name] = normalize(v)
	return nil
}

// SetAttr parses raw into the type of the attribute's prior value and
// assigns it. Attributes without a prior value are stored as strings.
func SetAttr(r Record, name, raw string) error {
	if strings.TrimSpace(name) == "" {
		return ErrMissingAttribute
	}
	if readOnly(name) {
		return fmt.Errorf("%s: %w", name, ErrReadOnlyAttribute)
	}
	prior, ok := Attr(r, name)
	if !ok {
		return SetValue(r, name, raw)
	}
	v, err := coerce(name, prior, raw)
	if err != nil {
		return err
	}
	return SetValue(r, name, v)
}

func coerce(name string, prior any, raw string) (any, error) {
	switch prior.(type) {
	case int, int64, int32:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, TypeMismatchError{Attribute: name, Value: raw, Want: "int"}
		}
		return n, nil
	case float64, float32:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, TypeMismatchError{Attribute: name, Value: raw, Want: "float"}
		}
		return f, nil
	case bool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, TypeMismatchError{Attribute: name, Value: raw, Want: "bool"}
		}
		return b, nil
	case []string:
		return parseList(name, raw)
	default:
		return raw, nil
	}
}

func parseList(name, raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var out []string
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, TypeMismatchError{Attribute: name, Value: raw, Want: "list of string"}
		}
		return out, nil
	}
	if raw == "" {
		return []string{}, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
