package shared

import (
	"fmt"
	"math"

	"github.com/go-viper/mapstructure/v2"
)

// DecodeState decodes an exported state map into a struct tagged with
// `mapstructure`. Every tagged field must be present; numbers may arrive as
// int, int64, float64 or json.Number so a map survives a JSON round-trip.
func DecodeState(m map[string]any, out any) error {
	if m == nil {
		return NewValidationError("state", "map is nil")
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnset: true,
		MatchName:  func(key, field string) bool { return key == field },
		Result:     out,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(m); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}
	return nil
}

// StateReader reads fields one at a time out of an exported state map, for
// callers whose shape depends on earlier fields. Conversion is delegated to
// mapstructure. The first failure is kept and reported by Err; later reads
// return zero values.
type StateReader struct {
	m   map[string]any
	err error
}

// NewStateReader wraps an exported state map
func NewStateReader(m map[string]any) *StateReader {
	r := &StateReader{m: m}
	if m == nil {
		r.err = NewValidationError("state", "map is nil")
	}
	return r
}

// Err returns the first error encountered
func (r *StateReader) Err() error {
	return r.err
}

// Has reports whether the key is present
func (r *StateReader) Has(key string) bool {
	_, ok := r.m[key]
	return ok
}

// read decodes one key into out, recording the first failure
func (r *StateReader) read(key, expected string, out any) bool {
	if r.err != nil {
		return false
	}
	v, ok := r.m[key]
	if !ok {
		r.err = &StateFieldError{Field: key, Expected: expected}
		return false
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: out})
	if err == nil {
		err = decoder.Decode(v)
	}
	if err != nil || v == nil {
		r.err = &StateFieldError{Field: key, Expected: expected, Got: v}
		return false
	}
	return true
}

// Float reads a float64 field
func (r *StateReader) Float(key string) float64 {
	var f float64
	if !r.read(key, "number", &f) {
		return 0
	}
	return f
}

// Int reads an integer field
func (r *StateReader) Int(key string) int {
	return int(r.Int64(key))
}

// Int64 reads an integer field; fractional numbers are rejected
func (r *StateReader) Int64(key string) int64 {
	var f float64
	if !r.read(key, "integer", &f) {
		return 0
	}
	if f != math.Trunc(f) {
		r.err = &StateFieldError{Field: key, Expected: "integer", Got: r.m[key]}
		return 0
	}
	return int64(f)
}

// String reads a string field
func (r *StateReader) String(key string) string {
	var s string
	r.read(key, "string", &s)
	return s
}

// Bool reads a boolean field
func (r *StateReader) Bool(key string) bool {
	var b bool
	r.read(key, "bool", &b)
	return b
}

// Map reads a nested state map
func (r *StateReader) Map(key string) map[string]any {
	var m map[string]any
	if !r.read(key, "map", &m) {
		return nil
	}
	return m
}

// Maps reads a list of nested state maps
func (r *StateReader) Maps(key string) []map[string]any {
	var list []map[string]any
	if !r.read(key, "list of maps", &list) {
		return nil
	}
	return list
}

// Strings reads a list of strings
func (r *StateReader) Strings(key string) []string {
	var list []string
	if !r.read(key, "list of strings", &list) {
		return nil
	}
	return list
}

// Ints reads a list of integers
func (r *StateReader) Ints(key string) []int {
	var list []int
	if !r.read(key, "list of integers", &list) {
		return nil
	}
	return list
}
