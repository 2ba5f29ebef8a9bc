package record

import (
	"bytes"
	"fmt"
	"iter"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Record is an insertion-ordered mapping from column name to Value.
//
// Key order drives the column order of generated SQL, so it is preserved
// through Set, Clone and JSON round-trips. The zero Record is empty and ready
// to use. Records are not safe for concurrent mutation.
type Record struct {
	m *orderedmap.OrderedMap[string, Value]
}

// New returns an empty record.
func New() Record {
	return Record{m: orderedmap.New[string, Value]()}
}

// Set assigns v to name. Existing keys keep their position.
func (r *Record) Set(name string, v Value) {
	if r.m == nil {
		r.m = orderedmap.New[string, Value]()
	}
	r.m.Set(name, v)
}

// SetAny converts x with FromAny and assigns it to name.
func (r *Record) SetAny(name string, x any) error {
	v, err := FromAny(x)
	if err != nil {
		return fmt.Errorf("field %q: %w", name, err)
	}
	r.Set(name, v)
	return nil
}

// Get returns the value stored under name.
func (r Record) Get(name string) (Value, bool) {
	if r.m == nil {
		return Null(), false
	}
	return r.m.Get(name)
}

// Has reports whether name is present.
func (r Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Delete removes name and reports whether it was present.
func (r *Record) Delete(name string) bool {
	if r.m == nil {
		return false
	}
	_, ok := r.m.Delete(name)
	return ok
}

// Len returns the number of fields.
func (r Record) Len() int {
	if r.m == nil {
		return 0
	}
	return r.m.Len()
}

// Keys returns the field names in insertion order.
func (r Record) Keys() []string {
	keys := make([]string, 0, r.Len())
	for k := range r.All() {
		keys = append(keys, k)
	}
	return keys
}

// All iterates fields in insertion order.
func (r Record) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if r.m == nil {
			return
		}
		for pair := r.m.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// Clone returns an independent copy with the same field order.
func (r Record) Clone() Record {
	out := New()
	for k, v := range r.All() {
		out.Set(k, v)
	}
	return out
}

// Map returns the fields as plain Go values. Order is lost.
func (r Record) Map() map[string]any {
	out := make(map[string]any, r.Len())
	for k, v := range r.All() {
		out[k] = v.Any()
	}
	return out
}

// FromMap builds a record from an unordered map. Keys are sorted so the
// resulting column order is deterministic.
func FromMap(m map[string]any) (Record, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r := New()
	for _, k := range keys {
		if err := r.SetAny(k, m[k]); err != nil {
			return Record{}, err
		}
	}
	return r, nil
}

// Equal reports whether both records hold the same fields in the same order.
func (r Record) Equal(o Record) bool {
	if r.Len() != o.Len() {
		return false
	}
	ok := r.Keys()
	for i, k := range o.Keys() {
		if ok[i] != k {
			return false
		}
		a, _ := r.Get(k)
		b, _ := o.Get(k)
		if !a.Equal(b) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the record as a JSON object in field order.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.m == nil {
		return []byte("{}"), nil
	}
	return r.m.MarshalJSON()
}

// UnmarshalJSON decodes a JSON object, keeping the document's key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	r.m = orderedmap.New[string, Value]()
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	if err := r.m.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("record: decoding object: %w", err)
	}
	return nil
}
