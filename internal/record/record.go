// Package record holds the data model shared by the builder, the graphs and the
// persistence engines: entity types, field identifiers and the records themselves.
package record

import (
	"encoding/json"
	"fmt"
	"sort"
)

// EntityType identifies a kind of record (analogous to a table).
type EntityType string

// Field is the canonical field identifier. Every entry point takes a Field;
// descriptors are normalized to one at the boundary.
type Field string

// Descriptor names a field on a specific entity type.
type Descriptor struct {
	Entity EntityType
	Field  Field
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s.%s", d.Entity, d.Field)
}

// Values maps field identifiers to values.
type Values map[Field]any

// Clone returns a shallow copy.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for f, val := range v {
		out[f] = val
	}
	return out
}

// MergeAll copies every entry of src into v (full reclamation).
func (v Values) MergeAll(src Values) {
	for f, val := range src {
		v[f] = val
	}
}

// MergeExcept copies the entries of src whose field is not in skip
// (protective reclamation) and returns the fields it copied.
func (v Values) MergeExcept(src Values, skip map[Field]struct{}) []Field {
	var merged []Field
	for f, val := range src {
		if _, ok := skip[f]; ok {
			continue
		}
		v[f] = val
		merged = append(merged, f)
	}
	return merged
}

// Fields returns the field identifiers in sorted order.
func (v Values) Fields() []Field {
	out := make([]Field, 0, len(v))
	for f := range v {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Record is a mutable field/value mapping tagged with its entity type.
// ID is empty until the record has been persisted (or mocked).
type Record struct {
	Type   EntityType
	ID     string
	values Values
}

// New returns an empty, unpersisted record of type t.
func New(t EntityType) *Record {
	return &Record{Type: t, values: make(Values)}
}

// FromValues returns an unpersisted record holding a copy of vals.
func FromValues(t EntityType, vals Values) *Record {
	r := New(t)
	r.values.MergeAll(vals)
	return r
}

func (r *Record) Get(f Field) (any, bool) {
	v, ok := r.values[f]
	return v, ok
}

func (r *Record) Has(f Field) bool {
	_, ok := r.values[f]
	return ok
}

func (r *Record) Set(f Field, v any) {
	r.values[f] = v
}

func (r *Record) Delete(f Field) {
	delete(r.values, f)
}

// Merge folds every value of src into the record.
func (r *Record) Merge(src Values) {
	r.values.MergeAll(src)
}

// MergeExcept folds the values of src whose field is not in skip and returns
// the fields it folded.
func (r *Record) MergeExcept(src Values, skip map[Field]struct{}) []Field {
	return r.values.MergeExcept(src, skip)
}

// Fields returns the populated fields in sorted order.
func (r *Record) Fields() []Field {
	return r.values.Fields()
}

// Values returns a copy of the record's field values.
func (r *Record) Values() Values {
	return r.values.Clone()
}

// Persisted reports whether the record carries an identifier.
func (r *Record) Persisted() bool {
	return r.ID != ""
}

// Clone returns a deep-enough copy: the value map is copied, values are shared.
func (r *Record) Clone() *Record {
	return &Record{Type: r.Type, ID: r.ID, values: r.values.Clone()}
}

type recordJSON struct {
	Type   EntityType     `json:"type"`
	ID     string         `json:"id,omitempty"`
	Fields map[string]any `json:"fields"`
}

func (r *Record) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(r.values))
	for f, v := range r.values {
		fields[string(f)] = v
	}
	return json.Marshal(recordJSON{Type: r.Type, ID: r.ID, Fields: fields})
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Type = raw.Type
	r.ID = raw.ID
	r.values = make(Values, len(raw.Fields))
	for k, v := range raw.Fields {
		r.values[Field(k)] = v
	}
	return nil
}
