package advice

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Entry is one row of a FieldMap
type Entry struct {
	Field Field  `json:"field"`
	Value string `json:"value"`
}

// FieldMap maps every canonical field to a value. The zero value behaves as
// an all-empty map; a FieldMap is never modified after construction.
type FieldMap struct {
	values map[Field]string
}

// NewFieldMap copies the canonical entries of values. Missing fields become
// empty strings and non-canonical keys are dropped.
func NewFieldMap(values map[Field]string) FieldMap {
	m := make(map[Field]string, len(canonicalFields))
	for _, f := range canonicalFields {
		m[f] = values[f]
	}
	return FieldMap{values: m}
}

// Get returns the value of a field, or "" when it was not extracted
func (m FieldMap) Get(f Field) string {
	return m.values[f]
}

// Len returns the number of fields, always the canonical count
func (m FieldMap) Len() int {
	return len(canonicalFields)
}

// Entries returns the fields in canonical order
func (m FieldMap) Entries() []Entry {
	entries := make([]Entry, 0, len(canonicalFields))
	for _, f := range canonicalFields {
		entries = append(entries, Entry{Field: f, Value: m.values[f]})
	}
	return entries
}

// Map returns a copy of the values keyed by field
func (m FieldMap) Map() map[Field]string {
	out := make(map[Field]string, len(canonicalFields))
	for _, f := range canonicalFields {
		out[f] = m.values[f]
	}
	return out
}

// With returns a copy of m with one field replaced
func (m FieldMap) With(f Field, value string) FieldMap {
	values := m.Map()
	values[f] = value
	return NewFieldMap(values)
}

// Empty reports how many fields have no value
func (m FieldMap) Empty() int {
	n := 0
	for _, f := range canonicalFields {
		if m.values[f] == "" {
			n++
		}
	}
	return n
}

// MarshalJSON encodes the map as a JSON object in canonical order
func (m FieldMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range canonicalFields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(f))
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.values[f])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// String lists the fields as "Field: Value" lines in canonical order.
// Continuation lines of multi-line values are indented by two spaces.
func (m FieldMap) String() string {
	var b strings.Builder
	for _, e := range m.Entries() {
		b.WriteString(string(e.Field))
		b.WriteString(":")
		if e.Value != "" {
			b.WriteString(" ")
			b.WriteString(strings.ReplaceAll(e.Value, "\n", "\n  "))
		}
		b.WriteString("\n")
	}
	return b.String()
}
