// Package schema provides the runtime schema descriptor consumed by the
// dynamic builder engine, the validator, and the view layer.
//
// A Descriptor is an immutable, shared handle over an Arrow schema. It is
// built once (programmatically or from a JSON document) and passed by
// reference; changing a batch shape means building a new Descriptor.
package schema

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// Descriptor is a read-only handle over an ordered list of named,
// typed, nullable fields.
type Descriptor struct {
	schema *arrow.Schema
}

// New creates a Descriptor from a list of Arrow fields.
func New(fields []arrow.Field) *Descriptor {
	return &Descriptor{schema: arrow.NewSchema(fields, nil)}
}

// FromArrow wraps an existing Arrow schema. The schema is shared, not
// copied; it must not be mutated afterwards.
func FromArrow(s *arrow.Schema) *Descriptor {
	return &Descriptor{schema: s}
}

// Len returns the number of top-level fields.
func (d *Descriptor) Len() int {
	return d.schema.NumFields()
}

// Field returns the field at index i.
func (d *Descriptor) Field(i int) arrow.Field {
	return d.schema.Field(i)
}

// FieldByName returns the first field with the given name and its index.
func (d *Descriptor) FieldByName(name string) (arrow.Field, int, bool) {
	indices := d.schema.FieldIndices(name)
	if len(indices) == 0 {
		return arrow.Field{}, -1, false
	}
	return d.schema.Field(indices[0]), indices[0], true
}

// Arrow returns the underlying Arrow schema.
func (d *Descriptor) Arrow() *arrow.Schema {
	return d.schema
}

// Equal reports whether two descriptors describe the same shape.
func (d *Descriptor) Equal(other *Descriptor) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.schema.Equal(other.schema)
}

// String returns a human-readable rendering of the schema.
func (d *Descriptor) String() string {
	return d.schema.String()
}
