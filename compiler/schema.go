// Package compiler turns raw schema declarations into an immutable graph of
// entity descriptors with typed, directional relation fields.
package compiler

import (
	"slices"

	"github.com/syssam/graphdl/schema/edge"
	"github.com/syssam/graphdl/schema/field"
)

// Seed configures bulk import for an entity.
type Seed struct {
	Source   string // File path or URL of the source rows
	Format   string // "csv" or "tsv"; inferred from Source when empty
	IDColumn string // Column holding the entity id
}

// Meta is the entity-level metadata block.
type Meta struct {
	Instructions   string
	Context        []string
	FuzzyThreshold *float64
	Seed           *Seed
	Extra          map[string]any // Unrecognized '$' keys
}

// Entity is a compiled entity type.
type Entity struct {
	Name   string
	Meta   Meta
	fields []*field.Descriptor
	index  map[string]int
}

func newEntity(name string) *Entity {
	return &Entity{Name: name, index: make(map[string]int)}
}

func (e *Entity) add(d *field.Descriptor) {
	e.index[d.Name] = len(e.fields)
	e.fields = append(e.fields, d)
}

// Fields returns the fields in declaration order, synthesized backrefs last.
// The slice must not be modified.
func (e *Entity) Fields() []*field.Descriptor {
	return e.fields
}

// Field returns the field with the given name.
func (e *Entity) Field(name string) (*field.Descriptor, bool) {
	i, ok := e.index[name]
	if !ok {
		return nil, false
	}
	return e.fields[i], true
}

// Relations returns the relation fields in declaration order.
func (e *Entity) Relations() []*field.Descriptor {
	var out []*field.Descriptor
	for _, f := range e.fields {
		if f.Relation {
			out = append(out, f)
		}
	}
	return out
}

// Scalars returns the non-relation fields in declaration order.
func (e *Entity) Scalars() []*field.Descriptor {
	var out []*field.Descriptor
	for _, f := range e.fields {
		if !f.Relation {
			out = append(out, f)
		}
	}
	return out
}

// RequiredScalars returns the scalar fields that need caller-supplied data:
// required, not prompt-driven and not mapped to a seed column.
func (e *Entity) RequiredScalars() []*field.Descriptor {
	var out []*field.Descriptor
	for _, f := range e.fields {
		if !f.Relation && !f.Optional && f.Prompt == "" && f.SeedColumn == "" {
			out = append(out, f)
		}
	}
	return out
}

// SeedColumns returns the fields mapped to seed columns.
func (e *Entity) SeedColumns() []*field.Descriptor {
	var out []*field.Descriptor
	for _, f := range e.fields {
		if f.SeedColumn != "" {
			out = append(out, f)
		}
	}
	return out
}

// ForwardFieldTo returns the first forward relation field pointing at typ.
func (e *Entity) ForwardFieldTo(typ string) (*field.Descriptor, bool) {
	for _, f := range e.fields {
		if f.Relation && f.Direction() == edge.Forward && slices.Contains(f.Targets(), typ) {
			return f, true
		}
	}
	return nil, false
}

// Warning is a non-fatal compilation diagnostic.
type Warning struct {
	Path    string
	Message string
}

// Schema is a compiled schema. It is read-only and safe for concurrent use.
type Schema struct {
	entities map[string]*Entity
	order    []string
	Warnings []Warning
}

// Entity returns the entity with the given name.
func (s *Schema) Entity(name string) (*Entity, bool) {
	e, ok := s.entities[name]
	return e, ok
}

// Has reports whether the schema declares the entity.
func (s *Schema) Has(name string) bool {
	_, ok := s.entities[name]
	return ok
}

// Names returns the entity names in declaration order.
func (s *Schema) Names() []string {
	return slices.Clone(s.order)
}

// Entities returns the entities in declaration order.
func (s *Schema) Entities() []*Entity {
	out := make([]*Entity, len(s.order))
	for i, n := range s.order {
		out[i] = s.entities[n]
	}
	return out
}
