package load

import (
	"strings"

	"github.com/syssam/graphdl/schema/mixin"
)

// Builder declares a schema in code.
//
//	s := load.New().
//	    Entity("Post").
//	        Field("title", "string").
//	        Field("author", "Author.posts").
//	    Entity("Author").
//	        Field("name", "string").
//	        Instructions("Authors are technical writers").
//	    Schema()
type Builder struct {
	s   *Schema
	cur *Entity
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{s: &Schema{}}
}

// Entity starts (or resumes) the declaration of an entity.
func (b *Builder) Entity(name string) *Builder {
	if e := b.s.Entity(name); e != nil {
		b.cur = e
		return b
	}
	b.cur = &Entity{Name: name}
	b.s.Entities = append(b.s.Entities, b.cur)
	return b
}

// Field declares a field on the current entity.
func (b *Builder) Field(name, def string) *Builder {
	b.current().Set(name, def)
	return b
}

// Fields declares several fields in argument order, as name/definition pairs.
func (b *Builder) Fields(pairs ...string) *Builder {
	for i := 0; i+1 < len(pairs); i += 2 {
		b.Field(pairs[i], pairs[i+1])
	}
	return b
}

// Meta sets an entity metadata key. The '$' prefix is added when missing.
func (b *Builder) Meta(key string, v any) *Builder {
	if !strings.HasPrefix(key, "$") {
		key = "$" + key
	}
	b.current().Set(key, v)
	return b
}

// Instructions sets the entity $instructions.
func (b *Builder) Instructions(s string) *Builder {
	return b.Meta("$instructions", s)
}

// Context sets the entity $context dependency list.
func (b *Builder) Context(deps ...string) *Builder {
	return b.Meta("$context", deps)
}

// FuzzyThreshold sets the entity $fuzzyThreshold default.
func (b *Builder) FuzzyThreshold(v float64) *Builder {
	return b.Meta("$fuzzyThreshold", v)
}

// Seed sets the entity $seed source and the $id column mapping.
func (b *Builder) Seed(source, idColumn string) *Builder {
	b.Meta("$seed", source)
	return b.Meta("$id", "$."+idColumn)
}

// Mixin adds the fields of ms to the current entity, skipping names it
// already declares.
func (b *Builder) Mixin(ms ...mixin.Mixin) *Builder {
	applyMixins(b.current(), ms)
	return b
}

// Schema returns the declared schema.
func (b *Builder) Schema() *Schema {
	return b.s
}

func (b *Builder) current() *Entity {
	if b.cur == nil {
		panic("load: Field or Meta called before Entity")
	}
	return b.cur
}
