package graph

import (
	"github.com/syssam/graphdl/compiler"
	"github.com/syssam/graphdl/schema/field"
)

// ArrayContext describes an unset required array relation.
type ArrayContext struct {
	Schema *compiler.Schema
	Entity *compiler.Entity  // Declaring entity
	Field  *field.Descriptor // Array relation field
	Target *compiler.Entity  // First declared target, nil when external
}

// ArrayPolicy decides whether an unset required forward-exact array relation
// is populated by generating children.
type ArrayPolicy func(ArrayContext) bool

// DefaultArrayPolicy generates children when the field carries a prompt, the
// field is a union, or the target has no required scalars. Required scalars
// are those of compiler.Entity.RequiredScalars: non-optional values with no
// prompt and no seed column, which only the caller can supply. A target
// holding a backward array to the declaring entity follows the same rule.
// Otherwise the relation is left for the child side to populate.
func DefaultArrayPolicy(c ArrayContext) bool {
	if c.Target == nil {
		return false
	}
	if c.Field.Prompt != "" || c.Field.IsUnion() {
		return true
	}
	return len(c.Target.RequiredScalars()) == 0
}

// AlwaysGenerate populates every unset required array relation.
func AlwaysGenerate(ArrayContext) bool { return true }

// NeverGenerate leaves unset array relations empty.
func NeverGenerate(ArrayContext) bool { return false }
