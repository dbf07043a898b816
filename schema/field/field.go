package field

import (
	"errors"
	"strconv"
	"strings"

	"github.com/syssam/graphdl/schema"
	"github.com/syssam/graphdl/schema/edge"
)

// Descriptor is a compiled field declaration.
type Descriptor struct {
	Name        string
	Type        string // Primitive tag or entity type name
	Array       bool
	Optional    bool
	Relation    bool
	RelatedType string
	Backref     string
	Operator    edge.Operator // Empty for implicit relations and scalars
	Prompt      string
	Union       []string
	Threshold   *float64
	SeedColumn  string
	Synthesized bool   // Created by backref synthesis
	Def         string // Original type expression
}

// Direction returns the relation direction.
func (d *Descriptor) Direction() edge.Direction {
	return d.Operator.Direction()
}

// MatchMode returns the relation match mode.
func (d *Descriptor) MatchMode() edge.MatchMode {
	return d.Operator.MatchMode()
}

// Targets returns the candidate target types in declared order.
func (d *Descriptor) Targets() []string {
	if len(d.Union) > 0 {
		return d.Union
	}
	if d.RelatedType == "" {
		return nil
	}
	return []string{d.RelatedType}
}

// IsUnion reports whether the relation declares several candidate types.
func (d *Descriptor) IsUnion() bool {
	return len(d.Union) > 1
}

// IsPromptField reports whether the field is a scalar carrying a generation prompt.
func (d *Descriptor) IsPromptField() bool {
	return !d.Relation && d.Prompt != ""
}

// Is reports whether the field is a relation with the given operator.
func (d *Descriptor) Is(op edge.Operator) bool {
	return d.Relation && d.Operator == op
}

// IsForwardExact reports whether the field is a forward exact relation,
// either declared with "->" or implied by a bare type name.
func (d *Descriptor) IsForwardExact() bool {
	return d.Relation && (d.Operator == edge.ForwardExact || d.Operator == "")
}

// Clone returns a deep copy of the descriptor.
func (d *Descriptor) Clone() *Descriptor {
	c := *d
	if d.Union != nil {
		c.Union = append([]string(nil), d.Union...)
	}
	if d.Threshold != nil {
		v := *d.Threshold
		c.Threshold = &v
	}
	return &c
}

// Parse classifies a field type expression. The entity name is only used for
// error paths.
func Parse(entity, name, def string) (*Descriptor, error) {
	if err := ValidateFieldName(entity, name); err != nil {
		return nil, err
	}
	path := schema.Path(entity, name)
	d := &Descriptor{Name: name, Def: def}
	s := strings.TrimSpace(def)
	if s == "" {
		return nil, schema.NewError(schema.InvalidFieldType, path, "empty type expression")
	}
	// Bulk seed column mapping.
	if col, ok := strings.CutPrefix(s, "$."); ok {
		if col == "" || strings.ContainsAny(col, " \t") {
			return nil, schema.NewError(schema.InvalidFieldType, path, "malformed seed column "+strconv.Quote(s))
		}
		d.Type, d.SeedColumn = TypeString, col
		return d, nil
	}
	// Explicit operator.
	if _, i := edge.Find(s); i >= 0 {
		spec, err := edge.Parse(s)
		if err != nil {
			return nil, withPath(err, path)
		}
		d.Relation = true
		d.Operator = spec.Operator
		d.Prompt = spec.Prompt
		d.Type, d.RelatedType = spec.Target, spec.Target
		d.Union = spec.Union
		d.Threshold = spec.Threshold
		d.Optional = spec.Optional
		d.Array = spec.Array
		d.Backref = spec.Backref
		return d, nil
	}
	spaced := strings.ContainsAny(s, " \t")
	if !spaced {
		s, d.Optional = strings.CutSuffix(s, "?")
	}
	if rest, ok := strings.CutSuffix(s, "[]"); ok {
		if rest == "" || strings.ContainsAny(rest, "[]") {
			return nil, schema.NewError(schema.InvalidFieldType, path, "malformed array syntax in "+strconv.Quote(def))
		}
		s, d.Array = strings.TrimSpace(rest), true
		if !spaced && !d.Optional {
			s, d.Optional = strings.CutSuffix(s, "?")
		}
	} else if strings.ContainsAny(s, "[]") && !spaced {
		return nil, schema.NewError(schema.InvalidFieldType, path, "malformed array syntax in "+strconv.Quote(def))
	}
	// Relation with an explicit backref, e.g. "Author.posts".
	if !spaced && !strings.Contains(s, "/") && strings.Contains(s, ".") {
		typ, backref, _ := strings.Cut(s, ".")
		if backref == "" || strings.Contains(backref, ".") {
			return nil, schema.NewError(schema.InvalidFieldType, path, "malformed backref syntax in "+strconv.Quote(def))
		}
		if !edge.IsTypeName(typ) {
			return nil, schema.NewError(schema.InvalidFieldType, path, "backref target "+strconv.Quote(typ)+" is not an entity type")
		}
		d.Relation = true
		d.Type, d.RelatedType, d.Backref = typ, typ, backref
		return d, nil
	}
	// Implicit relation.
	if !spaced && edge.IsTypeName(s) {
		d.Relation = true
		d.Type, d.RelatedType = s, s
		return d, nil
	}
	if IsPrimitive(s) {
		d.Type = s
		return d, nil
	}
	if spaced || strings.ContainsAny(s, "/?") {
		d.Type, d.Prompt = TypeString, s
		return d, nil
	}
	if sug, ok := Suggest(s); ok {
		e := schema.NewError(schema.InvalidFieldType, path, "unsupported type "+strconv.Quote(s))
		e.Suggestion = sug
		return nil, e
	}
	return nil, schema.NewError(schema.InvalidFieldType, path, "unknown type "+strconv.Quote(s))
}

func withPath(err error, path string) error {
	var e *schema.Error
	if errors.As(err, &e) && e.Path == "" {
		e.Path = path
	}
	return err
}
