package compiler

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/syssam/graphdl/compiler/load"
	"github.com/syssam/graphdl/schema"
	"github.com/syssam/graphdl/schema/edge"
	"github.com/syssam/graphdl/schema/field"

	"github.com/samber/lo"
)

// Option configures compilation.
type Option func(*config)

type config struct {
	logger *slog.Logger
}

// WithLogger sets the logger that receives compilation warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// Compile parses, validates and links a raw schema.
//
// Compilation runs in three phases: every field expression is parsed, explicit
// relation targets are checked against the declared entities, and missing
// inverse fields are synthesized for every declared backref.
func Compile(raw *load.Schema, opts ...Option) (*Schema, error) {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	s := &Schema{entities: make(map[string]*Entity)}
	if err := s.parse(raw); err != nil {
		return nil, err
	}
	if err := s.check(); err != nil {
		return nil, err
	}
	if err := s.link(); err != nil {
		return nil, err
	}
	for _, w := range s.Warnings {
		cfg.logger.Warn("schema warning", "path", w.Path, "message", w.Message)
	}
	return s, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(raw *load.Schema, opts ...Option) *Schema {
	s, err := Compile(raw, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) warn(path, format string, args ...any) {
	s.Warnings = append(s.Warnings, Warning{Path: path, Message: fmt.Sprintf(format, args...)})
}

// parse runs the first phase.
func (s *Schema) parse(raw *load.Schema) error {
	for _, re := range raw.Entities {
		if err := field.ValidateEntityName(re.Name); err != nil {
			return err
		}
		if s.Has(re.Name) {
			return schema.NewError(schema.InvalidEntityName, re.Name, "duplicate entity declaration")
		}
		e := newEntity(re.Name)
		for _, rf := range re.Fields {
			if rf.IsMeta() {
				if err := parseMeta(e, rf.Name, rf.Value); err != nil {
					return err
				}
				continue
			}
			path := schema.Path(re.Name, rf.Name)
			if _, dup := e.Field(rf.Name); dup {
				return schema.NewError(schema.InvalidFieldName, path, "duplicate field declaration")
			}
			def, ok := rf.Value.(string)
			if !ok {
				return schema.NewError(schema.InvalidFieldType, path, fmt.Sprintf("type expression must be a string, got %T", rf.Value))
			}
			d, err := field.Parse(re.Name, rf.Name, def)
			if err != nil {
				return err
			}
			e.add(d)
		}
		if seed := e.Meta.Seed; seed != nil && seed.Source != "" && seed.IDColumn == "" {
			return schema.NewError(schema.MissingSeedID, schema.Path(re.Name, MetaSeed), "$seed requires an $id column mapping")
		}
		s.entities[e.Name] = e
		s.order = append(s.order, e.Name)
	}
	return nil
}

// check runs the second phase.
func (s *Schema) check() error {
	for _, name := range s.order {
		e := s.entities[name]
		for _, f := range e.fields {
			if !f.Relation {
				continue
			}
			path := schema.Path(e.Name, f.Name)
			targets := f.Targets()
			missing := lo.Filter(targets, func(t string, _ int) bool {
				return t != e.Name && !s.Has(t)
			})
			switch {
			case len(missing) == 0:
			case f.IsUnion() && len(missing) == len(targets):
				s.warn(path, "union targets %v are not declared in this schema", targets)
			case f.IsUnion():
				return schema.NewError(schema.InvalidFieldType, path, fmt.Sprintf("union members %v are not declared", missing))
			case f.Operator != "" || f.Backref != "":
				return schema.NewError(schema.InvalidFieldType, path, fmt.Sprintf("unknown entity type %q", missing[0]))
			default:
				s.warn(path, "relation to undeclared type %q", missing[0])
			}
		}
	}
	return nil
}

// link runs the third phase: backref synthesis.
func (s *Schema) link() error {
	for _, name := range s.order {
		e := s.entities[name]
		// Synthesized fields are appended while iterating; only walk the
		// declared ones.
		declared := slices.Clone(e.fields)
		for _, f := range declared {
			if !f.Relation || f.Backref == "" || f.Synthesized {
				continue
			}
			for _, t := range f.Targets() {
				target, ok := s.entities[t]
				if !ok {
					continue
				}
				if err := s.inverse(e, f, target); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// inverse makes sure target declares the inverse of field f on entity e.
func (s *Schema) inverse(e *Entity, f *field.Descriptor, target *Entity) error {
	path := schema.Path(target.Name, f.Backref)
	if inv, ok := target.Field(f.Backref); ok {
		if !inv.Relation || !slices.Contains(inv.Targets(), e.Name) {
			return schema.NewError(schema.InvalidFieldType, path, fmt.Sprintf("backref of %s conflicts with declared field %q", schema.Path(e.Name, f.Name), inv.Def))
		}
		if inv.Backref == "" {
			// A plain declared inverse holds every referencing entity.
			if !inv.Array {
				return schema.NewError(schema.InvalidFieldType, path, fmt.Sprintf("backref of %s must be an array, declared as %q", schema.Path(e.Name, f.Name), inv.Def))
			}
			inv.Backref = f.Name
		}
		return nil
	}
	if err := field.ValidateFieldName(target.Name, f.Backref); err != nil {
		return err
	}
	target.add(&field.Descriptor{
		Name:        f.Backref,
		Type:        e.Name,
		Array:       true,
		Optional:    true,
		Relation:    true,
		RelatedType: e.Name,
		Backref:     f.Name,
		Operator:    edge.BackwardExact,
		Synthesized: true,
		Def:         fmt.Sprintf("%s%s.%s[]", edge.BackwardExact, e.Name, f.Name),
	})
	return nil
}
