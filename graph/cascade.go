package graph

import (
	"context"
	"fmt"
	"slices"

	"github.com/syssam/graphdl"
	"github.com/syssam/graphdl/compiler"
	"github.com/syssam/graphdl/schema/edge"
	"github.com/syssam/graphdl/schema/field"

	"github.com/samber/lo"
)

// Pending is a generated child that has not been persisted yet. It is stored
// in the parent's relation field until resolveNestedPending replaces it with
// the child's id.
type Pending struct {
	Type        string
	ID          string
	Data        graphdl.Record
	SourceField string
}

// Edge is a relation queued for the caller to store once the source entity
// has been persisted.
type Edge struct {
	Field  string
	ToType string
	ToID   string
	Meta   map[string]any
}

// GenerateOptions configures GenerateDefaults.
type GenerateOptions struct {
	// ID is the pre-allocated id of the generated entity. One is allocated
	// when empty.
	ID     string
	Prompt string
	Parent *Parent
	// Data holds caller-supplied values that are kept as is.
	Data graphdl.Record
	// PromptsOnly restricts generation to prompt fields.
	PromptsOnly bool
	// Depth is the cascade depth of the entity; generation fails with
	// graphdl.ErrMaxDepth beyond Config.MaxDepth.
	Depth int
	// Instructions are the ancestors' $instructions.
	Instructions []string
}

// Cascade produces default field values and generates required related
// entities recursively.
type Cascade struct {
	schema *compiler.Schema
	cfg    *Config
	gen    graphdl.ValueGenerator
}

// NewCascade returns a Cascade over s. A nil cfg uses DefaultConfig.
func NewCascade(s *compiler.Schema, cfg *Config) *Cascade {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Cascade{schema: s, cfg: cfg, gen: cfg.guardedGenerator()}
}

func (c *Cascade) entity(typ string) (*compiler.Entity, error) {
	e, ok := c.schema.Entity(typ)
	if !ok {
		return nil, graphdl.NewUnknownTypeError(typ)
	}
	return e, nil
}

// target returns the first declared target type of a relation.
func (c *Cascade) target(f *field.Descriptor) (string, bool) {
	return lo.Find(f.Targets(), c.schema.Has)
}

func (c *Cascade) canDescend(ctx context.Context, typ string, f *field.Descriptor, depth int) bool {
	if depth < c.cfg.MaxDepth {
		return true
	}
	c.cfg.Logger.WarnContext(ctx, "cascade depth limit reached", "entity", typ, "field", f.Name, "depth", depth)
	return false
}

// GenerateDefaults returns a raw record of typ with every unset required
// scalar and prompt field generated. Required forward-exact single relations
// are generated recursively and stored as *Pending values; exact single
// relations pointing at the parent type are set to the parent id. The record
// carries its pre-allocated id under $id.
func (c *Cascade) GenerateDefaults(ctx context.Context, typ string, opts GenerateOptions) (graphdl.Record, error) {
	e, err := c.entity(typ)
	if err != nil {
		return nil, err
	}
	if opts.Depth > c.cfg.MaxDepth {
		return nil, fmt.Errorf("generating %s at depth %d: %w", typ, opts.Depth, graphdl.ErrMaxDepth)
	}
	out := opts.Data.Clone()
	if opts.ID == "" {
		opts.ID = out.ID()
	}
	if opts.ID == "" {
		opts.ID = c.cfg.IDFunc()
	}
	out[graphdl.KeyID] = opts.ID
	instructions := slices.Clip(opts.Instructions)
	if e.Meta.Instructions != "" {
		instructions = append(instructions, e.Meta.Instructions)
	}
	gc := genContext{prompt: opts.Prompt, instructions: instructions, parent: opts.Parent}
	for _, f := range e.Fields() {
		if out.Has(f.Name) || f.SeedColumn != "" {
			continue
		}
		if !f.Relation {
			if f.Prompt == "" && (opts.PromptsOnly || f.Optional) {
				continue
			}
			v, err := c.value(ctx, e, f, gc, out)
			if err != nil {
				return nil, err
			}
			out[f.Name] = v
			continue
		}
		if opts.PromptsOnly {
			continue
		}
		if p := opts.Parent; p != nil && p.ID != "" && !f.Array && f.MatchMode() == edge.Exact && slices.Contains(f.Targets(), p.Type) {
			out[f.Name] = p.ID
			continue
		}
		if !f.Is(edge.ForwardExact) || f.Optional || f.Array {
			continue
		}
		target, ok := c.target(f)
		if !ok || !c.canDescend(ctx, typ, f, opts.Depth) {
			continue
		}
		child, err := c.GenerateDefaults(ctx, target, GenerateOptions{
			Prompt:       f.Prompt,
			Parent:       &Parent{Type: typ, ID: opts.ID, Data: out.Data()},
			Depth:        opts.Depth + 1,
			Instructions: instructions,
		})
		if err != nil {
			return nil, err
		}
		markGenerated(child, "cascade", f.Name)
		out[f.Name] = &Pending{Type: target, ID: child.ID(), Data: child, SourceField: f.Name}
	}
	return out, nil
}

// value generates a scalar value through the guarded generator.
func (c *Cascade) value(ctx context.Context, e *compiler.Entity, f *field.Descriptor, gc genContext, data graphdl.Record) (any, error) {
	req := graphdl.GenerateRequest{
		FieldName:   f.Name,
		Type:        f.Type,
		FullContext: describe(e, gc, data),
		Hint:        f.Prompt,
		ParentData:  data.Data(),
	}
	v, err := c.gen.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generating %s.%s: %w", e.Name, f.Name, err)
	}
	if f.Array {
		return []any{v.Value}, nil
	}
	return v.Value, nil
}

func markGenerated(rec graphdl.Record, by, sourceField string) {
	rec[graphdl.KeyGenerated] = true
	rec[graphdl.KeyGeneratedBy] = by
	rec[graphdl.KeySourceField] = sourceField
}

// childSpec describes a related entity to create for a parent.
type childSpec struct {
	id     string // pre-allocated id; one is allocated when empty
	parent Parent
	field  *field.Descriptor
	target string
	prompt string
	data   graphdl.Record // caller-supplied values, if any
	depth  int
	by     string // $generatedBy; empty for caller-supplied children
}

// generateChild generates and persists a related entity.
func (c *Cascade) generateChild(ctx context.Context, p graphdl.Provider, s childSpec) (graphdl.Record, error) {
	parent := s.parent
	data, err := c.GenerateDefaults(ctx, s.target, GenerateOptions{
		ID:     s.id,
		Prompt: s.prompt,
		Parent: &parent,
		Data:   s.data,
		Depth:  s.depth,
	})
	if err != nil {
		return nil, err
	}
	if s.by != "" {
		markGenerated(data, s.by, s.field.Name)
	}
	rec, err := c.persist(ctx, p, s.target, data, s.depth)
	if err != nil {
		return nil, err
	}
	c.cfg.Logger.DebugContext(ctx, "created related entity",
		"entity", s.target, "id", rec.ID(), "parent", parent.Type, "field", s.field.Name, "by", s.by)
	return rec, nil
}

// persist stores a raw record: nested pending children first, then its unset
// required forward-exact relations, then the record and its edges.
func (c *Cascade) persist(ctx context.Context, p graphdl.Provider, typ string, data graphdl.Record, depth int) (graphdl.Record, error) {
	if err := c.resolveNestedPending(ctx, p, typ, data, depth); err != nil {
		return nil, err
	}
	id := data.ID()
	if id == "" {
		id = c.cfg.IDFunc()
	}
	edges, err := c.resolveForwardExact(ctx, p, typ, id, data, depth)
	if err != nil {
		return nil, err
	}
	return store(ctx, p, typ, id, data, edges)
}

// store creates the record and relates its queued edges.
func store(ctx context.Context, p graphdl.Provider, typ, id string, data graphdl.Record, edges []Edge) (graphdl.Record, error) {
	payload := data.Clone()
	delete(payload, graphdl.KeyID)
	delete(payload, graphdl.KeyType)
	rec, err := p.Create(ctx, typ, id, payload)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", typ, err)
	}
	if err := relate(ctx, p, typ, rec.ID(), edges); err != nil {
		return nil, err
	}
	return rec, nil
}

func relate(ctx context.Context, p graphdl.Provider, typ, id string, edges []Edge) error {
	for _, e := range edges {
		rel := graphdl.Relation{FromType: typ, FromID: id, Field: e.Field, ToType: e.ToType, ToID: e.ToID, Meta: e.Meta}
		if err := p.Relate(ctx, rel); err != nil {
			return fmt.Errorf("relating %s.%s: %w", typ, e.Field, err)
		}
	}
	return nil
}

// resolveNestedPending persists the *Pending children of data depth-first
// and replaces each with the child's id.
func (c *Cascade) resolveNestedPending(ctx context.Context, p graphdl.Provider, typ string, data graphdl.Record, depth int) error {
	e, err := c.entity(typ)
	if err != nil {
		return err
	}
	for _, f := range e.Relations() {
		pend, ok := data[f.Name].(*Pending)
		if !ok {
			continue
		}
		rec, err := c.persist(ctx, p, pend.Type, pend.Data, depth+1)
		if err != nil {
			return fmt.Errorf("persisting %s.%s: %w", typ, f.Name, err)
		}
		data[f.Name] = rec.ID()
		c.cfg.Logger.DebugContext(ctx, "created related entity",
			"entity", pend.Type, "id", rec.ID(), "parent", typ, "field", f.Name, "by", "cascade")
	}
	return nil
}

// resolveForwardExact resolves the forward-exact relations of a record about
// to be stored under id, implicit ones included. Supplied values are stored
// as ids with queued edges. Unset required "->" relations are generated and
// persisted, arrays only when the array policy allows it; implicit relations
// are never generated.
func (c *Cascade) resolveForwardExact(ctx context.Context, p graphdl.Provider, typ, id string, data graphdl.Record, depth int) ([]Edge, error) {
	e, err := c.entity(typ)
	if err != nil {
		return nil, err
	}
	var edges []Edge
	for _, f := range e.Relations() {
		if !f.IsForwardExact() {
			continue
		}
		if data.Has(f.Name) {
			fe, err := c.materialize(ctx, p, e, id, data, f, depth)
			if err != nil {
				return nil, err
			}
			edges = append(edges, fe...)
			continue
		}
		if f.Optional || !f.Is(edge.ForwardExact) {
			continue
		}
		target, ok := c.target(f)
		if !ok {
			c.cfg.Logger.WarnContext(ctx, "relation has no declared target, leaving it unset", "entity", typ, "field", f.Name)
			continue
		}
		n := 1
		if f.Array {
			te, _ := c.schema.Entity(target)
			if !c.cfg.ArrayPolicy(ArrayContext{Schema: c.schema, Entity: e, Field: f, Target: te}) {
				continue
			}
			n = c.cfg.ArrayCount
		}
		if !c.canDescend(ctx, typ, f, depth) {
			continue
		}
		parent := Parent{Type: typ, ID: id, Data: data.Data()}
		ids := make([]string, 0, n)
		for range n {
			rec, err := c.generateChild(ctx, p, childSpec{parent: parent, field: f, target: target, prompt: f.Prompt, depth: depth + 1, by: "cascade"})
			if err != nil {
				return nil, fmt.Errorf("generating %s.%s: %w", typ, f.Name, err)
			}
			ids = append(ids, rec.ID())
			edges = append(edges, Edge{Field: f.Name, ToType: target, ToID: rec.ID(), Meta: map[string]any{graphdl.KeyGenerated: true}})
		}
		if f.Array {
			data[f.Name] = ids
		} else {
			data[f.Name] = ids[0]
		}
	}
	return edges, nil
}

// materialize turns a supplied relation value into stored ids and queued
// edges. Ids are kept; nested records are created as children of the entity.
func (c *Cascade) materialize(ctx context.Context, p graphdl.Provider, e *compiler.Entity, id string, data graphdl.Record, f *field.Descriptor, depth int) ([]Edge, error) {
	var items []any
	switch v := data[f.Name].(type) {
	case []any:
		items = v
	case []string:
		items = lo.ToAnySlice(v)
	case []graphdl.Record:
		items = lo.ToAnySlice(v)
	case []map[string]any:
		items = lo.ToAnySlice(v)
	default:
		items = []any{v}
	}
	hints := matchedTypes(data[graphdl.FieldKey(f.Name, graphdl.SuffixMatchedType)], len(items))
	var (
		ids   []string
		edges []Edge
	)
	for i, item := range items {
		var nested graphdl.Record
		switch item := item.(type) {
		case string:
			if item == "" {
				continue
			}
			typ, err := c.typeOf(ctx, p, f, item, hints[i])
			if err != nil {
				return nil, err
			}
			ids = append(ids, item)
			edges = append(edges, Edge{Field: f.Name, ToType: typ, ToID: item})
			continue
		case graphdl.Record:
			nested = item
		case map[string]any:
			nested = item
		default:
			return nil, graphdl.NewValidationError(e.Name+"."+f.Name, fmt.Errorf("unsupported relation value %T", item))
		}
		target, ok := c.target(f)
		if !ok {
			return nil, graphdl.NewValidationError(e.Name+"."+f.Name, fmt.Errorf("no declared target for nested record"))
		}
		if !c.canDescend(ctx, e.Name, f, depth) {
			continue
		}
		rec, err := c.generateChild(ctx, p, childSpec{
			parent: Parent{Type: e.Name, ID: id, Data: data.Data()},
			field:  f,
			target: target,
			prompt: f.Prompt,
			data:   nested,
			depth:  depth + 1,
		})
		if err != nil {
			return nil, err
		}
		ids = append(ids, rec.ID())
		edges = append(edges, Edge{Field: f.Name, ToType: target, ToID: rec.ID()})
	}
	switch {
	case f.Array:
		data[f.Name] = ids
	case len(ids) > 0:
		data[f.Name] = ids[0]
	default:
		delete(data, f.Name)
	}
	return edges, nil
}

// typeOf returns the stored type of a related id: the recorded matched type,
// the single target, or the first union member holding the id.
func (c *Cascade) typeOf(ctx context.Context, p graphdl.Provider, f *field.Descriptor, id, hint string) (string, error) {
	targets := f.Targets()
	if hint != "" {
		return hint, nil
	}
	if len(targets) == 1 {
		return targets[0], nil
	}
	for _, t := range targets {
		_, err := p.Get(ctx, t, id)
		switch {
		case err == nil:
			return t, nil
		case !graphdl.IsNotFound(err):
			return "", err
		}
	}
	return targets[0], nil
}

// matchedTypes spreads a $matchedType bookkeeping value over n items.
func matchedTypes(v any, n int) []string {
	out := make([]string, n)
	switch v := v.(type) {
	case string:
		for i := range out {
			out[i] = v
		}
	case []string, []any:
		for i, s := range graphdl.IDs(v) {
			if i < n {
				out[i] = s
			}
		}
	}
	return out
}
