package graph

import (
	"context"
	"fmt"

	"github.com/syssam/graphdl"
	"github.com/syssam/graphdl/compiler"
	"github.com/syssam/graphdl/schema/edge"
)

// Engine creates, reads and resolves entities of a compiled schema stored in
// a Provider. It is safe for concurrent use when the Provider is.
type Engine struct {
	schema   *compiler.Schema
	provider graphdl.Provider
	cfg      *Config
	cascade  *Cascade
	matcher  *Matcher
	hydrator *Hydrator
	pipeline *Pipeline
}

// NewEngine returns an Engine over s and p.
func NewEngine(s *compiler.Schema, p graphdl.Provider, opts ...Option) (*Engine, error) {
	if s == nil {
		return nil, NewConfigError("Schema", nil, "schema cannot be nil")
	}
	if p == nil {
		return nil, NewConfigError("Provider", nil, "provider cannot be nil")
	}
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	c := NewCascade(s, cfg)
	m := NewMatcher(s, cfg, c)
	return &Engine{
		schema:   s,
		provider: p,
		cfg:      cfg,
		cascade:  c,
		matcher:  m,
		hydrator: NewHydrator(s, p, cfg),
		pipeline: NewPipeline(s, cfg, c, m),
	}, nil
}

// Schema returns the compiled schema.
func (e *Engine) Schema() *compiler.Schema { return e.schema }

// Provider returns the storage backend.
func (e *Engine) Provider() graphdl.Provider { return e.provider }

// Cascade returns the engine's cascade generator.
func (e *Engine) Cascade() *Cascade { return e.cascade }

// Matcher returns the engine's fuzzy matcher.
func (e *Engine) Matcher() *Matcher { return e.matcher }

// Hydrator returns the engine's hydrator.
func (e *Engine) Hydrator() *Hydrator { return e.hydrator }

// Create stores a new entity of typ. Unset prompt fields are generated,
// backward-fuzzy relations are grounded, forward-fuzzy relations are matched
// or generated, required forward-exact relations are generated, then the
// entity and its edges are stored. data may carry $id and <field>Hint keys.
func (e *Engine) Create(ctx context.Context, typ string, data graphdl.Record) (*Node, error) {
	rec, err := e.cascade.GenerateDefaults(ctx, typ, GenerateOptions{Data: data, PromptsOnly: true})
	if err != nil {
		return nil, err
	}
	return e.create(ctx, typ, rec)
}

// Generate creates an entity of typ with every unset field generated from
// prompt and data.
func (e *Engine) Generate(ctx context.Context, typ, prompt string, data graphdl.Record) (*Node, error) {
	rec, err := e.cascade.GenerateDefaults(ctx, typ, GenerateOptions{Prompt: prompt, Data: data})
	if err != nil {
		return nil, err
	}
	return e.create(ctx, typ, rec)
}

func (e *Engine) create(ctx context.Context, typ string, data graphdl.Record) (*Node, error) {
	id := data.ID()
	if err := e.matcher.resolveBackwardFuzzy(ctx, e.provider, typ, data); err != nil {
		return nil, err
	}
	if err := e.cascade.resolveNestedPending(ctx, e.provider, typ, data, 0); err != nil {
		return nil, err
	}
	fuzzy, err := e.matcher.resolveForwardFuzzy(ctx, e.provider, typ, id, data, 0)
	if err != nil {
		return nil, err
	}
	exact, err := e.cascade.resolveForwardExact(ctx, e.provider, typ, id, data, 0)
	if err != nil {
		return nil, err
	}
	rec, err := store(ctx, e.provider, typ, id, data, append(fuzzy, exact...))
	if err != nil {
		return nil, err
	}
	e.cfg.Logger.DebugContext(ctx, "created entity", "entity", typ, "id", rec.ID())
	return e.hydrator.Hydrate(typ, rec)
}

// Get returns the hydrated entity.
func (e *Engine) Get(ctx context.Context, typ, id string) (*Node, error) {
	if !e.schema.Has(typ) {
		return nil, graphdl.NewUnknownTypeError(typ)
	}
	rec, err := e.provider.Get(ctx, typ, id)
	if err != nil {
		return nil, err
	}
	return e.hydrator.Hydrate(typ, rec)
}

// List returns the hydrated entities of typ matching opts.
func (e *Engine) List(ctx context.Context, typ string, opts graphdl.ListOptions) ([]*Node, error) {
	if !e.schema.Has(typ) {
		return nil, graphdl.NewUnknownTypeError(typ)
	}
	recs, err := e.provider.List(ctx, typ, opts)
	if err != nil {
		return nil, err
	}
	return e.hydrator.hydrateAll(recs, typ)
}

// Update merges patch into the entity. Forward relation ids set by the patch
// are related.
func (e *Engine) Update(ctx context.Context, typ, id string, patch graphdl.Record) (*Node, error) {
	ent, err := e.cascade.entity(typ)
	if err != nil {
		return nil, err
	}
	rec, err := e.provider.Update(ctx, typ, id, patch)
	if err != nil {
		return nil, err
	}
	for _, f := range ent.Relations() {
		if f.Direction() != edge.Forward || !patch.Has(f.Name) {
			continue
		}
		var edges []Edge
		ids := graphdl.IDs(patch[f.Name])
		hints := matchedTypes(patch[graphdl.FieldKey(f.Name, graphdl.SuffixMatchedType)], len(ids))
		for i, to := range ids {
			t, err := e.cascade.typeOf(ctx, e.provider, f, to, hints[i])
			if err != nil {
				return nil, err
			}
			edges = append(edges, Edge{Field: f.Name, ToType: t, ToID: to})
		}
		if err := relate(ctx, e.provider, typ, id, edges); err != nil {
			return nil, err
		}
	}
	return e.hydrator.Hydrate(typ, rec)
}

// Delete removes the entity, reporting whether it existed. Related entities
// are kept.
func (e *Engine) Delete(ctx context.Context, typ, id string) (bool, error) {
	if !e.schema.Has(typ) {
		return false, graphdl.NewUnknownTypeError(typ)
	}
	return e.provider.Delete(ctx, typ, id)
}

// Draft previews an entity of typ without storing it.
func (e *Engine) Draft(ctx context.Context, typ string, data graphdl.Record) (*Draft, error) {
	return e.pipeline.Draft(ctx, typ, data)
}

// Resolve turns a draft into concrete entity references. Related entities
// are created as needed; the drafted entity itself is stored by Commit.
func (e *Engine) Resolve(ctx context.Context, d *Draft, opts ResolveOptions) (*Resolved, error) {
	return e.pipeline.Resolve(ctx, e.provider, d, opts)
}

// Commit stores a resolved entity.
func (e *Engine) Commit(ctx context.Context, r *Resolved) (*Node, error) {
	if r == nil {
		return nil, fmt.Errorf("commit: %w", graphdl.ErrNotDraft)
	}
	data := r.Data.Clone()
	data[graphdl.KeyID] = r.ID
	return e.Create(ctx, r.Type, data)
}

// DraftAndResolve drafts and resolves an entity in one step.
func (e *Engine) DraftAndResolve(ctx context.Context, typ string, data graphdl.Record, opts ResolveOptions) (*Resolved, error) {
	d, err := e.Draft(ctx, typ, data)
	if err != nil {
		return nil, err
	}
	return e.Resolve(ctx, d, opts)
}
