// Package memory provides an in-process graphdl.Provider.
//
// The provider keeps records and edges in maps guarded by a read-write mutex
// and ranks semantic search results with the contrib/similarity scorer. It is
// the default backend of the CLI and of the engine tests.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/syssam/graphdl"
	"github.com/syssam/graphdl/contrib/idgen"
	"github.com/syssam/graphdl/dialect"
)

type edgeKey struct {
	typ, id, field string
}

type target struct {
	typ, id string
	meta    map[string]any
}

// Provider is an in-memory graphdl.Provider. The zero value is not usable;
// call New.
type Provider struct {
	mu    sync.RWMutex
	newID idgen.Func
	data  map[string]map[string]graphdl.Record
	order map[string][]string
	edges map[edgeKey][]target
}

// Option configures a Provider.
type Option func(*Provider)

// WithIDFunc sets the id generator used when Create is called without an id.
func WithIDFunc(f idgen.Func) Option {
	return func(p *Provider) {
		p.newID = f
	}
}

// New returns an empty Provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		newID: idgen.UUID(),
		data:  make(map[string]map[string]graphdl.Record),
		order: make(map[string][]string),
		edges: make(map[edgeKey][]target),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get implements graphdl.Provider.
func (p *Provider) Get(_ context.Context, typ, id string) (graphdl.Record, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rec, ok := p.data[typ][id]
	if !ok {
		return nil, graphdl.NewNotFoundErrorWithID(typ, id)
	}
	return rec.Clone(), nil
}

// GetMany implements graphdl.BatchGetter.
func (p *Provider) GetMany(_ context.Context, typ string, ids []string) ([]graphdl.Record, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]graphdl.Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := p.data[typ][id]; ok {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

// all returns clones of every record of typ in insertion order.
// Callers must hold the read lock.
func (p *Provider) all(typ string) []graphdl.Record {
	ids := p.order[typ]
	out := make([]graphdl.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, p.data[typ][id].Clone())
	}
	return out
}

// List implements graphdl.Provider.
func (p *Provider) List(_ context.Context, typ string, opts graphdl.ListOptions) ([]graphdl.Record, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []graphdl.Record
	for _, id := range p.order[typ] {
		rec := p.data[typ][id]
		if dialect.Matches(rec, opts.Where) {
			out = append(out, rec.Clone())
		}
	}
	return dialect.Page(out, opts.Limit, opts.Offset), nil
}

// Search implements graphdl.Provider.
func (p *Provider) Search(_ context.Context, typ, query string, opts graphdl.SearchOptions) ([]graphdl.Record, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []graphdl.Record
	for _, id := range p.order[typ] {
		rec := p.data[typ][id]
		if dialect.ContainsText(rec, query, opts.Fields) {
			out = append(out, rec.Clone())
		}
	}
	return dialect.Page(out, opts.Limit, 0), nil
}

// SemanticSearch implements graphdl.SemanticSearcher.
func (p *Provider) SemanticSearch(_ context.Context, typ, query string, opts graphdl.SemanticSearchOptions) ([]graphdl.Record, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return dialect.Rank(p.all(typ), query, opts.MinScore, opts.Limit), nil
}

// Create implements graphdl.Provider.
func (p *Provider) Create(_ context.Context, typ, id string, data graphdl.Record) (graphdl.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if id == "" {
		id = p.newID()
	}
	if _, ok := p.data[typ][id]; ok {
		return nil, graphdl.NewMutationError(typ, "create", graphdl.NewConstraintError("duplicate id "+id, nil))
	}
	rec := data.Clone()
	rec[graphdl.KeyID] = id
	rec[graphdl.KeyType] = typ
	if p.data[typ] == nil {
		p.data[typ] = make(map[string]graphdl.Record)
	}
	p.data[typ][id] = rec
	p.order[typ] = append(p.order[typ], id)
	return rec.Clone(), nil
}

// Update implements graphdl.Provider.
func (p *Provider) Update(_ context.Context, typ, id string, patch graphdl.Record) (graphdl.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.data[typ][id]
	if !ok {
		return nil, graphdl.NewNotFoundErrorWithID(typ, id)
	}
	for k, v := range patch {
		if k == graphdl.KeyID || k == graphdl.KeyType {
			continue
		}
		rec[k] = v
	}
	return rec.Clone(), nil
}

// Delete implements graphdl.Provider.
func (p *Provider) Delete(_ context.Context, typ, id string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.data[typ][id]; !ok {
		return false, nil
	}
	delete(p.data[typ], id)
	p.order[typ] = slices.DeleteFunc(p.order[typ], func(s string) bool { return s == id })
	for k, ts := range p.edges {
		if k.typ == typ && k.id == id {
			delete(p.edges, k)
			continue
		}
		p.edges[k] = slices.DeleteFunc(ts, func(t target) bool { return t.typ == typ && t.id == id })
	}
	return true, nil
}

// Relate implements graphdl.Provider.
func (p *Provider) Relate(_ context.Context, rel graphdl.Relation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	k := edgeKey{rel.FromType, rel.FromID, rel.Field}
	for _, t := range p.edges[k] {
		if t.typ == rel.ToType && t.id == rel.ToID {
			return nil
		}
	}
	p.edges[k] = append(p.edges[k], target{typ: rel.ToType, id: rel.ToID, meta: maps.Clone(rel.Meta)})
	return nil
}

// Related implements graphdl.Provider. Edges pointing at deleted records are
// skipped.
func (p *Provider) Related(_ context.Context, typ, id, field string) ([]graphdl.Record, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []graphdl.Record
	for _, t := range p.edges[edgeKey{typ, id, field}] {
		if rec, ok := p.data[t.typ][t.id]; ok {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

// Edges returns the relations stored for (typ, id, field).
func (p *Provider) Edges(typ, id, field string) []graphdl.Relation {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []graphdl.Relation
	for _, t := range p.edges[edgeKey{typ, id, field}] {
		out = append(out, graphdl.Relation{FromType: typ, FromID: id, Field: field, ToType: t.typ, ToID: t.id, Meta: maps.Clone(t.meta)})
	}
	return out
}

// Count returns the number of records of typ.
func (p *Provider) Count(typ string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.data[typ])
}

var (
	_ graphdl.Provider         = (*Provider)(nil)
	_ graphdl.SemanticSearcher = (*Provider)(nil)
	_ graphdl.BatchGetter      = (*Provider)(nil)
)
