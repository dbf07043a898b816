package privacy

import (
	"context"
	"fmt"

	"github.com/syssam/graphdl"
	"github.com/syssam/graphdl/dialect"
)

// Provider enforces policies on every call before delegating to the wrapped
// provider. Entity types without a policy use the default policy; without
// either, calls are allowed.
type Provider struct {
	next     graphdl.Provider
	policies map[string]Policies
	fallback Policies
}

// Option configures a Provider.
type Option func(*Provider)

// WithPolicy adds policies for one entity type.
func WithPolicy(typ string, policies ...Policy) Option {
	return func(p *Provider) {
		p.policies[typ] = append(p.policies[typ], policies...)
	}
}

// WithDefaultPolicy sets the policies of entity types without their own.
func WithDefaultPolicy(policies ...Policy) Option {
	return func(p *Provider) {
		p.fallback = append(p.fallback, policies...)
	}
}

// NewProvider wraps next with the given policies.
func NewProvider(next graphdl.Provider, opts ...Option) *Provider {
	p := &Provider{next: next, policies: make(map[string]Policies)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) policy(typ string) Policies {
	if pol, ok := p.policies[typ]; ok {
		return pol
	}
	return p.fallback
}

func (p *Provider) query(ctx context.Context, op QueryOp, typ string) error {
	if err := p.policy(typ).EvalQuery(ctx, &Query{Op: op, Type: typ}); err != nil {
		return fmt.Errorf("%s %s: %w", op, typ, err)
	}
	return nil
}

func (p *Provider) mutate(ctx context.Context, m *Mutation) error {
	if err := p.policy(m.Type).EvalMutation(ctx, m); err != nil {
		return graphdl.NewMutationError(m.Type, m.Op.String(), err)
	}
	return nil
}

// current loads the stored record a mutation applies to.
func (p *Provider) current(ctx context.Context, typ, id string) (graphdl.Record, error) {
	rec, err := p.next.Get(ctx, typ, id)
	if graphdl.IsNotFound(err) {
		return nil, nil
	}
	return rec, err
}

// Get implements graphdl.Provider.
func (p *Provider) Get(ctx context.Context, typ, id string) (graphdl.Record, error) {
	if err := p.query(ctx, QueryGet, typ); err != nil {
		return nil, err
	}
	return p.next.Get(ctx, typ, id)
}

// GetMany implements graphdl.BatchGetter, loading one record at a time when
// the wrapped provider cannot batch.
func (p *Provider) GetMany(ctx context.Context, typ string, ids []string) ([]graphdl.Record, error) {
	if err := p.query(ctx, QueryGet, typ); err != nil {
		return nil, err
	}
	if bg, ok := p.next.(graphdl.BatchGetter); ok {
		return bg.GetMany(ctx, typ, ids)
	}
	out := make([]graphdl.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := p.next.Get(ctx, typ, id)
		switch {
		case graphdl.IsNotFound(err):
		case err != nil:
			return nil, err
		default:
			out = append(out, rec)
		}
	}
	return out, nil
}

// List implements graphdl.Provider.
func (p *Provider) List(ctx context.Context, typ string, opts graphdl.ListOptions) ([]graphdl.Record, error) {
	if err := p.query(ctx, QueryList, typ); err != nil {
		return nil, err
	}
	return p.next.List(ctx, typ, opts)
}

// Search implements graphdl.Provider.
func (p *Provider) Search(ctx context.Context, typ, query string, opts graphdl.SearchOptions) ([]graphdl.Record, error) {
	if err := p.query(ctx, QuerySearch, typ); err != nil {
		return nil, err
	}
	return p.next.Search(ctx, typ, query, opts)
}

// SemanticSearch implements graphdl.SemanticSearcher. Without a wrapped
// searcher, every record of typ is ranked in memory.
func (p *Provider) SemanticSearch(ctx context.Context, typ, query string, opts graphdl.SemanticSearchOptions) ([]graphdl.Record, error) {
	if err := p.query(ctx, QuerySearch, typ); err != nil {
		return nil, err
	}
	if s, ok := graphdl.SupportsSemanticSearch(p.next); ok {
		return s.SemanticSearch(ctx, typ, query, opts)
	}
	recs, err := p.next.List(ctx, typ, graphdl.ListOptions{})
	if err != nil {
		return nil, err
	}
	return dialect.Rank(recs, query, opts.MinScore, opts.Limit), nil
}

// Related implements graphdl.Provider.
func (p *Provider) Related(ctx context.Context, typ, id, field string) ([]graphdl.Record, error) {
	if err := p.query(ctx, QueryRelated, typ); err != nil {
		return nil, err
	}
	return p.next.Related(ctx, typ, id, field)
}

// Create implements graphdl.Provider.
func (p *Provider) Create(ctx context.Context, typ, id string, data graphdl.Record) (graphdl.Record, error) {
	if err := p.mutate(ctx, &Mutation{Op: OpCreate, Type: typ, ID: id, Data: data}); err != nil {
		return nil, err
	}
	return p.next.Create(ctx, typ, id, data)
}

// Update implements graphdl.Provider.
func (p *Provider) Update(ctx context.Context, typ, id string, patch graphdl.Record) (graphdl.Record, error) {
	cur, err := p.current(ctx, typ, id)
	if err != nil {
		return nil, err
	}
	if err := p.mutate(ctx, &Mutation{Op: OpUpdate, Type: typ, ID: id, Data: patch, Current: cur}); err != nil {
		return nil, err
	}
	return p.next.Update(ctx, typ, id, patch)
}

// Delete implements graphdl.Provider.
func (p *Provider) Delete(ctx context.Context, typ, id string) (bool, error) {
	cur, err := p.current(ctx, typ, id)
	if err != nil {
		return false, err
	}
	if err := p.mutate(ctx, &Mutation{Op: OpDelete, Type: typ, ID: id, Current: cur}); err != nil {
		return false, err
	}
	return p.next.Delete(ctx, typ, id)
}

// Relate implements graphdl.Provider. The policy of the source type decides.
func (p *Provider) Relate(ctx context.Context, rel graphdl.Relation) error {
	if err := p.mutate(ctx, &Mutation{Op: OpRelate, Type: rel.FromType, ID: rel.FromID, Relation: &rel}); err != nil {
		return err
	}
	return p.next.Relate(ctx, rel)
}

var (
	_ graphdl.Provider         = (*Provider)(nil)
	_ graphdl.SemanticSearcher = (*Provider)(nil)
	_ graphdl.BatchGetter      = (*Provider)(nil)
)
