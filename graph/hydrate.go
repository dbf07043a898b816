package graph

import (
	"context"
	"slices"
	"strings"

	"github.com/syssam/graphdl"
	"github.com/syssam/graphdl/compiler"
	"github.com/syssam/graphdl/contrib/dataloader"
	"github.com/syssam/graphdl/schema/edge"
	"github.com/syssam/graphdl/schema/field"

	"github.com/go-openapi/inflect"
	"github.com/samber/lo"
)

// Hydrator wraps stored records with lazy relation references.
type Hydrator struct {
	schema *compiler.Schema
	p      graphdl.Provider
	loader *dataloader.Loader
}

// NewHydrator returns a Hydrator reading from p.
func NewHydrator(s *compiler.Schema, p graphdl.Provider, cfg *Config) *Hydrator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Hydrator{
		schema: s,
		p:      p,
		loader: dataloader.New(p, dataloader.WithConcurrency(cfg.Concurrency)),
	}
}

// Hydrate wraps a stored record of typ.
func (h *Hydrator) Hydrate(typ string, rec graphdl.Record) (*Node, error) {
	e, ok := h.schema.Entity(typ)
	if !ok {
		return nil, graphdl.NewUnknownTypeError(typ)
	}
	n := &Node{
		Type:   typ,
		ID:     rec.ID(),
		Record: rec,
		refs:   make(map[string]*LazyRef),
		arrays: make(map[string]*LazyRefs),
	}
	for _, f := range e.Relations() {
		ids := graphdl.IDs(rec[f.Name])
		if f.Array {
			n.arrays[f.Name] = h.many(e, n, f, ids)
		} else {
			n.refs[f.Name] = h.one(e, n, f, ids)
		}
	}
	return n, nil
}

func (h *Hydrator) hydrateAll(recs []graphdl.Record, typ string) ([]*Node, error) {
	out := make([]*Node, 0, len(recs))
	for _, r := range recs {
		t := r.Type()
		if t == "" {
			t = typ
		}
		n, err := h.Hydrate(t, r)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (h *Hydrator) one(e *compiler.Entity, n *Node, f *field.Descriptor, ids []string) *LazyRef {
	ref := &LazyRef{}
	switch {
	case len(ids) > 0:
		ref.id = ids[0]
		order := probeOrder(n.Record.String(graphdl.FieldKey(f.Name, graphdl.SuffixMatchedType)), f.Targets())
		ref.resolve = func(ctx context.Context) (*Node, error) {
			return h.fetch(ctx, order, ref.id)
		}
	case f.Direction() == edge.Forward:
		ref.resolve = func(ctx context.Context) (*Node, error) {
			recs, err := h.p.Related(ctx, n.Type, n.ID, f.Name)
			if err != nil || len(recs) == 0 {
				return nil, err
			}
			nodes, err := h.hydrateAll(recs[:1], f.Targets()[0])
			if err != nil {
				return nil, err
			}
			return nodes[0], nil
		}
	default:
		ref.resolve = func(ctx context.Context) (*Node, error) {
			return h.scanBackward(ctx, e, n, f)
		}
	}
	return ref
}

func (h *Hydrator) many(e *compiler.Entity, n *Node, f *field.Descriptor, ids []string) *LazyRefs {
	refs := &LazyRefs{ids: ids}
	switch {
	case len(ids) > 0:
		hints := matchedTypes(n.Record[graphdl.FieldKey(f.Name, graphdl.SuffixMatchedType)], len(ids))
		refs.resolve = func(ctx context.Context) ([]*Node, error) {
			return h.fetchMany(ctx, f.Targets(), ids, hints)
		}
	case f.Direction() == edge.Forward:
		refs.resolve = func(ctx context.Context) ([]*Node, error) {
			recs, err := h.p.Related(ctx, n.Type, n.ID, f.Name)
			if err != nil {
				return nil, err
			}
			return h.hydrateAll(recs, f.Targets()[0])
		}
	default:
		refs.resolve = func(ctx context.Context) ([]*Node, error) {
			return h.listBackward(ctx, e, n, f)
		}
	}
	return refs
}

// probeOrder puts the recorded matched type ahead of the declared targets.
func probeOrder(hint string, targets []string) []string {
	if hint == "" {
		return targets
	}
	return append([]string{hint}, lo.Without(targets, hint)...)
}

// fetch returns the first type in order holding id.
func (h *Hydrator) fetch(ctx context.Context, order []string, id string) (*Node, error) {
	for _, t := range order {
		rec, err := h.p.Get(ctx, t, id)
		switch {
		case err == nil:
			return h.Hydrate(t, rec)
		case !graphdl.IsNotFound(err):
			return nil, err
		}
	}
	return nil, graphdl.NewNotFoundErrorWithID(strings.Join(order, "|"), id)
}

// fetchMany loads ids in batches, probing each id's candidate types round by
// round until it is found or the candidates are exhausted.
func (h *Hydrator) fetchMany(ctx context.Context, targets, ids, hints []string) ([]*Node, error) {
	found := make(map[string]*Node, len(ids))
	left := lo.Uniq(ids)
	orders := make(map[string][]string, len(ids))
	for i, id := range ids {
		if _, ok := orders[id]; !ok {
			orders[id] = probeOrder(hints[i], targets)
		}
	}
	for round := 0; len(left) > 0; round++ {
		probing := lo.Filter(left, func(id string, _ int) bool { return round < len(orders[id]) })
		groups := dataloader.GroupByKey(probing, func(id string) string { return orders[id][round] })
		if len(groups) == 0 {
			break
		}
		types := lo.Keys(groups)
		slices.Sort(types)
		var next []string
		for _, t := range types {
			gids := groups[t]
			recs, errs, err := h.loader.LoadMany(ctx, t, gids)
			if err != nil {
				return nil, err
			}
			for _, rec := range dataloader.Found(recs, errs) {
				n, err := h.Hydrate(t, rec)
				if err != nil {
					return nil, err
				}
				found[rec.ID()] = n
			}
			next = append(next, lo.Reject(gids, func(id string, _ int) bool {
				_, ok := found[id]
				return ok
			})...)
		}
		left = next
	}
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := found[id]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// scanBackward finds the entity whose forward relation points at n. There is
// no reverse index: every candidate record is checked.
func (h *Hydrator) scanBackward(ctx context.Context, e *compiler.Entity, n *Node, f *field.Descriptor) (*Node, error) {
	for _, t := range f.Targets() {
		te, ok := h.schema.Entity(t)
		if !ok {
			continue
		}
		fields := lo.Filter(te.Relations(), func(ff *field.Descriptor, _ int) bool {
			return ff.Direction() == edge.Forward && slices.Contains(ff.Targets(), e.Name)
		})
		if len(fields) == 0 {
			continue
		}
		cands, err := h.p.List(ctx, t, graphdl.ListOptions{})
		if err != nil {
			return nil, err
		}
		for _, c := range cands {
			for _, ff := range fields {
				ids := graphdl.IDs(c[ff.Name])
				if len(ids) == 0 {
					rel, err := h.p.Related(ctx, t, c.ID(), ff.Name)
					if err != nil {
						return nil, err
					}
					ids = lo.Map(rel, func(r graphdl.Record, _ int) string { return r.ID() })
				}
				if slices.Contains(ids, n.ID) {
					return h.Hydrate(t, c)
				}
			}
		}
	}
	return nil, nil
}

// listBackward lists the records of every candidate type whose backref field
// holds n's id.
func (h *Hydrator) listBackward(ctx context.Context, e *compiler.Entity, n *Node, f *field.Descriptor) ([]*Node, error) {
	var out []*Node
	for _, t := range f.Targets() {
		name := h.backrefName(e, f, t)
		recs, err := h.p.List(ctx, t, graphdl.ListOptions{Where: map[string]any{name: n.ID}})
		if err != nil {
			return nil, err
		}
		nodes, err := h.hydrateAll(recs, t)
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
	}
	return out, nil
}

// backrefName infers the field of t holding the reference to e: the declared
// backref, else the first forward field of t pointing at e, else e's name in
// lower camel case.
func (h *Hydrator) backrefName(e *compiler.Entity, f *field.Descriptor, t string) string {
	te, ok := h.schema.Entity(t)
	if ok {
		if _, has := te.Field(f.Backref); f.Backref != "" && has {
			return f.Backref
		}
		if ff, ok := te.ForwardFieldTo(e.Name); ok {
			return ff.Name
		}
	}
	return inflect.CamelizeDownFirst(e.Name)
}
