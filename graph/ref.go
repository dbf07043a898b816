package graph

import (
	"context"
	"slices"

	"github.com/syssam/graphdl"
)

// LazyRef is a single relation resolved on demand. RawID is the stored id,
// empty when the relation is edge-based or held by the other side.
type LazyRef struct {
	id      string
	resolve func(context.Context) (*Node, error)
}

// RawID returns the stored id.
func (r *LazyRef) RawID() string {
	return r.id
}

// Resolve fetches and hydrates the related entity. It returns nil without
// error when the relation is unset.
func (r *LazyRef) Resolve(ctx context.Context) (*Node, error) {
	if r.resolve == nil {
		return nil, nil
	}
	return r.resolve(ctx)
}

// LazyRefs is an array relation resolved on demand.
type LazyRefs struct {
	ids     []string
	resolve func(context.Context) ([]*Node, error)
}

// RawIDs returns a copy of the stored ids.
func (r *LazyRefs) RawIDs() []string {
	return slices.Clone(r.ids)
}

// Resolve fetches and hydrates the related entities in stored order. Ids
// that no longer exist are skipped.
func (r *LazyRefs) Resolve(ctx context.Context) ([]*Node, error) {
	if r.resolve == nil {
		return nil, nil
	}
	return r.resolve(ctx)
}

// Node is a hydrated entity: its stored record plus a lazy reference for
// every relation field. Hydration is not cached; every read builds new nodes.
type Node struct {
	Type   string
	ID     string
	Record graphdl.Record

	refs   map[string]*LazyRef
	arrays map[string]*LazyRefs
}

// Get returns the stored value of a field.
func (n *Node) Get(field string) any {
	return n.Record[field]
}

// Ref returns the reference of a single relation field.
func (n *Node) Ref(field string) (*LazyRef, bool) {
	r, ok := n.refs[field]
	return r, ok
}

// Refs returns the references of an array relation field.
func (n *Node) Refs(field string) (*LazyRefs, bool) {
	r, ok := n.arrays[field]
	return r, ok
}

// Data returns the stored fields without bookkeeping keys.
func (n *Node) Data() graphdl.Record {
	return n.Record.Data()
}
