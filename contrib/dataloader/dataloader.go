// Package dataloader provides batch loading of records by id.
//
// Providers implementing [graphdl.BatchGetter] are asked for all ids in one
// call; other providers are queried per id with bounded concurrency. Results
// always follow the order of the requested ids:
//
//	recs, errs := dataloader.New(provider).LoadMany(ctx, "Tag", ids)
//	for i, err := range errs {
//	    if errors.Is(err, graphdl.ErrNotFound) {
//	        // ids[i] is dangling
//	    }
//	}
package dataloader

import (
	"context"

	"github.com/syssam/graphdl"

	"golang.org/x/sync/errgroup"
)

// KeyFunc extracts a key from an entity.
type KeyFunc[K comparable, V any] func(V) K

// OrderByKeys reorders entities to match the order of requested keys.
// Missing entities are represented as zero values with corresponding errors.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V], missing func(K) error) ([]V, []error) {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}
	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = missing(key)
		}
	}
	return result, errs
}

// GroupByKey groups entities by a key function.
// Useful for one-to-many relationships where multiple entities share the same foreign key.
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// Loader loads records of a Provider in batches.
type Loader struct {
	p     graphdl.Provider
	limit int
}

// Option configures a Loader.
type Option func(*Loader)

// WithConcurrency bounds the number of concurrent Get calls used when the
// provider cannot batch. Default is 8.
func WithConcurrency(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.limit = n
		}
	}
}

// New returns a Loader for p.
func New(p graphdl.Provider, opts ...Option) *Loader {
	l := &Loader{p: p, limit: 8}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadMany returns the records for ids in request order. errs[i] is non-nil
// when ids[i] could not be loaded; a missing record yields an error matching
// graphdl.ErrNotFound. The returned error reports a failure of the whole batch.
func (l *Loader) LoadMany(ctx context.Context, typ string, ids []string) ([]graphdl.Record, []error, error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}
	missing := func(id string) error {
		return graphdl.NewNotFoundErrorWithID(typ, id)
	}
	if bg, ok := l.p.(graphdl.BatchGetter); ok {
		recs, err := bg.GetMany(ctx, typ, ids)
		if err != nil {
			return nil, nil, err
		}
		out, errs := OrderByKeys(ids, recs, graphdl.Record.ID, missing)
		return out, errs, nil
	}
	out := make([]graphdl.Record, len(ids))
	errs := make([]error, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.limit)
	for i, id := range ids {
		g.Go(func() error {
			rec, err := l.p.Get(ctx, typ, id)
			switch {
			case err == nil:
				out[i] = rec
			case graphdl.IsNotFound(err):
				errs[i] = err
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return out, errs, nil
}

// Found returns the loaded records, skipping the ids that failed.
func Found(recs []graphdl.Record, errs []error) []graphdl.Record {
	out := make([]graphdl.Record, 0, len(recs))
	for i, r := range recs {
		if errs[i] == nil && r != nil {
			out = append(out, r)
		}
	}
	return out
}
