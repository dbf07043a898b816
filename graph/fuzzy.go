package graph

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/syssam/graphdl"
	"github.com/syssam/graphdl/compiler"
	"github.com/syssam/graphdl/schema/edge"
	"github.com/syssam/graphdl/schema/field"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// HintSuffix names the field carrying search hints for a fuzzy relation,
// e.g. "categoryHint" for "category". Hint fields are consumed on create.
const HintSuffix = "Hint"

// Match is an existing entity found by similarity search.
type Match struct {
	Record graphdl.Record
	Type   string
	Score  float64
}

// MatchOptions configures FindBestMatchAcrossTypes.
type MatchOptions struct {
	Threshold float64
	Limit     int        // Candidates fetched per type; Config.SearchLimit when zero
	Exclude   *Exclusion // Entities that may not be returned, claimed on match
}

// Exclusion is the set of entities already used by the items of one array
// field. It is safe for concurrent use.
type Exclusion struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewExclusion returns an empty Exclusion.
func NewExclusion() *Exclusion {
	return &Exclusion{seen: make(map[string]struct{})}
}

// Claim marks (typ, id) as used. It reports false if it already was.
func (x *Exclusion) Claim(typ, id string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	k := typ + "\x00" + id
	if _, ok := x.seen[k]; ok {
		return false
	}
	x.seen[k] = struct{}{}
	return true
}

// Claimed reports whether (typ, id) is used.
func (x *Exclusion) Claimed(typ, id string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, ok := x.seen[typ+"\x00"+id]
	return ok
}

// Matcher resolves fuzzy relation fields by similarity search. Forward fields
// fall back to generation on a miss; backward fields never generate.
type Matcher struct {
	schema  *compiler.Schema
	cfg     *Config
	cascade *Cascade
}

// NewMatcher returns a Matcher generating misses through c.
func NewMatcher(s *compiler.Schema, cfg *Config, c *Cascade) *Matcher {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Matcher{schema: s, cfg: cfg, cascade: c}
}

// FindBestMatchAcrossTypes searches every candidate type and returns the
// single highest-scoring record clearing the threshold and not excluded, or
// nil. With an Exclusion the returned match is claimed atomically. Providers
// without semantic search never match.
func (m *Matcher) FindBestMatchAcrossTypes(ctx context.Context, p graphdl.Provider, types []string, query string, opts MatchOptions) (*Match, error) {
	ss, ok := graphdl.SupportsSemanticSearch(p)
	if !ok || query == "" || len(types) == 0 {
		return nil, nil
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = m.cfg.SearchLimit
	}
	results := make([][]graphdl.Record, len(types))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Concurrency)
	for i, t := range types {
		g.Go(func() error {
			recs, err := ss.SemanticSearch(gctx, t, query, graphdl.SemanticSearchOptions{MinScore: opts.Threshold, Limit: limit})
			if err != nil {
				return graphdl.NewQueryError(t, "semantic search", err)
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var cands []Match
	for i, recs := range results {
		for _, r := range recs {
			if s := r.Score(); s >= opts.Threshold && r.ID() != "" {
				cands = append(cands, Match{Record: r, Type: types[i], Score: s})
			}
		}
	}
	slices.SortStableFunc(cands, func(a, b Match) int { return cmp.Compare(b.Score, a.Score) })
	for _, c := range cands {
		if opts.Exclude != nil && !opts.Exclude.Claim(c.Type, c.Record.ID()) {
			continue
		}
		return &c, nil
	}
	return nil, nil
}

// threshold returns the similarity cutoff of a fuzzy field: its own, else
// the entity's $fuzzyThreshold, else the configured default.
func (m *Matcher) threshold(e *compiler.Entity, f *field.Descriptor) float64 {
	switch {
	case f.Threshold != nil:
		return *f.Threshold
	case e.Meta.FuzzyThreshold != nil:
		return *e.Meta.FuzzyThreshold
	}
	return m.cfg.FuzzyThreshold
}

// takeHints removes and returns the <field>Hint values of data.
func takeHints(data graphdl.Record, name string) []string {
	k := name + HintSuffix
	v, ok := data[k]
	if !ok {
		return nil
	}
	delete(data, k)
	return lo.Filter(graphdl.IDs(v), func(s string, _ int) bool { return strings.TrimSpace(s) != "" })
}

type fuzzyResult struct {
	id      string
	typ     string
	score   float64
	matched bool
}

func (r fuzzyResult) meta() map[string]any {
	if !r.matched {
		return map[string]any{graphdl.KeyGenerated: true}
	}
	return map[string]any{
		graphdl.KeyGenerated:   false,
		graphdl.KeyMatchedType: r.typ,
		graphdl.KeySimilarity:  r.score,
	}
}

// resolveForwardFuzzy resolves the forward-fuzzy relations of a record about
// to be stored under id. Each query reuses the best existing match above the
// threshold or generates a new entity; array items never share a match.
func (m *Matcher) resolveForwardFuzzy(ctx context.Context, p graphdl.Provider, typ, id string, data graphdl.Record, depth int) ([]Edge, error) {
	e, err := m.cascade.entity(typ)
	if err != nil {
		return nil, err
	}
	var edges []Edge
	for _, f := range e.Relations() {
		if !f.Is(edge.ForwardFuzzy) {
			continue
		}
		hints := takeHints(data, f.Name)
		if data.Has(f.Name) {
			fe, err := m.cascade.materialize(ctx, p, e, id, data, f, depth)
			if err != nil {
				return nil, err
			}
			edges = append(edges, fe...)
			continue
		}
		if len(hints) == 0 && f.Optional {
			continue
		}
		queries := hints
		switch {
		case len(queries) == 0 && f.Prompt != "":
			queries = []string{f.Prompt}
		case len(queries) == 0:
			queries = []string{f.Name}
		case !f.Array:
			queries = []string{strings.Join(hints, " ")}
		}
		var excl *Exclusion
		if f.Array {
			excl = NewExclusion()
		}
		parent := Parent{Type: typ, ID: id, Data: data.Data()}
		threshold := m.threshold(e, f)
		results := make([]fuzzyResult, len(queries))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(m.cfg.Concurrency)
		for i, q := range queries {
			g.Go(func() error {
				r, err := m.resolveOne(gctx, p, parent, f, q, threshold, excl, depth)
				results[i] = r
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("resolving %s.%s: %w", typ, f.Name, err)
		}
		results = lo.Filter(results, func(r fuzzyResult, _ int) bool { return r.id != "" })
		if len(results) == 0 {
			continue
		}
		for _, r := range results {
			edges = append(edges, Edge{Field: f.Name, ToType: r.typ, ToID: r.id, Meta: r.meta()})
		}
		if f.Array {
			data[f.Name] = lo.Map(results, func(r fuzzyResult, _ int) string { return r.id })
			data[graphdl.FieldKey(f.Name, graphdl.SuffixMatched)] = lo.Map(results, func(r fuzzyResult, _ int) bool { return r.matched })
			data[graphdl.FieldKey(f.Name, graphdl.SuffixMatchedType)] = lo.Map(results, func(r fuzzyResult, _ int) string { return r.typ })
			data[graphdl.FieldKey(f.Name, graphdl.SuffixScore)] = lo.Map(results, func(r fuzzyResult, _ int) float64 { return r.score })
			continue
		}
		r := results[0]
		data[f.Name] = r.id
		data[graphdl.FieldKey(f.Name, graphdl.SuffixMatched)] = r.matched
		data[graphdl.FieldKey(f.Name, graphdl.SuffixMatchedType)] = r.typ
		if r.matched {
			data[graphdl.FieldKey(f.Name, graphdl.SuffixScore)] = r.score
		} else {
			data[graphdl.FieldKey(f.Name, graphdl.SuffixGenerated)] = true
		}
	}
	return edges, nil
}

// resolveOne matches or generates the entity for one query.
func (m *Matcher) resolveOne(ctx context.Context, p graphdl.Provider, parent Parent, f *field.Descriptor, query string, threshold float64, excl *Exclusion, depth int) (fuzzyResult, error) {
	best, err := m.FindBestMatchAcrossTypes(ctx, p, f.Targets(), query, MatchOptions{Threshold: threshold, Exclude: excl})
	if err != nil {
		return fuzzyResult{}, err
	}
	if best != nil {
		m.cfg.Logger.DebugContext(ctx, "matched existing entity",
			"entity", best.Type, "id", best.Record.ID(), "parent", parent.Type, "field", f.Name, "score", best.Score)
		return fuzzyResult{id: best.Record.ID(), typ: best.Type, score: best.Score, matched: true}, nil
	}
	target, ok := m.cascade.target(f)
	if !ok {
		m.cfg.Logger.WarnContext(ctx, "no match and no declared target to generate", "entity", parent.Type, "field", f.Name, "targets", f.Targets())
		return fuzzyResult{}, nil
	}
	if !m.cascade.canDescend(ctx, parent.Type, f, depth) {
		return fuzzyResult{}, nil
	}
	// The new id is claimed before the child is stored so sibling items
	// searching concurrently cannot match it.
	id := m.cfg.IDFunc()
	if excl != nil {
		excl.Claim(target, id)
	}
	rec, err := m.cascade.generateChild(ctx, p, childSpec{id: id, parent: parent, field: f, target: target, prompt: query, depth: depth + 1, by: "fuzzy"})
	if err != nil {
		return fuzzyResult{}, err
	}
	return fuzzyResult{id: rec.ID(), typ: target}, nil
}

// resolveBackwardFuzzy grounds the backward-fuzzy relations of data on
// existing entities. The query is the field's hints, else its prompt, else,
// for required fields, the entity's own string values. A miss leaves the
// field unset; nothing is generated.
func (m *Matcher) resolveBackwardFuzzy(ctx context.Context, p graphdl.Provider, typ string, data graphdl.Record) error {
	e, err := m.cascade.entity(typ)
	if err != nil {
		return err
	}
	ss, searchable := graphdl.SupportsSemanticSearch(p)
	for _, f := range e.Relations() {
		if !f.Is(edge.BackwardFuzzy) {
			continue
		}
		hints := takeHints(data, f.Name)
		if data.Has(f.Name) || !searchable {
			continue
		}
		query := strings.Join(hints, " ")
		if query == "" {
			query = f.Prompt
		}
		fallback := false
		if query == "" && !f.Optional {
			query = ownText(e, data)
			fallback = query != ""
		}
		if query == "" {
			continue
		}
		targets := f.Targets()
		if f.Array {
			err = m.groundMany(ctx, ss, f, targets, query, m.threshold(e, f), data)
		} else {
			err = m.groundOne(ctx, ss, f, targets, query, m.threshold(e, f), data)
		}
		if err != nil {
			return fmt.Errorf("grounding %s.%s: %w", typ, f.Name, err)
		}
		if fallback {
			data[graphdl.FieldKey(f.Name, graphdl.SuffixFallbackUsed)] = true
		}
		if len(targets) > 1 {
			data[graphdl.FieldKey(f.Name, graphdl.SuffixSearchedTypes)] = slices.Clone(targets)
		}
	}
	return nil
}

// groundOne searches the candidate types in order and stops at the first
// qualifying match.
func (m *Matcher) groundOne(ctx context.Context, ss graphdl.SemanticSearcher, f *field.Descriptor, targets []string, query string, threshold float64, data graphdl.Record) error {
	for _, t := range targets {
		recs, err := ss.SemanticSearch(ctx, t, query, graphdl.SemanticSearchOptions{MinScore: threshold, Limit: 1})
		if err != nil {
			return graphdl.NewQueryError(t, "semantic search", err)
		}
		if len(recs) == 0 || recs[0].Score() < threshold {
			continue
		}
		data[f.Name] = recs[0].ID()
		data[graphdl.FieldKey(f.Name, graphdl.SuffixScore)] = recs[0].Score()
		data[graphdl.FieldKey(f.Name, graphdl.SuffixMatchedType)] = t
		m.cfg.Logger.DebugContext(ctx, "grounded backward relation", "field", f.Name, "entity", t, "id", recs[0].ID())
		return nil
	}
	return nil
}

// groundMany searches every candidate type in parallel and keeps the best
// matches across all of them.
func (m *Matcher) groundMany(ctx context.Context, ss graphdl.SemanticSearcher, f *field.Descriptor, targets []string, query string, threshold float64, data graphdl.Record) error {
	results := make([][]Match, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Concurrency)
	for i, t := range targets {
		g.Go(func() error {
			recs, err := ss.SemanticSearch(gctx, t, query, graphdl.SemanticSearchOptions{MinScore: threshold, Limit: m.cfg.SearchLimit})
			if err != nil {
				return graphdl.NewQueryError(t, "semantic search", err)
			}
			for _, r := range recs {
				if r.Score() >= threshold {
					results[i] = append(results[i], Match{Record: r, Type: t, Score: r.Score()})
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	all := lo.Flatten(results)
	if len(all) == 0 {
		return nil
	}
	slices.SortStableFunc(all, func(a, b Match) int { return cmp.Compare(b.Score, a.Score) })
	if len(all) > m.cfg.SearchLimit {
		all = all[:m.cfg.SearchLimit]
	}
	data[f.Name] = lo.Map(all, func(x Match, _ int) string { return x.Record.ID() })
	data[graphdl.FieldKey(f.Name, graphdl.SuffixScore)] = lo.Map(all, func(x Match, _ int) float64 { return x.Score })
	data[graphdl.FieldKey(f.Name, graphdl.SuffixMatchedType)] = lo.Map(all, func(x Match, _ int) string { return x.Type })
	return nil
}

// ownText joins the entity's own string scalar values.
func ownText(e *compiler.Entity, data graphdl.Record) string {
	var parts []string
	for _, f := range e.Scalars() {
		if s := strings.TrimSpace(data.String(f.Name)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
