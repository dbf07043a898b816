package graph

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/syssam/graphdl"
	"github.com/syssam/graphdl/compiler"
	"github.com/syssam/graphdl/generate"
	"github.com/syssam/graphdl/schema/edge"
	"github.com/syssam/graphdl/schema/field"

	"github.com/go-openapi/inflect"
)

// Phase is the materialization phase of an entity.
type Phase string

// Phases of a draft.
const (
	PhaseDraft     Phase = "draft"
	PhaseResolving Phase = "resolving"
	PhaseResolved  Phase = "resolved"
)

// ReferenceSpec is a placeholder for one unresolved relation target.
type ReferenceSpec struct {
	Field         string
	Operator      edge.Operator
	TargetType    string
	UnionTypes    []string
	MatchMode     edge.MatchMode
	Prompt        string
	GeneratedText string
	Threshold     *float64
	Resolved      bool
	// Set by Resolve.
	ID          string
	MatchedType string
}

// RefSet holds the placeholders of one relation field: one spec for a single
// relation, one per element for an array.
type RefSet struct {
	Array bool
	Specs []*ReferenceSpec
}

// Draft is a preview of an entity: scalar values filled in and relation
// fields described by placeholders. A Draft is resolved at most once.
type Draft struct {
	Type string
	ID   string // Pre-allocated id
	Data graphdl.Record
	Refs map[string]*RefSet

	phase atomic.Value
}

// Phase returns the current phase.
func (d *Draft) Phase() Phase {
	p, _ := d.phase.Load().(Phase)
	return p
}

// OnError selects how Resolve handles per-field failures.
type OnError int

const (
	// OnErrorThrow aborts on the first failing field.
	OnErrorThrow OnError = iota
	// OnErrorSkip collects failures in Resolved.Errors and continues.
	OnErrorSkip
)

// ResolveOptions configures Resolve.
type ResolveOptions struct {
	OnError OnError
}

// Resolved is a draft whose placeholders were replaced by entity ids. It is
// not persisted; see Engine.Commit.
type Resolved struct {
	Type   string
	ID     string
	Data   graphdl.Record
	Errors []*FieldError
}

// Phase returns PhaseResolved.
func (*Resolved) Phase() Phase { return PhaseResolved }

// Err joins the errors of the fields skipped during resolution, or returns
// nil when every field resolved.
func (r *Resolved) Err() error {
	errs := make([]error, len(r.Errors))
	for i, fe := range r.Errors {
		errs[i] = fe
	}
	return graphdl.NewAggregateError(errs...)
}

// Pipeline drafts entities and resolves drafts.
type Pipeline struct {
	schema  *compiler.Schema
	cfg     *Config
	cascade *Cascade
	matcher *Matcher
}

// NewPipeline returns a Pipeline creating entities through c and m.
func NewPipeline(s *compiler.Schema, cfg *Config, c *Cascade, m *Matcher) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Pipeline{schema: s, cfg: cfg, cascade: c, matcher: m}
}

// Draft previews an entity of typ. Unset forward relations get one
// placeholder per hint, or a description derived from the field; unset
// prompt fields whose $context dependencies are set get a value from a
// synchronous generator.
func (pl *Pipeline) Draft(ctx context.Context, typ string, data graphdl.Record) (*Draft, error) {
	e, err := pl.cascade.entity(typ)
	if err != nil {
		return nil, err
	}
	d := &Draft{Type: typ, Data: data.Clone(), Refs: make(map[string]*RefSet)}
	d.ID = d.Data.ID()
	if d.ID == "" {
		d.ID = pl.cfg.IDFunc()
	}
	delete(d.Data, graphdl.KeyID)
	delete(d.Data, graphdl.KeyType)
	gen := pl.cascade.gen
	if !gen.SupportsSync() {
		gen = generate.NewPlaceholder()
	}
	ready := contextReady(e, d.Data)
	for _, f := range e.Fields() {
		if d.Data.Has(f.Name) {
			continue
		}
		if f.Relation {
			if f.Direction() != edge.Forward {
				continue
			}
			hints := takeHints(d.Data, f.Name)
			if f.Optional && len(hints) == 0 && f.Prompt == "" {
				continue
			}
			d.Refs[f.Name] = pl.refs(e, f, hints)
			continue
		}
		if !f.IsPromptField() || !ready {
			continue
		}
		v, err := gen.Generate(ctx, graphdl.GenerateRequest{
			FieldName:   f.Name,
			Type:        f.Type,
			FullContext: describe(e, genContext{instructions: instructionsOf(e)}, d.Data),
			Hint:        f.Prompt,
			ParentData:  d.Data.Data(),
		})
		if err != nil {
			return nil, fmt.Errorf("drafting %s.%s: %w", typ, f.Name, err)
		}
		d.Data[f.Name] = v.Value
	}
	d.phase.Store(PhaseDraft)
	return d, nil
}

func instructionsOf(e *compiler.Entity) []string {
	if e.Meta.Instructions == "" {
		return nil
	}
	return []string{e.Meta.Instructions}
}

func (pl *Pipeline) refs(e *compiler.Entity, f *field.Descriptor, hints []string) *RefSet {
	texts := hints
	switch {
	case len(texts) == 0:
		texts = []string{describeRef(e, f)}
	case !f.Array:
		texts = []string{strings.Join(hints, " ")}
	}
	op := f.Operator
	if op == "" {
		op = edge.ForwardExact
	}
	set := &RefSet{Array: f.Array}
	for _, text := range texts {
		set.Specs = append(set.Specs, &ReferenceSpec{
			Field:         f.Name,
			Operator:      op,
			TargetType:    f.Targets()[0],
			UnionTypes:    f.Union,
			MatchMode:     op.MatchMode(),
			Prompt:        f.Prompt,
			GeneratedText: text,
			Threshold:     f.Threshold,
		})
	}
	return set
}

// describeRef derives a natural-language placeholder for a relation.
func describeRef(e *compiler.Entity, f *field.Descriptor) string {
	subject := inflect.Humanize(inflect.Underscore(f.Name))
	owner := strings.ToLower(inflect.Humanize(inflect.Underscore(e.Name)))
	if f.Prompt != "" {
		return fmt.Sprintf("%s of the %s: %s", subject, owner, strings.TrimSpace(f.Prompt))
	}
	return fmt.Sprintf("%s of the %s (%s)", subject, owner, strings.Join(f.Targets(), " or "))
}

// Resolve replaces every placeholder of d with an entity id: fuzzy specs
// reuse the best existing match above Config.DraftThreshold, everything else
// is created together with its own required relations. Resolve consumes the
// draft; a second call fails with graphdl.ErrNotDraft.
func (pl *Pipeline) Resolve(ctx context.Context, p graphdl.Provider, d *Draft, opts ResolveOptions) (*Resolved, error) {
	if d == nil || !d.phase.CompareAndSwap(PhaseDraft, PhaseResolving) {
		return nil, graphdl.ErrNotDraft
	}
	e, err := pl.cascade.entity(d.Type)
	if err != nil {
		return nil, err
	}
	r := &Resolved{Type: d.Type, ID: d.ID, Data: d.Data.Clone()}
	parent := Parent{Type: d.Type, ID: d.ID, Data: d.Data.Data()}
	for _, f := range e.Fields() {
		set, ok := d.Refs[f.Name]
		if !ok {
			continue
		}
		ids, types, err := pl.resolveSet(ctx, p, parent, f, set)
		if err != nil {
			if opts.OnError == OnErrorSkip {
				pl.cfg.Logger.WarnContext(ctx, "skipping unresolved field", "entity", d.Type, "field", f.Name, "error", err)
				r.Errors = append(r.Errors, &FieldError{Field: f.Name, Err: err})
				continue
			}
			return nil, &FieldError{Field: f.Name, Err: err}
		}
		if set.Array {
			r.Data[f.Name] = ids
			if f.IsUnion() {
				r.Data[graphdl.FieldKey(f.Name, graphdl.SuffixMatchedType)] = types
			}
			continue
		}
		r.Data[f.Name] = ids[0]
		if f.IsUnion() {
			r.Data[graphdl.FieldKey(f.Name, graphdl.SuffixMatchedType)] = types[0]
		}
	}
	d.phase.Store(PhaseResolved)
	return r, nil
}

func (pl *Pipeline) resolveSet(ctx context.Context, p graphdl.Provider, parent Parent, f *field.Descriptor, set *RefSet) ([]string, []string, error) {
	var excl *Exclusion
	if set.Array {
		excl = NewExclusion()
	}
	ids := make([]string, 0, len(set.Specs))
	types := make([]string, 0, len(set.Specs))
	for _, spec := range set.Specs {
		id, typ, err := pl.resolveSpec(ctx, p, parent, f, spec, excl)
		if err != nil {
			return nil, nil, err
		}
		spec.ID, spec.MatchedType, spec.Resolved = id, typ, true
		ids = append(ids, id)
		types = append(types, typ)
	}
	return ids, types, nil
}

func (pl *Pipeline) resolveSpec(ctx context.Context, p graphdl.Provider, parent Parent, f *field.Descriptor, spec *ReferenceSpec, excl *Exclusion) (string, string, error) {
	targets := spec.UnionTypes
	if len(targets) == 0 {
		targets = []string{spec.TargetType}
	}
	if spec.MatchMode == edge.Fuzzy {
		best, err := pl.matcher.FindBestMatchAcrossTypes(ctx, p, targets, spec.GeneratedText, MatchOptions{
			Threshold: pl.cfg.DraftThreshold,
			Limit:     1,
			Exclude:   excl,
		})
		if err != nil {
			return "", "", err
		}
		if best != nil {
			return best.Record.ID(), best.Type, nil
		}
	}
	target, ok := pl.cascade.target(f)
	if !ok {
		return "", "", fmt.Errorf("no declared entity type among %v", targets)
	}
	rec, err := pl.cascade.generateChild(ctx, p, childSpec{
		parent: parent,
		field:  f,
		target: target,
		prompt: spec.GeneratedText,
		depth:  1,
		by:     "draft",
	})
	if err != nil {
		return "", "", err
	}
	if excl != nil {
		excl.Claim(target, rec.ID())
	}
	return rec.ID(), target, nil
}
