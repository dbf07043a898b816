package graph_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/syssam/graphdl"
	"github.com/syssam/graphdl/compiler"
	"github.com/syssam/graphdl/compiler/load"
	"github.com/syssam/graphdl/dialect/memory"
	"github.com/syssam/graphdl/graph"
	"github.com/syssam/graphdl/schema/edge"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraftResolveCommit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e, p := newEngine(t, load.New().
		Entity("Post").Fields(
			"title", "string",
			"summary", "Summarize the post in one sentence",
			"author", "->Author",
			"tags", "~>Tag[]",
		).
		Entity("Author").Field("name", "string").
		Entity("Tag").Field("name", "string"))

	golang, err := p.Create(ctx, "Tag", "", graphdl.Record{"name": "golang"})
	require.NoError(t, err)

	d, err := e.Draft(ctx, "Post", graphdl.Record{
		"title":    "Graphs in Go",
		"tagsHint": []string{"golang", "databases"},
	})
	require.NoError(t, err)
	assert.Equal(t, graph.PhaseDraft, d.Phase())
	assert.NotEmpty(t, d.ID)
	assert.NotEmpty(t, d.Data["summary"])
	assert.NotContains(t, d.Data, "tagsHint")
	assert.Zero(t, p.Count("Author"), "drafting must not create entities")

	author := d.Refs["author"]
	require.NotNil(t, author)
	require.Len(t, author.Specs, 1)
	assert.False(t, author.Array)
	assert.Equal(t, "Author of the post (Author)", author.Specs[0].GeneratedText)
	assert.Equal(t, edge.Exact, author.Specs[0].MatchMode)

	tags := d.Refs["tags"]
	require.NotNil(t, tags)
	require.Len(t, tags.Specs, 2)
	assert.True(t, tags.Array)
	assert.Equal(t, "golang", tags.Specs[0].GeneratedText)
	assert.Equal(t, "databases", tags.Specs[1].GeneratedText)
	assert.Equal(t, edge.Fuzzy, tags.Specs[1].MatchMode)

	r, err := e.Resolve(ctx, d, graph.ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, graph.PhaseResolved, d.Phase())
	assert.Equal(t, graph.PhaseResolved, r.Phase())
	assert.Empty(t, r.Errors)
	assert.Equal(t, d.ID, r.ID)

	authorID, ok := r.Data["author"].(string)
	require.True(t, ok)
	created, err := p.Get(ctx, "Author", authorID)
	require.NoError(t, err)
	assert.Equal(t, "draft", created[graphdl.KeyGeneratedBy])
	assert.True(t, author.Specs[0].Resolved)
	assert.Equal(t, authorID, author.Specs[0].ID)

	tagIDs, ok := r.Data["tags"].([]string)
	require.True(t, ok)
	require.Len(t, tagIDs, 2)
	assert.Equal(t, golang.ID(), tagIDs[0])
	assert.NotEqual(t, golang.ID(), tagIDs[1])
	assert.Equal(t, 2, p.Count("Tag"))
	assert.Zero(t, p.Count("Post"), "resolving must not store the drafted entity")

	_, err = e.Resolve(ctx, d, graph.ResolveOptions{})
	assert.ErrorIs(t, err, graphdl.ErrNotDraft)

	post, err := e.Commit(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, d.ID, post.ID)
	assert.Equal(t, 1, p.Count("Post"))
	assert.Equal(t, 1, p.Count("Author"))
	assert.Len(t, p.Edges("Post", post.ID, "tags"), 2)
	got, err := mustRef(t, post, "author").Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, authorID, got.ID)

	_, err = e.Commit(ctx, nil)
	assert.ErrorIs(t, err, graphdl.ErrNotDraft)
}

func TestResolveOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e, p := newEngine(t, load.New().
		Entity("Post").Fields("title", "string", "author", "->Author").
		Entity("Author").Field("name", "string"))

	d, err := e.Draft(ctx, "Post", graphdl.Record{"title": "x"})
	require.NoError(t, err)

	var (
		wg  sync.WaitGroup
		ok  atomic.Int32
		bad atomic.Int32
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Resolve(ctx, d, graph.ResolveOptions{})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, graphdl.ErrNotDraft):
				bad.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, ok.Load())
	assert.EqualValues(t, 7, bad.Load())
	assert.Equal(t, 1, p.Count("Author"))

	_, err = e.Resolve(ctx, nil, graph.ResolveOptions{})
	assert.ErrorIs(t, err, graphdl.ErrNotDraft)
}

func TestDraftDescriptions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e, _ := newEngine(t, load.New().
		Entity("BlogPost").Fields(
			"mainAuthor", "->Person",
			"reviewer", "Who reviewed it? ->Person",
			"owner", "->Person|Company",
			"editor", "->Person?",
			"source", "<-Person",
		).
		Entity("Person").Field("name", "string").
		Entity("Company").Field("name", "string"))

	d, err := e.Draft(ctx, "BlogPost", graphdl.Record{"ownerHint": []any{"Acme", "Robotics"}})
	require.NoError(t, err)
	assert.Equal(t, "Main author of the blog post (Person)", d.Refs["mainAuthor"].Specs[0].GeneratedText)
	assert.Equal(t, "Reviewer of the blog post: Who reviewed it?", d.Refs["reviewer"].Specs[0].GeneratedText)

	owner := d.Refs["owner"].Specs
	require.Len(t, owner, 1)
	assert.Equal(t, "Acme Robotics", owner[0].GeneratedText)
	assert.Equal(t, []string{"Person", "Company"}, owner[0].UnionTypes)

	assert.NotContains(t, d.Refs, "editor", "optional relations without a hint are not drafted")
	assert.NotContains(t, d.Refs, "source", "backward relations are not drafted")
}

// failingProvider fails every create of one entity type.
type failingProvider struct {
	*memory.Provider
	typ string
	err error
}

func (p *failingProvider) Create(ctx context.Context, typ, id string, data graphdl.Record) (graphdl.Record, error) {
	if typ == p.typ {
		return nil, p.err
	}
	return p.Provider.Create(ctx, typ, id, data)
}

func TestResolveOnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	errBoom := errors.New("boom")
	newFailing := func(t *testing.T) (*graph.Engine, *failingProvider, string) {
		t.Helper()
		b := load.New().
			Entity("Post").Fields("title", "string", "author", "->Author", "category", "~>Category").
			Entity("Author").Field("name", "string").
			Entity("Category").Field("name", "string")
		s, err := compiler.Compile(b.Schema())
		require.NoError(t, err)
		mp := memory.New()
		fp := &failingProvider{Provider: mp, typ: "Author", err: errBoom}
		e, err := graph.NewEngine(s, fp)
		require.NoError(t, err)
		news, err := mp.Create(ctx, "Category", "", graphdl.Record{"name": "news"})
		require.NoError(t, err)
		return e, fp, news.ID()
	}

	t.Run("skip", func(t *testing.T) {
		t.Parallel()
		e, _, news := newFailing(t)
		r, err := e.DraftAndResolve(ctx, "Post", graphdl.Record{"title": "x", "categoryHint": "news"}, graph.ResolveOptions{OnError: graph.OnErrorSkip})
		require.NoError(t, err)
		require.Len(t, r.Errors, 1)
		assert.Equal(t, "author", r.Errors[0].Field)
		assert.ErrorIs(t, r.Errors[0], errBoom)
		assert.ErrorIs(t, r.Err(), errBoom)
		assert.NotContains(t, r.Data, "author")
		assert.Equal(t, news, r.Data["category"])
	})

	t.Run("throw", func(t *testing.T) {
		t.Parallel()
		e, fp, _ := newFailing(t)
		d, err := e.Draft(ctx, "Post", graphdl.Record{"title": "x", "categoryHint": "news"})
		require.NoError(t, err)
		_, err = e.Resolve(ctx, d, graph.ResolveOptions{OnError: graph.OnErrorThrow})
		var fe *graph.FieldError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "author", fe.Field)
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, graph.PhaseResolving, d.Phase())
		assert.Zero(t, fp.Count("Post"))
	})
}

func TestResolvedErr(t *testing.T) {
	t.Parallel()
	assert.NoError(t, (&graph.Resolved{}).Err())

	errA, errB := errors.New("a"), errors.New("b")
	r := &graph.Resolved{Errors: []*graph.FieldError{{Field: "author", Err: errA}, {Field: "tags", Err: errB}}}
	err := r.Err()
	var agg *graphdl.AggregateError
	require.ErrorAs(t, err, &agg)
	assert.Len(t, agg.Errors, 2)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Contains(t, err.Error(), `resolving "tags"`)
}
