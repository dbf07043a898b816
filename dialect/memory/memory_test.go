package memory_test

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/syssam/graphdl"
	"github.com/syssam/graphdl/dialect/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRUD(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	n := 0
	p := memory.New(memory.WithIDFunc(func() string {
		n++
		return "id" + strconv.Itoa(n)
	}))

	rec, err := p.Create(ctx, "Post", "", graphdl.Record{"title": "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "id1", rec.ID())
	assert.Equal(t, "Post", rec.Type())

	_, err = p.Create(ctx, "Post", "id1", graphdl.Record{})
	require.Error(t, err)
	assert.True(t, graphdl.IsConstraintError(err))
	assert.True(t, graphdl.IsMutationError(err))

	got, err := p.Get(ctx, "Post", "id1")
	require.NoError(t, err)
	assert.Equal(t, "Hello", got["title"])

	// Returned records are copies.
	got["title"] = "Changed"
	again, _ := p.Get(ctx, "Post", "id1")
	assert.Equal(t, "Hello", again["title"])

	upd, err := p.Update(ctx, "Post", "id1", graphdl.Record{"title": "World", graphdl.KeyID: "other"})
	require.NoError(t, err)
	assert.Equal(t, "World", upd["title"])
	assert.Equal(t, "id1", upd.ID())

	_, err = p.Update(ctx, "Post", "nope", graphdl.Record{})
	assert.True(t, graphdl.IsNotFound(err))
	_, err = p.Get(ctx, "Post", "nope")
	assert.ErrorIs(t, err, graphdl.ErrNotFound)

	ok, err := p.Delete(ctx, "Post", "id1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = p.Delete(ctx, "Post", "id1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, p.Count("Post"))
}

func TestListSearch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := memory.New()

	for i, title := range []string{"Go generics", "Rust traits", "Go channels"} {
		_, err := p.Create(ctx, "Post", "p"+strconv.Itoa(i), graphdl.Record{
			"title":  title,
			"author": "a" + strconv.Itoa(i%2),
			"tags":   []string{"t" + strconv.Itoa(i)},
		})
		require.NoError(t, err)
	}

	all, err := p.List(ctx, "Post", graphdl.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "p0", all[0].ID())

	byAuthor, err := p.List(ctx, "Post", graphdl.ListOptions{Where: map[string]any{"author": "a0"}})
	require.NoError(t, err)
	assert.Len(t, byAuthor, 2)

	byTag, err := p.List(ctx, "Post", graphdl.ListOptions{Where: map[string]any{"tags": "t1"}})
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	assert.Equal(t, "p1", byTag[0].ID())

	page, err := p.List(ctx, "Post", graphdl.ListOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "p1", page[0].ID())

	found, err := p.Search(ctx, "Post", "go", graphdl.SearchOptions{})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	ranked, err := p.SemanticSearch(ctx, "Post", "go generics", graphdl.SemanticSearchOptions{MinScore: 0.5, Limit: 1})
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "p0", ranked[0].ID())
	assert.InDelta(t, 1.0, ranked[0].Score(), 1e-9)

	many, err := p.GetMany(ctx, "Post", []string{"p2", "missing", "p0"})
	require.NoError(t, err)
	require.Len(t, many, 2)
	assert.Equal(t, "p2", many[0].ID())

	_, ok := graphdl.SupportsSemanticSearch(p)
	assert.True(t, ok)
}

func TestEdges(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := memory.New()

	_, err := p.Create(ctx, "Post", "p1", graphdl.Record{})
	require.NoError(t, err)
	_, err = p.Create(ctx, "Tag", "t1", graphdl.Record{"name": "go"})
	require.NoError(t, err)
	_, err = p.Create(ctx, "Tag", "t2", graphdl.Record{"name": "db"})
	require.NoError(t, err)

	rel := graphdl.Relation{FromType: "Post", FromID: "p1", Field: "tags", ToType: "Tag", ToID: "t1", Meta: map[string]any{"$score": 0.9}}
	require.NoError(t, p.Relate(ctx, rel))
	require.NoError(t, p.Relate(ctx, rel))
	rel.ToID = "t2"
	require.NoError(t, p.Relate(ctx, rel))

	related, err := p.Related(ctx, "Post", "p1", "tags")
	require.NoError(t, err)
	require.Len(t, related, 2)
	assert.Equal(t, "t1", related[0].ID())

	edges := p.Edges("Post", "p1", "tags")
	require.Len(t, edges, 2)
	assert.Equal(t, 0.9, edges[0].Meta["$score"])

	_, err = p.Delete(ctx, "Tag", "t1")
	require.NoError(t, err)
	related, err = p.Related(ctx, "Post", "p1", "tags")
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, "t2", related[0].ID())

	_, err = p.Delete(ctx, "Post", "p1")
	require.NoError(t, err)
	assert.Empty(t, p.Edges("Post", "p1", "tags"))
}

func TestConcurrentCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := memory.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Create(ctx, "Tag", "", graphdl.Record{"n": i})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, p.Count("Tag"))
}
