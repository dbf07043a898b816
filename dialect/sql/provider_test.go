package sql_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/syssam/graphdl"
	"github.com/syssam/graphdl/compiler"
	"github.com/syssam/graphdl/compiler/load"
	"github.com/syssam/graphdl/dialect"
	dsql "github.com/syssam/graphdl/dialect/sql"
	"github.com/syssam/graphdl/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openSQLite(t *testing.T) *dsql.Driver {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "graphdl.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return dsql.OpenDB(dialect.SQLite, db)
}

func newProvider(t *testing.T, drv dialect.Driver) *dsql.Provider {
	t.Helper()
	p := dsql.NewProvider(drv)
	require.NoError(t, p.Migrate(context.Background()))
	return p
}

func TestProviderCRUD(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := newProvider(t, openSQLite(t))
	require.NoError(t, p.Migrate(ctx), "migrate is idempotent")

	post, err := p.Create(ctx, "Post", "", graphdl.Record{"title": "Hello", "views": 3, "tags": []string{"t1", "t2"}, "tags$matched": []bool{true, false}})
	require.NoError(t, err)
	assert.NotEmpty(t, post.ID())
	assert.Equal(t, "Post", post.Type())

	got, err := p.Get(ctx, "Post", post.ID())
	require.NoError(t, err)
	assert.Equal(t, "Hello", got["title"])
	assert.EqualValues(t, 3, got["views"])
	assert.Equal(t, []string{"t1", "t2"}, graphdl.IDs(got["tags"]))
	assert.Len(t, got["tags$matched"], 2, "bookkeeping keys are stored")

	_, err = p.Get(ctx, "Post", "missing")
	assert.True(t, graphdl.IsNotFound(err))
	_, err = p.Get(ctx, "Author", post.ID())
	assert.True(t, graphdl.IsNotFound(err), "ids are scoped by type")

	_, err = p.Create(ctx, "Post", post.ID(), graphdl.Record{"title": "Again"})
	assert.True(t, graphdl.IsMutationError(err))
	assert.True(t, graphdl.IsConstraintError(err))

	upd, err := p.Update(ctx, "Post", post.ID(), graphdl.Record{"title": "Hi", graphdl.KeyType: "Author"})
	require.NoError(t, err)
	assert.Equal(t, "Hi", upd["title"])
	assert.EqualValues(t, 3, upd["views"])
	assert.Equal(t, "Post", upd.Type())

	_, err = p.Update(ctx, "Post", "missing", graphdl.Record{"title": "x"})
	assert.True(t, graphdl.IsNotFound(err))

	n, err := p.Count(ctx, "Post")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ok, err := p.Delete(ctx, "Post", post.ID())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = p.Delete(ctx, "Post", post.ID())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProviderList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := newProvider(t, openSQLite(t))
	for _, r := range []graphdl.Record{
		{"title": "a", "author": "ann", "tags": []string{"go"}},
		{"title": "b", "author": "bob", "tags": []string{"db"}},
		{"title": "c", "author": "ann", "tags": []string{"go", "db"}},
	} {
		_, err := p.Create(ctx, "Post", r["title"].(string), r)
		require.NoError(t, err)
	}

	tests := []struct {
		name string
		opts graphdl.ListOptions
		want []string
	}{
		{"all", graphdl.ListOptions{}, []string{"a", "b", "c"}},
		{"where", graphdl.ListOptions{Where: map[string]any{"author": "ann"}}, []string{"a", "c"}},
		{"list contains", graphdl.ListOptions{Where: map[string]any{"tags": "db"}}, []string{"b", "c"}},
		{"page", graphdl.ListOptions{Limit: 1, Offset: 1}, []string{"b"}},
		{"none", graphdl.ListOptions{Where: map[string]any{"author": "eve"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			recs, err := p.List(ctx, "Post", tt.opts)
			require.NoError(t, err)
			var ids []string
			for _, r := range recs {
				ids = append(ids, r.ID())
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestProviderSearch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := newProvider(t, openSQLite(t))
	for id, name := range map[string]string{"c1": "Machine Learning", "c2": "Cooking", "c3": "Deep Learning"} {
		_, err := p.Create(ctx, "Category", id, graphdl.Record{"name": name})
		require.NoError(t, err)
	}

	recs, err := p.Search(ctx, "Category", "learning", graphdl.SearchOptions{})
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	ranked, err := p.SemanticSearch(ctx, "Category", "machine learning", graphdl.SemanticSearchOptions{MinScore: 0.5, Limit: 1})
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "c1", ranked[0].ID())
	assert.InDelta(t, 1.0, ranked[0].Score(), 1e-9)

	many, err := p.GetMany(ctx, "Category", []string{"c3", "missing", "c1"})
	require.NoError(t, err)
	assert.Len(t, many, 2)
}

func TestProviderRelations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := newProvider(t, openSQLite(t))
	for _, id := range []string{"t1", "t2"} {
		_, err := p.Create(ctx, "Tag", id, graphdl.Record{"name": id})
		require.NoError(t, err)
	}
	_, err := p.Create(ctx, "Post", "p1", graphdl.Record{"title": "x"})
	require.NoError(t, err)

	rel := graphdl.Relation{FromType: "Post", FromID: "p1", Field: "tags", ToType: "Tag", ToID: "t2", Meta: map[string]any{graphdl.KeyGenerated: true}}
	require.NoError(t, p.Relate(ctx, rel))
	require.NoError(t, p.Relate(ctx, rel), "relating twice is not an error")
	require.NoError(t, p.Relate(ctx, graphdl.Relation{FromType: "Post", FromID: "p1", Field: "tags", ToType: "Tag", ToID: "t1"}))

	edges, err := p.Edges(ctx, "Post", "p1", "tags")
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, "t2", edges[0].ToID)
	assert.Equal(t, true, edges[0].Meta[graphdl.KeyGenerated])
	assert.Nil(t, edges[1].Meta)

	related, err := p.Related(ctx, "Post", "p1", "tags")
	require.NoError(t, err)
	require.Len(t, related, 2)
	assert.Equal(t, "t2", related[0].ID())
	assert.Equal(t, "Tag", related[0].Type())

	_, err = p.Delete(ctx, "Tag", "t2")
	require.NoError(t, err)
	edges, err = p.Edges(ctx, "Post", "p1", "tags")
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestProviderEngine(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	stats := dsql.NewStatsDriver(openSQLite(t))
	p := newProvider(t, stats)
	s, err := compiler.Compile(load.New().
		Entity("Post").Fields("title", "string", "author", "->Author", "tags", "~>Tag[]").
		Entity("Author").Fields("name", "string", "posts", "<-Post[]").
		Entity("Tag").Field("name", "string").
		Schema())
	require.NoError(t, err)
	e, err := graph.NewEngine(s, p)
	require.NoError(t, err)

	golang, err := p.Create(ctx, "Tag", "", graphdl.Record{"name": "golang"})
	require.NoError(t, err)

	post, err := e.Create(ctx, "Post", graphdl.Record{"title": "Hello", "tagsHint": []string{"golang"}})
	require.NoError(t, err)

	post, err = e.Get(ctx, "Post", post.ID)
	require.NoError(t, err)
	author, err := mustRef(t, post, "author").Resolve(ctx)
	require.NoError(t, err)
	require.NotNil(t, author)
	assert.Equal(t, true, author.Get(graphdl.KeyGenerated))

	refs, ok := author.Refs("posts")
	require.True(t, ok)
	posts, err := refs.Resolve(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, post.ID, posts[0].ID)

	tags, ok := post.Refs("tags")
	require.True(t, ok)
	assert.Equal(t, []string{golang.ID()}, tags.RawIDs())
	nodes, err := tags.Resolve(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "golang", nodes[0].Get("name"))

	snap := stats.QueryStats().Stats()
	assert.Positive(t, snap.TotalQueries)
	assert.Positive(t, snap.TotalExecs)
	assert.Zero(t, snap.Errors)
}

func mustRef(t *testing.T, n *graph.Node, field string) *graph.LazyRef {
	t.Helper()
	ref, ok := n.Ref(field)
	require.True(t, ok)
	return ref
}
