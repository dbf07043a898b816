package graph_test

import (
	"context"
	"testing"

	"github.com/syssam/graphdl"
	"github.com/syssam/graphdl/compiler/load"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHydrateBackrefArray(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e, _ := newEngine(t, load.New().
		Entity("Post").Fields("title", "string", "author", "Author.posts").
		Entity("Author").Field("name", "string"))

	ann, err := e.Create(ctx, "Author", graphdl.Record{"name": "Ann"})
	require.NoError(t, err)
	for _, title := range []string{"One", "Two"} {
		_, err := e.Create(ctx, "Post", graphdl.Record{"title": title, "author": ann.ID})
		require.NoError(t, err)
	}
	_, err = e.Create(ctx, "Post", graphdl.Record{"title": "Orphan"})
	require.NoError(t, err)

	ann, err = e.Get(ctx, "Author", ann.ID)
	require.NoError(t, err)
	refs, ok := ann.Refs("posts")
	require.True(t, ok)
	assert.Empty(t, refs.RawIDs())
	posts, err := refs.Resolve(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "One", posts[0].Get("title"))
	assert.Equal(t, "Two", posts[1].Get("title"))

	// Nested relations stay lazily resolvable.
	back, err := mustRef(t, posts[0], "author").Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, ann.ID, back.ID)
}

func TestHydrateUnionProbing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e, p := newEngine(t, load.New().
		Entity("Post").Fields("title", "string", "owner", "->Person|Company?", "sponsors", "->Person|Company[]?").
		Entity("Person").Field("name", "string").
		Entity("Company").Field("name", "string"))

	acme, err := p.Create(ctx, "Company", "c1", graphdl.Record{"name": "Acme"})
	require.NoError(t, err)
	bob, err := p.Create(ctx, "Person", "p1", graphdl.Record{"name": "Bob"})
	require.NoError(t, err)

	post, err := e.Create(ctx, "Post", graphdl.Record{
		"title":    "Hi",
		"owner":    acme.ID(),
		"sponsors": []any{"c1", "missing", "p1"},
	})
	require.NoError(t, err)

	edges := p.Edges("Post", post.ID, "owner")
	require.Len(t, edges, 1)
	assert.Equal(t, "Company", edges[0].ToType)

	owner, err := mustRef(t, post, "owner").Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Company", owner.Type)
	assert.Equal(t, "Acme", owner.Get("name"))

	refs, ok := post.Refs("sponsors")
	require.True(t, ok)
	assert.Equal(t, []string{"c1", "missing", "p1"}, refs.RawIDs())
	sponsors, err := refs.Resolve(ctx)
	require.NoError(t, err)
	require.Len(t, sponsors, 2)
	assert.Equal(t, "Company", sponsors[0].Type)
	assert.Equal(t, bob.ID(), sponsors[1].ID)
	assert.Equal(t, "Person", sponsors[1].Type)
}

func TestHydrateEdgeBased(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e, p := newEngine(t, load.New().
		Entity("Post").Fields("title", "string", "owner", "->Company?", "tags", "->Tag[]?").
		Entity("Company").Field("name", "string").
		Entity("Tag").Field("name", "string"))

	_, err := p.Create(ctx, "Post", "p1", graphdl.Record{"title": "Hi"})
	require.NoError(t, err)
	_, err = p.Create(ctx, "Company", "c1", graphdl.Record{"name": "Acme"})
	require.NoError(t, err)
	for _, id := range []string{"t1", "t2"} {
		_, err = p.Create(ctx, "Tag", id, graphdl.Record{"name": id})
		require.NoError(t, err)
		require.NoError(t, p.Relate(ctx, graphdl.Relation{FromType: "Post", FromID: "p1", Field: "tags", ToType: "Tag", ToID: id}))
	}
	require.NoError(t, p.Relate(ctx, graphdl.Relation{FromType: "Post", FromID: "p1", Field: "owner", ToType: "Company", ToID: "c1"}))

	post, err := e.Get(ctx, "Post", "p1")
	require.NoError(t, err)
	ref := mustRef(t, post, "owner")
	assert.Empty(t, ref.RawID())
	owner, err := ref.Resolve(ctx)
	require.NoError(t, err)
	require.NotNil(t, owner)
	assert.Equal(t, "c1", owner.ID)

	refs, _ := post.Refs("tags")
	tags, err := refs.Resolve(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "t1", tags[0].ID)
}

func TestHydrateBackwardSingleScan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e, p := newEngine(t, load.New().
		Entity("User").Fields("name", "string", "profiles", "->Profile[]?").
		Entity("Profile").Fields("bio", "string", "user", "<-User"))

	_, err := p.Create(ctx, "Profile", "pr1", graphdl.Record{"bio": "hi"})
	require.NoError(t, err)
	_, err = p.Create(ctx, "Profile", "pr2", graphdl.Record{"bio": "edge only"})
	require.NoError(t, err)
	_, err = p.Create(ctx, "User", "u0", graphdl.Record{"name": "Other"})
	require.NoError(t, err)
	_, err = p.Create(ctx, "User", "u1", graphdl.Record{"name": "Ann", "profiles": []string{"pr1"}})
	require.NoError(t, err)
	_, err = p.Create(ctx, "User", "u2", graphdl.Record{"name": "Bea"})
	require.NoError(t, err)
	require.NoError(t, p.Relate(ctx, graphdl.Relation{FromType: "User", FromID: "u2", Field: "profiles", ToType: "Profile", ToID: "pr2"}))

	for profile, owner := range map[string]string{"pr1": "u1", "pr2": "u2"} {
		prof, err := e.Get(ctx, "Profile", profile)
		require.NoError(t, err)
		user, err := mustRef(t, prof, "user").Resolve(ctx)
		require.NoError(t, err)
		require.NotNil(t, user, profile)
		assert.Equal(t, owner, user.ID)
	}

	_, err = p.Create(ctx, "Profile", "pr3", graphdl.Record{"bio": "nobody"})
	require.NoError(t, err)
	prof, err := e.Get(ctx, "Profile", "pr3")
	require.NoError(t, err)
	user, err := mustRef(t, prof, "user").Resolve(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestHydrateMissingTarget(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e, p := newEngine(t, load.New().
		Entity("Post").Fields("title", "string", "author", "->Author?").
		Entity("Author").Field("name", "string"))

	_, err := p.Create(ctx, "Post", "p1", graphdl.Record{"title": "Hi", "author": "gone"})
	require.NoError(t, err)
	post, err := e.Get(ctx, "Post", "p1")
	require.NoError(t, err)
	_, err = mustRef(t, post, "author").Resolve(ctx)
	assert.True(t, graphdl.IsNotFound(err))

	_, ok := post.Ref("title")
	assert.False(t, ok)
	_, ok = post.Refs("author")
	assert.False(t, ok)
}
