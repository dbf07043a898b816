package graphdl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/graphdl"
)

func TestRecord(t *testing.T) {
	t.Parallel()

	r := graphdl.Record{
		graphdl.KeyID:    "p1",
		graphdl.KeyType:  "Post",
		graphdl.KeyScore: 0.8,
		"title":          "Hello",
		"tags":           []string{"t1"},
		"author$score":   0.9,
		"empty":          nil,
	}
	assert.Equal(t, "p1", r.ID())
	assert.Equal(t, "Post", r.Type())
	assert.Equal(t, "Hello", r.String("title"))
	assert.Empty(t, r.String("missing"))
	assert.InDelta(t, 0.8, r.Score(), 1e-9)
	assert.True(t, r.Has("title"))
	assert.False(t, r.Has("empty"))

	c := r.Clone()
	c["tags"] = append(c["tags"].([]string), "t2")
	c["title"] = "Changed"
	assert.Equal(t, []string{"t1"}, r["tags"])
	assert.Equal(t, "Hello", r["title"])

	d := r.Data()
	assert.Equal(t, graphdl.Record{"title": "Hello", "tags": []string{"t1"}, "empty": nil}, d)

	assert.Equal(t, "author$score", graphdl.FieldKey("author", graphdl.SuffixScore))
	assert.Equal(t, graphdl.Record{}, graphdl.Record(nil).Clone())
}

func TestIDs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a"}, graphdl.IDs("a"))
	assert.Nil(t, graphdl.IDs(""))
	assert.Equal(t, []string{"a", "b"}, graphdl.IDs([]string{"a", "b"}))
	assert.Equal(t, []string{"a", "c"}, graphdl.IDs([]any{"a", 1, "c", ""}))
	assert.Nil(t, graphdl.IDs(42))
}
