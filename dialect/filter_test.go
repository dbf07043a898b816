package dialect_test

import (
	"testing"

	"github.com/syssam/graphdl"
	"github.com/syssam/graphdl/dialect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	t.Parallel()

	rec := graphdl.Record{
		"author": "a1",
		"tags":   []string{"t1", "t2"},
		"refs":   []any{"r1", "r2"},
		"views":  float64(3),
		"draft":  nil,
	}
	tests := []struct {
		where map[string]any
		want  bool
	}{
		{where: nil, want: true},
		{where: map[string]any{"author": "a1"}, want: true},
		{where: map[string]any{"author": "a2"}, want: false},
		{where: map[string]any{"tags": "t2"}, want: true},
		{where: map[string]any{"tags": "t3"}, want: false},
		{where: map[string]any{"refs": "r1"}, want: true},
		{where: map[string]any{"views": 3}, want: true},
		{where: map[string]any{"draft": nil}, want: true},
		{where: map[string]any{"missing": "x"}, want: false},
		{where: map[string]any{"author": "a1", "tags": "t9"}, want: false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, dialect.Matches(rec, tt.where), "%v", tt.where)
	}
}

func TestPage(t *testing.T) {
	t.Parallel()

	recs := []graphdl.Record{{"n": 1}, {"n": 2}, {"n": 3}}
	assert.Len(t, dialect.Page(recs, 0, 0), 3)
	assert.Equal(t, []graphdl.Record{{"n": 2}}, dialect.Page(recs, 1, 1))
	assert.Nil(t, dialect.Page(recs, 2, 5))
	assert.Len(t, dialect.Page(recs, 10, 1), 2)
}

func TestContainsText(t *testing.T) {
	t.Parallel()

	rec := graphdl.Record{"title": "Intro to Machine Learning", "body": "Gradient descent", "$id": "learning"}
	assert.True(t, dialect.ContainsText(rec, "machine", nil))
	assert.True(t, dialect.ContainsText(rec, "GRADIENT", []string{"body"}))
	assert.False(t, dialect.ContainsText(rec, "gradient", []string{"title"}))
	assert.False(t, dialect.ContainsText(graphdl.Record{"$id": "learning"}, "learning", nil))
	assert.True(t, dialect.ContainsText(rec, "", nil))
}

func TestRank(t *testing.T) {
	t.Parallel()

	recs := []graphdl.Record{
		{"$id": "1", "name": "Cooking"},
		{"$id": "2", "name": "Machine Learning"},
		{"$id": "3", "name": "Machine Learning Research"},
	}
	out := dialect.Rank(recs, "machine learning", 0.5, 0)
	require.Len(t, out, 2)
	assert.Equal(t, "2", out[0].ID())
	assert.InDelta(t, 1.0, out[0].Score(), 1e-9)
	assert.Equal(t, "3", out[1].ID())
	assert.Nil(t, recs[1][graphdl.KeyScore])

	assert.Len(t, dialect.Rank(recs, "machine learning", 0.5, 1), 1)
}
