package edge_test

import (
	"testing"

	"github.com/syssam/graphdl/schema"
	"github.com/syssam/graphdl/schema/edge"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		def      string
		validate func(t *testing.T, s *edge.Spec)
	}{
		{
			name: "prompt_fuzzy_forward",
			def:  "What is the main category? ~>Category",
			validate: func(t *testing.T, s *edge.Spec) {
				assert.Equal(t, "What is the main category?", s.Prompt)
				assert.Equal(t, edge.ForwardFuzzy, s.Operator)
				assert.Equal(t, edge.Forward, s.Operator.Direction())
				assert.Equal(t, edge.Fuzzy, s.Operator.MatchMode())
				assert.Equal(t, "Category", s.Target)
				assert.Nil(t, s.Threshold)
				assert.False(t, s.Optional)
			},
		},
		{
			name: "union",
			def:  "->Person|Company",
			validate: func(t *testing.T, s *edge.Spec) {
				assert.Equal(t, []string{"Person", "Company"}, s.Union)
				assert.Equal(t, "Person", s.Target)
				assert.Equal(t, []string{"Person", "Company"}, s.Targets())
				assert.Empty(t, s.Prompt)
			},
		},
		{
			name: "threshold",
			def:  "~>Category(0.9)",
			validate: func(t *testing.T, s *edge.Spec) {
				require.NotNil(t, s.Threshold)
				assert.InDelta(t, 0.9, *s.Threshold, 1e-9)
				assert.Equal(t, "Category", s.Target)
			},
		},
		{
			name: "unterminated_threshold",
			def:  "~>Category(abc",
			validate: func(t *testing.T, s *edge.Spec) {
				assert.Equal(t, "Category", s.Target)
				assert.Nil(t, s.Threshold)
			},
		},
		{
			name: "unterminated_numeric_threshold",
			def:  "~>Category(0.8",
			validate: func(t *testing.T, s *edge.Spec) {
				assert.Equal(t, "Category", s.Target)
				assert.Nil(t, s.Threshold)
			},
		},
		{
			name: "out_of_range_threshold",
			def:  "~>Category(1.5)",
			validate: func(t *testing.T, s *edge.Spec) {
				assert.Equal(t, "Category", s.Target)
				assert.Nil(t, s.Threshold)
			},
		},
		{
			name: "backward_fuzzy_array",
			def:  "<~Source[]",
			validate: func(t *testing.T, s *edge.Spec) {
				assert.Equal(t, edge.BackwardFuzzy, s.Operator)
				assert.Equal(t, edge.Backward, s.Operator.Direction())
				assert.True(t, s.Array)
			},
		},
		{
			name: "optional_array_threshold",
			def:  "~>Tag(0.7)[]?",
			validate: func(t *testing.T, s *edge.Spec) {
				assert.True(t, s.Array)
				assert.True(t, s.Optional)
				require.NotNil(t, s.Threshold)
				assert.InDelta(t, 0.7, *s.Threshold, 1e-9)
			},
		},
		{
			name: "backref",
			def:  "->Author.posts",
			validate: func(t *testing.T, s *edge.Spec) {
				assert.Equal(t, "Author", s.Target)
				assert.Equal(t, "posts", s.Backref)
				assert.Equal(t, edge.ForwardExact, s.Operator)
			},
		},
		{
			name: "fuzzy_wins_over_exact",
			def:  "pick one -> or ~>Topic",
			validate: func(t *testing.T, s *edge.Spec) {
				assert.Equal(t, edge.ForwardFuzzy, s.Operator)
				assert.Equal(t, "pick one -> or", s.Prompt)
			},
		},
		{
			name: "optional_target_with_prompt",
			def:  "Is there a sequel? ->Book?",
			validate: func(t *testing.T, s *edge.Spec) {
				assert.True(t, s.Optional)
				assert.Equal(t, "Book", s.Target)
				assert.Equal(t, "Is there a sequel?", s.Prompt)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := edge.Parse(tt.def)
			require.NoError(t, err)
			tt.validate(t, s)
		})
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		def  string
		code schema.Code
	}{
		{def: "->", code: schema.InvalidOperator},
		{def: "->category", code: schema.InvalidOperator},
		{def: "->Person|company", code: schema.InvalidOperator},
		{def: "->Tag[][]", code: schema.InvalidFieldType},
		{def: "->Author.posts.extra", code: schema.InvalidFieldType},
		{def: "->Author.", code: schema.InvalidFieldType},
		{def: "no operator here", code: schema.InvalidOperator},
	}
	for _, tt := range tests {
		t.Run(tt.def, func(t *testing.T) {
			t.Parallel()
			_, err := edge.Parse(tt.def)
			require.Error(t, err)
			assert.ErrorIs(t, err, schema.ErrInvalidSchema)
			assert.True(t, schema.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestFind(t *testing.T) {
	t.Parallel()

	op, i := edge.Find("x <- Y")
	assert.Equal(t, edge.BackwardExact, op)
	assert.Equal(t, 2, i)

	op, i = edge.Find("plain prompt")
	assert.Equal(t, edge.Operator(""), op)
	assert.Equal(t, -1, i)

	assert.True(t, edge.ForwardExact.IsValid())
	assert.False(t, edge.Operator("=>").IsValid())
	assert.Equal(t, edge.Forward, edge.Operator("").Direction())
	assert.Equal(t, edge.Exact, edge.Operator("").MatchMode())
	assert.Equal(t, "backward", edge.Backward.String())
	assert.Equal(t, "fuzzy", edge.Fuzzy.String())
}

func TestIsTypeName(t *testing.T) {
	t.Parallel()

	assert.True(t, edge.IsTypeName("Category"))
	assert.True(t, edge.IsTypeName("BlogPost2"))
	assert.False(t, edge.IsTypeName("category"))
	assert.False(t, edge.IsTypeName("Blog Post"))
	assert.False(t, edge.IsTypeName(""))
}
