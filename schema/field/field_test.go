package field_test

import (
	"strings"
	"testing"

	"github.com/syssam/graphdl/schema"
	"github.com/syssam/graphdl/schema/edge"
	"github.com/syssam/graphdl/schema/field"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		def      string
		validate func(t *testing.T, d *field.Descriptor)
	}{
		{
			name: "primitive",
			def:  "string",
			validate: func(t *testing.T, d *field.Descriptor) {
				assert.Equal(t, field.TypeString, d.Type)
				assert.False(t, d.Relation)
				assert.False(t, d.Optional)
				assert.False(t, d.IsPromptField())
			},
		},
		{
			name: "optional_primitive",
			def:  "number?",
			validate: func(t *testing.T, d *field.Descriptor) {
				assert.Equal(t, field.TypeNumber, d.Type)
				assert.True(t, d.Optional)
			},
		},
		{
			name: "primitive_array",
			def:  "string[]",
			validate: func(t *testing.T, d *field.Descriptor) {
				assert.Equal(t, field.TypeString, d.Type)
				assert.True(t, d.Array)
			},
		},
		{
			name: "implicit_relation",
			def:  "Author",
			validate: func(t *testing.T, d *field.Descriptor) {
				assert.True(t, d.Relation)
				assert.Equal(t, "Author", d.RelatedType)
				assert.Empty(t, d.Backref)
				assert.Equal(t, edge.Operator(""), d.Operator)
				assert.True(t, d.IsForwardExact())
				assert.Equal(t, edge.Forward, d.Direction())
			},
		},
		{
			name: "implicit_optional_array",
			def:  "Tag[]?",
			validate: func(t *testing.T, d *field.Descriptor) {
				assert.True(t, d.Relation)
				assert.True(t, d.Array)
				assert.True(t, d.Optional)
				assert.Equal(t, "Tag", d.RelatedType)
			},
		},
		{
			name: "backref",
			def:  "Author.posts",
			validate: func(t *testing.T, d *field.Descriptor) {
				assert.True(t, d.Relation)
				assert.Equal(t, "Author", d.RelatedType)
				assert.Equal(t, "posts", d.Backref)
			},
		},
		{
			name: "operator",
			def:  "Who reviewed it? <~Reviewer|Editor(0.6)",
			validate: func(t *testing.T, d *field.Descriptor) {
				assert.True(t, d.Relation)
				assert.True(t, d.Is(edge.BackwardFuzzy))
				assert.Equal(t, edge.Fuzzy, d.MatchMode())
				assert.Equal(t, "Who reviewed it?", d.Prompt)
				assert.Equal(t, []string{"Reviewer", "Editor"}, d.Targets())
				assert.True(t, d.IsUnion())
				require.NotNil(t, d.Threshold)
				assert.InDelta(t, 0.6, *d.Threshold, 1e-9)
				assert.False(t, d.IsPromptField())
			},
		},
		{
			name: "prompt_with_space",
			def:  "Write a one line summary",
			validate: func(t *testing.T, d *field.Descriptor) {
				assert.Equal(t, field.TypeString, d.Type)
				assert.Equal(t, "Write a one line summary", d.Prompt)
				assert.True(t, d.IsPromptField())
				assert.False(t, d.Optional)
			},
		},
		{
			name: "prompt_question_mark_kept",
			def:  "What is the tone?",
			validate: func(t *testing.T, d *field.Descriptor) {
				assert.Equal(t, "What is the tone?", d.Prompt)
				assert.False(t, d.Optional)
			},
		},
		{
			name: "prompt_with_slash",
			def:  "yes/no",
			validate: func(t *testing.T, d *field.Descriptor) {
				assert.Equal(t, "yes/no", d.Prompt)
				assert.False(t, d.Relation)
			},
		},
		{
			name: "prompt_array",
			def:  "List three keywords []",
			validate: func(t *testing.T, d *field.Descriptor) {
				assert.True(t, d.Array)
				assert.Equal(t, "List three keywords", d.Prompt)
			},
		},
		{
			name: "seed_column",
			def:  "$.company_name",
			validate: func(t *testing.T, d *field.Descriptor) {
				assert.Equal(t, "company_name", d.SeedColumn)
				assert.Equal(t, field.TypeString, d.Type)
				assert.False(t, d.Relation)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d, err := field.Parse("Post", "f", tt.def)
			require.NoError(t, err)
			assert.Equal(t, "f", d.Name)
			assert.Equal(t, tt.def, d.Def)
			tt.validate(t, d)
		})
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		field      string
		def        string
		code       schema.Code
		suggestion string
	}{
		{name: "int_alias", field: "views", def: "int", code: schema.InvalidFieldType, suggestion: "number"},
		{name: "bool_alias", field: "done", def: "bool", code: schema.InvalidFieldType, suggestion: "boolean"},
		{name: "varchar_alias", field: "title", def: "varchar", code: schema.InvalidFieldType, suggestion: "string"},
		{name: "unknown", field: "x", def: "widget", code: schema.InvalidFieldType},
		{name: "empty", field: "x", def: "  ", code: schema.InvalidFieldType},
		{name: "empty_array", field: "x", def: "[]", code: schema.InvalidFieldType},
		{name: "nested_array", field: "x", def: "Tag[][]", code: schema.InvalidFieldType},
		{name: "multi_dot_backref", field: "x", def: "Author.posts.all", code: schema.InvalidFieldType},
		{name: "lowercase_backref_target", field: "x", def: "author.posts", code: schema.InvalidFieldType},
		{name: "bad_operator_target", field: "x", def: "->lowercase", code: schema.InvalidOperator},
		{name: "bad_field_name", field: "my field", def: "string", code: schema.InvalidFieldName},
		{name: "injection_field_name", field: "x;DROP", def: "string", code: schema.InvalidFieldName},
		{name: "long_field_name", field: strings.Repeat("a", field.MaxNameLen+1), def: "string", code: schema.InvalidFieldName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := field.Parse("Post", tt.field, tt.def)
			require.Error(t, err)
			var se *schema.Error
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.code, se.Code)
			assert.Equal(t, tt.suggestion, se.Suggestion)
			if tt.code != schema.InvalidFieldName {
				assert.Equal(t, "Post."+tt.field, se.Path)
			}
		})
	}
}

func TestValidateEntityName(t *testing.T) {
	t.Parallel()

	require.NoError(t, field.ValidateEntityName("BlogPost"))
	for _, name := range []string{"", "Drop; SELECT", "<script>", "9Lives", "a b", strings.Repeat("A", 65)} {
		err := field.ValidateEntityName(name)
		assert.True(t, schema.IsCode(err, schema.InvalidEntityName), "name %q: %v", name, err)
	}
}

func TestDescriptorClone(t *testing.T) {
	t.Parallel()

	d, err := field.Parse("Post", "ref", "->A|B(0.5)")
	require.NoError(t, err)
	c := d.Clone()
	c.Union[0] = "Z"
	*c.Threshold = 0.1
	assert.Equal(t, "A", d.Union[0])
	assert.InDelta(t, 0.5, *d.Threshold, 1e-9)
}

func TestSuggest(t *testing.T) {
	t.Parallel()

	s, ok := field.Suggest("INTEGER")
	assert.True(t, ok)
	assert.Equal(t, field.TypeNumber, s)
	_, ok = field.Suggest("string")
	assert.False(t, ok)
	assert.True(t, field.IsPrimitive(field.TypeMarkdown))
}
