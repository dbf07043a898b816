package idgen_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/syssam/graphdl/contrib/idgen"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrategies(t *testing.T) {
	t.Parallel()

	id := idgen.UUID()()
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	v7, err := uuid.Parse(idgen.UUIDv7()())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), v7.Version())

	assert.Len(t, idgen.NanoID(0)(), 21)
	assert.Len(t, idgen.NanoID(10)(), 10)

	assert.True(t, strings.HasPrefix(idgen.Prefixed("post_", idgen.NanoID(8))(), "post_"))
}

func TestULIDMonotonic(t *testing.T) {
	t.Parallel()

	gen := idgen.ULID()
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = gen()
		assert.Len(t, ids[i], 26)
	}
	assert.True(t, slices.IsSorted(ids))
	assert.Len(t, slices.Compact(slices.Clone(ids)), len(ids))
}

func TestByName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "uuid", "uuidv7", "nanoid", "ulid"} {
		f, err := idgen.ByName(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, f())
	}
	_, err := idgen.ByName("snowflake")
	assert.Error(t, err)
}
