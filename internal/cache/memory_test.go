package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "stats", []byte(`{"total":3}`), time.Minute, TagCatalog))

	val, ok, err := c.Get(ctx, "stats")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte(`{"total":3}`), val)
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), -time.Second, TagCatalog))

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryInvalidateTags(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	require.NoError(t, c.Set(ctx, "stats", []byte("a"), time.Minute, TagCatalog))
	require.NoError(t, c.Set(ctx, "faculty-et", []byte("b"), time.Minute, TagCatalog, TagFaculty("ET")))
	require.NoError(t, c.Set(ctx, "courses", []byte("c"), time.Minute, TagCourses))

	require.NoError(t, c.InvalidateTags(ctx, TagFaculty("ET")))

	_, ok, _ := c.Get(ctx, "faculty-et")
	assert.False(t, ok, "tagged entry should be dropped")
	_, ok, _ = c.Get(ctx, "stats")
	assert.True(t, ok, "untagged entry survives")

	require.NoError(t, c.InvalidateTags(ctx, TagCatalog, TagCourses))
	_, ok, _ = c.Get(ctx, "stats")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "courses")
	assert.False(t, ok)
}

func TestInvalidateSwallowsNilCache(t *testing.T) {
	// Must not panic when no cache is configured.
	Invalidate(context.Background(), nil, TagCatalog)
}
