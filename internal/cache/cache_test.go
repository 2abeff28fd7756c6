package cache_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cottand/rowfx/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyDependsOnEveryPart(t *testing.T) {
	assert.Equal(t, cache.Key([]byte("a"), []byte("b")), cache.Key([]byte("a"), []byte("b")))
	assert.NotEqual(t, cache.Key([]byte("ab"), []byte("")), cache.Key([]byte("a"), []byte("b")))
	assert.NotEqual(t, cache.Key([]byte("a")), cache.Key([]byte("b")))
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	c, err := cache.Open(ctx, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "k", []byte("first")))
	require.NoError(t, c.Put(ctx, "k", []byte("second")))
	report, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", string(report))

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSurvivesReopening(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := cache.Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, "k", []byte("report")))
	require.NoError(t, c.Close())

	c, err = cache.Open(ctx, path)
	require.NoError(t, err)
	defer c.Close()
	report, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "report", string(report))
}

func TestClosed(t *testing.T) {
	ctx := context.Background()
	c, err := cache.Open(ctx, ":memory:")
	require.NoError(t, err)
	require.NoError(t, c.Close())
	_, _, err = c.Get(ctx, "k")
	assert.Error(t, err)
}
