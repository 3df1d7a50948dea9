package featurecache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Cache, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "features", "cache.db")
	c, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, path
}

func TestPutThenGet(t *testing.T) {
	c, _ := openTemp(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "h1", "sig")
	require.NoError(t, err)
	assert.False(t, ok)

	vector := []float64{0.1, -2.5e-7, 3}
	require.NoError(t, c.Put(ctx, "h1", "sig", "/a.wav", vector))

	got, ok, err := c.Get(ctx, "h1", "sig")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, vector, got)
}

func TestSignatureIsolatesEntries(t *testing.T) {
	c, _ := openTemp(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "h1", "v1", "/a.wav", []float64{1}))
	require.NoError(t, c.Put(ctx, "h1", "v2", "/a.wav", []float64{2}))
	require.NoError(t, c.Put(ctx, "h1", "v2", "/b.wav", []float64{3}))

	got, ok, err := c.Get(ctx, "h1", "v1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float64{1}, got)

	got, _, err = c.Get(ctx, "h1", "v2")
	require.NoError(t, err)
	assert.Equal(t, []float64{3}, got, "later puts replace earlier ones")

	n, err := c.Len(ctx, "v2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	removed, err := c.Prune(ctx, "v2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, ok, err = c.Get(ctx, "h1", "v1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheSurvivesReopen(t *testing.T) {
	c, path := openTemp(t)
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "h", "s", "/x.wav", []float64{4, 5}))
	require.NoError(t, c.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok, err := reopened.Get(ctx, "h", "s")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []float64{4, 5}, got)
}
