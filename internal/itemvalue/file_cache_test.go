package itemvalue_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrumSongOSRS/DropRoller/internal/itemvalue"
)

func TestFileCache_MissingFileIsEmpty(t *testing.T) {
	cache := itemvalue.NewFileCache(filepath.Join(t.TempDir(), "item_data.json"))
	data, err := cache.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestFileCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "item_data.json")

	cache := itemvalue.NewFileCache(path)
	_, err := cache.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, cache.Put(ctx, "Mithril longsword", itemvalue.Values{HighAlch: itemvalue.Int(312), BarsUsed: itemvalue.Int(2)}))
	require.NoError(t, cache.Put(ctx, "Umbral frag", itemvalue.Values{}))

	reopened := itemvalue.NewFileCache(path)
	data, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.Len(t, data, 2)
	assert.Equal(t, 312, *data["Mithril longsword"].HighAlch)
	assert.Equal(t, 2, *data["Mithril longsword"].BarsUsed)
	assert.Nil(t, data["Umbral frag"].HighAlch)
}

func TestFileCache_ReadsLegacyFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "item_data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "Adamant 2h sword": {"high_alch": 1920, "bars_used": 3},
  "Camphor seed": {"high_alch": null, "bars_used": null}
}`), 0644))

	data, err := itemvalue.NewFileCache(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1920, *data["Adamant 2h sword"].HighAlch)
	assert.Equal(t, 3, *data["Adamant 2h sword"].BarsUsed)
	assert.Nil(t, data["Camphor seed"].BarsUsed)
}

func TestFileCache_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "item_data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err := itemvalue.NewFileCache(path).Load(context.Background())
	assert.Error(t, err)
}

func TestFileCache_PutWithoutLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "item_data.json")
	cache := itemvalue.NewFileCache(path)
	require.NoError(t, cache.Put(ctx, "Sword", itemvalue.Values{HighAlch: itemvalue.Int(1)}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"high_alch": 1`)
}

func TestMemoryCache_CopiesOnLoad(t *testing.T) {
	ctx := context.Background()
	cache := itemvalue.NewMemoryCache(map[string]itemvalue.Values{"a": {}})
	data, err := cache.Load(ctx)
	require.NoError(t, err)
	data["b"] = itemvalue.Values{}

	again, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, again, 1)
}

func TestCaches_RespectCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, c := range []itemvalue.Cache{
		itemvalue.NewMemoryCache(nil),
		itemvalue.NewFileCache(filepath.Join(t.TempDir(), "x.json")),
	} {
		_, err := c.Load(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.ErrorIs(t, c.Put(ctx, "a", itemvalue.Values{}), context.Canceled)
	}
}
