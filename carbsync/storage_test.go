package carbsync

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheStorePutGetDelete(t *testing.T) {
	cache := openTestCache(t)

	_, ok, err := cache.Get(FoodListKeyPhone)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Put(FoodListKeyPhone, []byte(`[{"name":"Äpple"}]`)))
	blob, ok, err := cache.Get(FoodListKeyPhone)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[{"name":"Äpple"}]`, string(blob))

	// Upsert replaces in place.
	require.NoError(t, cache.Put(FoodListKeyPhone, []byte(`[]`)))
	blob, ok, err = cache.Get(FoodListKeyPhone)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[]`, string(blob))

	require.NoError(t, cache.Delete(FoodListKeyPhone))
	_, ok, err = cache.Get(FoodListKeyPhone)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheStoreKeysAreIndependent(t *testing.T) {
	cache := openTestCache(t)
	require.NoError(t, cache.Put(FoodListKeyPhone, []byte("phone")))
	require.NoError(t, cache.Put(FoodListKeyWatch, []byte("watch")))

	blob, ok, err := cache.Get(FoodListKeyWatch)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "watch", string(blob))
}

func TestCacheStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	cache, err := OpenCacheStore(path)
	require.NoError(t, err)
	require.NoError(t, cache.Put(PlateItemsKey, []byte("x")))
	require.NoError(t, cache.Close())

	cache2, err := OpenCacheStore(path)
	require.NoError(t, err)
	defer cache2.Close()
	blob, ok, err := cache2.Get(PlateItemsKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "x", string(blob))
}
