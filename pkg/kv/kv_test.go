package kv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *KV {
	t.Helper()
	store, err := Open(DefaultOptions(""))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions("/tmp/kv")
	assert.Equal(t, "/tmp/kv", opts.Dir)
	assert.False(t, opts.SyncWrites)
	assert.True(t, opts.Compression)
	assert.False(t, opts.MemoryMode)

	assert.True(t, DefaultOptions("").MemoryMode)
}

func TestOpenRequiresDir(t *testing.T) {
	_, err := Open(Options{})
	assert.Error(t, err)
}

func TestSetGet(t *testing.T) {
	store := openMemory(t)

	require.NoError(t, store.SetWithTTL("a", "1", 0))
	v, err := store.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	_, err = store.Get("b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKeysByPrefix(t *testing.T) {
	store := openMemory(t)
	require.NoError(t, store.SetWithTTL("cache:x", "1", 0))
	require.NoError(t, store.SetWithTTL("cache:y", "2", time.Hour))
	require.NoError(t, store.SetWithTTL("other", "3", 0))

	keys, err := store.Keys(PrefixCache)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"cache:x", "cache:y"}, keys)
}

func TestClosedStore(t *testing.T) {
	store, err := Open(DefaultOptions(""))
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err = store.Get("a")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, store.SetWithTTL("a", "1", 0), ErrClosed)
	_, err = store.Keys(PrefixCache)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPersistentStore(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(DefaultOptions(dir))
	require.NoError(t, err)
	require.NoError(t, store.SetWithTTL("k", "v", 0))
	require.NoError(t, store.Close())

	store, err = Open(DefaultOptions(dir))
	require.NoError(t, err)
	defer store.Close()
	v, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestCache(t *testing.T) {
	cache := NewCache(openMemory(t), time.Hour)

	_, ok := cache.Lookup("googlesearch", "go")
	assert.False(t, ok)

	cache.Store("googlesearch", "go", "result")
	v, ok := cache.Lookup("googlesearch", "go")
	require.True(t, ok)
	assert.Equal(t, "result", v)

	_, ok = cache.Lookup("get_representative_telephone", "go")
	assert.False(t, ok)

	cache.Store("get_representative_telephone", "acme", "03-0000")
	assert.Equal(t, 2, cache.Len())
}

func TestCacheDisabled(t *testing.T) {
	var nilCache *Cache
	nilCache.Store("t", "i", "r")
	assert.Zero(t, nilCache.Len())
	_, ok := nilCache.Lookup("t", "i")
	assert.False(t, ok)

	noTTL := NewCache(openMemory(t), 0)
	noTTL.Store("t", "i", "r")
	_, ok = noTTL.Lookup("t", "i")
	assert.False(t, ok)
}

func TestCacheKeyIsStable(t *testing.T) {
	assert.Equal(t, CacheKey("a", "x"), CacheKey("a", "x"))
	assert.NotEqual(t, CacheKey("a", "x"), CacheKey("b", "x"))
	assert.Contains(t, CacheKey("a", "x"), "cache:a:")
}
