package corscache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreRoundTrip(t *testing.T) {
	store := NewMemStore()
	entry := Entry{
		Methods: []string{"PUT"},
		Headers: []string{"x-custom"},
		Expires: time.Now().Add(time.Minute),
	}
	store.Put("id", entry)

	got, ok := store.Get("id")
	require.True(t, ok)
	assert.Equal(t, entry.Methods, got.Methods)
	assert.Equal(t, entry.Headers, got.Headers)

	store.Purge("id")
	_, ok = store.Get("id")
	assert.False(t, ok)
}

func TestMemStorePutExpiredDeletes(t *testing.T) {
	store := NewMemStore()
	store.Put("id", Entry{Methods: []string{"PUT"}, Expires: time.Now().Add(time.Minute)})
	store.Put("id", Entry{Methods: []string{"PUT"}, Expires: time.Now().Add(-time.Minute)})

	_, ok := store.Get("id")
	assert.False(t, ok)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore("")
	require.NoError(t, err)

	expires := time.Now().Add(time.Minute)
	store.Put("id", Entry{
		Methods: []string{"PUT", "DELETE"},
		Headers: []string{"x-one", "x-two"},
		Expires: expires,
	})

	got, ok := store.Get("id")
	require.True(t, ok)
	assert.Equal(t, []string{"PUT", "DELETE"}, got.Methods)
	assert.Equal(t, []string{"x-one", "x-two"}, got.Headers)
	assert.Equal(t, expires.UnixMilli(), got.Expires.UnixMilli())

	store.Purge("id")
	_, ok = store.Get("id")
	assert.False(t, ok)
}

func TestSQLiteStoreReplace(t *testing.T) {
	store, err := NewSQLiteStore("")
	require.NoError(t, err)

	store.Put("id", Entry{Methods: []string{"PUT"}, Expires: time.Now().Add(time.Minute)})
	store.Put("id", Entry{Methods: []string{"DELETE"}, Expires: time.Now().Add(time.Minute)})

	got, ok := store.Get("id")
	require.True(t, ok)
	assert.Equal(t, []string{"DELETE"}, got.Methods)
}

func TestCacheOverSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore("")
	require.NoError(t, err)
	cache := NewWithStore(store)

	cache.Insert(testKey(), time.Minute, []string{"PUT"}, []string{"x-custom"})
	assert.True(t, cache.MatchMethod(testKey(), "PUT"))
	assert.True(t, cache.MatchHeader(testKey(), "X-Custom"))
	assert.False(t, cache.MatchMethod(testKey(), "PATCH"))
}
