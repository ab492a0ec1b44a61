package cache

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testResult struct {
	URL string `json:"url"`
}

func setupTestCache(t *testing.T) *CacheDB {
	t.Helper()

	c, err := Open(filepath.Join(t.TempDir(), "cache.db"), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestOpenAppliesTTL(t *testing.T) {
	c := setupTestCache(t)
	assert.Equal(t, time.Hour, c.TTL())
	// Negative entries never outlive positive ones
	assert.Equal(t, time.Hour, c.NegativeTTL())
}

func TestGetOrFetch_CacheMissThenHit(t *testing.T) {
	c := setupTestCache(t)

	calls := 0
	fetch := func() (*testResult, error) {
		calls++
		return &testResult{URL: "https://covers.example/1.jpg"}, nil
	}

	got, fromCache, err := GetOrFetchWithTTL(c, "openlibrary_cache", "ruin|doe", fetch, nil)
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, "https://covers.example/1.jpg", got.URL)

	got, fromCache, err = GetOrFetchWithTTL(c, "openlibrary_cache", "ruin|doe", fetch, nil)
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, "https://covers.example/1.jpg", got.URL)
	assert.Equal(t, 1, calls)
}

func TestGetOrFetch_FetchErrorNotCached(t *testing.T) {
	c := setupTestCache(t)

	calls := 0
	fetch := func() (*testResult, error) {
		calls++
		return nil, errors.New("connection refused")
	}

	_, _, err := GetOrFetchWithTTL(c, "googlebooks_cache", "k", fetch, nil)
	require.EqualError(t, err, "connection refused")

	_, _, err = GetOrFetchWithTTL(c, "googlebooks_cache", "k", fetch, nil)
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestGetOrFetch_NilCacheFetchesDirectly(t *testing.T) {
	calls := 0
	fetch := func() (string, error) {
		calls++
		return "value", nil
	}

	for range 2 {
		got, fromCache, err := GetOrFetchWithTTL[string](nil, "openlibrary_cache", "k", fetch, nil)
		require.NoError(t, err)
		assert.False(t, fromCache)
		assert.Equal(t, "value", got)
	}
	assert.Equal(t, 2, calls)
}

func TestGetOrFetch_RespectsExpiry(t *testing.T) {
	c := setupTestCache(t)

	now := time.Now()
	c.now = func() time.Time { return now }

	fetch := func() (*testResult, error) { return &testResult{}, nil }
	selector := SelectNegativeCacheTTL(c, func(r *testResult) bool { return r.URL == "" })

	_, _, err := GetOrFetchWithTTL(c, "openlibrary_cache", "missing", fetch, selector)
	require.NoError(t, err)

	_, found, err := c.Get("openlibrary_cache", "missing")
	require.NoError(t, err)
	assert.True(t, found)

	now = now.Add(c.NegativeTTL() + time.Second)
	_, found, err = c.Get("openlibrary_cache", "missing")
	require.NoError(t, err)
	assert.False(t, found)

	removed, err := c.ClearExpired("openlibrary_cache")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestSelectNegativeCacheTTL(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	selector := SelectNegativeCacheTTL(c, func(r *testResult) bool { return r.URL == "" })
	assert.Equal(t, NegativeCacheTTL, selector(&testResult{}))
	assert.Equal(t, DefaultCacheTTL, selector(&testResult{URL: "x"}))

	nilSelector := SelectNegativeCacheTTL[*testResult](nil, func(r *testResult) bool { return true })
	assert.Equal(t, DefaultCacheTTL, nilSelector(&testResult{}))
}

func TestInvalidateSource(t *testing.T) {
	c := setupTestCache(t)

	require.NoError(t, c.Set("googlebooks_cache", "a", `{}`, time.Hour))
	require.NoError(t, c.Set("googlebooks_cache", "b", `{}`, time.Hour))
	require.NoError(t, c.Set("openlibrary_cache", "a", `{}`, time.Hour))

	rows, err := c.InvalidateSource("googlebooks_cache")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rows)

	_, found, err := c.Get("openlibrary_cache", "a")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestInvalidTableNamesRejected(t *testing.T) {
	c := setupTestCache(t)

	_, err := c.InvalidateSource("books; DROP TABLE books")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cache table name")

	require.Error(t, c.Set("tmdb_cache", "k", "v", time.Hour))
	_, _, err = c.Get("tmdb_cache", "k")
	require.Error(t, err)
}

func TestSourcesMapToValidTables(t *testing.T) {
	for source, table := range Sources {
		assert.True(t, ValidCacheTableNames[table], "source %s", source)
	}
}
