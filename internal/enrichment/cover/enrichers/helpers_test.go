package enrichers

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/KMcClain23/WarriorMomma/internal/cache"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *cache.CacheDB {
	t.Helper()

	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}
