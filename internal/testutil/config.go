package testutil

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

// ResetConfig resets viper for the test and again when the test completes.
func ResetConfig(t *testing.T) {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)
}

// SetViperValue sets a viper key for the duration of the test.
func SetViperValue(t *testing.T, key string, value any) {
	t.Helper()

	// Get the old value (if any)
	oldValue := viper.Get(key)
	hadValue := viper.IsSet(key)

	viper.Set(key, value)

	t.Cleanup(func() {
		if hadValue {
			viper.Set(key, oldValue)
		}
		// viper has no Unset, so an unset key cannot be restored.
	})
}

// SetupTestStore points the store and cache configuration at files inside
// env and returns the data directory.
func SetupTestStore(t *testing.T, env *TestEnv) string {
	t.Helper()

	dataDir := env.Path("data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatalf("failed to create data directory: %v", err)
	}

	SetViperValue(t, "store.datadir", dataDir)
	SetViperValue(t, "store.dbfile", env.Path("data", "books.db"))
	SetViperValue(t, "cache.dbfile", env.Path("cache", "test-cache.db"))
	SetViperValue(t, "cache.ttl", "24h")
	SetViperValue(t, "sync.report", env.Path("covers_missing.json"))

	return dataDir
}
