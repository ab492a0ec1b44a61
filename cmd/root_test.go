package cmd

import (
	"log/slog"
	"os"
	"testing"

	"github.com/KMcClain23/WarriorMomma/internal/testutil"
	"github.com/alecthomas/kong"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseCLI(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()

	originalArgs := os.Args
	os.Args = append([]string{appName}, args...)
	t.Cleanup(func() { os.Args = originalArgs })

	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name(appName),
		kong.Description(appDescription),
		kong.UsageOnError(),
		kong.Exit(func(code int) {
			t.Fatalf("unexpected Kong exit %d", code)
		}),
	)

	return cli, ctx
}

func TestUpdateGlobalConfig(t *testing.T) {
	testutil.ResetConfig(t)

	cli := &CLI{
		Backend:     "SQLite",
		DataDir:     "/tmp/data",
		DBFile:      "/tmp/books.db",
		CacheDBFile: "/tmp/cache.db",
		CacheTTL:    "12h",
		NoCache:     true,
	}

	updateGlobalConfig(cli)

	assert.Equal(t, "sqlite", viper.GetString("store.backend"))
	assert.Equal(t, "/tmp/data", viper.GetString("store.datadir"))
	assert.Equal(t, "/tmp/books.db", viper.GetString("store.dbfile"))
	assert.Equal(t, "/tmp/cache.db", viper.GetString("cache.dbfile"))
	assert.Equal(t, "12h", viper.GetString("cache.ttl"))
	assert.False(t, viper.GetBool("cache.enabled"))
}

func TestUpdateGlobalConfigKeepsConfigWhenFlagsUnset(t *testing.T) {
	testutil.ResetConfig(t)

	viper.Set("store.backend", "sqlite")
	viper.Set("cache.dbfile", "/from/config.db")
	viper.Set("cache.enabled", true)

	updateGlobalConfig(&CLI{})

	assert.Equal(t, "sqlite", viper.GetString("store.backend"))
	assert.Equal(t, "/from/config.db", viper.GetString("cache.dbfile"))
	assert.True(t, viper.GetBool("cache.enabled"))
}

func TestInitConfigWritesDefaultFile(t *testing.T) {
	testutil.ResetConfig(t)
	env := testutil.NewTestEnv(t)
	env.Chdir(".")

	require.NoError(t, initConfig())

	env.RequireFileExists("config.yaml")
	assert.Equal(t, "json", viper.GetString("store.backend"))
	assert.Equal(t, "covers_missing.json", viper.GetString("sync.report"))
}

func TestInitConfigReadsExistingFile(t *testing.T) {
	testutil.ResetConfig(t)
	env := testutil.NewTestEnv(t)
	env.WriteFileString("config.yaml", "store:\n  backend: sqlite\nsync:\n  delay: 0s\n")
	env.Chdir(".")

	require.NoError(t, initConfig())

	assert.Equal(t, "sqlite", viper.GetString("store.backend"))
	assert.Equal(t, "0s", viper.GetString("sync.delay"))
	// Keys missing from the file keep their defaults
	assert.Equal(t, "./data", viper.GetString("store.datadir"))
}

func TestInitConfigRejectsBrokenFile(t *testing.T) {
	testutil.ResetConfig(t)
	env := testutil.NewTestEnv(t)
	env.WriteFileString("config.yaml", "store: [unclosed\n")
	env.Chdir(".")

	err := initConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestEnvironmentVariableBinding(t *testing.T) {
	testutil.ResetConfig(t)

	t.Setenv("GOOGLE_BOOKS_API_KEY", "test-api-key")
	t.Setenv("WARRIORMOMMA_STORE_BACKEND", "sqlite")
	t.Setenv("WARRIORMOMMA_SYNC_DELAY", "2s")

	env := testutil.NewTestEnv(t)
	env.Chdir(".")
	require.NoError(t, initConfig())

	assert.Equal(t, "test-api-key", viper.GetString("googlebooks.apikey"))
	assert.Equal(t, "sqlite", viper.GetString("store.backend"))
	assert.Equal(t, "2s", viper.GetString("sync.delay"))
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		verbose  bool
		want     slog.Level
	}{
		{"default", "", false, slog.LevelInfo},
		{"debug", "debug", false, slog.LevelDebug},
		{"DEBUG", "DEBUG", false, slog.LevelDebug},
		{"warn", "warn", false, slog.LevelWarn},
		{"ERROR", "ERROR", false, slog.LevelError},
		{"invalid", "invalid", false, slog.LevelInfo},
		{"verbose wins", "error", true, slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("WARRIORMOMMA_LOG_LEVEL", tt.envValue)
			assert.Equal(t, tt.want, logLevel(tt.verbose))
		})
	}
}

func TestInitLogging(t *testing.T) {
	orig := slog.Default()
	t.Cleanup(func() { slog.SetDefault(orig) })

	require.NotPanics(t, func() {
		initLogging(true)
	})
	assert.True(t, slog.Default().Enabled(t.Context(), slog.LevelDebug))
}

func TestCommandsRejectInvalidSection(t *testing.T) {
	testutil.ResetConfig(t)

	tests := []struct {
		name string
		args []string
	}{
		{"list", []string{"list", "attic"}},
		{"sync", []string{"sync", "library", "attic"}},
		{"add", []string{"add", "attic", "--title", "X"}},
		{"delete", []string{"delete", "attic", "some-id"}},
		{"move", []string{"move", "some-id", "library", "attic"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, ctx := parseCLI(t, tt.args...)
			updateGlobalConfig(cli)
			err := ctx.Run()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid section")
		})
	}
}

func TestEditRequiresChanges(t *testing.T) {
	testutil.ResetConfig(t)

	_, ctx := parseCLI(t, "edit", "library", "some-id")
	err := ctx.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to change")
}

func TestSeedClearNeedsSection(t *testing.T) {
	testutil.ResetConfig(t)
	env := testutil.NewTestEnv(t)
	seed := env.WriteSeed("seed.json")

	_, ctx := parseCLI(t, "seed", seed, "--clear")
	err := ctx.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--clear needs --section")
}

func TestCacheInvalidateRejectsUnknownSource(t *testing.T) {
	testutil.ResetConfig(t)

	_, ctx := parseCLI(t, "cache", "invalidate", "tmdb")
	err := ctx.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valid sources are: googlebooks, openlibrary, all")
}

func TestTablesFor(t *testing.T) {
	tables, err := tablesFor("all")
	require.NoError(t, err)
	assert.Equal(t, []string{"googlebooks_cache", "openlibrary_cache"}, tables)

	tables, err = tablesFor("OpenLibrary")
	require.NoError(t, err)
	assert.Equal(t, []string{"openlibrary_cache"}, tables)
}

func TestPublishRequiresURL(t *testing.T) {
	testutil.ResetConfig(t)
	env := testutil.NewTestEnv(t)
	testutil.SetupTestStore(t, env)
	viper.Set("cache.enabled", false)

	_, ctx := parseCLI(t, "publish")
	err := ctx.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "datasette URL is required")
}
