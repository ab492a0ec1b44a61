// Package config maps the viper configuration onto a typed Config.
package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/KMcClain23/WarriorMomma/internal/books"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. WARRIORMOMMA_STORE_BACKEND.
const EnvPrefix = "WARRIORMOMMA"

// Config holds every setting the commands use.
type Config struct {
	Store     StoreConfig
	Cache     CacheConfig
	HTTP      HTTPConfig
	Sync      SyncConfig
	Covers    CoversConfig
	Datasette DatasetteConfig

	GoogleBooksAPIKey    string
	CanonicalSpiceLabels bool
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string
	DataDir string
	DBFile  string
}

// CacheConfig configures the provider response cache.
type CacheConfig struct {
	Enabled bool
	DBFile  string
	TTL     time.Duration
}

// HTTPConfig configures outbound requests.
type HTTPConfig struct {
	Timeout time.Duration
	// MinInterval is the minimum spacing between requests to one provider host.
	MinInterval time.Duration
}

// SyncConfig configures the batch cover sync.
type SyncConfig struct {
	Delay  time.Duration
	Report string
}

// CoversConfig configures cover handling and provider endpoints.
type CoversConfig struct {
	PlaceholderHosts   []string
	OpenLibraryBaseURL string
	GoogleBooksBaseURL string
}

// DatasetteConfig configures publishing to a remote Datasette.
type DatasetteConfig struct {
	URL      string
	Token    string
	Database string
}

// SetDefaults registers the default value of every key.
func SetDefaults() {
	viper.SetDefault("store.backend", "json")
	viper.SetDefault("store.datadir", "./data")
	viper.SetDefault("store.dbfile", "./warriormomma.db")

	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.dbfile", "./cache.db")
	viper.SetDefault("cache.ttl", "720h") // 30 days

	viper.SetDefault("http.timeout", "10s")
	viper.SetDefault("http.mininterval", "0s")

	viper.SetDefault("sync.delay", "800ms")
	viper.SetDefault("sync.report", "covers_missing.json")

	viper.SetDefault("covers.placeholder_hosts", []string{})
	viper.SetDefault("spice.canonical_labels", false)
	viper.SetDefault("datasette.database", "warriormomma")
}

// BindEnv enables environment overrides. Keys map to WARRIORMOMMA_<KEY>
// with dots replaced by underscores; the Google Books key is also read
// from GOOGLE_BOOKS_API_KEY.
func BindEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("googlebooks.apikey", "GOOGLE_BOOKS_API_KEY", EnvPrefix+"_GOOGLEBOOKS_APIKEY"); err != nil {
		slog.Error("Failed to bind environment variable", "error", err)
	}
}

// Load reads the current viper state into a Config.
func Load() Config {
	return Config{
		Store: StoreConfig{
			Backend: strings.ToLower(viper.GetString("store.backend")),
			DataDir: viper.GetString("store.datadir"),
			DBFile:  viper.GetString("store.dbfile"),
		},
		Cache: CacheConfig{
			Enabled: viper.GetBool("cache.enabled"),
			DBFile:  viper.GetString("cache.dbfile"),
			TTL:     viper.GetDuration("cache.ttl"),
		},
		HTTP: HTTPConfig{
			Timeout:     viper.GetDuration("http.timeout"),
			MinInterval: viper.GetDuration("http.mininterval"),
		},
		Sync: SyncConfig{
			Delay:  viper.GetDuration("sync.delay"),
			Report: viper.GetString("sync.report"),
		},
		Covers: CoversConfig{
			PlaceholderHosts:   viper.GetStringSlice("covers.placeholder_hosts"),
			OpenLibraryBaseURL: viper.GetString("openlibrary.baseurl"),
			GoogleBooksBaseURL: viper.GetString("googlebooks.baseurl"),
		},
		Datasette: DatasetteConfig{
			URL:      viper.GetString("datasette.url"),
			Token:    viper.GetString("datasette.token"),
			Database: viper.GetString("datasette.database"),
		},
		GoogleBooksAPIKey:    viper.GetString("googlebooks.apikey"),
		CanonicalSpiceLabels: viper.GetBool("spice.canonical_labels"),
	}
}

// NormalizeOptions returns the ingestion options implied by the config.
func (c Config) NormalizeOptions() books.NormalizeOptions {
	return books.NormalizeOptions{CanonicalSpiceLabels: c.CanonicalSpiceLabels}
}
