package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/KMcClain23/WarriorMomma/internal/books"
	"github.com/KMcClain23/WarriorMomma/internal/cache"
	"github.com/KMcClain23/WarriorMomma/internal/collection"
	"github.com/KMcClain23/WarriorMomma/internal/config"
	"github.com/KMcClain23/WarriorMomma/internal/enrichment/cover"
	"github.com/KMcClain23/WarriorMomma/internal/enrichment/cover/enrichers"
	"github.com/KMcClain23/WarriorMomma/internal/ratelimit"
	"github.com/KMcClain23/WarriorMomma/internal/store"
)

// app holds everything a command needs, built from the current config.
type app struct {
	cfg         config.Config
	store       store.Store
	cache       *cache.CacheDB
	client      *http.Client
	openLibrary *enrichers.OpenLibraryProvider
	googleBooks *enrichers.GoogleBooksProvider
	resolver    *cover.Resolver
	enricher    *cover.Enricher
	service     *collection.Service
}

func newApp() (*app, error) {
	cfg := config.Load()

	if cfg.Store.Backend == store.BackendSQLite {
		if err := ensureParentDir(cfg.Store.DBFile); err != nil {
			return nil, err
		}
	}
	st, err := store.Open(store.Options{
		Backend:   cfg.Store.Backend,
		DataDir:   cfg.Store.DataDir,
		DBFile:    cfg.Store.DBFile,
		Normalize: cfg.NormalizeOptions(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	a := &app{
		cfg:    cfg,
		store:  st,
		client: &http.Client{Timeout: cfg.HTTP.Timeout},
	}

	if cfg.Cache.Enabled {
		c, err := openCache(cfg)
		if err != nil {
			return nil, errors.Join(err, st.Close())
		}
		a.cache = c
	} else {
		slog.Debug("Provider cache disabled")
	}

	limiters := ratelimit.NewHostLimiters(cfg.HTTP.MinInterval)
	olBase := firstNonEmpty(cfg.Covers.OpenLibraryBaseURL, enrichers.OpenLibraryBaseURL)
	gbBase := firstNonEmpty(cfg.Covers.GoogleBooksBaseURL, enrichers.GoogleBooksBaseURL)

	a.openLibrary = enrichers.NewOpenLibraryProvider(enrichers.Options{
		HTTPClient: a.client,
		BaseURL:    olBase,
		Cache:      a.cache,
		Limiter:    limiters.ForURL(olBase),
	})
	a.googleBooks = enrichers.NewGoogleBooksProvider(enrichers.Options{
		HTTPClient: a.client,
		BaseURL:    gbBase,
		Cache:      a.cache,
		Limiter:    limiters.ForURL(gbBase),
		APIKey:     cfg.GoogleBooksAPIKey,
	})

	a.resolver = cover.NewResolver(a.openLibrary, a.googleBooks)
	a.enricher = cover.NewEnricher(a.resolver, cover.NewPlaceholderMatcher(cfg.Covers.PlaceholderHosts...))
	a.service = collection.NewService(st, a.enricher, cfg.NormalizeOptions())

	return a, nil
}

// Close releases the store and the cache.
func (a *app) Close() error {
	return errors.Join(a.cache.Close(), a.store.Close())
}

// serviceWithoutLookup returns a collection service that stores records
// without cover backfill.
func (a *app) serviceWithoutLookup() *collection.Service {
	return collection.NewService(a.store, nil, a.cfg.NormalizeOptions())
}

func openCache(cfg config.Config) (*cache.CacheDB, error) {
	if err := ensureParentDir(cfg.Cache.DBFile); err != nil {
		return nil, err
	}
	c, err := cache.Open(cfg.Cache.DBFile, cfg.Cache.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	return c, nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// withApp builds the app, runs fn and closes the app again.
func withApp(fn func(*app) error) (err error) {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()
	return fn(a)
}

// signalContext is cancelled on interrupt so long runs stop between books.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// parseSections turns section arguments into books.Sections. No arguments
// means every section.
func parseSections(raw []string) ([]books.Section, error) {
	if len(raw) == 0 {
		return books.Sections, nil
	}
	sections := make([]books.Section, 0, len(raw))
	for _, r := range raw {
		s, err := books.ParseSection(r)
		if err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
