package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/KMcClain23/WarriorMomma/internal/cache"
	"github.com/KMcClain23/WarriorMomma/internal/config"
)

// CacheCmd represents the cache command and its subcommands
type CacheCmd struct {
	Invalidate InvalidateCacheCmd `cmd:"" help:"Delete every cached answer of a provider"`
	Prune      PruneCacheCmd      `cmd:"" help:"Delete expired cache entries"`
}

// InvalidateCacheCmd represents the cache invalidate subcommand
type InvalidateCacheCmd struct {
	Source string `arg:"" help:"Cache source to invalidate: openlibrary, googlebooks or all"`
}

func cacheSources() []string {
	return slices.Sorted(maps.Keys(cache.Sources))
}

// tablesFor maps a source argument to the cache tables it covers.
func tablesFor(source string) ([]string, error) {
	source = strings.ToLower(strings.TrimSpace(source))
	if source == "all" {
		tables := make([]string, 0, len(cache.Sources))
		for _, name := range cacheSources() {
			tables = append(tables, cache.Sources[name])
		}
		return tables, nil
	}
	table, ok := cache.Sources[source]
	if !ok {
		return nil, fmt.Errorf("invalid cache source '%s'; valid sources are: %s, all", source, strings.Join(cacheSources(), ", "))
	}
	return []string{table}, nil
}

func (i *InvalidateCacheCmd) Run() error {
	tables, err := tablesFor(i.Source)
	if err != nil {
		return err
	}

	cfg := config.Load()
	slog.Info("Invalidating cache", "source", i.Source, "database", cfg.Cache.DBFile)

	c, err := openCache(cfg)
	if err != nil {
		return err
	}

	var total int64
	for _, table := range tables {
		rows, err := c.InvalidateSource(table)
		if err != nil {
			return errors.Join(fmt.Errorf("failed to invalidate cache: %w", err), c.Close())
		}
		total += rows
	}

	slog.Info("Cache invalidated", "source", i.Source, "rows_deleted", total)
	_, _ = fmt.Fprintf(stdout, "Removed %d cached answers\n", total)
	return c.Close()
}

// PruneCacheCmd represents the cache prune subcommand
type PruneCacheCmd struct{}

func (p *PruneCacheCmd) Run() error {
	cfg := config.Load()

	c, err := openCache(cfg)
	if err != nil {
		return err
	}

	var total int64
	for _, name := range cacheSources() {
		rows, err := c.ClearExpired(cache.Sources[name])
		if err != nil {
			return errors.Join(err, c.Close())
		}
		total += rows
	}

	_, _ = fmt.Fprintf(stdout, "Removed %d expired cache entries\n", total)
	return c.Close()
}
