package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/KMcClain23/WarriorMomma/internal/books"
	"github.com/KMcClain23/WarriorMomma/internal/store"
)

// PublishCmd represents the publish command
type PublishCmd struct {
	Sections []string `arg:"" optional:"" help:"Sections to publish (default: all)"`
	Table    string   `default:"books" help:"Datasette table to insert into"`
	URL      string   `name:"url" help:"Datasette base URL (overrides datasette.url)"`
}

func (p *PublishCmd) Run() error {
	sections, err := parseSections(p.Sections)
	if err != nil {
		return err
	}

	return withApp(func(a *app) error {
		baseURL := firstNonEmpty(p.URL, a.cfg.Datasette.URL)
		if baseURL == "" {
			return errors.New("datasette URL is required (provide via --url flag or datasette.url in config)")
		}

		ctx, stop := signalContext()
		defer stop()

		var recs []books.Record
		for _, section := range sections {
			list, err := a.service.List(ctx, section)
			if err != nil {
				return err
			}
			recs = append(recs, list...)
		}

		publisher := store.NewDatasettePublisher(baseURL, a.cfg.Datasette.Token, a.cfg.Datasette.Database, a.client)
		if err := publisher.Publish(ctx, p.Table, recs); err != nil {
			return fmt.Errorf("failed to publish to datasette: %w", err)
		}

		slog.Info("Published books to Datasette", "url", baseURL, "table", p.Table, "count", len(recs))
		_, _ = fmt.Fprintf(stdout, "Published %d books to %s\n", len(recs), p.Table)
		return nil
	})
}
