package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KMcClain23/WarriorMomma/internal/coversync"
)

// SyncCmd represents the sync command
type SyncCmd struct {
	Sections []string `arg:"" optional:"" help:"Sections to sync: library, recommended, upcoming (default: all)"`
	Report   string   `short:"r" help:"Path of the missing covers report (overrides sync.report)"`
	Delay    string   `help:"Pause after each networked lookup, e.g. 800ms; 0 disables (overrides sync.delay)"`
}

func (s *SyncCmd) Run() error {
	sections, err := parseSections(s.Sections)
	if err != nil {
		return err
	}

	delay := time.Duration(-1)
	if s.Delay != "" {
		if delay, err = time.ParseDuration(s.Delay); err != nil {
			return fmt.Errorf("invalid delay %q: %w", s.Delay, err)
		}
	}

	return withApp(func(a *app) error {
		if s.Delay == "" {
			delay = a.cfg.Sync.Delay
		}
		reportPath := firstNonEmpty(s.Report, a.cfg.Sync.Report, coversync.DefaultReportFile)

		ctx, stop := signalContext()
		defer stop()

		report, err := a.service.SyncCovers(ctx, coversync.NewSyncer(a.enricher, delay), sections...)
		if err != nil {
			return err
		}

		if err := coversync.WriteMissingReport(reportPath, report.Missing); err != nil {
			return err
		}
		slog.Info("Missing covers report written", "path", reportPath, "missing", len(report.Missing))

		_, _ = fmt.Fprintf(stdout, "Checked %d books: %d covers updated, %d still missing (see %s)\n",
			len(report.Records), len(report.Updated), len(report.Missing), reportPath)
		return report.Err
	})
}

// FindCmd represents the find command
type FindCmd struct {
	Title  string `arg:"" help:"Book title"`
	Author string `arg:"" optional:"" help:"Book author"`
}

func (f *FindCmd) Run() error {
	return withApp(func(a *app) error {
		ctx, stop := signalContext()
		defer stop()

		res := a.resolver.Resolve(ctx, f.Title, f.Author)
		for _, attempt := range res.Attempts {
			slog.Debug("Cover lookup attempt",
				"provider", attempt.Provider,
				"title", attempt.Title,
				"author", attempt.Author,
				"url", attempt.URL,
				"requests", attempt.Requests,
				"error", attempt.Err)
		}

		if !res.Found() {
			if err := res.Err(); err != nil {
				return fmt.Errorf("no cover found for %q: %w", f.Title, err)
			}
			return fmt.Errorf("no cover found for %q", f.Title)
		}

		_, _ = fmt.Fprintln(stdout, res.URL)
		return nil
	})
}

// PingCmd represents the ping command
type PingCmd struct{}

type pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

func (p *PingCmd) Run() error {
	return withApp(func(a *app) error {
		ctx, stop := signalContext()
		defer stop()

		var errs []error
		for _, provider := range []pinger{a.openLibrary, a.googleBooks} {
			if err := provider.Ping(ctx); err != nil {
				_, _ = fmt.Fprintf(stdout, "%s: FAILED (%v)\n", provider.Name(), err)
				errs = append(errs, err)
				continue
			}
			_, _ = fmt.Fprintf(stdout, "%s: ok\n", provider.Name())
		}
		return errors.Join(errs...)
	})
}
