package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/KMcClain23/WarriorMomma/internal/books"
	"github.com/KMcClain23/WarriorMomma/internal/enrichment/cover"
	"github.com/KMcClain23/WarriorMomma/internal/fileutil"
	"github.com/KMcClain23/WarriorMomma/internal/store"
)

// SeedCmd represents the seed command
type SeedCmd struct {
	File    string `arg:"" type:"existingfile" help:"Legacy book list (.json, .yaml, .yml or .csv)"`
	Section string `short:"s" help:"Section to import into; overrides the section stored in the file"`
	Clear   bool   `help:"Replace the section's current books instead of adding to them"`
}

func (s *SeedCmd) Run() error {
	var section books.Section
	if s.Section != "" {
		var err error
		if section, err = books.ParseSection(s.Section); err != nil {
			return err
		}
	}
	if s.Clear && section == "" {
		return errors.New("--clear needs --section")
	}

	return withApp(func(a *app) error {
		recs, err := store.LoadSeedFile(s.File, section, a.cfg.NormalizeOptions())
		if err != nil {
			return err
		}
		for i := range recs {
			recs[i].CoverURL = cover.NormalizeURL(recs[i].CoverURL)
		}

		ctx := context.Background()
		if s.Clear {
			if err := a.store.Replace(ctx, section, recs); err != nil {
				return fmt.Errorf("replacing %s: %w", section, err)
			}
			_, _ = fmt.Fprintf(stdout, "Imported %d books into %s\n", len(recs), section)
			return nil
		}

		imported := 0
		for _, rec := range recs {
			if _, err := a.store.Create(ctx, rec); err != nil {
				if errors.Is(err, store.ErrExists) {
					slog.Warn("Skipping book that already exists", "id", rec.ID, "title", rec.Title)
					continue
				}
				return fmt.Errorf("importing %q: %w", rec.Title, err)
			}
			imported++
		}
		_, _ = fmt.Fprintf(stdout, "Imported %d of %d books from %s\n", imported, len(recs), s.File)
		return nil
	})
}

// ListCmd represents the list command
type ListCmd struct {
	Section string `arg:"" optional:"" help:"Section to list (default: all)"`
	JSON    bool   `help:"Print the books as JSON"`
}

func (l *ListCmd) Run() error {
	var raw []string
	if l.Section != "" {
		raw = []string{l.Section}
	}
	sections, err := parseSections(raw)
	if err != nil {
		return err
	}

	return withApp(func(a *app) error {
		ctx := context.Background()
		recs := []books.Record{}
		for _, section := range sections {
			list, err := a.service.List(ctx, section)
			if err != nil {
				return err
			}
			recs = append(recs, list...)
		}

		if l.JSON {
			return printJSON(recs)
		}

		w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tSECTION\tTITLE\tAUTHOR\tSPICE\tCOVER")
		for _, rec := range recs {
			coverMark := "-"
			if !a.enricher.NeedsLookup(rec) {
				coverMark = "yes"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", rec.ID, rec.Section, rec.Title, rec.Author, rec.Spice, coverMark)
		}
		return w.Flush()
	})
}

// AddCmd represents the add command
type AddCmd struct {
	Section     string `arg:"" help:"Section to add the book to"`
	Title       string `short:"t" required:"" help:"Book title"`
	Author      string `short:"a" help:"Book author"`
	Cover       string `help:"Cover image URL; looked up when empty"`
	Genres      string `short:"g" help:"Comma separated genres"`
	Spice       string `help:"Spice level: 0-5 or a label such as high"`
	Notes       string `help:"Free-form notes"`
	ReleaseDate string `help:"Release date"`
	Read        bool   `help:"Mark the book as read"`
	Tbr         bool   `help:"Mark the book as to-be-read"`
	NoLookup    bool   `help:"Do not look up a missing cover"`
}

// document builds the raw book document handed to the collection service.
func (c *AddCmd) document() map[string]any {
	doc := map[string]any{
		"title":  c.Title,
		"isRead": c.Read,
		"isTbr":  c.Tbr,
	}
	optional := map[string]string{
		"author":       c.Author,
		"coverUrl":     c.Cover,
		"genres":       c.Genres,
		"spice":        c.Spice,
		"notes":        c.Notes,
		"release_date": c.ReleaseDate,
	}
	for key, value := range optional {
		if value != "" {
			doc[key] = value
		}
	}
	return doc
}

func (c *AddCmd) Run() error {
	section, err := books.ParseSection(c.Section)
	if err != nil {
		return err
	}

	return withApp(func(a *app) error {
		svc := a.service
		if c.NoLookup {
			svc = a.serviceWithoutLookup()
		}

		ctx, stop := signalContext()
		defer stop()

		rec, err := svc.Add(ctx, section, c.document())
		if err != nil {
			return err
		}
		return printJSON(rec)
	})
}

// EditCmd represents the edit command
type EditCmd struct {
	Section  string            `arg:"" help:"Section the book lives in"`
	ID       string            `arg:"" help:"Book ID"`
	Set      map[string]string `short:"s" help:"Field to change as key=value, e.g. --set spice=4 --set isRead=true"`
	NoLookup bool              `help:"Do not look up a missing cover"`
}

func (e *EditCmd) Run() error {
	section, err := books.ParseSection(e.Section)
	if err != nil {
		return err
	}
	if len(e.Set) == 0 {
		return errors.New("nothing to change, use --set key=value")
	}

	patch := make(map[string]any, len(e.Set))
	for key, value := range e.Set {
		patch[strings.TrimSpace(key)] = value
	}

	return withApp(func(a *app) error {
		svc := a.service
		if e.NoLookup {
			svc = a.serviceWithoutLookup()
		}

		ctx, stop := signalContext()
		defer stop()

		rec, err := svc.Edit(ctx, section, e.ID, patch)
		if err != nil {
			return err
		}
		return printJSON(rec)
	})
}

// DeleteCmd represents the delete command
type DeleteCmd struct {
	Section string `arg:"" help:"Section the book lives in"`
	ID      string `arg:"" help:"Book ID"`
}

func (d *DeleteCmd) Run() error {
	section, err := books.ParseSection(d.Section)
	if err != nil {
		return err
	}

	return withApp(func(a *app) error {
		if err := a.service.Delete(context.Background(), section, d.ID); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "Deleted %s from %s\n", d.ID, section)
		return nil
	})
}

// MoveCmd represents the move command
type MoveCmd struct {
	ID   string `arg:"" help:"Book ID"`
	From string `arg:"" help:"Section the book lives in now"`
	To   string `arg:"" help:"Section to move the book to"`
}

func (m *MoveCmd) Run() error {
	from, err := books.ParseSection(m.From)
	if err != nil {
		return err
	}
	to, err := books.ParseSection(m.To)
	if err != nil {
		return err
	}

	return withApp(func(a *app) error {
		rec, err := a.service.Move(context.Background(), m.ID, from, to)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "Moved %q from %s to %s\n", rec.Title, from, to)
		return nil
	})
}

func printJSON(data any) error {
	out, err := fileutil.MarshalJSON(data)
	if err != nil {
		return err
	}
	_, err = stdout.Write(out)
	return err
}
