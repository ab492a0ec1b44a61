// Package collection implements the book collection operations: listing,
// adding, editing, deleting and moving books between sections, with cover
// backfill on every write.
package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KMcClain23/WarriorMomma/internal/books"
	"github.com/KMcClain23/WarriorMomma/internal/coversync"
	"github.com/KMcClain23/WarriorMomma/internal/enrichment/cover"
	"github.com/KMcClain23/WarriorMomma/internal/store"
)

// ErrTitleRequired is returned when adding a book without a title.
var ErrTitleRequired = errors.New("title is required")

// Enricher backfills covers on records before they are stored.
type Enricher interface {
	Enrich(ctx context.Context, rec books.Record) (books.Record, cover.Outcome)
}

// Service is the collection API used by the CLI.
type Service struct {
	store    store.Store
	enricher Enricher
	opts     books.NormalizeOptions
}

// NewService creates a Service. A nil enricher stores records without
// looking up covers.
func NewService(st store.Store, enricher Enricher, opts books.NormalizeOptions) *Service {
	return &Service{store: st, enricher: enricher, opts: opts}
}

func checkSection(section books.Section) error {
	if !section.Valid() {
		return fmt.Errorf("%w: %q", books.ErrInvalidSection, section)
	}
	return nil
}

// List returns the books of a section, newest first.
func (s *Service) List(ctx context.Context, section books.Section) ([]books.Record, error) {
	if err := checkSection(section); err != nil {
		return nil, err
	}
	return s.store.List(ctx, section)
}

// All returns the books of every section, section by section.
func (s *Service) All(ctx context.Context) ([]books.Record, error) {
	var all []books.Record
	for _, section := range books.Sections {
		recs, err := s.store.List(ctx, section)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", section, err)
		}
		all = append(all, recs...)
	}
	return all, nil
}

// Add normalizes an incoming book document, backfills its cover and stores
// it in section. Any id or creation time in the document is ignored.
func (s *Service) Add(ctx context.Context, section books.Section, raw map[string]any) (books.Record, error) {
	if err := checkSection(section); err != nil {
		return books.Record{}, err
	}

	rec := books.Normalize(raw, section, s.opts)
	if rec.Title == "" {
		return books.Record{}, ErrTitleRequired
	}
	rec.ID = ""
	rec.CreatedAt = time.Time{}

	rec = s.backfill(ctx, rec)
	created, err := s.store.Create(ctx, rec)
	if err != nil {
		return books.Record{}, fmt.Errorf("adding book: %w", err)
	}
	slog.Info("Book added", "section", section, "id", created.ID, "title", created.Title)
	return created, nil
}

// Edit merges patch into the stored book, normalizes the result and
// backfills its cover. The ID, section and creation time never change.
func (s *Service) Edit(ctx context.Context, section books.Section, id string, patch map[string]any) (books.Record, error) {
	if err := checkSection(section); err != nil {
		return books.Record{}, err
	}

	existing, err := s.store.Get(ctx, section, id)
	if err != nil {
		return books.Record{}, err
	}

	rec := books.Normalize(books.MergePatch(existing, patch), section, s.opts)
	rec.ID = existing.ID
	rec.CreatedAt = existing.CreatedAt
	if rec.Title == "" {
		return books.Record{}, ErrTitleRequired
	}

	rec = s.backfill(ctx, rec)
	if err := s.store.Update(ctx, rec); err != nil {
		return books.Record{}, fmt.Errorf("updating book: %w", err)
	}
	slog.Info("Book updated", "section", section, "id", rec.ID, "title", rec.Title)
	return rec, nil
}

// Delete removes a book from a section.
func (s *Service) Delete(ctx context.Context, section books.Section, id string) error {
	if err := checkSection(section); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, section, id); err != nil {
		return err
	}
	slog.Info("Book deleted", "section", section, "id", id)
	return nil
}

// Move transfers a book from one section to another. The book must
// currently live in from.
func (s *Service) Move(ctx context.Context, id string, from, to books.Section) (books.Record, error) {
	if err := checkSection(from); err != nil {
		return books.Record{}, err
	}
	if err := checkSection(to); err != nil {
		return books.Record{}, err
	}

	rec, err := s.store.Move(ctx, id, from, to)
	if err != nil {
		return books.Record{}, err
	}
	slog.Info("Book moved", "id", id, "from", from, "to", to)
	return rec, nil
}

// SyncCovers runs the batch cover sync over the given sections (all of
// them when none are given) and persists every record the sync changed,
// even when the batch was interrupted.
func (s *Service) SyncCovers(ctx context.Context, syncer *coversync.Syncer, sections ...books.Section) (coversync.Report, error) {
	if len(sections) == 0 {
		sections = books.Sections
	}

	var records []books.Record
	for _, section := range sections {
		recs, err := s.List(ctx, section)
		if err != nil {
			return coversync.Report{}, fmt.Errorf("listing %s: %w", section, err)
		}
		records = append(records, recs...)
	}

	report := syncer.SyncAll(ctx, records)
	if len(report.Updated) > 0 {
		// A cancelled ctx must not prevent saving the covers already found.
		if err := s.store.Update(context.WithoutCancel(ctx), report.Updated...); err != nil {
			return report, fmt.Errorf("saving updated covers: %w", err)
		}
	}
	return report, nil
}

func (s *Service) backfill(ctx context.Context, rec books.Record) books.Record {
	if s.enricher == nil {
		return rec
	}
	out, outcome := s.enricher.Enrich(ctx, rec)
	if outcome.Status == cover.StatusNotFound && outcome.Err != nil {
		slog.Debug("Cover backfill failed", "title", rec.Title, "error", outcome.Err)
	}
	return out
}
