// Package coversync backfills covers across a whole collection, one record
// at a time, and reports the books no provider could find.
package coversync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KMcClain23/WarriorMomma/internal/books"
	"github.com/KMcClain23/WarriorMomma/internal/enrichment/cover"
	apperrors "github.com/KMcClain23/WarriorMomma/internal/errors"
)

// DefaultDelay is the pause between records that went to the network.
const DefaultDelay = 800 * time.Millisecond

// ErrPanic marks a record whose enrichment panicked.
var ErrPanic = errors.New("enrichment panicked")

// Enricher is the part of cover.Enricher the batch depends on.
type Enricher interface {
	NeedsLookup(rec books.Record) bool
	HasCover(rec books.Record) bool
	Enrich(ctx context.Context, rec books.Record) (books.Record, cover.Outcome)
}

var _ Enricher = (*cover.Enricher)(nil)

// Missing describes a book that still has no cover after a sync.
type Missing struct {
	ID      string        `json:"id,omitempty"`
	Section books.Section `json:"section,omitempty"`
	Title   string        `json:"title"`
	Author  string        `json:"author"`
	Reason  string        `json:"reason"`
}

// Report is the result of a batch run.
type Report struct {
	// Records holds every input record, updated or not, in input order.
	Records []books.Record
	// Updated holds the records whose cover URL changed.
	Updated []books.Record
	Missing []Missing
	// Err is set when the batch was interrupted by context cancellation.
	Err error
}

// NeedsPersist reports whether the record with id was changed by the sync.
func (r Report) NeedsPersist(id string) bool {
	for _, rec := range r.Updated {
		if rec.ID == id {
			return true
		}
	}
	return false
}

// Syncer runs the enricher over a list of records.
type Syncer struct {
	enricher Enricher
	delay    time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewSyncer creates a Syncer that pauses delay between networked lookups.
// A negative delay uses DefaultDelay; zero disables pausing.
func NewSyncer(enricher Enricher, delay time.Duration) *Syncer {
	if delay < 0 {
		delay = DefaultDelay
	}
	return &Syncer{enricher: enricher, delay: delay, sleep: sleepContext}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SyncAll enriches records in order. It always returns a report; a
// cancelled context stops the batch between records, keeps the remaining
// records untouched in Report.Records and sets Report.Err.
func (s *Syncer) SyncAll(ctx context.Context, records []books.Record) Report {
	report := Report{Records: make([]books.Record, 0, len(records))}
	total := len(records)
	networked := false

	for i, rec := range records {
		lookup := s.enricher.NeedsLookup(rec)

		err := ctx.Err()
		if err == nil && lookup && networked && s.delay > 0 {
			err = s.sleep(ctx, s.delay)
		}
		if err != nil {
			report.Err = err
			slog.Warn("Cover sync interrupted", "processed", i, "total", total, "error", err)
			report.Records = append(report.Records, records[i:]...)
			return report
		}

		if lookup {
			slog.Info("Looking up cover", "progress", fmt.Sprintf("%d/%d", i+1, total), "title", rec.Title, "author", rec.Author)
		}

		out, outcome := s.enrichOne(ctx, rec)
		if lookup {
			networked = outcome.Network
		}
		report.Records = append(report.Records, out)

		if apperrors.IsRateLimitError(outcome.Err) {
			slog.Warn("Provider rate limited, consider a longer sync delay", "title", rec.Title, "error", outcome.Err)
		}

		if out.CoverURL != rec.CoverURL {
			report.Updated = append(report.Updated, out)
		}

		switch {
		case outcome.Status == cover.StatusFound:
			slog.Info("Cover found", "title", rec.Title, "url", out.CoverURL)
		case outcome.Status == cover.StatusNotFound && (errors.Is(outcome.Err, ErrPanic) || !s.enricher.HasCover(rec)):
			missing := Missing{
				ID:      rec.ID,
				Section: rec.Section,
				Title:   rec.Title,
				Author:  rec.Author,
				Reason:  reason(outcome),
			}
			report.Missing = append(report.Missing, missing)
			slog.Warn("No cover found", "title", rec.Title, "author", rec.Author, "reason", missing.Reason)
		}
	}

	slog.Info("Cover sync complete", "records", total, "updated", len(report.Updated), "missing", len(report.Missing))
	return report
}

// enrichOne isolates a single record so a panic cannot abort the batch.
func (s *Syncer) enrichOne(ctx context.Context, rec books.Record) (out books.Record, outcome cover.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Cover enrichment panicked", "title", rec.Title, "panic", r)
			out = rec
			outcome = cover.Outcome{Status: cover.StatusNotFound, URL: rec.CoverURL, Err: fmt.Errorf("%w: %v", ErrPanic, r)}
		}
	}()
	return s.enricher.Enrich(ctx, rec)
}

func reason(outcome cover.Outcome) string {
	if outcome.Err != nil {
		return outcome.Err.Error()
	}
	return "no cover found"
}
