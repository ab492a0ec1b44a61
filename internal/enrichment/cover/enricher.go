package cover

import (
	"context"
	"errors"

	"github.com/KMcClain23/WarriorMomma/internal/books"
)

// ErrNoTitle is reported when a record has no title to search with.
var ErrNoTitle = errors.New("book has no title")

// Status classifies what enrichment did to a record.
type Status int

const (
	// StatusNotFound means no usable cover exists: the record has no title
	// or every provider came up empty.
	StatusNotFound Status = iota
	// StatusUnchanged means the existing cover was already usable.
	StatusUnchanged
	// StatusFound means a new cover URL was resolved.
	StatusFound
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusUnchanged:
		return "unchanged"
	default:
		return "not_found"
	}
}

// Outcome describes a single enrichment.
type Outcome struct {
	Status Status
	// URL is the cover URL after enrichment (may be empty).
	URL string
	// Err explains a StatusNotFound outcome when something went wrong
	// (ErrNoTitle or the joined provider errors). It is informational.
	Err error
	// Network is true when at least one outbound request was made.
	Network bool
}

// CoverResolver resolves a cover for a title and author.
type CoverResolver interface {
	Resolve(ctx context.Context, title, author string) Resolution
}

// Enricher backfills missing covers on book records.
type Enricher struct {
	resolver     CoverResolver
	placeholders *PlaceholderMatcher
}

// NewEnricher creates an Enricher. A nil matcher uses the default placeholder hosts.
func NewEnricher(resolver CoverResolver, placeholders *PlaceholderMatcher) *Enricher {
	if placeholders == nil {
		placeholders = defaultMatcher
	}
	return &Enricher{resolver: resolver, placeholders: placeholders}
}

// NeedsLookup reports whether enriching rec would query the providers.
func (e *Enricher) NeedsLookup(rec books.Record) bool {
	return rec.Title != "" && e.placeholders.IsPlaceholder(rec.CoverURL)
}

// HasCover reports whether rec already carries a usable, non-placeholder cover.
func (e *Enricher) HasCover(rec books.Record) bool {
	return !e.placeholders.IsPlaceholder(rec.CoverURL)
}

// Enrich returns rec with a usable cover when one can be found.
//
// A record without a title is returned unchanged. An existing cover that is
// not a placeholder is kept (only its scheme is forced to https) and never
// replaced. Otherwise the resolver is asked; on a miss the record is
// returned unchanged.
func (e *Enricher) Enrich(ctx context.Context, rec books.Record) (books.Record, Outcome) {
	if rec.Title == "" {
		return rec, Outcome{Status: StatusNotFound, URL: rec.CoverURL, Err: ErrNoTitle}
	}

	if !e.placeholders.IsPlaceholder(rec.CoverURL) {
		out := rec.Clone()
		out.CoverURL = NormalizeURL(rec.CoverURL)
		return out, Outcome{Status: StatusUnchanged, URL: out.CoverURL}
	}

	res := e.resolver.Resolve(ctx, rec.Title, rec.Author)
	network := res.Requests() > 0
	if !res.Found() {
		return rec, Outcome{Status: StatusNotFound, URL: rec.CoverURL, Err: res.Err(), Network: network}
	}

	out := rec.Clone()
	out.CoverURL = NormalizeURL(res.URL)
	return out, Outcome{Status: StatusFound, URL: out.CoverURL, Network: network}
}
