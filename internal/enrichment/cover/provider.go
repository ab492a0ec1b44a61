// Package cover resolves cover art for book records by querying external
// metadata providers in a fixed fallback order.
package cover

import (
	"context"
)

// Provider searches a single external source for a cover image.
type Provider interface {
	// Name returns the human-readable name of the source (e.g., "OpenLibrary").
	Name() string

	// Search looks up a cover for the title and optional author.
	// A zero Lookup.URL means nothing usable was found. The returned error
	// is diagnostic only: callers treat any error as "no cover".
	Search(ctx context.Context, title, author string) (Lookup, error)
}

// Lookup is the answer of a single provider search.
type Lookup struct {
	// URL is the candidate cover URL, empty when none was found.
	URL string

	// Requests counts the outbound HTTP requests the search made.
	// Answers served from cache count zero.
	Requests int
}
