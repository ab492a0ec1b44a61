package cover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Attempt records one provider query made while resolving a cover.
type Attempt struct {
	Provider string
	Title    string
	Author   string
	URL      string
	Requests int
	Err      error
}

// Resolution is the result of running the provider fallback chain.
type Resolution struct {
	// URL is the https cover URL, empty when every step came up empty.
	URL      string
	Attempts []Attempt
}

// Found reports whether a cover URL was resolved.
func (r Resolution) Found() bool {
	return r.URL != ""
}

// Requests returns the number of outbound HTTP requests made across all attempts.
func (r Resolution) Requests() int {
	n := 0
	for _, a := range r.Attempts {
		n += a.Requests
	}
	return n
}

// Err joins the errors of all attempts, or returns nil when none failed.
func (r Resolution) Err() error {
	var errs []error
	for _, a := range r.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errors.Join(errs...)
}

// Resolver runs the cover fallback chain:
//
//  1. primary provider with the title and author as given
//  2. primary provider with the cleaned title, when cleaning changed it
//  3. fallback provider with the title and author as given
//
// The primary provider is expected to be cheap and precise (OpenLibrary);
// the fallback runs its own, wider variant search (Google Books).
type Resolver struct {
	primary  Provider
	fallback Provider
}

// NewResolver creates a Resolver. Either provider may be nil to skip it.
func NewResolver(primary, fallback Provider) *Resolver {
	return &Resolver{primary: primary, fallback: fallback}
}

type step struct {
	provider Provider
	title    string
	author   string
}

func (r *Resolver) steps(title, author string) []step {
	var steps []step
	if r.primary != nil {
		steps = append(steps, step{r.primary, title, author})
		if cleaned := CleanTitle(title); cleaned != "" && cleaned != title {
			steps = append(steps, step{r.primary, cleaned, author})
		}
	}
	if r.fallback != nil {
		steps = append(steps, step{r.fallback, title, author})
	}
	return steps
}

// Resolve finds a cover URL for title and author. It never fails: provider
// errors are recorded in the returned attempts and the chain moves on.
func (r *Resolver) Resolve(ctx context.Context, title, author string) Resolution {
	var res Resolution

	for _, s := range r.steps(title, author) {
		if err := ctx.Err(); err != nil {
			res.Attempts = append(res.Attempts, Attempt{
				Provider: s.provider.Name(),
				Title:    s.title,
				Author:   s.author,
				Err:      fmt.Errorf("%s search skipped: %w", s.provider.Name(), err),
			})
			break
		}

		lookup, err := s.provider.Search(ctx, s.title, s.author)
		attempt := Attempt{
			Provider: s.provider.Name(),
			Title:    s.title,
			Author:   s.author,
			URL:      lookup.URL,
			Requests: lookup.Requests,
			Err:      err,
		}
		res.Attempts = append(res.Attempts, attempt)

		if err != nil {
			slog.Debug("Cover provider failed", "provider", attempt.Provider, "title", s.title, "author", s.author, "error", err)
		}
		if lookup.URL != "" {
			res.URL = NormalizeURL(lookup.URL)
			slog.Debug("Cover found", "provider", attempt.Provider, "title", s.title, "url", res.URL)
			return res
		}
	}

	return res
}
