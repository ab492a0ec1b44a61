package enrichers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/KMcClain23/WarriorMomma/internal/cache"
	"github.com/KMcClain23/WarriorMomma/internal/enrichment/cover"
	"github.com/KMcClain23/WarriorMomma/internal/ratelimit"
)

const (
	// OpenLibraryBaseURL is the public OpenLibrary endpoint.
	OpenLibraryBaseURL   = "https://openlibrary.org"
	openLibraryCoversURL = "https://covers.openlibrary.org"
	openLibraryTable     = "openlibrary_cache"
)

// OpenLibraryProvider searches OpenLibrary by title and author and builds a
// cover URL from the best match's cover id or ISBN.
type OpenLibraryProvider struct {
	client  *http.Client
	baseURL string
	cache   *cache.CacheDB
	limiter *ratelimit.Limiter
}

// Compile-time check that OpenLibraryProvider implements cover.Provider.
var _ cover.Provider = (*OpenLibraryProvider)(nil)

// NewOpenLibraryProvider creates a new OpenLibrary provider.
func NewOpenLibraryProvider(opts Options) *OpenLibraryProvider {
	return &OpenLibraryProvider{
		client:  opts.httpClient(),
		baseURL: opts.baseURL(OpenLibraryBaseURL),
		cache:   opts.Cache,
		limiter: opts.Limiter,
	}
}

// Name returns the human-readable name of this provider.
func (p *OpenLibraryProvider) Name() string {
	return "OpenLibrary"
}

// Ping tests the connection to OpenLibrary.
func (p *OpenLibraryProvider) Ping(ctx context.Context) error {
	return ping(ctx, p.client, p.Name(), p.baseURL)
}

// openLibrarySearchResponse matches the parts of /search.json we read.
type openLibrarySearchResponse struct {
	Docs []struct {
		CoverI int64    `json:"cover_i"`
		ISBN   []string `json:"isbn"`
	} `json:"docs"`
}

// Search queries /search.json for a single result.
func (p *OpenLibraryProvider) Search(ctx context.Context, title, author string) (cover.Lookup, error) {
	requests := 0
	res, _, err := cache.GetOrFetchWithTTL(p.cache, openLibraryTable, cacheKey(title, author), func() (*cachedLookup, error) {
		requests++
		return p.fetch(ctx, title, author)
	}, cache.SelectNegativeCacheTTL(p.cache, (*cachedLookup).notFound))
	if err != nil {
		return cover.Lookup{Requests: requests}, err
	}
	return cover.Lookup{URL: res.URL, Requests: requests}, nil
}

func (p *OpenLibraryProvider) fetch(ctx context.Context, title, author string) (*cachedLookup, error) {
	params := url.Values{}
	if title != "" {
		params.Set("title", title)
	}
	if author != "" {
		params.Set("author", author)
	}
	params.Set("limit", "1")

	var result openLibrarySearchResponse
	if err := getJSON(ctx, p.client, p.limiter, p.Name(), p.baseURL+"/search.json?"+params.Encode(), &result); err != nil {
		return nil, err
	}

	return &cachedLookup{URL: openLibraryCoverURL(result)}, nil
}

// openLibraryCoverURL prefers the cover id of the first doc, then its first ISBN.
func openLibraryCoverURL(result openLibrarySearchResponse) string {
	if len(result.Docs) == 0 {
		return ""
	}
	doc := result.Docs[0]
	if doc.CoverI > 0 {
		return fmt.Sprintf("%s/b/id/%d-L.jpg", openLibraryCoversURL, doc.CoverI)
	}
	if len(doc.ISBN) > 0 && doc.ISBN[0] != "" {
		return fmt.Sprintf("%s/b/isbn/%s-L.jpg", openLibraryCoversURL, url.PathEscape(doc.ISBN[0]))
	}
	return ""
}
