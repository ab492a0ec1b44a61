package enrichers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/KMcClain23/WarriorMomma/internal/cache"
	"github.com/KMcClain23/WarriorMomma/internal/enrichment/cover"
	"github.com/KMcClain23/WarriorMomma/internal/ratelimit"
)

const (
	// GoogleBooksBaseURL is the public Google Books API endpoint.
	GoogleBooksBaseURL    = "https://www.googleapis.com/books/v1"
	googleBooksTable      = "googlebooks_cache"
	googleBooksMaxResults = "5"
)

// GoogleBooksProvider searches the Google Books volumes API, trying several
// title/author variants until one yields an image.
type GoogleBooksProvider struct {
	client  *http.Client
	baseURL string
	cache   *cache.CacheDB
	limiter *ratelimit.Limiter
	apiKey  string
}

// Compile-time check that GoogleBooksProvider implements cover.Provider.
var _ cover.Provider = (*GoogleBooksProvider)(nil)

// NewGoogleBooksProvider creates a new Google Books provider.
func NewGoogleBooksProvider(opts Options) *GoogleBooksProvider {
	return &GoogleBooksProvider{
		client:  opts.httpClient(),
		baseURL: opts.baseURL(GoogleBooksBaseURL),
		cache:   opts.Cache,
		limiter: opts.Limiter,
		apiKey:  opts.APIKey,
	}
}

// Name returns the human-readable name of this provider.
func (p *GoogleBooksProvider) Name() string {
	return "Google Books"
}

// Ping tests the connection to Google Books API.
func (p *GoogleBooksProvider) Ping(ctx context.Context) error {
	// Use a simple search that should always return results
	return ping(ctx, p.client, p.Name(), p.baseURL+"/volumes?q=isbn:0140447938&maxResults=1")
}

// googleBooksResponse matches the parts of the volumes response we read.
type googleBooksResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo struct {
			ImageLinks *struct {
				ExtraLarge     string `json:"extraLarge"`
				Large          string `json:"large"`
				Medium         string `json:"medium"`
				Thumbnail      string `json:"thumbnail"`
				SmallThumbnail string `json:"smallThumbnail"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// Variant is one title/author pairing tried against Google Books.
type Variant struct {
	Title  string
	Author string
}

// Variants returns the ordered, de-duplicated query variants for a book:
// the original pair, the cleaned title with the author, the cleaned title
// alone, the original title alone, and the first two words of the title
// with the author.
func Variants(title, author string) []Variant {
	cleaned := cover.CleanTitle(title)

	var candidates []Variant
	candidates = append(candidates, Variant{title, author})
	if cleaned != "" && cleaned != title {
		candidates = append(candidates, Variant{cleaned, author})
	}
	if cleaned != "" {
		candidates = append(candidates, Variant{cleaned, ""})
	}
	if title != "" {
		candidates = append(candidates, Variant{title, ""})
	}
	short := cleaned
	if short == "" {
		short = title
	}
	if two := cover.FirstTwoWords(short); two != "" && author != "" {
		candidates = append(candidates, Variant{two, author})
	}

	seen := make(map[Variant]bool, len(candidates))
	out := make([]Variant, 0, len(candidates))
	for _, v := range candidates {
		if v.Title == "" && v.Author == "" {
			continue
		}
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// Search tries each variant in order and stops at the first one that
// yields an image. A failing or empty variant moves on to the next.
func (p *GoogleBooksProvider) Search(ctx context.Context, title, author string) (cover.Lookup, error) {
	var (
		lookup cover.Lookup
		errs   []error
	)

	for _, v := range Variants(title, author) {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		res, _, err := cache.GetOrFetchWithTTL(p.cache, googleBooksTable, cacheKey(v.Title, v.Author), func() (*cachedLookup, error) {
			lookup.Requests++
			return p.fetch(ctx, v)
		}, cache.SelectNegativeCacheTTL(p.cache, (*cachedLookup).notFound))
		if err != nil {
			errs = append(errs, fmt.Errorf("variant %q/%q: %w", v.Title, v.Author, err))
			continue
		}
		if res.URL != "" {
			lookup.URL = res.URL
			return lookup, nil
		}
	}

	return lookup, errors.Join(errs...)
}

func (p *GoogleBooksProvider) fetch(ctx context.Context, v Variant) (*cachedLookup, error) {
	var q []string
	if v.Title != "" {
		q = append(q, "intitle:"+v.Title)
	}
	if v.Author != "" {
		q = append(q, "inauthor:"+v.Author)
	}

	params := url.Values{}
	params.Set("q", strings.Join(q, " "))
	params.Set("printType", "books")
	params.Set("maxResults", googleBooksMaxResults)
	if p.apiKey != "" {
		params.Set("key", p.apiKey)
	}

	var result googleBooksResponse
	if err := getJSON(ctx, p.client, p.limiter, p.Name(), p.baseURL+"/volumes?"+params.Encode(), &result); err != nil {
		return nil, err
	}

	return &cachedLookup{URL: googleBooksImage(result)}, nil
}

// googleBooksImage returns the largest image of the first item that has one.
func googleBooksImage(result googleBooksResponse) string {
	for _, item := range result.Items {
		links := item.VolumeInfo.ImageLinks
		if links == nil {
			continue
		}
		for _, candidate := range []string{links.ExtraLarge, links.Large, links.Medium, links.Thumbnail, links.SmallThumbnail} {
			if candidate != "" {
				return cover.NormalizeURL(candidate)
			}
		}
	}
	return ""
}
