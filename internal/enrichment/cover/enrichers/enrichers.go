// Package enrichers contains the cover.Provider implementations for the
// external book metadata services.
package enrichers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/KMcClain23/WarriorMomma/internal/cache"
	"github.com/KMcClain23/WarriorMomma/internal/errors"
	"github.com/KMcClain23/WarriorMomma/internal/ratelimit"
)

// DefaultTimeout bounds a single provider request.
const DefaultTimeout = 10 * time.Second

// Options configures a provider client. Zero values fall back to defaults.
type Options struct {
	// HTTPClient is used for all requests; defaults to a client with DefaultTimeout.
	HTTPClient *http.Client
	// BaseURL overrides the provider's API root (used by tests).
	BaseURL string
	// Cache stores answers between runs; nil disables caching.
	Cache *cache.CacheDB
	// Limiter paces requests to the provider host; nil disables pacing.
	Limiter *ratelimit.Limiter
	// APIKey is sent to providers that accept one.
	APIKey string
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: DefaultTimeout}
}

func (o Options) baseURL(def string) string {
	if o.BaseURL != "" {
		return strings.TrimRight(o.BaseURL, "/")
	}
	return def
}

// cachedLookup is the cache representation of a single search answer.
type cachedLookup struct {
	URL string `json:"url"`
}

func (c *cachedLookup) notFound() bool {
	return c.URL == ""
}

func cacheKey(title, author string) string {
	return strings.ToLower(strings.TrimSpace(title)) + "|" + strings.ToLower(strings.TrimSpace(author))
}

// getJSON performs a paced GET request and decodes a JSON body into out.
func getJSON(ctx context.Context, client *http.Client, limiter *ratelimit.Limiter, provider, url string, out any) error {
	if err := limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return errors.RateLimitFromResponse(provider, resp)
	case resp.StatusCode != http.StatusOK:
		return errors.NewProviderError(provider, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", provider, err)
	}
	return nil
}

// ping issues a plain GET to check that a provider is reachable.
func ping(ctx context.Context, client *http.Client, provider, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating ping request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s ping failed: %w", provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return errors.NewProviderError(provider, resp.StatusCode)
	}
	return nil
}
