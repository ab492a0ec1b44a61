package enrichers

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/KMcClain23/WarriorMomma/internal/errors"
	"github.com/KMcClain23/WarriorMomma/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenLibrarySearchUsesCoverID(t *testing.T) {
	server := testutil.NewIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "Ruin", r.URL.Query().Get("title"))
		assert.Equal(t, "J. Doe", r.URL.Query().Get("author"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"numFound":1,"docs":[{"cover_i":42,"isbn":["9780000000001"]}]}`))
	}))

	p := NewOpenLibraryProvider(Options{BaseURL: server.URL, HTTPClient: server.Client()})
	lookup, err := p.Search(context.Background(), "Ruin", "J. Doe")

	require.NoError(t, err)
	assert.Equal(t, "https://covers.openlibrary.org/b/id/42-L.jpg", lookup.URL)
	assert.Equal(t, 1, lookup.Requests)
	assert.Equal(t, "OpenLibrary", p.Name())
}

func TestOpenLibrarySearchFallsBackToISBN(t *testing.T) {
	server := testutil.NewIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"docs":[{"isbn":["9780000000002","123"]}]}`))
	}))

	p := NewOpenLibraryProvider(Options{BaseURL: server.URL, HTTPClient: server.Client()})
	lookup, err := p.Search(context.Background(), "Dark Vow", "")

	require.NoError(t, err)
	assert.Equal(t, "https://covers.openlibrary.org/b/isbn/9780000000002-L.jpg", lookup.URL)
}

func TestOpenLibrarySearchNoDocs(t *testing.T) {
	server := testutil.NewIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"docs":[]}`))
	}))

	p := NewOpenLibraryProvider(Options{BaseURL: server.URL, HTTPClient: server.Client()})
	lookup, err := p.Search(context.Background(), "Nothing", "Nobody")

	require.NoError(t, err)
	assert.Empty(t, lookup.URL)
}

func TestOpenLibrarySearchHTTPErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"server error", http.StatusInternalServerError, errors.IsProviderError},
		{"rate limited", http.StatusTooManyRequests, errors.IsRateLimitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := testutil.NewIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			p := NewOpenLibraryProvider(Options{BaseURL: server.URL, HTTPClient: server.Client()})
			lookup, err := p.Search(context.Background(), "Ruin", "J. Doe")

			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
			assert.Empty(t, lookup.URL)
			assert.Equal(t, 1, lookup.Requests)
		})
	}
}

func TestOpenLibrarySearchMalformedBody(t *testing.T) {
	server := testutil.NewIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))

	p := NewOpenLibraryProvider(Options{BaseURL: server.URL, HTTPClient: server.Client()})
	_, err := p.Search(context.Background(), "Ruin", "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding OpenLibrary response")
}

func TestOpenLibrarySearchCachesAnswers(t *testing.T) {
	var hits atomic.Int32
	server := testutil.NewIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("title") == "Missing" {
			_, _ = w.Write([]byte(`{"docs":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"docs":[{"cover_i":7}]}`))
	}))

	p := NewOpenLibraryProvider(Options{BaseURL: server.URL, HTTPClient: server.Client(), Cache: newTestCache(t)})
	ctx := context.Background()

	for range 2 {
		_, err := p.Search(ctx, "Ruin", "J. Doe")
		require.NoError(t, err)
		_, err = p.Search(ctx, "Missing", "")
		require.NoError(t, err)
	}

	lookup, err := p.Search(ctx, "ruin ", "j. doe")
	require.NoError(t, err)
	assert.Equal(t, "https://covers.openlibrary.org/b/id/7-L.jpg", lookup.URL)
	assert.Equal(t, 0, lookup.Requests)
	assert.Equal(t, int32(2), hits.Load())
}

func TestOpenLibraryPing(t *testing.T) {
	server := testutil.NewIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	p := NewOpenLibraryProvider(Options{BaseURL: server.URL, HTTPClient: server.Client()})
	require.NoError(t, p.Ping(context.Background()))
}
