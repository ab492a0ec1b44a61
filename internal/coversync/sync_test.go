package coversync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KMcClain23/WarriorMomma/internal/books"
	"github.com/KMcClain23/WarriorMomma/internal/enrichment/cover"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider answers by title; a title mapped to panicTitle panics.
type scriptedProvider struct {
	name     string
	urls     map[string]string
	errs     map[string]error
	requests int
	calls    []string
}

const panicTitle = "Boom"

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Search(_ context.Context, title, _ string) (cover.Lookup, error) {
	p.calls = append(p.calls, title)
	if title == panicTitle {
		panic("nil map write")
	}
	if err := p.errs[title]; err != nil {
		return cover.Lookup{Requests: p.requests}, err
	}
	return cover.Lookup{URL: p.urls[title], Requests: p.requests}, nil
}

type sleepRecorder struct {
	slept []time.Duration
	err   error
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	return s.err
}

func newTestSyncer(primary, fallback *scriptedProvider) (*Syncer, *sleepRecorder) {
	enricher := cover.NewEnricher(cover.NewResolver(primary, fallback), nil)
	syncer := NewSyncer(enricher, -1)
	rec := &sleepRecorder{}
	syncer.sleep = rec.sleep
	return syncer, rec
}

func providers() (*scriptedProvider, *scriptedProvider) {
	primary := &scriptedProvider{name: "OpenLibrary", urls: map[string]string{}, errs: map[string]error{}, requests: 1}
	fallback := &scriptedProvider{name: "Google Books", urls: map[string]string{}, errs: map[string]error{}, requests: 1}
	return primary, fallback
}

func TestSyncAllThreeRecordsWithFailure(t *testing.T) {
	primary, fallback := providers()
	primary.urls["Ruin"] = "https://covers.openlibrary.org/b/id/42-L.jpg"
	primary.errs["Broken"] = errors.New("OpenLibrary: provider unavailable (HTTP 500)")
	fallback.errs["Broken"] = errors.New("Google Books: provider unavailable (HTTP 503)")
	fallback.urls["Fourth Wing"] = "http://books.google.com/books/content?id=3&edge=curl"

	records := []books.Record{
		{ID: "1", Title: "Ruin (Villain #2)", Author: "J. Doe", CoverURL: "https://placehold.co/300x450", Section: books.SectionLibrary},
		{ID: "2", Title: "Broken", Author: "A. Writer", Section: books.SectionUpcoming},
		{ID: "3", Title: "Fourth Wing", Author: "Rebecca Yarros", Section: books.SectionLibrary},
	}

	syncer, sleeps := newTestSyncer(primary, fallback)
	report := syncer.SyncAll(context.Background(), records)

	require.NoError(t, report.Err)
	require.Len(t, report.Records, 3)
	assert.Equal(t, "https://covers.openlibrary.org/b/id/42-L.jpg", report.Records[0].CoverURL)
	assert.Empty(t, report.Records[1].CoverURL)
	assert.Equal(t, "https://books.google.com/books/content?id=3", report.Records[2].CoverURL)

	require.Len(t, report.Updated, 2)
	assert.True(t, report.NeedsPersist("1"))
	assert.False(t, report.NeedsPersist("2"))
	assert.True(t, report.NeedsPersist("3"))

	require.Len(t, report.Missing, 1)
	missing := report.Missing[0]
	assert.Equal(t, "2", missing.ID)
	assert.Equal(t, books.SectionUpcoming, missing.Section)
	assert.Equal(t, "Broken", missing.Title)
	assert.Equal(t, "A. Writer", missing.Author)
	assert.Contains(t, missing.Reason, "HTTP 500")
	assert.Contains(t, missing.Reason, "HTTP 503")

	assert.Equal(t, []time.Duration{DefaultDelay, DefaultDelay}, sleeps.slept)
	assert.Equal(t, "https://placehold.co/300x450", records[0].CoverURL, "input must not be mutated")
}

func TestSyncAllSkipsDelayWithoutNetwork(t *testing.T) {
	primary, fallback := providers()

	records := []books.Record{
		{ID: "1", Title: "A", CoverURL: "https://example.com/a.jpg"},
		{ID: "2", Title: "B", CoverURL: "https://example.com/b.jpg"},
		{ID: "3", Title: ""},
	}

	syncer, sleeps := newTestSyncer(primary, fallback)
	report := syncer.SyncAll(context.Background(), records)

	assert.Empty(t, sleeps.slept)
	assert.Empty(t, primary.calls)
	assert.Empty(t, report.Updated)
	require.Len(t, report.Missing, 1)
	assert.Equal(t, cover.ErrNoTitle.Error(), report.Missing[0].Reason)
}

func TestSyncAllCacheHitsDoNotDelay(t *testing.T) {
	primary, fallback := providers()
	primary.requests = 0
	fallback.requests = 0
	primary.urls["A"] = "https://covers.openlibrary.org/b/id/1-L.jpg"
	primary.urls["B"] = "https://covers.openlibrary.org/b/id/2-L.jpg"

	syncer, sleeps := newTestSyncer(primary, fallback)
	report := syncer.SyncAll(context.Background(), []books.Record{{ID: "1", Title: "A"}, {ID: "2", Title: "B"}})

	assert.Len(t, report.Updated, 2)
	assert.Empty(t, sleeps.slept)
}

func TestSyncAllRecoversFromPanic(t *testing.T) {
	primary, fallback := providers()
	primary.urls["After"] = "https://covers.openlibrary.org/b/id/9-L.jpg"

	records := []books.Record{
		{ID: "1", Title: panicTitle, CoverURL: "https://example.com/kept.jpg"},
		{ID: "2", Title: panicTitle},
		{ID: "3", Title: "After"},
	}
	// The first record has a real cover and never reaches a provider.
	syncer, _ := newTestSyncer(primary, fallback)
	report := syncer.SyncAll(context.Background(), records)

	require.NoError(t, report.Err)
	require.Len(t, report.Records, 3)
	require.Len(t, report.Missing, 1)
	assert.Equal(t, "2", report.Missing[0].ID)
	assert.Contains(t, report.Missing[0].Reason, "nil map write")
	assert.Equal(t, "https://covers.openlibrary.org/b/id/9-L.jpg", report.Records[2].CoverURL)
}

func TestSyncAllStopsWhenCancelledDuringDelay(t *testing.T) {
	primary, fallback := providers()
	primary.urls["A"] = "https://covers.openlibrary.org/b/id/1-L.jpg"

	records := []books.Record{{ID: "1", Title: "A"}, {ID: "2", Title: "B"}, {ID: "3", Title: "C"}}

	syncer, sleeps := newTestSyncer(primary, fallback)
	sleeps.err = context.Canceled
	report := syncer.SyncAll(context.Background(), records)

	require.ErrorIs(t, report.Err, context.Canceled)
	require.Len(t, report.Records, 3)
	assert.Equal(t, records[1:], report.Records[1:])
	assert.Equal(t, []string{"A"}, primary.calls)
	assert.Empty(t, report.Missing)
}

func TestSyncAllCancelledBeforeStart(t *testing.T) {
	primary, fallback := providers()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := []books.Record{{ID: "1", Title: "A"}}
	syncer, _ := newTestSyncer(primary, fallback)
	report := syncer.SyncAll(ctx, records)

	require.ErrorIs(t, report.Err, context.Canceled)
	assert.Equal(t, records, report.Records)
	assert.Empty(t, primary.calls)
}

func TestNewSyncerDelay(t *testing.T) {
	enricher := cover.NewEnricher(cover.NewResolver(nil, nil), nil)

	assert.Equal(t, DefaultDelay, NewSyncer(enricher, -1).delay)
	assert.Equal(t, time.Duration(0), NewSyncer(enricher, 0).delay)
	assert.Equal(t, time.Second, NewSyncer(enricher, time.Second).delay)
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
