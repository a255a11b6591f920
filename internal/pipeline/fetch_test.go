package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/feedpress/feedpress/internal/apperr"
	"github.com/feedpress/feedpress/internal/dedupe"
	"github.com/feedpress/feedpress/internal/domain"
	"github.com/feedpress/feedpress/internal/feed"
	"github.com/feedpress/feedpress/internal/storage/inmem"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator struct {
	valid map[uuid.UUID]bool
}

func (v *stubValidator) Validate(_ context.Context, source domain.Source) feed.ValidationResult {
	if v.valid[source.ID] {
		return feed.ValidationResult{IsValid: true}
	}
	return feed.ValidationResult{IsValid: false, Reason: feed.ValidationFailedReason}
}

type stubFetcher struct {
	items map[uuid.UUID][]domain.CandidateItem
	errs  map[uuid.UUID]error
}

func (f *stubFetcher) FetchCandidates(_ context.Context, source domain.Source) ([]domain.CandidateItem, error) {
	if err := f.errs[source.ID]; err != nil {
		return nil, err
	}
	return f.items[source.ID], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func candidates(n int, prefix string) []domain.CandidateItem {
	items := make([]domain.CandidateItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, domain.CandidateItem{
			Title: fmt.Sprintf("%s %d", prefix, i),
			URL:   fmt.Sprintf("https://example.com/%s/%d", prefix, i),
		})
	}
	return items
}

func seedSite(t *testing.T, store *inmem.Store) domain.Site {
	t.Helper()
	site := domain.Site{Slug: "volt-weekly", Name: "Volt Weekly", Tone: domain.ToneProfessional, Active: true}
	require.NoError(t, store.SaveSite(context.Background(), &site))
	return site
}

func seedSource(t *testing.T, store *inmem.Store, siteID uuid.UUID, validated bool) domain.Source {
	t.Helper()
	source := domain.Source{
		SiteID:    siteID,
		URL:       "https://example.com/feed-" + uuid.NewString() + ".xml",
		Kind:      domain.SourceKindRSS,
		Active:    true,
		Validated: validated,
	}
	require.NoError(t, store.SaveSource(context.Background(), &source))
	return source
}

func newFetchOrchestrator(store *inmem.Store, validator SourceValidator, fetcher CandidateFetcher) *FetchOrchestrator {
	return NewFetchOrchestrator(store, validator, fetcher, dedupe.NewEngine(store), testLogger())
}

func TestFetchRun_NewItems(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	site := seedSite(t, store)
	source := seedSource(t, store, site.ID, true)

	fetcher := &stubFetcher{items: map[uuid.UUID][]domain.CandidateItem{
		source.ID: candidates(3, "posts"),
	}}
	o := newFetchOrchestrator(store, &stubValidator{}, fetcher)

	stats, err := o.Run(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FetchStats{Sourced: 3, NewArticles: 3, Duplicates: 0, Errors: 0}, stats)

	articles := store.ArticlesBySite(site.ID)
	require.Len(t, articles, 3)
	for _, a := range articles {
		assert.Equal(t, domain.StatusRaw, a.Status)
		assert.Equal(t, source.ID, a.SourceID)
		assert.NotEmpty(t, a.Fingerprint)
	}

	logs := store.JobLogsBySite(site.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.JobTypeFetchSources, logs[0].JobType)
	assert.Equal(t, domain.JobStatusCompleted, logs[0].Status)
	assert.Equal(t, 3, logs[0].ArticlesFetched)

	updated, err := store.GetSource(ctx, source.ID)
	require.NoError(t, err)
	assert.False(t, updated.LastFetchedAt.IsZero())
	assert.Equal(t, 3, updated.ArticleCount)
	assert.Empty(t, updated.LastError)
}

func TestFetchRun_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	site := seedSite(t, store)
	source := seedSource(t, store, site.ID, true)

	fetcher := &stubFetcher{items: map[uuid.UUID][]domain.CandidateItem{
		source.ID: candidates(3, "posts"),
	}}
	o := newFetchOrchestrator(store, &stubValidator{}, fetcher)

	_, err := o.Run(ctx, site.ID)
	require.NoError(t, err)

	stats, err := o.Run(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FetchStats{Sourced: 3, NewArticles: 0, Duplicates: 3, Errors: 0}, stats)
	assert.Len(t, store.ArticlesBySite(site.ID), 3, "no article may be re-ingested")
}

func TestFetchRun_UnpublishedArticleStaysDuplicate(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	site := seedSite(t, store)
	source := seedSource(t, store, site.ID, true)

	withdrawnURL := "https://example.com/posts/withdrawn"
	fp, err := dedupe.Fingerprint(withdrawnURL)
	require.NoError(t, err)
	require.NoError(t, store.InsertArticle(ctx, &domain.Article{
		SiteID:        site.ID,
		SourceID:      source.ID,
		Status:        domain.StatusUnpublished,
		OriginalTitle: "Withdrawn",
		OriginalURL:   withdrawnURL,
		Fingerprint:   fp,
	}))

	fetcher := &stubFetcher{items: map[uuid.UUID][]domain.CandidateItem{
		source.ID: {{Title: "Withdrawn", URL: withdrawnURL}},
	}}
	o := newFetchOrchestrator(store, &stubValidator{}, fetcher)

	stats, err := o.Run(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FetchStats{Sourced: 1, NewArticles: 0, Duplicates: 1, Errors: 0}, stats)

	articles := store.ArticlesBySite(site.ID)
	require.Len(t, articles, 1, "re-fetching must not resurrect a withdrawn article")
	assert.Equal(t, domain.StatusUnpublished, articles[0].Status)
}

func TestFetchRun_NoActiveSources(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	site := seedSite(t, store)

	inactive := domain.Source{SiteID: site.ID, URL: "https://example.com/feed.xml", Kind: domain.SourceKindRSS, Active: false}
	require.NoError(t, store.SaveSource(ctx, &inactive))

	o := newFetchOrchestrator(store, &stubValidator{}, &stubFetcher{})

	_, err := o.Run(ctx, site.ID)
	var ce *apperr.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "no active sources", ce.Message)

	assert.Empty(t, store.ArticlesBySite(site.ID), "fail-fast run must perform no writes")
	assert.Empty(t, store.JobLogsBySite(site.ID))
}

func TestFetchRun_SiteNotFound(t *testing.T) {
	store := inmem.NewStore()
	o := newFetchOrchestrator(store, &stubValidator{}, &stubFetcher{})

	_, err := o.Run(context.Background(), uuid.New())
	var nf *apperr.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestFetchRun_SourceFailureIsolation(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	site := seedSite(t, store)
	broken := seedSource(t, store, site.ID, true)
	healthy := seedSource(t, store, site.ID, true)

	fetcher := &stubFetcher{
		items: map[uuid.UUID][]domain.CandidateItem{healthy.ID: candidates(2, "ok")},
		errs:  map[uuid.UUID]error{broken.ID: errors.New("connection reset")},
	}
	o := newFetchOrchestrator(store, &stubValidator{}, fetcher)

	stats, err := o.Run(ctx, site.ID)
	require.NoError(t, err, "a broken source must not abort the batch")
	assert.Equal(t, domain.FetchStats{Sourced: 2, NewArticles: 2, Duplicates: 0, Errors: 1}, stats)

	bsrc, err := store.GetSource(ctx, broken.ID)
	require.NoError(t, err)
	assert.Contains(t, bsrc.LastError, "connection reset")
}

func TestFetchRun_LazyValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid source is skipped and recorded", func(t *testing.T) {
		store := inmem.NewStore()
		site := seedSite(t, store)
		source := seedSource(t, store, site.ID, false)

		o := newFetchOrchestrator(store, &stubValidator{}, &stubFetcher{
			items: map[uuid.UUID][]domain.CandidateItem{source.ID: candidates(2, "posts")},
		})

		stats, err := o.Run(ctx, site.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.FetchStats{Errors: 1}, stats)

		updated, err := store.GetSource(ctx, source.ID)
		require.NoError(t, err)
		assert.False(t, updated.Validated)
		assert.Equal(t, feed.ValidationFailedReason, updated.LastError)
	})

	t.Run("valid source is marked and fetched", func(t *testing.T) {
		store := inmem.NewStore()
		site := seedSite(t, store)
		source := seedSource(t, store, site.ID, false)

		validator := &stubValidator{valid: map[uuid.UUID]bool{source.ID: true}}
		o := newFetchOrchestrator(store, validator, &stubFetcher{
			items: map[uuid.UUID][]domain.CandidateItem{source.ID: candidates(2, "posts")},
		})

		stats, err := o.Run(ctx, site.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.FetchStats{Sourced: 2, NewArticles: 2}, stats)

		updated, err := store.GetSource(ctx, source.ID)
		require.NoError(t, err)
		assert.True(t, updated.Validated)
	})
}

func TestFetchRun_LockBusy(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	site := seedSite(t, store)
	seedSource(t, store, site.ID, true)

	held, err := store.Acquire(ctx, site.ID, domain.JobTypeFetchSources)
	require.NoError(t, err)
	defer func() { _ = held.Release(ctx) }()

	o := newFetchOrchestrator(store, &stubValidator{}, &stubFetcher{})
	_, err = o.Run(ctx, site.ID)

	var ce *apperr.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Message, "already in progress")
}

func TestFetchRun_LockReleasedAfterRun(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	site := seedSite(t, store)
	source := seedSource(t, store, site.ID, true)

	o := newFetchOrchestrator(store, &stubValidator{}, &stubFetcher{
		items: map[uuid.UUID][]domain.CandidateItem{source.ID: candidates(1, "posts")},
	})

	_, err := o.Run(ctx, site.ID)
	require.NoError(t, err)

	lock, err := store.Acquire(ctx, site.ID, domain.JobTypeFetchSources)
	require.NoError(t, err, "lock must be released when the run ends")
	_ = lock.Release(ctx)
}

func TestFetchRun_Conservation(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	site := seedSite(t, store)
	a := seedSource(t, store, site.ID, true)
	b := seedSource(t, store, site.ID, true)

	shared := domain.CandidateItem{Title: "Shared", URL: "https://example.com/shared"}
	fetcher := &stubFetcher{items: map[uuid.UUID][]domain.CandidateItem{
		a.ID: append(candidates(2, "a"), shared),
		b.ID: append(candidates(1, "b"), shared, domain.CandidateItem{Title: "bad", URL: "::not-a-url::"}),
	}}
	o := newFetchOrchestrator(store, &stubValidator{}, fetcher)

	stats, err := o.Run(ctx, site.ID)
	require.NoError(t, err)

	assert.Equal(t, stats.Sourced, stats.NewArticles+stats.Duplicates+stats.Errors,
		"no candidate may be dropped or double-counted")
	assert.Equal(t, 1, stats.Duplicates, "the shared url dedups across sources in one run")
	assert.Equal(t, 1, stats.Errors)
}
