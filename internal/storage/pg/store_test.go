package pg

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/feedpress/feedpress/internal/domain"
	"github.com/feedpress/feedpress/internal/storage"
	"github.com/feedpress/feedpress/pkg/pagination"
	pkgtesting "github.com/feedpress/feedpress/pkg/testing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

var (
	testCtx   context.Context
	testPool  *ConnectionPool
	testStore *Store
)

func TestMain(m *testing.M) {
	testCtx = context.Background()

	pgc, err := pkgtesting.NewPGContainer(testCtx, pkgtesting.PGConfig{
		Database: "feedpress_test_db",
		Username: "test",
		Password: "test",
	})
	if err != nil {
		panic(err)
	}

	testPool, err = NewConnectionPool(testCtx, PoolConfig{ConnStr: pgc.ConnString})
	if err != nil {
		_ = testcontainers.TerminateContainer(pgc.Container)
		panic(err)
	}

	testStore = NewStore(testPool)

	// os.Exit skips deferred calls, so release resources before exiting.
	code := m.Run()
	testPool.Close()
	_ = testcontainers.TerminateContainer(pgc.Container)
	os.Exit(code)
}

func truncateAll(t *testing.T) {
	t.Helper()
	_, err := testPool.GetConn().Exec(testCtx, "TRUNCATE TABLE sites CASCADE")
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

func seedSite(t *testing.T) *domain.Site {
	t.Helper()
	site := &domain.Site{
		Slug:   "tech-daily-" + uuid.NewString()[:8],
		Name:   "Tech Daily",
		Tone:   domain.ToneProfessional,
		Active: true,
	}
	require.NoError(t, testStore.SaveSite(testCtx, site))
	return site
}

func seedSource(t *testing.T, siteID uuid.UUID) *domain.Source {
	t.Helper()
	source := &domain.Source{
		SiteID: siteID,
		URL:    "https://example.com/feed-" + uuid.NewString()[:8] + ".xml",
		Kind:   domain.SourceKindRSS,
		Active: true,
	}
	require.NoError(t, testStore.SaveSource(testCtx, source))
	return source
}

func TestSiteRoundTrip(t *testing.T) {
	truncateAll(t)
	site := seedSite(t)

	got, err := testStore.GetSite(testCtx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, site.Slug, got.Slug)
	assert.Equal(t, domain.ToneProfessional, got.Tone)

	bySlug, err := testStore.GetSiteBySlug(testCtx, site.Slug)
	require.NoError(t, err)
	assert.Equal(t, site.ID, bySlug.ID)
}

func TestGetSite_NotFound(t *testing.T) {
	truncateAll(t)

	_, err := testStore.GetSite(testCtx, uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSaveSite_UpsertBySlug(t *testing.T) {
	truncateAll(t)
	site := seedSite(t)

	updated := &domain.Site{
		Slug:   site.Slug,
		Name:   "Tech Daily Renamed",
		Tone:   domain.ToneWitty,
		Active: true,
	}
	require.NoError(t, testStore.SaveSite(testCtx, updated))

	got, err := testStore.GetSiteBySlug(testCtx, site.Slug)
	require.NoError(t, err)
	assert.Equal(t, site.ID, got.ID)
	assert.Equal(t, "Tech Daily Renamed", got.Name)
	assert.Equal(t, domain.ToneWitty, got.Tone)
}

func TestListActiveSources_SkipsInactive(t *testing.T) {
	truncateAll(t)
	site := seedSite(t)
	active := seedSource(t, site.ID)

	inactive := &domain.Source{
		SiteID: site.ID,
		URL:    "https://example.com/disabled.xml",
		Kind:   domain.SourceKindRSS,
		Active: false,
	}
	require.NoError(t, testStore.SaveSource(testCtx, inactive))

	sources, err := testStore.ListActiveSources(testCtx, site.ID)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, active.ID, sources[0].ID)
}

func TestUpdateValidationAndFetchResult(t *testing.T) {
	truncateAll(t)
	site := seedSite(t)
	source := seedSource(t, site.ID)

	require.NoError(t, testStore.UpdateValidation(testCtx, source.ID, true, ""))

	fetchedAt := time.Now().Truncate(time.Millisecond)
	require.NoError(t, testStore.UpdateFetchResult(testCtx, source.ID, fetchedAt, "", 4))
	require.NoError(t, testStore.UpdateFetchResult(testCtx, source.ID, fetchedAt, "", 2))

	got, err := testStore.GetSource(testCtx, source.ID)
	require.NoError(t, err)
	assert.True(t, got.Validated)
	assert.Equal(t, 6, got.ArticleCount)
	assert.False(t, got.LastFetchedAt.IsZero())
}

func TestInsertArticle_DuplicateFingerprint(t *testing.T) {
	truncateAll(t)
	site := seedSite(t)
	source := seedSource(t, site.ID)

	article := &domain.Article{
		SiteID:          site.ID,
		SourceID:        source.ID,
		Status:          domain.StatusRaw,
		OriginalTitle:   "First",
		OriginalContent: "Body",
		OriginalURL:     "https://example.com/a",
		Fingerprint:     "fp-1",
	}
	require.NoError(t, testStore.InsertArticle(testCtx, article))

	dup := &domain.Article{
		SiteID:        site.ID,
		SourceID:      source.ID,
		Status:        domain.StatusRaw,
		OriginalTitle: "Second",
		OriginalURL:   "https://example.com/a?x=1",
		Fingerprint:   "fp-1",
	}
	err := testStore.InsertArticle(testCtx, dup)
	assert.ErrorIs(t, err, storage.ErrDuplicateFingerprint)

	exists, err := testStore.ExistsByFingerprint(testCtx, site.ID, "fp-1")
	require.NoError(t, err)
	assert.True(t, exists)

	// same fingerprint under another site is fine
	other := seedSite(t)
	cross := &domain.Article{
		SiteID:        other.ID,
		Status:        domain.StatusRaw,
		OriginalTitle: "Third",
		OriginalURL:   "https://example.com/a",
		Fingerprint:   "fp-1",
	}
	assert.NoError(t, testStore.InsertArticle(testCtx, cross))
}

func TestExistsByFingerprint_IgnoresStatus(t *testing.T) {
	truncateAll(t)
	site := seedSite(t)
	source := seedSource(t, site.ID)

	statuses := []domain.ArticleStatus{
		domain.StatusRaw,
		domain.StatusPublished,
		domain.StatusFiltered,
		domain.StatusFailed,
		domain.StatusUnpublished,
	}
	for i, status := range statuses {
		fp := fmt.Sprintf("fp-status-%d", i)
		require.NoError(t, testStore.InsertArticle(testCtx, &domain.Article{
			SiteID:        site.ID,
			SourceID:      source.ID,
			Status:        status,
			OriginalTitle: "Article " + string(status),
			OriginalURL:   fmt.Sprintf("https://example.com/status/%d", i),
			Fingerprint:   fp,
		}))

		exists, err := testStore.ExistsByFingerprint(testCtx, site.ID, fp)
		require.NoError(t, err)
		assert.True(t, exists, "article in status %q must still match its fingerprint", status)
	}
}

func TestListForRewrite_OrderAndLimit(t *testing.T) {
	truncateAll(t)
	site := seedSite(t)

	base := time.Now().Add(-time.Hour)
	statuses := []domain.ArticleStatus{domain.StatusRaw, domain.StatusFailed, domain.StatusFiltered, domain.StatusPublished}
	for i, status := range statuses {
		a := &domain.Article{
			SiteID:          site.ID,
			Status:          status,
			OriginalTitle:   "Article",
			OriginalContent: "Body",
			OriginalURL:     "https://example.com/" + uuid.NewString(),
			Fingerprint:     uuid.NewString(),
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, testStore.InsertArticle(testCtx, a))
	}

	backlog, err := testStore.ListForRewrite(testCtx, site.ID, 0)
	require.NoError(t, err)
	// published articles never re-enter the backlog
	require.Len(t, backlog, 3)
	assert.Equal(t, domain.StatusRaw, backlog[0].Status)

	limited, err := testStore.ListForRewrite(testCtx, site.ID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestUpdateRewrite_PersistsFields(t *testing.T) {
	truncateAll(t)
	site := seedSite(t)

	article := &domain.Article{
		SiteID:          site.ID,
		Status:          domain.StatusRaw,
		OriginalTitle:   "Raw title",
		OriginalContent: "Body",
		OriginalURL:     "https://example.com/raw",
		Fingerprint:     uuid.NewString(),
	}
	require.NoError(t, testStore.InsertArticle(testCtx, article))

	article.Status = domain.StatusPublished
	article.Title = "Rewritten title"
	article.Content = "<p>Rewritten body</p>"
	article.Excerpt = "Rewritten body"
	article.MetaDescription = "A rewritten article"
	article.Tags = []string{"tech", "go"}
	article.PublishedAt = time.Now()
	require.NoError(t, testStore.UpdateRewrite(testCtx, article))

	titles, err := testStore.ListPublishedTitles(testCtx, site.ID, 10)
	require.NoError(t, err)
	require.Len(t, titles, 1)
	assert.Equal(t, "Rewritten title", titles[0])

	backlog, err := testStore.ListForRewrite(testCtx, site.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, backlog)
}

func TestJobLogRoundTrip(t *testing.T) {
	truncateAll(t)
	site := seedSite(t)

	started := time.Now().Add(-time.Minute)
	entry := &domain.JobLogEntry{
		JobType:         domain.JobTypeFetchSources,
		SiteID:          site.ID,
		Status:          domain.JobStatusCompleted,
		ArticlesFetched: 7,
		StartedAt:       started,
		CompletedAt:     started.Add(30 * time.Second),
		DurationMs:      30_000,
	}
	require.NoError(t, testStore.AppendJobLog(testCtx, entry))

	later := &domain.JobLogEntry{
		JobType:      domain.JobTypeRewriteArticles,
		SiteID:       site.ID,
		Status:       domain.JobStatusFailed,
		ErrorMessage: "storage unavailable",
		StartedAt:    time.Now(),
		CompletedAt:  time.Now(),
	}
	require.NoError(t, testStore.AppendJobLog(testCtx, later))

	entries, total, err := testStore.ListJobLogs(testCtx, site.ID, pagination.OffsetRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.JobTypeRewriteArticles, entries[0].JobType)
	assert.Equal(t, 7, entries[1].ArticlesFetched)
}

func TestAdvisoryLock_ExcludesSameJobOnly(t *testing.T) {
	truncateAll(t)
	site := seedSite(t)

	lock, err := testStore.Acquire(testCtx, site.ID, domain.JobTypeFetchSources)
	require.NoError(t, err)

	_, err = testStore.Acquire(testCtx, site.ID, domain.JobTypeFetchSources)
	assert.ErrorIs(t, err, storage.ErrRunInProgress)

	// a different job type for the same site is independent
	other, err := testStore.Acquire(testCtx, site.ID, domain.JobTypeRewriteArticles)
	require.NoError(t, err)
	require.NoError(t, other.Release(testCtx))

	require.NoError(t, lock.Release(testCtx))

	again, err := testStore.Acquire(testCtx, site.ID, domain.JobTypeFetchSources)
	require.NoError(t, err)
	require.NoError(t, again.Release(testCtx))
}
