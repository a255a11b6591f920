package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/feedpress/feedpress/internal/apperr"
	"github.com/feedpress/feedpress/internal/dedupe"
	"github.com/feedpress/feedpress/internal/domain"
	"github.com/feedpress/feedpress/internal/feed"
	"github.com/feedpress/feedpress/internal/storage"
	"github.com/google/uuid"
)

// SourceValidator is the lazy pre-fetch validation contract.
type SourceValidator interface {
	Validate(ctx context.Context, source domain.Source) feed.ValidationResult
}

// CandidateFetcher produces the normalized candidate items of one source.
type CandidateFetcher interface {
	FetchCandidates(ctx context.Context, source domain.Source) ([]domain.CandidateItem, error)
}

// FetchOrchestrator runs one fetch pass over all active sources of a site.
// Items are processed sequentially; per-source and per-item failures are
// counted, never fatal. Only persistence failures abort the run.
type FetchOrchestrator struct {
	store     storage.Store
	validator SourceValidator
	fetcher   CandidateFetcher
	dedupe    *dedupe.Engine
	logger    *slog.Logger
}

func NewFetchOrchestrator(
	store storage.Store,
	validator SourceValidator,
	fetcher CandidateFetcher,
	dedupeEngine *dedupe.Engine,
	logger *slog.Logger,
) *FetchOrchestrator {
	return &FetchOrchestrator{
		store:     store,
		validator: validator,
		fetcher:   fetcher,
		dedupe:    dedupeEngine,
		logger:    logger,
	}
}

// Run executes one fetch job for the site and writes a job-log entry for
// every run that got past its preconditions.
func (o *FetchOrchestrator) Run(ctx context.Context, siteID uuid.UUID) (domain.FetchStats, error) {
	site, err := o.store.GetSite(ctx, siteID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.FetchStats{}, apperr.NewNotFound("site not found")
		}
		return domain.FetchStats{}, apperr.NewPersistence("load site", siteID, err)
	}

	lock, err := o.store.Acquire(ctx, siteID, domain.JobTypeFetchSources)
	if err != nil {
		if errors.Is(err, storage.ErrRunInProgress) {
			return domain.FetchStats{}, apperr.NewConfig("fetch run already in progress", siteID)
		}
		return domain.FetchStats{}, apperr.NewPersistence("acquire run lock", siteID, err)
	}
	defer func() {
		if rerr := lock.Release(context.WithoutCancel(ctx)); rerr != nil {
			o.logger.Warn("release fetch run lock", "site_id", siteID, "error", rerr)
		}
	}()

	sources, err := o.store.ListActiveSources(ctx, siteID)
	if err != nil {
		return domain.FetchStats{}, apperr.NewPersistence("list active sources", siteID, err)
	}
	if len(sources) == 0 {
		// fail fast, no writes: an empty run is a configuration problem,
		// not a vacuous success
		return domain.FetchStats{}, apperr.NewConfig("no active sources", siteID)
	}

	startedAt := time.Now()
	o.logger.Info("fetch run started", "site_id", siteID, "slug", site.Slug, "sources", len(sources))

	stats, runErr := o.processSources(ctx, site, sources)

	o.finishRun(ctx, siteID, startedAt, stats, runErr)
	if runErr != nil {
		return stats, runErr
	}

	o.logger.Info("fetch run completed",
		"site_id", siteID,
		"sourced", stats.Sourced,
		"new_articles", stats.NewArticles,
		"duplicates", stats.Duplicates,
		"errors", stats.Errors,
		"duration", time.Since(startedAt))
	return stats, nil
}

func (o *FetchOrchestrator) processSources(ctx context.Context, site *domain.Site, sources []domain.Source) (domain.FetchStats, error) {
	var stats domain.FetchStats

	for _, source := range sources {
		if !source.Validated {
			result := o.validator.Validate(ctx, source)
			lastErr := ""
			if !result.IsValid {
				lastErr = result.Reason
			}
			if err := o.store.UpdateValidation(ctx, source.ID, result.IsValid, lastErr); err != nil {
				return stats, apperr.NewPersistence("persist source validation", site.ID, err)
			}
			if !result.IsValid {
				o.logger.Warn("source failed lazy validation", "source_id", source.ID, "url", source.URL)
				stats.Errors++
				continue
			}
		}

		added, err := o.processSource(ctx, site, source, &stats)
		fetchErrMsg := ""
		if err != nil {
			var pe *apperr.PersistenceError
			if errors.As(err, &pe) {
				return stats, err
			}
			stats.Errors++
			fetchErrMsg = err.Error()
			o.logger.Warn("source fetch failed", "source_id", source.ID, "url", source.URL, "error", err)
		}

		if uerr := o.store.UpdateFetchResult(ctx, source.ID, time.Now(), fetchErrMsg, added); uerr != nil {
			return stats, apperr.NewPersistence("persist source fetch result", site.ID, uerr)
		}
	}

	return stats, nil
}

// processSource fetches one source and folds its candidates into stats.
// Returns the number of new articles inserted. A returned PersistenceError
// aborts the run; any other error marks just this source as failed.
func (o *FetchOrchestrator) processSource(ctx context.Context, site *domain.Site, source domain.Source, stats *domain.FetchStats) (int, error) {
	items, err := o.fetcher.FetchCandidates(ctx, source)
	if err != nil {
		return 0, apperr.NewSource("fetch candidates", site.ID, source.ID, err)
	}

	added := 0
	for _, item := range items {
		stats.Sourced++

		fp, dup, err := o.dedupe.IsDuplicate(ctx, site.ID, item)
		if err != nil {
			// one bad candidate never sinks the source
			stats.Errors++
			o.logger.Warn("candidate dedup failed", "source_id", source.ID, "url", item.URL, "error", err)
			continue
		}
		if dup {
			stats.Duplicates++
			continue
		}

		article := &domain.Article{
			SiteID:          site.ID,
			SourceID:        source.ID,
			Status:          domain.StatusRaw,
			OriginalTitle:   item.Title,
			OriginalAuthor:  item.Author,
			OriginalContent: item.Summary,
			OriginalURL:     item.URL,
			FeaturedImage:   item.ImageURL,
			Fingerprint:     fp,
		}
		if !item.PublishedAt.IsZero() {
			article.PublishedAt = item.PublishedAt
		}

		if err := o.store.InsertArticle(ctx, article); err != nil {
			if errors.Is(err, storage.ErrDuplicateFingerprint) {
				// lost a race with a concurrent run; the uniqueness
				// constraint did its job
				stats.Duplicates++
				continue
			}
			return added, apperr.NewPersistence("insert article", site.ID, err)
		}

		added++
		stats.NewArticles++
	}

	return added, nil
}

// finishRun writes the job-log entry. For failed runs the write is best
// effort: the run error already tells the caller to retry.
func (o *FetchOrchestrator) finishRun(ctx context.Context, siteID uuid.UUID, startedAt time.Time, stats domain.FetchStats, runErr error) {
	completedAt := time.Now()
	entry := &domain.JobLogEntry{
		JobType:         domain.JobTypeFetchSources,
		SiteID:          siteID,
		Status:          domain.JobStatusCompleted,
		ArticlesFetched: stats.NewArticles,
		StartedAt:       startedAt,
		CompletedAt:     completedAt,
		DurationMs:      completedAt.Sub(startedAt).Milliseconds(),
	}
	if runErr != nil {
		entry.Status = domain.JobStatusFailed
		entry.ErrorMessage = runErr.Error()
	}

	if err := o.store.AppendJobLog(context.WithoutCancel(ctx), entry); err != nil {
		o.logger.Error("append fetch job log", "site_id", siteID, "error", err)
	}
}
