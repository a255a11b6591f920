package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/feedpress/feedpress/internal/apperr"
	"github.com/feedpress/feedpress/internal/dedupe"
	"github.com/feedpress/feedpress/internal/domain"
	"github.com/feedpress/feedpress/internal/rewrite"
	"github.com/feedpress/feedpress/internal/storage"
	"github.com/google/uuid"
)

// recentTitleWindow bounds how many published titles the near-duplicate
// check compares against.
const recentTitleWindow = 200

// Rewriter transforms one raw article; every failure mode is expressed in
// the Result status, never as an error.
type Rewriter interface {
	Rewrite(ctx context.Context, article domain.Article, site domain.Site) rewrite.Result
}

// PublishIndexer receives successfully published articles. Indexing is an
// optional side channel; failures are logged and never fail the run.
type PublishIndexer interface {
	IndexPublished(ctx context.Context, article domain.Article) error
}

// RewriteOrchestrator runs the AI rewrite stage over a site's unrewritten
// backlog: articles in raw, failed or filtered status, oldest first.
type RewriteOrchestrator struct {
	store   storage.Store
	engine  Rewriter
	dedupe  *dedupe.Engine
	indexer PublishIndexer
	logger  *slog.Logger
}

type RewriteOrchestratorOption func(*RewriteOrchestrator)

// WithPublishIndexer enables search indexing of published articles.
func WithPublishIndexer(indexer PublishIndexer) RewriteOrchestratorOption {
	return func(o *RewriteOrchestrator) {
		o.indexer = indexer
	}
}

func NewRewriteOrchestrator(
	store storage.Store,
	engine Rewriter,
	dedupeEngine *dedupe.Engine,
	logger *slog.Logger,
	opts ...RewriteOrchestratorOption,
) *RewriteOrchestrator {
	o := &RewriteOrchestrator{
		store:  store,
		engine: engine,
		dedupe: dedupeEngine,
		logger: logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one rewrite job for the site. limit <= 0 means unbounded.
func (o *RewriteOrchestrator) Run(ctx context.Context, siteID uuid.UUID, limit int) (domain.RewriteStats, error) {
	site, err := o.store.GetSite(ctx, siteID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.RewriteStats{}, apperr.NewNotFound("site not found")
		}
		return domain.RewriteStats{}, apperr.NewPersistence("load site", siteID, err)
	}

	lock, err := o.store.Acquire(ctx, siteID, domain.JobTypeRewriteArticles)
	if err != nil {
		if errors.Is(err, storage.ErrRunInProgress) {
			return domain.RewriteStats{}, apperr.NewConfig("rewrite run already in progress", siteID)
		}
		return domain.RewriteStats{}, apperr.NewPersistence("acquire run lock", siteID, err)
	}
	defer func() {
		if rerr := lock.Release(context.WithoutCancel(ctx)); rerr != nil {
			o.logger.Warn("release rewrite run lock", "site_id", siteID, "error", rerr)
		}
	}()

	articles, err := o.store.ListForRewrite(ctx, siteID, limit)
	if err != nil {
		return domain.RewriteStats{}, apperr.NewPersistence("select rewrite backlog", siteID, err)
	}
	if len(articles) == 0 {
		// fail fast, no writes: logging a vacuous success would bury the
		// real signal that the site has nothing queued
		return domain.RewriteStats{}, apperr.NewConfig("nothing to rewrite", siteID)
	}

	recentTitles, err := o.store.ListPublishedTitles(ctx, siteID, recentTitleWindow)
	if err != nil {
		return domain.RewriteStats{}, apperr.NewPersistence("load published titles", siteID, err)
	}

	startedAt := time.Now()
	o.logger.Info("rewrite run started", "site_id", siteID, "slug", site.Slug, "selected", len(articles))

	stats, runErr := o.processArticles(ctx, site, articles, recentTitles)

	o.finishRun(ctx, siteID, startedAt, stats, runErr)
	if runErr != nil {
		return stats, runErr
	}

	o.logger.Info("rewrite run completed",
		"site_id", siteID,
		"processed", stats.Processed,
		"published", stats.Published,
		"filtered", stats.Filtered,
		"duplicates", stats.Duplicates,
		"errors", stats.Errors,
		"duration", time.Since(startedAt))
	return stats, nil
}

func (o *RewriteOrchestrator) processArticles(ctx context.Context, site *domain.Site, articles []domain.Article, recentTitles []string) (domain.RewriteStats, error) {
	var stats domain.RewriteStats

	for _, article := range articles {
		stats.Processed++

		result := o.engine.Rewrite(ctx, article, *site)

		switch result.Status {
		case domain.StatusPublished:
			if dup, match := o.nearDuplicateTitle(result.Title, recentTitles); dup {
				// a different source already yielded this story; keep the
				// article out of the published set
				o.logger.Info("rewrite near-duplicate of published article",
					"article_id", article.ID, "matched_title", match)
				stats.Duplicates++
				article.Status = domain.StatusFiltered
			} else {
				article.Status = domain.StatusPublished
				article.Title = result.Title
				article.Content = result.Content
				article.Excerpt = result.Excerpt
				article.MetaDescription = result.MetaDescription
				article.Tags = result.Tags
				article.PublishedAt = time.Now()
				recentTitles = append(recentTitles, result.Title)
				stats.Published++
			}
		case domain.StatusFiltered:
			article.Status = domain.StatusFiltered
			stats.Filtered++
		default:
			article.Status = domain.StatusFailed
			stats.Errors++
		}

		if err := o.store.UpdateRewrite(ctx, &article); err != nil {
			return stats, apperr.NewPersistence("persist rewrite result", site.ID, err)
		}

		if article.Status == domain.StatusPublished && o.indexer != nil {
			if err := o.indexer.IndexPublished(ctx, article); err != nil {
				o.logger.Warn("index published article", "article_id", article.ID, "error", err)
			}
		}
	}

	return stats, nil
}

func (o *RewriteOrchestrator) nearDuplicateTitle(title string, recentTitles []string) (bool, string) {
	for _, existing := range recentTitles {
		if o.dedupe.NearDuplicateText(title, existing) {
			return true, existing
		}
	}
	return false, ""
}

func (o *RewriteOrchestrator) finishRun(ctx context.Context, siteID uuid.UUID, startedAt time.Time, stats domain.RewriteStats, runErr error) {
	completedAt := time.Now()
	entry := &domain.JobLogEntry{
		JobType:           domain.JobTypeRewriteArticles,
		SiteID:            siteID,
		Status:            domain.JobStatusCompleted,
		ArticlesRewritten: stats.Published + stats.Filtered + stats.Duplicates,
		ArticlesPublished: stats.Published,
		StartedAt:         startedAt,
		CompletedAt:       completedAt,
		DurationMs:        completedAt.Sub(startedAt).Milliseconds(),
	}
	if runErr != nil {
		entry.Status = domain.JobStatusFailed
		entry.ErrorMessage = runErr.Error()
	}

	if err := o.store.AppendJobLog(context.WithoutCancel(ctx), entry); err != nil {
		o.logger.Error("append rewrite job log", "site_id", siteID, "error", err)
	}
}
