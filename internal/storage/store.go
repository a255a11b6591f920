package storage

import (
	"context"
	"errors"
	"time"

	"github.com/feedpress/feedpress/internal/domain"
	"github.com/feedpress/feedpress/pkg/pagination"
	"github.com/google/uuid"
)

// ErrNotFound is returned by Get* operations when no row matches.
var ErrNotFound = errors.New("not found")

// ErrRunInProgress is returned by RunLocker.Acquire when another run holds
// the per-(site, job-type) lock.
var ErrRunInProgress = errors.New("run already in progress")

// ErrDuplicateFingerprint is returned by InsertArticle when the
// (site_id, fingerprint) uniqueness constraint rejects the row.
var ErrDuplicateFingerprint = errors.New("duplicate fingerprint for site")

type SiteStore interface {
	GetSite(ctx context.Context, id uuid.UUID) (*domain.Site, error)
	GetSiteBySlug(ctx context.Context, slug string) (*domain.Site, error)
	SaveSite(ctx context.Context, site *domain.Site) error
}

type SourceStore interface {
	GetSource(ctx context.Context, id uuid.UUID) (*domain.Source, error)
	// ListActiveSources returns only sources with Active=true; inactive
	// sources are invisible to the pipeline.
	ListActiveSources(ctx context.Context, siteID uuid.UUID) ([]domain.Source, error)
	SaveSource(ctx context.Context, source *domain.Source) error
	// UpdateValidation persists the point-in-time validation outcome.
	UpdateValidation(ctx context.Context, id uuid.UUID, validated bool, lastError string) error
	// UpdateFetchResult records one fetch pass over the source.
	UpdateFetchResult(ctx context.Context, id uuid.UUID, fetchedAt time.Time, lastError string, added int) error
}

type ArticleStore interface {
	ExistsByFingerprint(ctx context.Context, siteID uuid.UUID, fingerprint string) (bool, error)
	// InsertArticle persists a new raw article. The store enforces
	// UNIQUE (site_id, fingerprint) as the safety net against races
	// between concurrent runs.
	InsertArticle(ctx context.Context, article *domain.Article) error
	// ListForRewrite selects articles in {raw, failed, filtered},
	// oldest-first, capped at limit (limit <= 0 means unbounded).
	ListForRewrite(ctx context.Context, siteID uuid.UUID, limit int) ([]domain.Article, error)
	// UpdateRewrite persists the status transition and rewritten fields.
	UpdateRewrite(ctx context.Context, article *domain.Article) error
	// ListPublishedTitles returns up to limit most recent rewritten titles
	// for the near-duplicate check after rewrite.
	ListPublishedTitles(ctx context.Context, siteID uuid.UUID, limit int) ([]string, error)
}

type JobLogStore interface {
	AppendJobLog(ctx context.Context, entry *domain.JobLogEntry) error
	// ListJobLogs returns one page of entries, most recent first, plus the
	// total number of entries for the site.
	ListJobLogs(ctx context.Context, siteID uuid.UUID, page pagination.OffsetRequest) ([]domain.JobLogEntry, int64, error)
}

// RunLock is a held per-(site, job-type) advisory lock.
type RunLock interface {
	Release(ctx context.Context) error
}

// RunLocker makes the at-most-one-concurrent-run-per-site-per-job-type
// precondition an enforced invariant instead of a caller convention.
type RunLocker interface {
	Acquire(ctx context.Context, siteID uuid.UUID, job domain.JobType) (RunLock, error)
}

// Store aggregates everything the orchestrators need from persistence.
type Store interface {
	SiteStore
	SourceStore
	ArticleStore
	JobLogStore
	RunLocker
}
