package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/feedpress/feedpress/internal/domain"
	"github.com/feedpress/feedpress/internal/storage"
	"github.com/feedpress/feedpress/pkg/pagination"
	"github.com/google/uuid"
)

// Store is an in-memory implementation of storage.Store used by tests.
// Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sites    map[uuid.UUID]domain.Site
	sources  map[uuid.UUID]domain.Source
	articles map[uuid.UUID]domain.Article
	jobLogs  []domain.JobLogEntry
	locks    map[string]bool
}

var _ storage.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		sites:    make(map[uuid.UUID]domain.Site),
		sources:  make(map[uuid.UUID]domain.Source),
		articles: make(map[uuid.UUID]domain.Article),
		locks:    make(map[string]bool),
	}
}

func (s *Store) GetSite(_ context.Context, id uuid.UUID) (*domain.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	site, ok := s.sites[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &site, nil
}

func (s *Store) GetSiteBySlug(_ context.Context, slug string) (*domain.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, site := range s.sites {
		if site.Slug == slug {
			return &site, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) SaveSite(_ context.Context, site *domain.Site) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if site.ID == uuid.Nil {
		site.ID = uuid.New()
	}
	if site.CreatedAt.IsZero() {
		site.CreatedAt = time.Now()
	}
	site.UpdatedAt = time.Now()
	s.sites[site.ID] = *site
	return nil
}

func (s *Store) GetSource(_ context.Context, id uuid.UUID) (*domain.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	source, ok := s.sources[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &source, nil
}

func (s *Store) ListActiveSources(_ context.Context, siteID uuid.UUID) ([]domain.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Source
	for _, src := range s.sources {
		if src.SiteID == siteID && src.Active {
			result = append(result, src)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) SaveSource(_ context.Context, source *domain.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// upsert keyed by (site, url)
	for _, existing := range s.sources {
		if existing.SiteID == source.SiteID && existing.URL == source.URL {
			source.ID = existing.ID
			source.CreatedAt = existing.CreatedAt
			break
		}
	}
	if source.ID == uuid.Nil {
		source.ID = uuid.New()
	}
	if source.CreatedAt.IsZero() {
		source.CreatedAt = time.Now()
	}
	source.UpdatedAt = time.Now()
	s.sources[source.ID] = *source
	return nil
}

func (s *Store) UpdateValidation(_ context.Context, id uuid.UUID, validated bool, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.sources[id]
	if !ok {
		return storage.ErrNotFound
	}
	src.Validated = validated
	src.LastError = lastError
	src.UpdatedAt = time.Now()
	s.sources[id] = src
	return nil
}

func (s *Store) UpdateFetchResult(_ context.Context, id uuid.UUID, fetchedAt time.Time, lastError string, added int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.sources[id]
	if !ok {
		return storage.ErrNotFound
	}
	src.LastFetchedAt = fetchedAt
	src.LastError = lastError
	src.ArticleCount += added
	src.UpdatedAt = time.Now()
	s.sources[id] = src
	return nil
}

func (s *Store) ExistsByFingerprint(_ context.Context, siteID uuid.UUID, fingerprint string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.articles {
		if a.SiteID == siteID && a.Fingerprint == fingerprint {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) InsertArticle(_ context.Context, article *domain.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.articles {
		if a.SiteID == article.SiteID && a.Fingerprint == article.Fingerprint {
			return fmt.Errorf("%w: %s", storage.ErrDuplicateFingerprint, article.Fingerprint)
		}
	}

	if article.ID == uuid.Nil {
		article.ID = uuid.New()
	}
	if article.CreatedAt.IsZero() {
		article.CreatedAt = time.Now()
	}
	article.UpdatedAt = article.CreatedAt
	s.articles[article.ID] = *article
	return nil
}

func (s *Store) ListForRewrite(_ context.Context, siteID uuid.UUID, limit int) ([]domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	eligible := map[domain.ArticleStatus]bool{}
	for _, st := range domain.RewriteSelectionStatuses {
		eligible[st] = true
	}

	var result []domain.Article
	for _, a := range s.articles {
		if a.SiteID == siteID && eligible[a.Status] {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) UpdateRewrite(_ context.Context, article *domain.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.articles[article.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if !existing.Status.CanTransitionTo(article.Status) && existing.Status != article.Status {
		return fmt.Errorf("illegal status transition %s -> %s", existing.Status, article.Status)
	}
	article.UpdatedAt = time.Now()
	s.articles[article.ID] = *article
	return nil
}

func (s *Store) ListPublishedTitles(_ context.Context, siteID uuid.UUID, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var published []domain.Article
	for _, a := range s.articles {
		if a.SiteID == siteID && a.Status == domain.StatusPublished && a.Title != "" {
			published = append(published, a)
		}
	}
	sort.Slice(published, func(i, j int) bool {
		return published[i].UpdatedAt.After(published[j].UpdatedAt)
	})

	titles := make([]string, 0, len(published))
	for _, a := range published {
		if limit > 0 && len(titles) >= limit {
			break
		}
		titles = append(titles, a.Title)
	}
	return titles, nil
}

func (s *Store) AppendJobLog(_ context.Context, entry *domain.JobLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	s.jobLogs = append(s.jobLogs, *entry)
	return nil
}

func (s *Store) ListJobLogs(_ context.Context, siteID uuid.UUID, page pagination.OffsetRequest) ([]domain.JobLogEntry, int64, error) {
	_ = page.Validate()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.JobLogEntry
	for _, e := range s.jobLogs {
		if e.SiteID == siteID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})

	total := int64(len(result))
	offset := (page.Page - 1) * page.Size
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + page.Size
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

type memLock struct {
	store *Store
	key   string
}

func (l *memLock) Release(context.Context) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	delete(l.store.locks, l.key)
	return nil
}

func (s *Store) Acquire(_ context.Context, siteID uuid.UUID, job domain.JobType) (storage.RunLock, error) {
	key := siteID.String() + "/" + string(job)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks[key] {
		return nil, storage.ErrRunInProgress
	}
	s.locks[key] = true
	return &memLock{store: s, key: key}, nil
}

// ArticlesBySite returns a snapshot for test assertions.
func (s *Store) ArticlesBySite(siteID uuid.UUID) []domain.Article {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Article
	for _, a := range s.articles {
		if a.SiteID == siteID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// JobLogsBySite returns a snapshot for test assertions.
func (s *Store) JobLogsBySite(siteID uuid.UUID) []domain.JobLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.JobLogEntry
	for _, e := range s.jobLogs {
		if e.SiteID == siteID {
			result = append(result, e)
		}
	}
	return result
}
