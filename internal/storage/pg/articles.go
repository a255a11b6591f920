package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/feedpress/feedpress/internal/domain"
	"github.com/feedpress/feedpress/internal/storage"
	"github.com/google/uuid"
)

func (s *Store) ExistsByFingerprint(ctx context.Context, siteID uuid.UUID, fingerprint string) (bool, error) {
	query := `
        SELECT EXISTS (
            SELECT 1 FROM articles WHERE site_id = $1 AND fingerprint = $2
        );
    `
	var exists bool
	if err := s.db.QueryRow(ctx, query, siteID, fingerprint).Scan(&exists); err != nil {
		return false, fmt.Errorf("fingerprint lookup for site %s: %w", siteID, err)
	}
	return exists, nil
}

func (s *Store) InsertArticle(ctx context.Context, article *domain.Article) error {
	if article.ID == uuid.Nil {
		article.ID = uuid.New()
	}
	if article.CreatedAt.IsZero() {
		article.CreatedAt = time.Now()
	}
	article.UpdatedAt = article.CreatedAt

	cmd := `
        INSERT INTO articles (
            id, site_id, source_id, category_id, status,
            original_title, original_author, original_content, original_url,
            title, content, excerpt, meta_description, featured_image, tags,
            fingerprint, view_count, published_at, created_at, updated_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
        RETURNING id;
    `
	err := s.db.QueryRow(
		ctx,
		cmd,
		article.ID,
		article.SiteID,
		nullableUUID(article.SourceID),
		nullableUUID(article.CategoryID),
		article.Status,
		article.OriginalTitle,
		article.OriginalAuthor,
		article.OriginalContent,
		article.OriginalURL,
		article.Title,
		article.Content,
		article.Excerpt,
		article.MetaDescription,
		article.FeaturedImage,
		article.Tags,
		article.Fingerprint,
		article.ViewCount,
		nullableTime(article.PublishedAt),
		article.CreatedAt,
		article.UpdatedAt,
	).Scan(&article.ID)
	if err != nil {
		return fmt.Errorf("insert article for site %s: %w", article.SiteID, mapRowError(err))
	}
	return nil
}

const articleColumns = `
    id, site_id, source_id, category_id, status,
    original_title, original_author, original_content, original_url,
    title, content, excerpt, meta_description, featured_image, tags,
    fingerprint, view_count, published_at, created_at, updated_at`

func (s *Store) ListForRewrite(ctx context.Context, siteID uuid.UUID, limit int) ([]domain.Article, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM articles
        WHERE site_id = $1 AND status = ANY($2)
        ORDER BY created_at ASC
        LIMIT $3;
    `, articleColumns)

	statuses := make([]string, 0, len(domain.RewriteSelectionStatuses))
	for _, st := range domain.RewriteSelectionStatuses {
		statuses = append(statuses, string(st))
	}

	var rowLimit any
	if limit > 0 {
		rowLimit = limit
	}

	rows, err := s.db.Query(ctx, query, siteID, statuses, rowLimit)
	if err != nil {
		return nil, fmt.Errorf("select rewrite backlog for site %s: %w", siteID, err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		var a domain.Article
		var sourceID, categoryID *uuid.UUID
		var publishedAt *time.Time
		if err := rows.Scan(
			&a.ID, &a.SiteID, &sourceID, &categoryID, &a.Status,
			&a.OriginalTitle, &a.OriginalAuthor, &a.OriginalContent, &a.OriginalURL,
			&a.Title, &a.Content, &a.Excerpt, &a.MetaDescription, &a.FeaturedImage, &a.Tags,
			&a.Fingerprint, &a.ViewCount, &publishedAt, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		if sourceID != nil {
			a.SourceID = *sourceID
		}
		if categoryID != nil {
			a.CategoryID = *categoryID
		}
		if publishedAt != nil {
			a.PublishedAt = *publishedAt
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return articles, nil
}

func (s *Store) UpdateRewrite(ctx context.Context, article *domain.Article) error {
	article.UpdatedAt = time.Now()

	cmd := `
        UPDATE articles
        SET status = $2,
            title = $3,
            content = $4,
            excerpt = $5,
            meta_description = $6,
            tags = $7,
            published_at = $8,
            updated_at = $9
        WHERE id = $1;
    `
	tag, err := s.db.Exec(
		ctx,
		cmd,
		article.ID,
		article.Status,
		article.Title,
		article.Content,
		article.Excerpt,
		article.MetaDescription,
		article.Tags,
		nullableTime(article.PublishedAt),
		article.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update article %s: %w", article.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update article %s: %w", article.ID, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) ListPublishedTitles(ctx context.Context, siteID uuid.UUID, limit int) ([]string, error) {
	query := `
        SELECT title FROM articles
        WHERE site_id = $1 AND status = $2 AND title <> ''
        ORDER BY updated_at DESC
        LIMIT $3;
    `
	rows, err := s.db.Query(ctx, query, siteID, domain.StatusPublished, limit)
	if err != nil {
		return nil, fmt.Errorf("list published titles for site %s: %w", siteID, err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate titles: %w", err)
	}
	return titles, nil
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func nullableTime(ts time.Time) *time.Time {
	if ts.IsZero() {
		return nil
	}
	return &ts
}
