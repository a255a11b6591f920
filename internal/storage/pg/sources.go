package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/feedpress/feedpress/internal/domain"
	"github.com/feedpress/feedpress/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const sourceColumns = `id, site_id, url, kind, active, validated, last_error, last_fetched_at, article_count, created_at, updated_at`

func scanSource(row pgx.Row) (*domain.Source, error) {
	var src domain.Source
	var lastFetched *time.Time
	err := row.Scan(
		&src.ID,
		&src.SiteID,
		&src.URL,
		&src.Kind,
		&src.Active,
		&src.Validated,
		&src.LastError,
		&lastFetched,
		&src.ArticleCount,
		&src.CreatedAt,
		&src.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastFetched != nil {
		src.LastFetchedAt = *lastFetched
	}
	return &src, nil
}

func (s *Store) GetSource(ctx context.Context, id uuid.UUID) (*domain.Source, error) {
	query := fmt.Sprintf(`SELECT %s FROM sources WHERE id = $1;`, sourceColumns)

	src, err := scanSource(s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get source %s: %w", id, mapRowError(err))
	}
	return src, nil
}

func (s *Store) ListActiveSources(ctx context.Context, siteID uuid.UUID) ([]domain.Source, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM sources
        WHERE site_id = $1 AND active = true
        ORDER BY created_at;
    `, sourceColumns)

	rows, err := s.db.Query(ctx, query, siteID)
	if err != nil {
		return nil, fmt.Errorf("list active sources for site %s: %w", siteID, err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, *src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return sources, nil
}

func (s *Store) SaveSource(ctx context.Context, source *domain.Source) error {
	if source.ID == uuid.Nil {
		source.ID = uuid.New()
	}
	if source.CreatedAt.IsZero() {
		source.CreatedAt = time.Now()
	}
	source.UpdatedAt = time.Now()

	cmd := `
        INSERT INTO sources (id, site_id, url, kind, active, validated, last_error, article_count, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (site_id, url) DO UPDATE
        SET kind = EXCLUDED.kind,
            active = EXCLUDED.active,
            updated_at = EXCLUDED.updated_at
        RETURNING id;
    `
	err := s.db.QueryRow(
		ctx,
		cmd,
		source.ID,
		source.SiteID,
		source.URL,
		source.Kind,
		source.Active,
		source.Validated,
		source.LastError,
		source.ArticleCount,
		source.CreatedAt,
		source.UpdatedAt,
	).Scan(&source.ID)
	if err != nil {
		return fmt.Errorf("save source %q: %w", source.URL, err)
	}
	return nil
}

func (s *Store) UpdateValidation(ctx context.Context, id uuid.UUID, validated bool, lastError string) error {
	cmd := `
        UPDATE sources
        SET validated = $2, last_error = $3, updated_at = now()
        WHERE id = $1;
    `
	tag, err := s.db.Exec(ctx, cmd, id, validated, lastError)
	if err != nil {
		return fmt.Errorf("update source validation %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update source validation %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) UpdateFetchResult(ctx context.Context, id uuid.UUID, fetchedAt time.Time, lastError string, added int) error {
	cmd := `
        UPDATE sources
        SET last_fetched_at = $2,
            last_error = $3,
            article_count = article_count + $4,
            updated_at = now()
        WHERE id = $1;
    `
	tag, err := s.db.Exec(ctx, cmd, id, fetchedAt, lastError, added)
	if err != nil {
		return fmt.Errorf("update source fetch result %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update source fetch result %s: %w", id, storage.ErrNotFound)
	}
	return nil
}
