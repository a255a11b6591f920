package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/feedpress/feedpress/internal/domain"
	"github.com/google/uuid"
)

func (s *Store) GetSite(ctx context.Context, id uuid.UUID) (*domain.Site, error) {
	query := `
        SELECT id, slug, name, tone, brand_context, active, created_at, updated_at
        FROM sites
        WHERE id = $1;
    `
	var site domain.Site
	err := s.db.QueryRow(ctx, query, id).Scan(
		&site.ID,
		&site.Slug,
		&site.Name,
		&site.Tone,
		&site.BrandContext,
		&site.Active,
		&site.CreatedAt,
		&site.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get site %s: %w", id, mapRowError(err))
	}
	return &site, nil
}

func (s *Store) GetSiteBySlug(ctx context.Context, slug string) (*domain.Site, error) {
	query := `
        SELECT id, slug, name, tone, brand_context, active, created_at, updated_at
        FROM sites
        WHERE slug = $1;
    `
	var site domain.Site
	err := s.db.QueryRow(ctx, query, slug).Scan(
		&site.ID,
		&site.Slug,
		&site.Name,
		&site.Tone,
		&site.BrandContext,
		&site.Active,
		&site.CreatedAt,
		&site.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get site by slug %q: %w", slug, mapRowError(err))
	}
	return &site, nil
}

func (s *Store) SaveSite(ctx context.Context, site *domain.Site) error {
	if site.ID == uuid.Nil {
		site.ID = uuid.New()
	}
	if site.CreatedAt.IsZero() {
		site.CreatedAt = time.Now()
	}
	site.UpdatedAt = time.Now()

	cmd := `
        INSERT INTO sites (id, slug, name, tone, brand_context, active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (slug) DO UPDATE
        SET name = EXCLUDED.name,
            tone = EXCLUDED.tone,
            brand_context = EXCLUDED.brand_context,
            active = EXCLUDED.active,
            updated_at = EXCLUDED.updated_at
        RETURNING id;
    `
	err := s.db.QueryRow(
		ctx,
		cmd,
		site.ID,
		site.Slug,
		site.Name,
		site.Tone,
		site.BrandContext,
		site.Active,
		site.CreatedAt,
		site.UpdatedAt,
	).Scan(&site.ID)
	if err != nil {
		return fmt.Errorf("save site %q: %w", site.Slug, err)
	}
	return nil
}
