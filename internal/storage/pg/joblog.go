package pg

import (
	"context"
	"fmt"

	"github.com/feedpress/feedpress/internal/domain"
	"github.com/feedpress/feedpress/pkg/pagination"
	"github.com/google/uuid"
)

func (s *Store) AppendJobLog(ctx context.Context, entry *domain.JobLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	cmd := `
        INSERT INTO job_log (
            id, job_type, site_id, status,
            articles_fetched, articles_rewritten, articles_published,
            error_message, started_at, completed_at, duration_ms
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
    `
	_, err := s.db.Exec(
		ctx,
		cmd,
		entry.ID,
		entry.JobType,
		entry.SiteID,
		entry.Status,
		entry.ArticlesFetched,
		entry.ArticlesRewritten,
		entry.ArticlesPublished,
		entry.ErrorMessage,
		entry.StartedAt,
		entry.CompletedAt,
		entry.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("append job log for site %s: %w", entry.SiteID, err)
	}
	return nil
}

func (s *Store) ListJobLogs(ctx context.Context, siteID uuid.UUID, page pagination.OffsetRequest) ([]domain.JobLogEntry, int64, error) {
	if err := page.Validate(); err != nil {
		return nil, 0, fmt.Errorf("validate page request: %w", err)
	}

	var total int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM job_log WHERE site_id = $1;`, siteID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count job logs for site %s: %w", siteID, err)
	}

	query := `
        SELECT id, job_type, site_id, status,
               articles_fetched, articles_rewritten, articles_published,
               error_message, started_at, completed_at, duration_ms
        FROM job_log
        WHERE site_id = $1
        ORDER BY started_at DESC
        LIMIT $2 OFFSET $3;
    `
	offset := (page.Page - 1) * page.Size
	rows, err := s.db.Query(ctx, query, siteID, page.Size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list job logs for site %s: %w", siteID, err)
	}
	defer rows.Close()

	var entries []domain.JobLogEntry
	for rows.Next() {
		var e domain.JobLogEntry
		if err := rows.Scan(
			&e.ID, &e.JobType, &e.SiteID, &e.Status,
			&e.ArticlesFetched, &e.ArticlesRewritten, &e.ArticlesPublished,
			&e.ErrorMessage, &e.StartedAt, &e.CompletedAt, &e.DurationMs,
		); err != nil {
			return nil, 0, fmt.Errorf("scan job log entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate job log entries: %w", err)
	}
	return entries, total, nil
}
