package router

import (
	"context"
	"errors"
	"strconv"

	"github.com/feedpress/feedpress/internal/apperr"
	"github.com/feedpress/feedpress/internal/domain"
	"github.com/feedpress/feedpress/internal/feed"
	"github.com/feedpress/feedpress/internal/pipeline"
	"github.com/feedpress/feedpress/internal/storage"
	"github.com/feedpress/feedpress/pkg/pagination"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// FetchRunner triggers a fetch run for one site.
type FetchRunner interface {
	Run(ctx context.Context, siteID uuid.UUID) (domain.FetchStats, error)
}

// RewriteRunner triggers a rewrite run for one site.
type RewriteRunner interface {
	Run(ctx context.Context, siteID uuid.UUID, limit int) (domain.RewriteStats, error)
}

var _ FetchRunner = (*pipeline.FetchOrchestrator)(nil)
var _ RewriteRunner = (*pipeline.RewriteOrchestrator)(nil)

type PipelineRouter struct {
	e         *echo.Echo
	fetcher   FetchRunner
	rewriter  RewriteRunner
	validator *feed.Validator
	store     storage.Store
}

func NewPipelineRouter(
	e *echo.Echo,
	fetcher FetchRunner,
	rewriter RewriteRunner,
	validator *feed.Validator,
	store storage.Store,
) *PipelineRouter {
	return &PipelineRouter{
		e:         e,
		fetcher:   fetcher,
		rewriter:  rewriter,
		validator: validator,
		store:     store,
	}
}

func (r *PipelineRouter) Bind() {
	r.e.POST("/api/sites/:siteID/fetch", r.fetchHandler)
	r.e.POST("/api/sites/:siteID/rewrite", r.rewriteHandler)
	r.e.POST("/api/sources/:sourceID/validate", r.validateHandler)
	r.e.GET("/api/sites/:siteID/jobs", r.jobsHandler)
}

// fetchHandler godoc
// @Summary Run the fetch pipeline for a site
// @Param siteID path string true "Site ID"
// @Success 200 {object} domain.FetchStats
// @Router /api/sites/{siteID}/fetch [post]
func (r *PipelineRouter) fetchHandler(c echo.Context) error {
	siteID, err := parseSiteID(c)
	if err != nil {
		return err
	}

	stats, err := r.fetcher.Run(c.Request().Context(), siteID)
	if err != nil {
		return err
	}
	return c.JSON(200, stats)
}

// rewriteHandler godoc
// @Summary Run the rewrite pipeline for a site
// @Param siteID path string true "Site ID"
// @Param limit query int false "Max articles to rewrite in this run"
// @Success 200 {object} domain.RewriteStats
// @Router /api/sites/{siteID}/rewrite [post]
func (r *PipelineRouter) rewriteHandler(c echo.Context) error {
	siteID, err := parseSiteID(c)
	if err != nil {
		return err
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return apperr.NewValidation("limit must be a non-negative integer")
		}
	}

	stats, err := r.rewriter.Run(c.Request().Context(), siteID, limit)
	if err != nil {
		return err
	}
	return c.JSON(200, stats)
}

// validateHandler godoc
// @Summary Validate a configured source and persist the outcome
// @Param sourceID path string true "Source ID"
// @Success 200 {object} feed.ValidationResult
// @Router /api/sources/{sourceID}/validate [post]
func (r *PipelineRouter) validateHandler(c echo.Context) error {
	sourceID, err := uuid.Parse(c.Param("sourceID"))
	if err != nil {
		return apperr.NewValidation("sourceID must be a UUID")
	}

	ctx := c.Request().Context()
	source, err := r.store.GetSource(ctx, sourceID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NewNotFound("source not found")
		}
		return apperr.NewPersistence("load source", uuid.Nil, err)
	}

	result := r.validator.Validate(ctx, *source)
	if err := r.store.UpdateValidation(ctx, sourceID, result.IsValid, result.Reason); err != nil {
		return apperr.NewPersistence("persist validation outcome", source.SiteID, err)
	}
	return c.JSON(200, result)
}

// jobsHandler godoc
// @Summary List job log entries for a site, most recent first
// @Param siteID path string true "Site ID"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} pagination.OffsetResult[domain.JobLogEntry]
// @Router /api/sites/{siteID}/jobs [get]
func (r *PipelineRouter) jobsHandler(c echo.Context) error {
	siteID, err := parseSiteID(c)
	if err != nil {
		return err
	}

	var page pagination.OffsetRequest
	if err := c.Bind(&page); err != nil {
		return apperr.NewValidation("invalid pagination parameters")
	}
	_ = page.Validate()

	entries, total, err := r.store.ListJobLogs(c.Request().Context(), siteID, page)
	if err != nil {
		return apperr.NewPersistence("list job logs", siteID, err)
	}
	if entries == nil {
		entries = []domain.JobLogEntry{}
	}
	return c.JSON(200, pagination.NewOffsetResult(entries, total, page.Page, page.Size))
}

func parseSiteID(c echo.Context) (uuid.UUID, error) {
	siteID, err := uuid.Parse(c.Param("siteID"))
	if err != nil {
		return uuid.Nil, apperr.NewValidation("siteID must be a UUID")
	}
	return siteID, nil
}
