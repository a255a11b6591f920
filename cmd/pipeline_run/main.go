package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/feedpress/feedpress/internal/dedupe"
	"github.com/feedpress/feedpress/internal/feed"
	"github.com/feedpress/feedpress/internal/pipeline"
	"github.com/feedpress/feedpress/internal/rewrite"
	"github.com/feedpress/feedpress/internal/seed"
	"github.com/feedpress/feedpress/internal/storage/pg"
	"github.com/google/uuid"
)

func main() {
	var (
		siteFlag  = flag.String("site", "", "site ID or slug to run against")
		jobFlag   = flag.String("job", "fetch", "job to run: fetch or rewrite")
		limitFlag = flag.Int("limit", 0, "max articles per rewrite run, 0 for unbounded")
		seedFlag  = flag.String("seed", "", "seed file to apply before the run")
	)
	flag.Parse()

	slog.SetLogLoggerLevel(slog.LevelInfo)
	logger := slog.Default()

	appSettings := NewAppConfig()
	cfg, err := appSettings.Load()
	if err != nil {
		slog.Error("Failed to load app configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pool, err := pg.NewConnectionPool(ctx, pg.PoolConfig{ConnStr: cfg.DatabaseURL})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := pg.NewStore(pool)

	if *seedFlag != "" {
		if err := seed.NewLoader(store).LoadFile(ctx, *seedFlag); err != nil {
			slog.Error("Failed to apply seed file", "error", err, "path", *seedFlag)
			os.Exit(1)
		}
		slog.Info("Seed file applied", "path", *seedFlag)
	}

	if *siteFlag == "" {
		slog.Error("-site is required")
		os.Exit(1)
	}

	siteID, err := resolveSiteID(ctx, store, *siteFlag)
	if err != nil {
		slog.Error("Failed to resolve site", "error", err, "site", *siteFlag)
		os.Exit(1)
	}

	dedupeEngine := dedupe.NewEngine(store)

	switch *jobFlag {
	case "fetch":
		orch := pipeline.NewFetchOrchestrator(store, feed.NewValidator(logger), feed.NewFetcher(logger), dedupeEngine, logger)
		stats, err := orch.Run(ctx, siteID)
		if err != nil {
			slog.Error("Fetch run failed", "error", err, "site_id", siteID)
			os.Exit(1)
		}
		slog.Info("Fetch run completed",
			"site_id", siteID,
			"sourced", stats.Sourced,
			"new", stats.NewArticles,
			"duplicates", stats.Duplicates,
			"errors", stats.Errors,
		)
	case "rewrite":
		engine := rewrite.NewEngine(rewrite.NewChatClient(cfg.AIClient), logger)
		orch := pipeline.NewRewriteOrchestrator(store, engine, dedupeEngine, logger)
		stats, err := orch.Run(ctx, siteID, *limitFlag)
		if err != nil {
			slog.Error("Rewrite run failed", "error", err, "site_id", siteID)
			os.Exit(1)
		}
		slog.Info("Rewrite run completed",
			"site_id", siteID,
			"processed", stats.Processed,
			"published", stats.Published,
			"filtered", stats.Filtered,
			"duplicates", stats.Duplicates,
			"errors", stats.Errors,
		)
	default:
		slog.Error("Unknown job", "job", *jobFlag)
		os.Exit(1)
	}
}

func resolveSiteID(ctx context.Context, store *pg.Store, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	site, err := store.GetSiteBySlug(ctx, ref)
	if err != nil {
		return uuid.Nil, err
	}
	return site.ID, nil
}
