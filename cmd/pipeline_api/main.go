// Package main Feedpress Pipeline API
// @title Feedpress Pipeline API
// @version 1.0
// @description Multi-tenant content ingestion and AI rewrite pipeline
// @BasePath /
package main

import (
	"log/slog"
	"os"

	"github.com/feedpress/feedpress/internal/dedupe"
	"github.com/feedpress/feedpress/internal/feed"
	"github.com/feedpress/feedpress/internal/pipeline"
	"github.com/feedpress/feedpress/internal/rewrite"
	"github.com/feedpress/feedpress/internal/router"
	"github.com/feedpress/feedpress/internal/search"
	"github.com/feedpress/feedpress/internal/seed"
	"github.com/feedpress/feedpress/internal/server"
	"github.com/feedpress/feedpress/internal/storage/pg"
	pkgserver "github.com/feedpress/feedpress/pkg/server"
)

func main() {
	slog.SetLogLoggerLevel(slog.LevelInfo)
	logger := slog.Default()

	sCfg, err := server.LoadConfig()
	if err != nil {
		slog.Error("Failed to load server config", "error", err)
		os.Exit(1)
	}

	appSettings := NewAppConfig()
	cfg, err := appSettings.Load()
	if err != nil {
		slog.Error("Failed to load app configuration", "error", err)
		os.Exit(1)
	}

	healthChecker := pkgserver.NewOkHealthChecker()

	s := server.New(sCfg, healthChecker).
		SetupMiddlewares().
		SetupErrorHandler().
		SetupHealthChecks("/health").
		SetupOpenApi("/swagger/*")

	pool, err := pg.NewConnectionPool(s.Context(), pg.PoolConfig{ConnStr: cfg.DatabaseURL})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := pg.NewStore(pool)

	if cfg.SeedPath != "" {
		if err := seed.NewLoader(store).LoadFile(s.Context(), cfg.SeedPath); err != nil {
			slog.Error("Failed to apply seed file", "error", err, "path", cfg.SeedPath)
			os.Exit(1)
		}
		slog.Info("Seed file applied", "path", cfg.SeedPath)
	}

	validator := feed.NewValidator(logger)
	fetcher := feed.NewFetcher(logger)
	dedupeEngine := dedupe.NewEngine(store)

	fetchOrch := pipeline.NewFetchOrchestrator(store, validator, fetcher, dedupeEngine, logger)

	chatClient := rewrite.NewChatClient(cfg.AIClient)
	rewriteEngine := rewrite.NewEngine(chatClient, logger)

	var rewriteOpts []pipeline.RewriteOrchestratorOption
	if cfg.Search != nil {
		indexer, err := search.NewIndexer(s.Context(), search.ClientConfig{
			Addresses: cfg.Search.Addresses,
			IndexName: cfg.Search.IndexName,
			Username:  cfg.Search.Username,
			Password:  cfg.Search.Password,
		})
		if err != nil {
			slog.Error("Failed to create search indexer", "error", err)
			os.Exit(1)
		}
		rewriteOpts = append(rewriteOpts, pipeline.WithPublishIndexer(indexer))
		slog.Info("Search indexing enabled", "index", cfg.Search.IndexName)
	} else {
		slog.Info("Search indexing disabled")
	}

	rewriteOrch := pipeline.NewRewriteOrchestrator(store, rewriteEngine, dedupeEngine, logger, rewriteOpts...)

	pipelineRouter := router.NewPipelineRouter(s.Echo, fetchOrch, rewriteOrch, validator, store)
	pipelineRouter.Bind()

	go func() {
		<-s.ShutdownSignal()
		slog.Info("Shutdown started, cleaning up resources...")
	}()

	if err := s.Start(); err != nil {
		s.Echo.Logger.Error("Failed to start server: ", err)
		os.Exit(1)
	}
}
