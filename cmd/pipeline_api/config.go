package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/feedpress/feedpress/internal/rewrite"
	"github.com/feedpress/feedpress/pkg/config/env"
	"github.com/feedpress/feedpress/pkg/stringsutil"
)

func NewAppConfig() *AppConfig {
	return &AppConfig{
		ENV: os.Getenv("APP_ENV"),
	}
}

type AppConfig struct {
	ENV string
}

type PipelineConfig struct {
	DatabaseURL string
	AIClient    rewrite.ClientConfig
	Search      *SearchConfig
	SeedPath    string
}

// SearchConfig is nil when search indexing is disabled.
type SearchConfig struct {
	Addresses []string
	IndexName string
	Username  string
	Password  string
}

func (as *AppConfig) Load() (*PipelineConfig, error) {
	err := env.LoadDotEnv(as.ENV, "cmd/pipeline_api/.env")
	if err != nil {
		slog.Info("Skipping .env environment variables...", "error", err)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	aiEndpoint := os.Getenv("AI_ENDPOINT")
	if aiEndpoint == "" {
		return nil, fmt.Errorf("AI_ENDPOINT environment variable is not set")
	}
	aiModel := os.Getenv("AI_MODEL")
	if aiModel == "" {
		return nil, fmt.Errorf("AI_MODEL environment variable is not set")
	}

	var aiTimeout time.Duration
	if raw := os.Getenv("AI_TIMEOUT"); raw != "" {
		aiTimeout, err = time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid AI_TIMEOUT: %w", err)
		}
	}

	cfg := &PipelineConfig{
		DatabaseURL: dbURL,
		AIClient: rewrite.ClientConfig{
			Endpoint: aiEndpoint,
			Model:    aiModel,
			APIKey:   os.Getenv("AI_API_KEY"),
			Timeout:  aiTimeout,
		},
		SeedPath: os.Getenv("SEED_PATH"),
	}

	if esAddrs := os.Getenv("ES_ADDRESSES"); esAddrs != "" {
		addrs := strings.Split(esAddrs, ",")
		for i, a := range addrs {
			addrs[i] = strings.TrimSpace(a)
		}
		indexName := os.Getenv("ES_INDEX_NAME")
		if indexName == "" {
			indexName = "published_articles"
		}
		cfg.Search = &SearchConfig{
			Addresses: stringsutil.RemoveEmptyStrings(addrs),
			IndexName: indexName,
			Username:  os.Getenv("ES_USERNAME"),
			Password:  os.Getenv("ES_PASSWORD"),
		}
	}

	return cfg, nil
}
