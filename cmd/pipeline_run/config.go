package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/feedpress/feedpress/internal/rewrite"
	"github.com/feedpress/feedpress/pkg/config/env"
)

func NewAppConfig() *AppConfig {
	return &AppConfig{
		ENV: os.Getenv("APP_ENV"),
	}
}

type AppConfig struct {
	ENV string
}

type RunConfig struct {
	DatabaseURL string
	AIClient    rewrite.ClientConfig
}

func (as *AppConfig) Load() (*RunConfig, error) {
	err := env.LoadDotEnv(as.ENV, "cmd/pipeline_run/.env")
	if err != nil {
		slog.Info("Skipping .env environment variables...", "error", err)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	cfg := &RunConfig{
		DatabaseURL: dbURL,
		AIClient: rewrite.ClientConfig{
			Endpoint: os.Getenv("AI_ENDPOINT"),
			Model:    os.Getenv("AI_MODEL"),
			APIKey:   os.Getenv("AI_API_KEY"),
		},
	}

	if raw := os.Getenv("AI_TIMEOUT"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid AI_TIMEOUT: %w", err)
		}
		cfg.AIClient.Timeout = timeout
	}

	return cfg, nil
}
