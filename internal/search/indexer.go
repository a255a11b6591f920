package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/feedpress/feedpress/internal/domain"
)

type ClientConfig struct {
	Addresses []string
	IndexName string
	Username  string
	Password  string
}

func newClient(config ClientConfig) (*elasticsearch.TypedClient, error) {
	cfg := elasticsearch.Config{
		Addresses: config.Addresses,
	}

	if config.Username != "" && config.Password != "" {
		cfg.Username = config.Username
		cfg.Password = config.Password
	}

	return elasticsearch.NewTypedClient(cfg)
}

// Indexer pushes published articles into Elasticsearch so the reader-facing
// sites can search them. One index serves all sites; documents carry site_id.
type Indexer struct {
	client    *elasticsearch.TypedClient
	indexName string
}

// Document is the Elasticsearch shape of a published article.
type Document struct {
	ID              string    `json:"id"`
	SiteID          string    `json:"site_id"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	Excerpt         string    `json:"excerpt"`
	MetaDescription string    `json:"meta_description"`
	Tags            []string  `json:"tags"`
	OriginalURL     string    `json:"original_url"`
	PublishedAt     time.Time `json:"published_at"`
	IndexedAt       time.Time `json:"indexed_at"`
}

func NewIndexer(ctx context.Context, config ClientConfig) (*Indexer, error) {
	client, err := newClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	indexer := &Indexer{
		client:    client,
		indexName: config.IndexName,
	}

	if err := indexer.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}

	return indexer, nil
}

func (e *Indexer) IndexPublished(ctx context.Context, article domain.Article) error {
	doc := Document{
		ID:              article.ID.String(),
		SiteID:          article.SiteID.String(),
		Title:           article.Title,
		Content:         article.Content,
		Excerpt:         article.Excerpt,
		MetaDescription: article.MetaDescription,
		Tags:            article.Tags,
		OriginalURL:     article.OriginalURL,
		PublishedAt:     article.PublishedAt,
		IndexedAt:       time.Now(),
	}

	res, err := e.client.Index(e.indexName).Id(doc.ID).Document(doc).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}

	slog.Debug("document indexed", "id", doc.ID, "index", e.indexName, "result", res.Result)
	return nil
}

func (e *Indexer) EnsureIndex(ctx context.Context) error {
	existsRes, err := e.client.Indices.Exists(e.indexName).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check if index exists: %w", err)
	}

	if existsRes {
		slog.Info("Index already exists", "index", e.indexName)
		return nil
	}

	mappings := types.TypeMapping{
		Properties: map[string]types.Property{
			"id":               types.NewKeywordProperty(),
			"site_id":          types.NewKeywordProperty(),
			"title":            textPropertyWithKeyword(),
			"content":          types.NewTextProperty(),
			"excerpt":          types.NewTextProperty(),
			"meta_description": types.NewTextProperty(),
			"tags":             types.NewKeywordProperty(),
			"original_url":     types.NewKeywordProperty(),
			"published_at":     types.NewDateProperty(),
			"indexed_at":       types.NewDateProperty(),
		},
	}

	createRes, err := e.client.Indices.Create(e.indexName).
		Mappings(&mappings).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	if !createRes.Acknowledged {
		return fmt.Errorf("index creation was not acknowledged")
	}

	slog.Info("Index created successfully", "index", e.indexName)
	return nil
}

func textPropertyWithKeyword() types.Property {
	textProp := types.NewTextProperty()
	textProp.Fields = map[string]types.Property{
		"keyword": types.NewKeywordProperty(),
	}
	return textProp
}
