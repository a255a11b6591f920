package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/feedpress/feedpress/internal/domain"
	"github.com/mmcdole/gofeed"
)

const fetchTimeout = 30 * time.Second

// Fetcher retrieves and parses a source feed into normalized candidate
// items, in document order. A parse or network failure yields an error and
// zero candidates; the orchestrator records it and moves on to the next
// source.
type Fetcher struct {
	feedParser *gofeed.Parser
	client     *http.Client
	logger     *slog.Logger
}

func NewFetcher(logger *slog.Logger) *Fetcher {
	fp := gofeed.NewParser()
	fp.UserAgent = UserAgent

	client := &http.Client{Timeout: fetchTimeout}
	fp.Client = client

	return &Fetcher{
		feedParser: fp,
		client:     client,
		logger:     logger,
	}
}

// FetchCandidates fetches the source document and normalizes its entries.
func (f *Fetcher) FetchCandidates(ctx context.Context, source domain.Source) ([]domain.CandidateItem, error) {
	switch source.Kind {
	case domain.SourceKindRSS:
		return f.fetchRSS(ctx, source)
	case domain.SourceKindSitemap:
		return f.fetchSitemap(ctx, source)
	}
	return nil, fmt.Errorf("unsupported source kind %q", source.Kind)
}

func (f *Fetcher) fetchRSS(ctx context.Context, source domain.Source) ([]domain.CandidateItem, error) {
	parsed, err := f.feedParser.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", source.URL, err)
	}

	base, err := url.Parse(source.URL)
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}

	items := make([]domain.CandidateItem, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		link := resolveURL(base, strings.TrimSpace(item.Link))
		if link == "" {
			f.logger.Debug("skipping feed entry without link", "source_id", source.ID, "title", item.Title)
			continue
		}

		candidate := domain.CandidateItem{
			Title:    strings.TrimSpace(item.Title),
			URL:      link,
			Summary:  summaryText(item.Description),
			ImageURL: itemImage(base, item),
			Author:   itemAuthor(item),
		}
		if item.PublishedParsed != nil {
			candidate.PublishedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			candidate.PublishedAt = *item.UpdatedParsed
		}
		// a zero PublishedAt means the feed carried no usable date; the
		// item stays in the batch and is treated as new

		items = append(items, candidate)
	}

	return items, nil
}

func itemAuthor(item *gofeed.Item) string {
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		return strings.TrimSpace(item.Authors[0].Name)
	}
	return ""
}

func itemImage(base *url.URL, item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return resolveURL(base, item.Image.URL)
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return resolveURL(base, enc.URL)
		}
	}
	return firstImageSrc(base, item.Description)
}

// resolveURL resolves a possibly-relative reference against the feed's base.
func resolveURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return u.String()
	}
	return base.ResolveReference(u).String()
}
