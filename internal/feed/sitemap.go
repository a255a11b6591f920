package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/feedpress/feedpress/internal/domain"
)

// maxSitemapIndexDepth bounds recursion through nested sitemap indexes.
const maxSitemapIndexDepth = 2

type sitemapURLSet struct {
	XMLName xml.Name          `xml:"urlset"`
	URLs    []sitemapURLEntry `xml:"url"`
}

type sitemapURLEntry struct {
	Location string `xml:"loc"`
	LastMod  string `xml:"lastmod"`
}

type sitemapIndex struct {
	XMLName  xml.Name         `xml:"sitemapindex"`
	Sitemaps []sitemapIndexEn `xml:"sitemap"`
}

type sitemapIndexEn struct {
	Location string `xml:"loc"`
}

func (f *Fetcher) fetchSitemap(ctx context.Context, source domain.Source) ([]domain.CandidateItem, error) {
	base, err := url.Parse(source.URL)
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}
	return f.fetchSitemapURL(ctx, base, source.URL, 0)
}

func (f *Fetcher) fetchSitemapURL(ctx context.Context, base *url.URL, sitemapURL string, depth int) ([]domain.CandidateItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build sitemap request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap %s: %w", sitemapURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch sitemap %s: unexpected status %d", sitemapURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read sitemap %s: %w", sitemapURL, err)
	}

	if strings.Contains(string(body), "<sitemapindex") {
		if depth >= maxSitemapIndexDepth {
			return nil, fmt.Errorf("sitemap index nesting too deep at %s", sitemapURL)
		}
		return f.fetchSitemapIndex(ctx, base, body, depth)
	}

	return parseSitemapEntries(base, body)
}

func (f *Fetcher) fetchSitemapIndex(ctx context.Context, base *url.URL, body []byte, depth int) ([]domain.CandidateItem, error) {
	var index sitemapIndex
	if err := xml.Unmarshal(body, &index); err != nil {
		return nil, fmt.Errorf("decode sitemap index: %w", err)
	}

	var all []domain.CandidateItem
	for _, ref := range index.Sitemaps {
		loc := resolveURL(base, ref.Location)
		if loc == "" {
			continue
		}
		items, err := f.fetchSitemapURL(ctx, base, loc, depth+1)
		if err != nil {
			f.logger.Warn("skipping nested sitemap", "url", loc, "error", err)
			continue
		}
		all = append(all, items...)
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("sitemap index produced no entries")
	}
	return all, nil
}

func parseSitemapEntries(base *url.URL, body []byte) ([]domain.CandidateItem, error) {
	var set sitemapURLSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("decode sitemap: %w", err)
	}

	items := make([]domain.CandidateItem, 0, len(set.URLs))
	for _, entry := range set.URLs {
		loc := resolveURL(base, entry.Location)
		if loc == "" {
			continue
		}
		candidate := domain.CandidateItem{URL: loc}
		if entry.LastMod != "" {
			if ts, err := parseLastMod(entry.LastMod); err == nil {
				candidate.PublishedAt = ts
			}
		}
		items = append(items, candidate)
	}
	return items, nil
}

func parseLastMod(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized lastmod %q", value)
}
