package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/feedpress/feedpress/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example Blog</title>
  <link>https://example.com</link>
  <item>
    <title>  First Post  </title>
    <link>/posts/first</link>
    <pubDate>Mon, 02 Jan 2023 15:04:05 GMT</pubDate>
    <description><![CDATA[<p>Intro paragraph.</p><img src="/img/first.jpg"/>]]></description>
    <author>jane@example.com (Jane Doe)</author>
  </item>
  <item>
    <title>No Date Post</title>
    <link>https://example.com/posts/second</link>
    <description>Plain summary</description>
  </item>
  <item>
    <title>Linkless entry</title>
    <description>dropped</description>
  </item>
</channel>
</rss>`

const sitemapFixture = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/pages/alpha</loc><lastmod>2023-05-01</lastmod></url>
  <url><loc>/pages/beta</loc></url>
</urlset>`

func TestFetcher_FetchCandidates_RSS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFixture))
	}))
	defer srv.Close()

	f := NewFetcher(discardLogger())
	items, err := f.FetchCandidates(context.Background(), domain.Source{
		URL:  srv.URL + "/feed.xml",
		Kind: domain.SourceKindRSS,
	})
	require.NoError(t, err)
	require.Len(t, items, 2, "entries without links are dropped")

	first := items[0]
	assert.Equal(t, "First Post", first.Title, "titles are trimmed")
	assert.Equal(t, srv.URL+"/posts/first", first.URL, "relative links resolve against the source base")
	assert.Equal(t, 2023, first.PublishedAt.Year())
	assert.Equal(t, "Intro paragraph.", first.Summary, "description html is flattened")
	assert.Equal(t, srv.URL+"/img/first.jpg", first.ImageURL, "image pulled from description html")

	second := items[1]
	assert.Equal(t, "No Date Post", second.Title)
	assert.True(t, second.PublishedAt.IsZero(), "missing date stays zero and is treated as new")
	assert.Equal(t, "Plain summary", second.Summary)
}

func TestFetcher_FetchCandidates_Sitemap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(sitemapFixture))
	}))
	defer srv.Close()

	f := NewFetcher(discardLogger())
	items, err := f.FetchCandidates(context.Background(), domain.Source{
		URL:  srv.URL + "/sitemap.xml",
		Kind: domain.SourceKindSitemap,
	})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "https://example.com/pages/alpha", items[0].URL)
	assert.Equal(t, time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), items[0].PublishedAt)
	assert.Equal(t, srv.URL+"/pages/beta", items[1].URL)
	assert.True(t, items[1].PublishedAt.IsZero())
}

func TestFetcher_FetchCandidates_SitemapIndex(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>` + srv.URL + `/posts.xml</loc></sitemap>
  <sitemap><loc>` + srv.URL + `/missing.xml</loc></sitemap>
</sitemapindex>`))
	})
	mux.HandleFunc("/posts.xml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<?xml version="1.0"?>
<urlset><url><loc>https://example.com/a</loc></url></urlset>`))
	})
	mux.HandleFunc("/missing.xml", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	f := NewFetcher(discardLogger())
	items, err := f.FetchCandidates(context.Background(), domain.Source{
		URL:  srv.URL + "/sitemap.xml",
		Kind: domain.SourceKindSitemap,
	})
	require.NoError(t, err, "one broken nested sitemap must not fail the whole index")
	require.Len(t, items, 1)
	assert.Equal(t, "https://example.com/a", items[0].URL)
}

func TestFetcher_FetchCandidates_BadFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not a feed</html>"))
	}))
	defer srv.Close()

	f := NewFetcher(discardLogger())
	_, err := f.FetchCandidates(context.Background(), domain.Source{
		URL:  srv.URL,
		Kind: domain.SourceKindRSS,
	})
	assert.Error(t, err)
}

func TestFetcher_UnsupportedKind(t *testing.T) {
	f := NewFetcher(discardLogger())
	_, err := f.FetchCandidates(context.Background(), domain.Source{URL: "https://example.com", Kind: "api"})
	assert.Error(t, err)
}
