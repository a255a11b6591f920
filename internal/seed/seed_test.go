package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/feedpress/feedpress/internal/domain"
	"github.com/feedpress/feedpress/internal/storage/inmem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedDoc = `
sites:
  - slug: tech-daily
    name: Tech Daily
    tone: witty
    brandContext: "A snappy tech publication."
    sources:
      - url: https://example.com/feed.xml
        kind: rss
      - url: https://example.com/sitemap.xml
        kind: sitemap
        active: false
  - slug: finance-weekly
    name: Finance Weekly
    sources: []
`

func TestParse(t *testing.T) {
	f, err := Parse(strings.NewReader(seedDoc))
	require.NoError(t, err)

	require.Len(t, f.Sites, 2)
	assert.Equal(t, "tech-daily", f.Sites[0].Slug)
	assert.Equal(t, "witty", f.Sites[0].Tone)
	require.Len(t, f.Sites[0].Sources, 2)
	assert.Equal(t, "sitemap", f.Sites[0].Sources[1].Kind)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing slug", "sites:\n  - name: No Slug\n"},
		{"missing name", "sites:\n  - slug: no-name\n"},
		{"unknown tone", "sites:\n  - slug: s\n    name: S\n    tone: shouty\n"},
		{"unknown source kind", "sites:\n  - slug: s\n    name: S\n    sources:\n      - url: https://x\n        kind: atom\n"},
		{"source without url", "sites:\n  - slug: s\n    name: S\n    sources:\n      - kind: rss\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestApply_CreatesSitesAndSources(t *testing.T) {
	f, err := Parse(strings.NewReader(seedDoc))
	require.NoError(t, err)

	store := inmem.NewStore()
	require.NoError(t, NewLoader(store).Apply(context.Background(), f))

	site, err := store.GetSiteBySlug(context.Background(), "tech-daily")
	require.NoError(t, err)
	assert.Equal(t, domain.ToneWitty, site.Tone)
	assert.True(t, site.Active)

	sources, err := store.ListActiveSources(context.Background(), site.ID)
	require.NoError(t, err)
	// the sitemap source is seeded inactive
	require.Len(t, sources, 1)
	assert.Equal(t, domain.SourceKindRSS, sources[0].Kind)

	other, err := store.GetSiteBySlug(context.Background(), "finance-weekly")
	require.NoError(t, err)
	// tone defaults when the seed omits it
	assert.Equal(t, domain.ToneProfessional, other.Tone)
}

func TestApply_Idempotent(t *testing.T) {
	f, err := Parse(strings.NewReader(seedDoc))
	require.NoError(t, err)

	store := inmem.NewStore()
	loader := NewLoader(store)
	require.NoError(t, loader.Apply(context.Background(), f))

	first, err := store.GetSiteBySlug(context.Background(), "tech-daily")
	require.NoError(t, err)

	require.NoError(t, loader.Apply(context.Background(), f))

	second, err := store.GetSiteBySlug(context.Background(), "tech-daily")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	sources, err := store.ListActiveSources(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Len(t, sources, 1)
}
