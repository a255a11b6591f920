package domain

import (
	"time"

	"github.com/google/uuid"
)

// SourceKind is the feed format of a configured source.
type SourceKind string

const (
	SourceKindRSS     SourceKind = "rss"
	SourceKindSitemap SourceKind = "sitemap"
)

func (k SourceKind) Valid() bool {
	return k == SourceKindRSS || k == SourceKindSitemap
}

// Source is a configured external feed a site ingests from.
// A source with Active=false is never fetched.
type Source struct {
	ID            uuid.UUID  `json:"id"`
	SiteID        uuid.UUID  `json:"siteId"`
	URL           string     `json:"url"`
	Kind          SourceKind `json:"kind"`
	Active        bool       `json:"active"`
	Validated     bool       `json:"validated"`
	LastError     string     `json:"lastError,omitempty"`
	LastFetchedAt time.Time  `json:"lastFetchedAt,omitempty"`
	ArticleCount  int        `json:"articleCount"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}
