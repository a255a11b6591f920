package domain

import (
	"time"

	"github.com/google/uuid"
)

// ArticleStatus tracks where an article sits in the ingest → rewrite → publish flow.
//
// Allowed transitions:
//
//	raw      -> published | filtered | failed   (rewrite run)
//	failed   -> published | filtered | failed   (rewrite retry)
//	filtered -> published | filtered | failed   (rewrite retry)
//	published -> unpublished                    (manual admin action)
type ArticleStatus string

const (
	StatusRaw         ArticleStatus = "raw"
	StatusPublished   ArticleStatus = "published"
	StatusFiltered    ArticleStatus = "filtered"
	StatusFailed      ArticleStatus = "failed"
	StatusUnpublished ArticleStatus = "unpublished"
)

func (s ArticleStatus) Valid() bool {
	switch s {
	case StatusRaw, StatusPublished, StatusFiltered, StatusFailed, StatusUnpublished:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status state machine allows s -> next.
func (s ArticleStatus) CanTransitionTo(next ArticleStatus) bool {
	switch s {
	case StatusRaw, StatusFailed, StatusFiltered:
		return next == StatusPublished || next == StatusFiltered || next == StatusFailed
	case StatusPublished:
		return next == StatusUnpublished
	}
	return false
}

// RewriteSelectionStatuses are the statuses the rewrite orchestrator picks up.
// failed and filtered stay in the selection set so later runs retry them.
var RewriteSelectionStatuses = []ArticleStatus{StatusRaw, StatusFailed, StatusFiltered}

// Article is one ingested piece of content, owned by exactly one site.
// Fingerprint is unique within a site.
type Article struct {
	ID         uuid.UUID     `json:"id"`
	SiteID     uuid.UUID     `json:"siteId"`
	SourceID   uuid.UUID     `json:"sourceId,omitempty"`
	CategoryID uuid.UUID     `json:"categoryId,omitempty"`
	Status     ArticleStatus `json:"status"`

	OriginalTitle   string `json:"originalTitle"`
	OriginalAuthor  string `json:"originalAuthor,omitempty"`
	OriginalContent string `json:"originalContent"`
	OriginalURL     string `json:"originalUrl"`

	Title           string   `json:"title,omitempty"`
	Content         string   `json:"content,omitempty"`
	Excerpt         string   `json:"excerpt,omitempty"`
	MetaDescription string   `json:"metaDescription,omitempty"`
	FeaturedImage   string   `json:"featuredImage,omitempty"`
	Tags            []string `json:"tags,omitempty"`

	Fingerprint string    `json:"fingerprint"`
	ViewCount   int       `json:"viewCount"`
	PublishedAt time.Time `json:"publishedAt,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
