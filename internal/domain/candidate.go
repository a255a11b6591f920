package domain

import "time"

// CandidateItem is the normalized, in-memory form of one feed entry.
// It is never persisted directly; the fetch orchestrator either discards it
// as a duplicate or turns it into a raw Article.
type CandidateItem struct {
	Title       string
	URL         string
	PublishedAt time.Time // zero when the feed carries no date; treated as always-new
	Summary     string
	ImageURL    string
	Author      string
}
