package domain

import (
	"time"

	"github.com/google/uuid"
)

type JobType string

const (
	JobTypeFetchSources    JobType = "fetch_sources"
	JobTypeRewriteArticles JobType = "rewrite_articles"
)

type JobStatus string

const (
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobLogEntry is the append-only audit record of one orchestrator run.
// It is written once and never mutated.
type JobLogEntry struct {
	ID                uuid.UUID `json:"id"`
	JobType           JobType   `json:"jobType"`
	SiteID            uuid.UUID `json:"siteId"`
	Status            JobStatus `json:"status"`
	ArticlesFetched   int       `json:"articlesFetched"`
	ArticlesRewritten int       `json:"articlesRewritten"`
	ArticlesPublished int       `json:"articlesPublished"`
	ErrorMessage      string    `json:"errorMessage,omitempty"`
	StartedAt         time.Time `json:"startedAt"`
	CompletedAt       time.Time `json:"completedAt"`
	DurationMs        int64     `json:"durationMs"`
}

// FetchStats summarizes one fetch orchestrator run.
// Per processed source: sourced = newArticles + duplicates; failed sources
// contribute to Errors instead of Sourced.
type FetchStats struct {
	Sourced     int `json:"sourced"`
	NewArticles int `json:"newArticles"`
	Duplicates  int `json:"duplicates"`
	Errors      int `json:"errors"`
}

// RewriteStats summarizes one rewrite orchestrator run.
type RewriteStats struct {
	Processed  int `json:"processed"`
	Published  int `json:"published"`
	Filtered   int `json:"filtered"`
	Duplicates int `json:"duplicates"`
	Errors     int `json:"errors"`
}
