package dedupe

import (
	"context"
	"fmt"

	"github.com/feedpress/feedpress/internal/domain"
	"github.com/google/uuid"
)

// Lookup is the slice of the article store the engine needs.
type Lookup interface {
	ExistsByFingerprint(ctx context.Context, siteID uuid.UUID, fingerprint string) (bool, error)
}

// Engine decides whether a candidate item was already ingested for a site.
// An article in any status counts, including unpublished ones: re-fetching a
// withdrawn item must not resurrect it without explicit user action.
type Engine struct {
	lookup    Lookup
	threshold float64
}

type EngineOption func(*Engine)

// WithSimilarityThreshold tunes the near-duplicate text policy.
func WithSimilarityThreshold(t float64) EngineOption {
	return func(e *Engine) {
		e.threshold = t
	}
}

func NewEngine(lookup Lookup, opts ...EngineOption) *Engine {
	e := &Engine{
		lookup:    lookup,
		threshold: DefaultSimilarityThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsDuplicate fingerprints the candidate URL and checks the site's articles.
// Returns the fingerprint so the caller can persist it on insert.
func (e *Engine) IsDuplicate(ctx context.Context, siteID uuid.UUID, candidate domain.CandidateItem) (string, bool, error) {
	fp, err := Fingerprint(candidate.URL)
	if err != nil {
		return "", false, fmt.Errorf("fingerprint candidate: %w", err)
	}

	exists, err := e.lookup.ExistsByFingerprint(ctx, siteID, fp)
	if err != nil {
		return fp, false, fmt.Errorf("fingerprint lookup: %w", err)
	}
	return fp, exists, nil
}

// NearDuplicateText applies the engine's tunable similarity policy.
func (e *Engine) NearDuplicateText(a, b string) bool {
	return NearDuplicate(a, b, e.threshold)
}
