package rewrite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/feedpress/feedpress/internal/dedupe"
	"github.com/feedpress/feedpress/internal/domain"
	"github.com/microcosm-cc/bluemonday"
)

const (
	// minContentLength is the quality floor for a usable rewrite.
	minContentLength = 280
	maxMetaLength    = 160
	maxExcerptLength = 240
	maxTags          = 5
)

// Generator is the AI text-generation contract the engine depends on.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Result is the classified outcome of rewriting one article.
// Status is one of published, filtered, failed.
type Result struct {
	Status          domain.ArticleStatus
	Title           string
	Content         string
	Excerpt         string
	MetaDescription string
	Tags            []string
	Reason          string
}

// Engine turns one raw article into rewritten, SEO-annotated content.
// Classification: safety block or quality failure -> filtered; service
// failure (timeout, quota, malformed response) -> failed; else published.
type Engine struct {
	gen       Generator
	sanitizer *bluemonday.Policy
	threshold float64
	logger    *slog.Logger
}

type EngineOption func(*Engine)

// WithSimilarityThreshold tunes the near-duplicate-of-source filter.
func WithSimilarityThreshold(t float64) EngineOption {
	return func(e *Engine) {
		e.threshold = t
	}
}

func NewEngine(gen Generator, logger *slog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		gen:       gen,
		sanitizer: bluemonday.UGCPolicy(),
		threshold: dedupe.DefaultSimilarityThreshold,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type rewritePayload struct {
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	Excerpt         string   `json:"excerpt"`
	MetaDescription string   `json:"meta_description"`
	Tags            []string `json:"tags"`
}

// Rewrite generates and classifies the rewrite of one article. It never
// returns an error: every failure mode maps onto a Result status so one
// article cannot abort a batch.
func (e *Engine) Rewrite(ctx context.Context, article domain.Article, site domain.Site) Result {
	text, err := e.gen.Generate(ctx, systemPrompt(site), userPrompt(article))
	if err != nil {
		if errors.Is(err, ErrSafetyBlocked) {
			e.logger.Info("rewrite blocked by safety filter", "article_id", article.ID)
			return Result{Status: domain.StatusFiltered, Reason: err.Error()}
		}
		e.logger.Warn("rewrite generation failed", "article_id", article.ID, "error", err)
		return Result{Status: domain.StatusFailed, Reason: err.Error()}
	}

	payload, err := parsePayload(text)
	if err != nil {
		e.logger.Warn("rewrite response unparseable", "article_id", article.ID, "error", err)
		return Result{Status: domain.StatusFailed, Reason: err.Error()}
	}

	if reason := e.qualityCheck(article, payload); reason != "" {
		e.logger.Info("rewrite filtered", "article_id", article.ID, "reason", reason)
		return Result{Status: domain.StatusFiltered, Reason: reason}
	}

	content := e.sanitizer.Sanitize(payload.Content)

	excerpt := strings.TrimSpace(payload.Excerpt)
	if excerpt == "" {
		excerpt = deriveExcerpt(content)
	}
	excerpt = clip(excerpt, maxExcerptLength)

	tags := payload.Tags
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}

	return Result{
		Status:          domain.StatusPublished,
		Title:           strings.TrimSpace(payload.Title),
		Content:         content,
		Excerpt:         excerpt,
		MetaDescription: clip(strings.TrimSpace(payload.MetaDescription), maxMetaLength),
		Tags:            tags,
	}
}

func (e *Engine) qualityCheck(article domain.Article, payload rewritePayload) string {
	if strings.TrimSpace(payload.Title) == "" {
		return "rewrite produced no title"
	}
	if len(strings.TrimSpace(payload.Content)) < minContentLength {
		return fmt.Sprintf("rewrite too short (%d chars)", len(strings.TrimSpace(payload.Content)))
	}
	if dedupe.NearDuplicate(payload.Content, article.OriginalContent, e.threshold) {
		return "rewrite is a near-duplicate of the source"
	}
	return ""
}

// parsePayload decodes the model's JSON object, tolerating markdown fences
// some models wrap around the response.
func parsePayload(text string) (rewritePayload, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	var payload rewritePayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return rewritePayload{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return payload, nil
}

func deriveExcerpt(htmlContent string) string {
	plain := bluemonday.StrictPolicy().Sanitize(htmlContent)
	return strings.TrimSpace(strings.Join(strings.Fields(plain), " "))
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// cut on a rune boundary so a multibyte character is never split
	end := 0
	for i := range s {
		if i > max {
			break
		}
		end = i
	}
	clipped := s[:end]
	if idx := strings.LastIndex(clipped, " "); idx > 0 {
		clipped = clipped[:idx]
	}
	return clipped
}
