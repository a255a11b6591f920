package feed

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/feedpress/feedpress/internal/domain"
)

const (
	// UserAgent identifies the crawler to feed operators.
	UserAgent = "FeedpressBot/1.0 (+https://feedpress.dev/bot)"

	validationTimeout  = 15 * time.Second
	validationBodyPeek = 64 * 1024
)

// ValidationFailedReason is the single user-facing reason for any rejection:
// network failure, non-2xx response or unrecognized content.
const ValidationFailedReason = "Validation failed"

// ValidationResult is the outcome of one point-in-time source check.
type ValidationResult struct {
	IsValid bool   `json:"isValid"`
	Reason  string `json:"reason,omitempty"`
}

// Validator checks that a configured source URL actually serves parseable
// feed content. One outbound request, no retries: validation is triggered by
// explicit user action or lazily before a source's first fetch.
type Validator struct {
	client *http.Client
	logger *slog.Logger
}

func NewValidator(logger *slog.Logger) *Validator {
	return &Validator{
		client: &http.Client{Timeout: validationTimeout},
		logger: logger,
	}
}

// Validate fetches the source URL once and classifies the response.
//
// rss: content-type reports xml/rss/atom, or the body contains one of
// "<rss", "<feed", "<?xml". sitemap: content-type reports xml, or the body
// contains both "<?xml" and "<url".
func (v *Validator) Validate(ctx context.Context, source domain.Source) ValidationResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		v.logger.Warn("source validation: bad url", "source_id", source.ID, "url", source.URL, "error", err)
		return ValidationResult{IsValid: false, Reason: ValidationFailedReason}
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Warn("source validation: request failed", "source_id", source.ID, "error", err)
		return ValidationResult{IsValid: false, Reason: ValidationFailedReason}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		v.logger.Warn("source validation: non-2xx response", "source_id", source.ID, "status", resp.StatusCode)
		return ValidationResult{IsValid: false, Reason: ValidationFailedReason}
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(io.LimitReader(resp.Body, validationBodyPeek))
	if err != nil {
		v.logger.Warn("source validation: body read failed", "source_id", source.ID, "error", err)
		return ValidationResult{IsValid: false, Reason: ValidationFailedReason}
	}

	if classify(source.Kind, contentType, string(body)) {
		return ValidationResult{IsValid: true}
	}
	return ValidationResult{IsValid: false, Reason: ValidationFailedReason}
}

func classify(kind domain.SourceKind, contentType, body string) bool {
	switch kind {
	case domain.SourceKindRSS:
		if strings.Contains(contentType, "xml") ||
			strings.Contains(contentType, "rss") ||
			strings.Contains(contentType, "atom") {
			return true
		}
		return strings.Contains(body, "<rss") ||
			strings.Contains(body, "<feed") ||
			strings.Contains(body, "<?xml")
	case domain.SourceKindSitemap:
		if strings.Contains(contentType, "xml") {
			return true
		}
		return strings.Contains(body, "<?xml") && strings.Contains(body, "<url")
	}
	return false
}
