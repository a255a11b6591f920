package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/feedpress/feedpress/internal/apperr"
	"github.com/google/uuid"
)

func TestNewConfig(t *testing.T) {
	siteID := uuid.New()
	err := apperr.NewConfig("no active sources", siteID)

	if err.Error() != "no active sources" {
		t.Errorf("expected 'no active sources', got %q", err.Error())
	}
	if err.SiteID != siteID {
		t.Errorf("expected site id %s, got %s", siteID, err.SiteID)
	}
}

func TestNewSourceWrap(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := apperr.NewSource("feed fetch failed", uuid.New(), uuid.New(), inner)

	if err.Error() != "feed fetch failed: connection refused" {
		t.Errorf("expected wrapped message, got %q", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("expected Unwrap to return inner error")
	}
}

func TestPersistenceError_SurvivesFmtWrapping(t *testing.T) {
	original := apperr.NewPersistence("insert article", uuid.New(), fmt.Errorf("pool closed"))

	wrapped := fmt.Errorf("fetch run: %w", original)
	doubleWrapped := fmt.Errorf("handler: %w", wrapped)

	var pe *apperr.PersistenceError
	if !errors.As(doubleWrapped, &pe) {
		t.Fatal("errors.As should find PersistenceError through double wrapping")
	}
	if pe.Message != "insert article" {
		t.Errorf("expected 'insert article', got %q", pe.Message)
	}
}

func TestConfigError_NotFoundForPlainErrors(t *testing.T) {
	plain := fmt.Errorf("database connection failed")
	wrapped := fmt.Errorf("run error: %w", plain)

	var ce *apperr.ConfigError
	if errors.As(wrapped, &ce) {
		t.Fatal("errors.As should NOT find ConfigError in plain error chain")
	}
}

func TestErrorKindsAreDistinct(t *testing.T) {
	src := apperr.NewSource("parse failed", uuid.New(), uuid.New(), nil)

	var ce *apperr.ConfigError
	if errors.As(src, &ce) {
		t.Fatal("SourceError must not match ConfigError")
	}
	var ue *apperr.UnknownError
	if errors.As(src, &ue) {
		t.Fatal("SourceError must not match UnknownError")
	}
}
