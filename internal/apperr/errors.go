package apperr

import (
	"github.com/google/uuid"
)

// ValidationError rejects malformed caller input at the HTTP edge.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func NewValidation(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func NewValidationWrap(msg string, err error) *ValidationError {
	return &ValidationError{Message: msg, Err: err}
}

// NotFoundError marks a missing site, source or article.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func NewNotFound(msg string) *NotFoundError {
	return &NotFoundError{Message: msg}
}

// ConfigError fails a whole run before any work happens: no active sources,
// nothing to rewrite, run already in progress. No job-log success entry is
// written for these.
type ConfigError struct {
	Message string
	SiteID  uuid.UUID
}

func (e *ConfigError) Error() string {
	return e.Message
}

func NewConfig(msg string, siteID uuid.UUID) *ConfigError {
	return &ConfigError{Message: msg, SiteID: siteID}
}

// SourceError is a per-source or per-item failure. Orchestrators count these
// in statistics and keep going; they never abort a batch.
type SourceError struct {
	Message  string
	SiteID   uuid.UUID
	SourceID uuid.UUID
	Err      error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

func NewSource(msg string, siteID, sourceID uuid.UUID, err error) *SourceError {
	return &SourceError{Message: msg, SiteID: siteID, SourceID: sourceID, Err: err}
}

// PersistenceError fails the whole run: without durable writes the run's
// results are unreliable and the caller must retry it entirely.
type PersistenceError struct {
	Message   string
	SiteID    uuid.UUID
	ArticleID uuid.UUID
	Err       error
}

func (e *PersistenceError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func NewPersistence(msg string, siteID uuid.UUID, err error) *PersistenceError {
	return &PersistenceError{Message: msg, SiteID: siteID, Err: err}
}

// UnknownError is the catch-all at the orchestrator boundary.
type UnknownError struct {
	Message string
	SiteID  uuid.UUID
	Err     error
}

func (e *UnknownError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *UnknownError) Unwrap() error {
	return e.Err
}

func NewUnknown(msg string, siteID uuid.UUID, err error) *UnknownError {
	return &UnknownError{Message: msg, SiteID: siteID, Err: err}
}
