// Package errors provides the typed errors used throughout the directory
// pipeline. They separate transient source failures (retried, then the page
// is skipped) from permanent record failures, validation failures, slug
// allocation conflicts, and fatal per-source configuration problems.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is and As are aliases for the standard library equivalents so callers
// never need to import both packages.
var (
	Is = errors.Is
	As = errors.As
)

// Common sentinel errors for the pipeline.
var (
	// ErrNotFound indicates that a requested record was not found.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a slug uniqueness conflict.
	ErrConflict = errors.New("slug conflict")

	// ErrInvalidInput indicates that provided input was invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAPIKeyRequired indicates that an API key is required but not provided.
	ErrAPIKeyRequired = errors.New("API key required")

	// ErrRateLimited indicates that a source's rate limit has been exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrSourceUnavailable indicates that a source is temporarily unavailable.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")
)

// SourceError represents a failed call to an external source API.
// Whether it is transient decides retry behavior at the collector.
type SourceError struct {
	Source     string
	StatusCode int
	Endpoint   string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("source %s (status %d): %s", e.Source, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("source %s: %s", e.Source, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *SourceError) Is(target error) bool {
	if e.StatusCode == http.StatusTooManyRequests {
		return target == ErrRateLimited
	}
	if e.StatusCode >= 500 {
		return target == ErrSourceUnavailable
	}
	return false
}

// Transient reports whether the failure is worth retrying: timeouts,
// rate-limit responses, and server errors. Client errors are permanent.
func (e *SourceError) Transient() bool {
	if e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500 {
		return true
	}
	if e.StatusCode != 0 {
		return false
	}
	// No status means the request itself failed (timeout, connection).
	return true
}

// NewSourceError creates a new SourceError.
func NewSourceError(source string, statusCode int, message string) *SourceError {
	return &SourceError{Source: source, StatusCode: statusCode, Message: message}
}

// ValidationError represents a raw record missing required identity fields.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ConflictError represents a slug uniqueness race between two concurrent
// record creations. The caller reallocates the slug once and retries the
// write exactly once before giving up.
type ConflictError struct {
	Slug    string
	OwnerID string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e.OwnerID != "" {
		return fmt.Sprintf("slug %q already owned by record %s", e.Slug, e.OwnerID)
	}
	return fmt.Sprintf("slug %q already taken", e.Slug)
}

// Is implements errors.Is support.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// ConfigError represents a missing or invalid source configuration.
// It is fatal for that source's pass; other sources still run.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// Helper functions for error checking.

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if an error is a slug conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsRateLimited checks if an error is a rate limit error.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsConfig checks if an error is a configuration error.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsTransient checks if an error is a transient source failure.
func IsTransient(err error) bool {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Transient()
	}
	return errors.Is(err, ErrTimeout)
}

// Kind returns a short stable label for an error, used to count
// per-record failures by kind in the run summary.
func Kind(err error) string {
	var (
		se *SourceError
		ve *ValidationError
		ce *ConflictError
		fe *ConfigError
	)
	switch {
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &ce):
		return "conflict"
	case errors.As(err, &fe):
		return "config"
	case errors.As(err, &se):
		if se.Transient() {
			return "transient"
		}
		return "permanent"
	default:
		return "other"
	}
}

// WrapSource wraps an error as a SourceError for the given source.
func WrapSource(source string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &SourceError{
		Source:     source,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}
