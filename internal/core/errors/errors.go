// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - Unexported errors (err*): Use for internal package errors
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Configuration errors.
var (
	// ErrInvalidConfig indicates a configuration value is out of range or malformed.
	// It is the only error class that prevents the detector from starting.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Circuit breaker errors.
var (
	// ErrCircuitBreakerOpen indicates the circuit breaker has tripped and requests are blocked.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
)

// Store errors.
var (
	// ErrNotFound is a generic not found error.
	ErrNotFound = errors.New("not found")

	// ErrInvalidID indicates an invalid identifier.
	ErrInvalidID = errors.New("invalid id")
)

// Embedding errors.
var (
	// ErrModelNotLoaded indicates the embedding model could not be loaded.
	ErrModelNotLoaded = errors.New("embedding model not loaded")

	// ErrEmbeddingUnavailable indicates an embedding could not be produced for a text.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrDimensionMismatch indicates a vector has an unexpected number of dimensions.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Cache errors.
var (
	// ErrCacheCorrupt indicates a cache entry could not be decoded.
	ErrCacheCorrupt = errors.New("cache entry corrupt")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join is a convenience wrapper around errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
