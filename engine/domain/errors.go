package domain

import (
	"errors"
	"fmt"
)

// Failure kinds. Transport and parse failures are retried by the catalog
// client; extraction and inventory misses are per-tyre outcomes.
var (
	ErrTransport        = errors.New("catalog transport failure")
	ErrUpstreamStatus   = errors.New("catalog returned non-2xx status")
	ErrParse            = errors.New("catalog payload malformed")
	ErrMissingData      = errors.New("catalog payload has no data field")
	ErrExtraction       = errors.New("tyre size not recognised")
	ErrNoInventoryMatch = errors.New("no product matches tyre size")
	ErrInventory        = errors.New("inventory backend failure")
	ErrInvalidID        = errors.New("invalid identifier")
)

// IsRetryable reports whether a catalog failure may succeed on another attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransport) ||
		errors.Is(err, ErrUpstreamStatus) ||
		errors.Is(err, ErrParse) ||
		errors.Is(err, ErrMissingData)
}

// FailureKind names the taxonomy bucket of err, for metrics labels and logs.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrMissingData):
		return "missing_data"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrUpstreamStatus):
		return "status"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrExtraction):
		return "extraction"
	case errors.Is(err, ErrNoInventoryMatch):
		return "no_match"
	case errors.Is(err, ErrInventory):
		return "inventory"
	default:
		return "other"
	}
}

// ValidationError wraps a sentinel with context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
