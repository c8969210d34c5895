package mlerr

import "fmt"

// ValidationError rejects malformed input before any computation runs.
// It is never retried and never coerced into a degraded result.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "validation error"
	}
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s (got %v)", e.Field, e.Message, e.Value)
	}
	return "validation failed: " + e.Message
}

func Validation(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ModelUnavailableError signals that an embedding model or trained regressor
// is not loaded. Callers may degrade, but the condition is always reported,
// never papered over with a fabricated estimate.
type ModelUnavailableError struct {
	Model string
	Cause error
}

func (e *ModelUnavailableError) Error() string {
	if e == nil {
		return "model unavailable"
	}
	if e.Cause != nil {
		return fmt.Sprintf("model %q unavailable: %v", e.Model, e.Cause)
	}
	return fmt.Sprintf("model %q unavailable", e.Model)
}

func (e *ModelUnavailableError) Unwrap() error { return e.Cause }

func ModelUnavailable(model string, cause error) *ModelUnavailableError {
	return &ModelUnavailableError{Model: model, Cause: cause}
}

// InsufficientDataError is returned when training is requested with fewer
// finalized projects than the documented minimum.
type InsufficientDataError struct {
	Required int
	Actual   int
}

func (e *InsufficientDataError) Error() string {
	if e == nil {
		return "insufficient training data"
	}
	return fmt.Sprintf("insufficient training data: need at least %d finalized projects, have %d", e.Required, e.Actual)
}

func InsufficientData(required, actual int) *InsufficientDataError {
	return &InsufficientDataError{Required: required, Actual: actual}
}

// IndexUnavailableError marks the vector backend as unreachable. Retrieval
// degrades to zero neighbors only when the caller explicitly opts in.
type IndexUnavailableError struct {
	Backend string
	Cause   error
}

func (e *IndexUnavailableError) Error() string {
	if e == nil {
		return "vector index unavailable"
	}
	if e.Cause != nil {
		return fmt.Sprintf("vector index %q unavailable: %v", e.Backend, e.Cause)
	}
	return fmt.Sprintf("vector index %q unavailable", e.Backend)
}

func (e *IndexUnavailableError) Unwrap() error { return e.Cause }

func IndexUnavailable(backend string, cause error) *IndexUnavailableError {
	return &IndexUnavailableError{Backend: backend, Cause: cause}
}
