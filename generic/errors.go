/*
errors.go - Centralized error types for the reporting engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages return these (or wrap them with %w) so the API layer can
  map any failure to an HTTP status with errors.Is / errors.As.

ERROR CATEGORIES:
  1. Validation errors - Bad input, reported per field and per batch record
  2. Lookup errors     - A scope (organization, therapist, user) is missing
  3. Store errors      - Constraint violations raised by the database

USAGE:
  if err := generic.ValidatePeriod(pt, start, end); err != nil {
      return generic.InvalidRecord(i, err)
  }

SEE ALSO:
  - period.go: PeriodBoundaryError
  - api/errors.go: HTTP status mapping
*/
package generic

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation marks any error caused by invalid client input.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidPeriod is returned when start/end are not the boundaries of their period.
	ErrInvalidPeriod = errors.New("invalid period boundaries")

	// ErrNotFound is returned when a referenced scope doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrIntegrity is returned when a bulk write violates a uniqueness or
	// foreign key constraint. The surrounding transaction is rolled back.
	ErrIntegrity = errors.New("integrity constraint violated")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes invalid input. Fields maps a field name to its
// message; Message holds errors that belong to no single field. Index is set
// when the error belongs to one record of a batch.
type ValidationError struct {
	Index   *int
	Fields  map[string]string
	Message string

	cause error
}

// NewValidationError returns a non-field validation error.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// FieldError returns a validation error for a single field.
func FieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// InvalidRecord attaches a batch index to err. Period boundary errors become
// field errors on the offending date field.
func InvalidRecord(index int, err error) *ValidationError {
	var ve *ValidationError
	var pe *PeriodBoundaryError
	switch {
	case errors.As(err, &ve):
		out := *ve
		out.Index = &index
		return &out
	case errors.As(err, &pe):
		return &ValidationError{
			Index:  &index,
			Fields: map[string]string{pe.Field: pe.Error()},
			cause:  pe,
		}
	default:
		return &ValidationError{Index: &index, Message: err.Error(), cause: err}
	}
}

// Add records a field message, keeping the first message per field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = message
	}
}

// HasErrors reports whether anything was recorded.
func (e *ValidationError) HasErrors() bool {
	return e.Message != "" || len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	var parts []string
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}

	msg := strings.Join(parts, "; ")
	if e.Index != nil {
		return fmt.Sprintf("record %d: %s", *e.Index, msg)
	}
	return msg
}

func (e *ValidationError) Unwrap() []error {
	if e.cause != nil {
		return []error{ErrValidation, e.cause}
	}
	return []error{ErrValidation}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
