// Package errdefs defines the Tariff error taxonomy. It sits below every
// other package so stores, the resolver and the pricing engine can return
// the same sentinels the root package re-exports.
package errdefs

import (
	"errors"
	"fmt"

	"github.com/xraph/tariff/id"
	"github.com/xraph/tariff/scope"
)

// Sentinel errors.
var (
	// Input and write-time errors
	ErrValidation         = errors.New("tariff: validation failed")
	ErrUniquenessConflict = errors.New("tariff: scope tuple already has an active setting")
	ErrAlreadyExists      = errors.New("tariff: already exists")

	// Resolution outcomes and failures
	ErrNotFound            = errors.New("tariff: not found")
	ErrNoPricingConfigured = errors.New("tariff: no pricing configured")
	ErrCandidateFetch      = errors.New("tariff: candidate fetch failed")

	// Entity lookups
	ErrCategoryNotFound = errors.New("tariff: category not found")
	ErrCategoryInactive = errors.New("tariff: category is inactive")
	ErrSettingNotFound  = errors.New("tariff: setting not found")
	ErrRuleNotFound     = errors.New("tariff: pricing rule not found")

	// Audit and cache
	ErrAuditWrite      = errors.New("tariff: audit write failed")
	ErrCacheInvalidate = errors.New("tariff: cache invalidation failed")

	// Store errors
	ErrStoreClosed = errors.New("tariff: store is closed")
)

// ValidationError reports a rejected input field. It unwraps to
// ErrValidation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("tariff: validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError reports a write that would give a scope tuple a second
// active, temporally overlapping setting. It unwraps to
// ErrUniquenessConflict.
type ConflictError struct {
	Key        string      `json:"key"`
	Scope      scope.Scope `json:"scope"`
	ExistingID id.ID       `json:"existing_id"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("tariff: setting %q with scope %+v overlaps active setting %s", e.Key, e.Scope, e.ExistingID)
}

func (e *ConflictError) Unwrap() error { return ErrUniquenessConflict }

// NoPricingError reports that an evaluation found neither a matching rule
// nor a fallback setting. Field names the missing input when the failure
// is about a single lookup (e.g. "deposit").
type NoPricingError struct {
	OperationType string `json:"operation_type"`
	Field         string `json:"field,omitempty"`
	Reason        string `json:"reason"`
}

func (e *NoPricingError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("tariff: no pricing configured for %s (%s): %s", e.OperationType, e.Field, e.Reason)
	}
	return fmt.Sprintf("tariff: no pricing configured for %s: %s", e.OperationType, e.Reason)
}

func (e *NoPricingError) Unwrap() error { return ErrNoPricingConfigured }

// BulkError identifies the line that failed a bulk evaluation.
type BulkError struct {
	Line int   `json:"line"`
	Err  error `json:"-"`
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("tariff: bulk line %d: %v", e.Line, e.Err)
}

func (e *BulkError) Unwrap() error { return e.Err }

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "tariff: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("tariff: %d errors occurred (first: %v)", len(e.Errors), e.Errors[0])
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error {
	return e.Errors
}
