package tariff

import (
	"errors"

	"github.com/xraph/tariff/errdefs"
)

// Sentinel errors for common failure scenarios.
var (
	// Input and write-time errors
	ErrValidation         = errdefs.ErrValidation
	ErrUniquenessConflict = errdefs.ErrUniquenessConflict
	ErrAlreadyExists      = errdefs.ErrAlreadyExists

	// Resolution and pricing
	ErrNotFound            = errdefs.ErrNotFound
	ErrNoPricingConfigured = errdefs.ErrNoPricingConfigured
	ErrCandidateFetch      = errdefs.ErrCandidateFetch

	// Entity errors
	ErrCategoryNotFound = errdefs.ErrCategoryNotFound
	ErrCategoryInactive = errdefs.ErrCategoryInactive
	ErrSettingNotFound  = errdefs.ErrSettingNotFound
	ErrRuleNotFound     = errdefs.ErrRuleNotFound

	// Audit and cache errors
	ErrAuditWrite      = errdefs.ErrAuditWrite
	ErrCacheInvalidate = errdefs.ErrCacheInvalidate

	// Store errors
	ErrStoreClosed = errdefs.ErrStoreClosed
)

// Structured errors. Each unwraps to its sentinel.
type (
	ValidationError = errdefs.ValidationError
	ConflictError   = errdefs.ConflictError
	NoPricingError  = errdefs.NoPricingError
	BulkError       = errdefs.BulkError
	MultiError      = errdefs.MultiError
)

// IsNotFound returns true if the error is a not found error. A resolution
// that found nothing also reports true.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrCategoryNotFound) ||
		errors.Is(err, ErrSettingNotFound) ||
		errors.Is(err, ErrRuleNotFound)
}

// IsValidation returns true if the error rejected caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConflict returns true if a write collided with an active setting.
func IsConflict(err error) bool {
	return errors.Is(err, ErrUniquenessConflict)
}

// IsNoPricing returns true if an evaluation had nothing to price from.
func IsNoPricing(err error) bool {
	return errors.Is(err, ErrNoPricingConfigured)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrCandidateFetch) ||
		errors.Is(err, ErrAuditWrite) ||
		errors.Is(err, ErrCacheInvalidate)
}
