// Package apperrors defines the sentinel error kinds shared across AEGI
// Core services, and the HTTP status mapping used by adapters.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

var (
	// ErrNotFound is returned when an addressed resource is missing.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict is returned on an illegal state transition.
	ErrConflict = errors.New("conflict")

	// ErrPolicyDenied is returned when a caller lacks authorization.
	ErrPolicyDenied = errors.New("policy denied")

	// ErrRateLimited is returned by rate-limited external proxies.
	ErrRateLimited = errors.New("rate limited")

	// ErrInternal wraps an unexpected failure.
	ErrInternal = errors.New("internal error")
)

// ValidationError wraps a field-specific input or invariant violation.
type ValidationError struct {
	Field   string
	Message string
	Code    string // e.g. "invalid_priors"; defaults to "validation_error"
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %q: %s", e.Field, e.Message)
}

// NewValidationError constructs a ValidationError with the default error code.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message, Code: "validation_error"}
}

// NewValidationErrorCode constructs a ValidationError with an explicit error code.
func NewValidationErrorCode(field, message, code string) error {
	return &ValidationError{Field: field, Message: message, Code: code}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// DegradedError wraps a contracts.DegradedOutput so a service can return it
// through the normal error channel where a typed result isn't available
// (e.g. deep inside an errgroup). Never translated to a 5xx by HTTP adapters.
type DegradedError struct {
	Output contracts.DegradedOutput
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("degraded: %s: %s", e.Output.Reason, e.Output.Detail)
}

// NewDegradedError wraps a DegradedOutput as an error.
func NewDegradedError(out contracts.DegradedOutput) error {
	return &DegradedError{Output: out}
}

// ErrorCode returns the conceptual error_code string for an error, per the
// uniform {error_code, message, details} response envelope.
func ErrorCode(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		if ve.Code != "" {
			return ve.Code
		}
		return "validation_error"
	}
	var de *DegradedError
	if errors.As(err, &de) {
		return "degraded"
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrPolicyDenied):
		return "policy_denied"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	default:
		return "internal_error"
	}
}

// HTTPStatus maps an error to the HTTP status spec.md §7 assigns its kind.
func HTTPStatus(err error) int {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return http.StatusUnprocessableEntity
	}
	var de *DegradedError
	if errors.As(err, &de) {
		return http.StatusOK // degraded is data, never a failing status
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrPolicyDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
