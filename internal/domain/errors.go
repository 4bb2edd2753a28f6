package domain

import (
	"errors"
	"fmt"
)

// Error codes for the failure taxonomy. Business-rule findings (route not
// allowed, dose out of range, renal contraindication) are reported inside
// ValidationResult, never as Go errors; these codes cover genuinely
// exceptional failures.
const (
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeDataLoad        = "DATA_LOAD_ERROR"
	ErrCodeUpstreamFailure = "UPSTREAM_FAILURE"
	ErrCodeDatabase        = "DATABASE_ERROR"
	ErrCodeRateLimit       = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// PharmacyError is a structured error with a stable machine-readable code.
type PharmacyError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *PharmacyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewPharmacyError creates a new PharmacyError.
func NewPharmacyError(code, message, details string) *PharmacyError {
	return &PharmacyError{Code: code, Message: message, Details: details}
}

// NewInvalidInput creates an INVALID_INPUT error for a named field.
func NewInvalidInput(field, message string) *PharmacyError {
	return &PharmacyError{
		Code:    ErrCodeInvalidInput,
		Message: fmt.Sprintf("invalid %s: %s", field, message),
	}
}

// IsInvalidInput reports whether err carries the INVALID_INPUT code.
func IsInvalidInput(err error) bool {
	var pe *PharmacyError
	return errors.As(err, &pe) && pe.Code == ErrCodeInvalidInput
}

// ErrorCode extracts the code from err, or INTERNAL_ERROR for plain errors.
func ErrorCode(err error) string {
	var pe *PharmacyError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ErrCodeInternal
}
