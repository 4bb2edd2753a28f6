package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPharmacyError_Error(t *testing.T) {
	err := NewPharmacyError(ErrCodeNotFound, "drug not found", "code=XYZ")
	assert.Equal(t, "NOT_FOUND: drug not found", err.Error())
	assert.Equal(t, "code=XYZ", err.Details)
}

func TestNewInvalidInput(t *testing.T) {
	err := NewInvalidInput("serum_creatinine", "must be positive")
	assert.Equal(t, ErrCodeInvalidInput, err.Code)
	assert.Contains(t, err.Message, "serum_creatinine")
	assert.True(t, IsInvalidInput(err))
}

func TestIsInvalidInput_WrappedError(t *testing.T) {
	inner := NewInvalidInput("age", "out of range")
	wrapped := fmt.Errorf("validating patient: %w", inner)
	assert.True(t, IsInvalidInput(wrapped))
	assert.False(t, IsInvalidInput(errors.New("plain error")))
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeDatabase, ErrorCode(NewPharmacyError(ErrCodeDatabase, "insert failed", "")))
	assert.Equal(t, ErrCodeInternal, ErrorCode(errors.New("something broke")))
	wrapped := fmt.Errorf("outer: %w", NewPharmacyError(ErrCodeUpstreamFailure, "HIS timeout", ""))
	assert.Equal(t, ErrCodeUpstreamFailure, ErrorCode(wrapped))
}
