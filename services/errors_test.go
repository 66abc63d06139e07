package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDomainError(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeExternal, "backend unavailable", baseErr)

	assert.Equal(t, ErrorTypeExternal, domainErr.Type)
	assert.Equal(t, "backend unavailable", domainErr.Message)
	assert.Equal(t, baseErr, domainErr.Err)
	assert.NotNil(t, domainErr.Details)
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name: "error with wrapped error",
			err: &DomainError{
				Type:    ErrorTypeInternal,
				Message: "profile storage error",
				Err:     errors.New("redis down"),
			},
			wantMsg: "internal: profile storage error (redis down)",
		},
		{
			name: "error without wrapped error",
			err: &DomainError{
				Type:    ErrorTypeUnauthorized,
				Message: "invalid credentials",
			},
			wantMsg: "unauthorized: invalid credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_IsMatchesSentinel(t *testing.T) {
	wrapped := fmt.Errorf("login: %w", ErrInvalidCredentials)

	assert.True(t, errors.Is(wrapped, ErrInvalidCredentials))
	assert.False(t, errors.Is(wrapped, ErrNotDeveloperAdmin), "same type, different sentinel")
	assert.False(t, errors.Is(wrapped, ErrGateDisabled))
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapExternal("backend unavailable", cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsExternalError(err))
	assert.False(t, IsInternalError(err))
}

func TestTypeHelpers(t *testing.T) {
	tests := []struct {
		err   error
		check func(error) bool
	}{
		{ErrInvalidInput, IsValidationError},
		{ErrInvalidCredentials, IsUnauthorizedError},
		{ErrIncorrectGateAnswer, IsForbiddenError},
		{ErrDemoAuthDisabled, IsNotFoundError},
		{ErrStorageError, IsInternalError},
		{ErrBackendUnavailable, IsExternalError},
		{NewDomainError(ErrorTypeConflict, "dup", nil), IsConflictError},
		{NewDomainError(ErrorTypeUnavailable, "checking", nil), IsUnavailableError},
	}

	for _, tt := range tests {
		t.Run(GetErrorMessage(tt.err), func(t *testing.T) {
			assert.True(t, tt.check(fmt.Errorf("wrapped: %w", tt.err)))
		})
	}

	assert.False(t, IsValidationError(errors.New("plain")))
	assert.Equal(t, ErrorType(""), GetErrorType(errors.New("plain")))
}

func TestGetErrorMessageAndDetails(t *testing.T) {
	err := NewDomainError(ErrorTypeUnauthorized, "Admin account is inactive", nil).WithDetail("status", 403)

	assert.Equal(t, "Admin account is inactive", GetErrorMessage(err))
	details := GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, 403, details["status"])

	assert.Nil(t, GetErrorDetails(ErrInvalidCredentials))
	assert.Equal(t, "plain", GetErrorMessage(errors.New("plain")))
}
