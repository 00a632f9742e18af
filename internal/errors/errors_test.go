package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns formatted string", func(t *testing.T) {
		err := New(ErrCodeNotFound, "Opponent not found")
		assert.Equal(t, "NOT_FOUND: Opponent not found", err.Error())
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(ErrCodeTransport, "Request did not reach the server", cause)
		assert.Contains(t, err.Error(), "TRANSPORT_ERROR")
		assert.Contains(t, err.Error(), "Request did not reach the server")
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("WithCause adds cause to error", func(t *testing.T) {
		cause := errors.New("original error")
		err := New(ErrCodeInternal, "Something went wrong").WithCause(cause)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("WithDetails adds details to error", func(t *testing.T) {
		details := map[string]string{"field": "email", "reason": "invalid format"}
		err := New(ErrCodeValidation, "Validation failed").WithDetails(details)
		assert.Equal(t, details, err.Details)
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name         string
		constructor  func() *AppError
		expectedCode ErrorCode
	}{
		{"Unauthorized", func() *AppError { return Unauthorized("test") }, ErrCodeUnauthorized},
		{"NotLoggedIn", func() *AppError { return NotLoggedIn() }, ErrCodeNotLoggedIn},
		{"NotFound", func() *AppError { return NotFound("User") }, ErrCodeNotFound},
		{"Conflict", func() *AppError { return Conflict("test") }, ErrCodeConflict},
		{"ValidationError", func() *AppError { return ValidationError("test") }, ErrCodeValidation},
		{"InvalidInput", func() *AppError { return InvalidInput("email", "invalid") }, ErrCodeInvalidInput},
		{"MissingRequired", func() *AppError { return MissingRequired("email") }, ErrCodeMissingRequired},
		{"Precondition", func() *AppError { return Precondition("test") }, ErrCodePrecondition},
		{"Internal", func() *AppError { return Internal("test") }, ErrCodeInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.constructor()
			assert.Equal(t, tc.expectedCode, err.Code)
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestTransport(t *testing.T) {
	t.Run("wraps transport error", func(t *testing.T) {
		cause := errors.New("dial tcp: i/o timeout")
		err := Transport(cause)
		assert.Equal(t, ErrCodeTransport, err.Code)
		assert.Equal(t, cause, err.Unwrap())
		assert.True(t, IsTransport(err))
	})
}

func TestClassifiers(t *testing.T) {
	t.Run("IsUnauthorized matches wrapped 401", func(t *testing.T) {
		err := fmt.Errorf("fetch user: %w", Unauthorized("token expired"))
		assert.True(t, IsUnauthorized(err))
		assert.False(t, IsTransport(err))
	})

	t.Run("plain errors report internal code", func(t *testing.T) {
		err := errors.New("boom")
		assert.False(t, IsAppError(err))
		assert.Equal(t, ErrCodeInternal, GetCode(err))
	})
}
