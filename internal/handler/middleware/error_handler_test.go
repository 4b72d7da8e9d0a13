package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/makkenzo/spendwise-api/internal/handler/dto"
	"github.com/makkenzo/spendwise-api/internal/ierr"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"missing", ierr.ErrMissingCredential, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"format", ierr.ErrInvalidFormat, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"invalid", ierr.ErrInvalidCredential, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"disabled", ierr.ErrKeyDisabled, http.StatusForbidden, "FORBIDDEN"},
		{"expired", ierr.ErrKeyExpired, http.StatusForbidden, "FORBIDDEN"},
		{"scope", &ierr.ScopeError{Scope: "read"}, http.StatusForbidden, "FORBIDDEN"},
		{"rate limited", ierr.ErrRateLimitExceeded, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
		{"admin token", fmt.Errorf("%w: expired", ierr.ErrInvalidToken), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"validation", fmt.Errorf("%w: bad body", ierr.ErrValidation), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not found", ierr.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"unknown", errors.New("db exploded"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, resp := classify(tc.err)
			require.Equal(t, tc.status, status)
			require.Equal(t, tc.code, resp.Code)
		})
	}
}

func TestClassify_ValidatorErrorsCarryFieldDetails(t *testing.T) {
	type body struct {
		Name string `validate:"required"`
	}
	err := validator.New().Struct(body{})
	require.Error(t, err)

	status, resp := classify(fmt.Errorf("%w: %w", ierr.ErrValidation, err))
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "VALIDATION_ERROR", resp.Code)

	details, ok := resp.Details.([]dto.FieldError)
	require.True(t, ok)
	require.Equal(t, []dto.FieldError{{Field: "Name", Message: "Field 'Name' is required"}}, details)
}
