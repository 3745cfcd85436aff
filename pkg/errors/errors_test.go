package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthError_Error(t *testing.T) {
	err := AuthenticationFailed("invalid or expired token")
	assert.Contains(t, err.Error(), "AUTHENTICATION_FAILED")
	assert.Contains(t, err.Error(), "invalid or expired token")
}

func TestAuthError_Unwrap(t *testing.T) {
	err := AuthorizationDenied("account suspended", "SUSPENDED")
	assert.True(t, errors.Is(err, ErrAuthorization))
	assert.Equal(t, "SUSPENDED", err.EmploymentStatus)
}

func TestRateLimited_CarriesRetryAfter(t *testing.T) {
	err := RateLimited("too many login attempts", 30)
	assert.Equal(t, 30, err.RetryAfter)
	assert.Equal(t, http.StatusTooManyRequests, err.Status)
	assert.True(t, errors.Is(err, ErrRateLimited))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "network", err: ErrNetwork, want: true},
		{name: "timeout", err: ErrTimeout, want: true},
		{name: "wrapped_network", err: fmt.Errorf("dial: %w", ErrNetwork), want: true},
		{name: "authentication", err: ErrAuthentication, want: false},
		{name: "authorization", err: ErrAuthorization, want: false},
		{name: "rate_limited", err: ErrRateLimited, want: false},
		{name: "server", err: ErrServer, want: false},
		{name: "validation", err: ErrValidation, want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "auth_error_struct", err: AuthenticationFailed("no token"), want: http.StatusUnauthorized},
		{name: "validation", err: ErrValidation, want: http.StatusBadRequest},
		{name: "authorization", err: ErrAuthorization, want: http.StatusForbidden},
		{name: "rate_limited", err: ErrRateLimited, want: http.StatusTooManyRequests},
		{name: "not_found", err: ErrNotFound, want: http.StatusNotFound},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestInternal_HidesCause(t *testing.T) {
	cause := errors.New("pgx: connection reset")
	err := Internal(cause)
	assert.Equal(t, "an internal error occurred", err.Message)
	assert.True(t, errors.Is(err, cause))
}
