package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the closed failure taxonomy of the auth subsystem.
// Network and timeout failures are the only retryable classes.
var (
	ErrNetwork        = errors.New("network failure")
	ErrTimeout        = errors.New("request timed out")
	ErrAuthentication = errors.New("authentication failed")
	ErrAuthorization  = errors.New("authorization denied")
	ErrRateLimited    = errors.New("rate limited")
	ErrServer         = errors.New("server error")
	ErrValidation     = errors.New("invalid input")
	ErrNotFound       = errors.New("resource not found")
	ErrInternal       = errors.New("internal error")
)

// AuthError is a structured error with an HTTP status mapping and the
// optional fields the wire contract exposes (employment status on 403
// denials, retry-after on 429).
type AuthError struct {
	Code             string `json:"code"`
	Message          string `json:"message"`
	Status           int    `json:"-"`
	EmploymentStatus string `json:"employment_status,omitempty"`
	RetryAfter       int    `json:"retry_after,omitempty"`
	Err              error  `json:"-"`
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// AuthenticationFailed creates a 401 error. All token validation failures
// collapse into this one error so callers cannot distinguish a bad signature
// from a wrong issuer.
func AuthenticationFailed(message string) *AuthError {
	return &AuthError{
		Code:    "AUTHENTICATION_FAILED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrAuthentication,
	}
}

// AuthorizationDenied creates a 403 error for a valid identity that is not
// permitted access. employmentStatus may be empty for boundary denials.
func AuthorizationDenied(message, employmentStatus string) *AuthError {
	return &AuthError{
		Code:             "AUTHORIZATION_DENIED",
		Message:          message,
		Status:           http.StatusForbidden,
		EmploymentStatus: employmentStatus,
		Err:              ErrAuthorization,
	}
}

// RateLimited creates a 429 error carrying the retry-after hint in seconds.
func RateLimited(message string, retryAfter int) *AuthError {
	return &AuthError{
		Code:       "RATE_LIMITED",
		Message:    message,
		Status:     http.StatusTooManyRequests,
		RetryAfter: retryAfter,
		Err:        ErrRateLimited,
	}
}

// InvalidInput creates a 400 error for malformed local input.
func InvalidInput(message string) *AuthError {
	return &AuthError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrValidation,
	}
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AuthError {
	return &AuthError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// Internal creates a 500 error that hides the underlying cause from clients.
func Internal(err error) *AuthError {
	return &AuthError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// IsRetryable reports whether the error belongs to a transport-class failure
// that the request gateway may retry. HTTP-status errors are never retryable.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrTimeout)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Status
	}

	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
