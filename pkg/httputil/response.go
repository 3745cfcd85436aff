package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	autherrors "github.com/marshaltudu14/fieldforce-auth/pkg/errors"
	"github.com/marshaltudu14/fieldforce-auth/pkg/logger"
	"github.com/marshaltudu14/fieldforce-auth/pkg/validator"
)

// Response is the standard JSON success envelope.
type Response struct {
	Data any `json:"data,omitempty"`
}

// ErrorBody is the wire shape of every error response. EmploymentStatus is
// only populated for status-based authorization denials; RetryAfter only for
// rate limiting. Both sides of the wire (server handlers and the client
// gateway) share this type.
type ErrorBody struct {
	Error            string `json:"error"`
	Message          string `json:"message"`
	EmploymentStatus string `json:"employmentStatus,omitempty"`
	RetryAfter       int    `json:"retryAfter,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
// Headers are already sent if encoding fails; nothing meaningful can be done.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a standardized error response based on the error type.
// AuthError carries its own status, code, and optional employment-status and
// retry-after fields; everything else collapses to a generic body derived
// from the sentinel taxonomy. Internal errors are logged with the
// request-scoped logger when one is present.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() {
		l = fallback
	}

	var authErr *autherrors.AuthError
	if errors.As(err, &authErr) {
		if authErr.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(authErr.RetryAfter))
		}
		if authErr.Status == http.StatusInternalServerError {
			logInternal(r, l, err)
		}
		WriteJSON(w, authErr.Status, ErrorBody{
			Error:            authErr.Code,
			Message:          authErr.Message,
			EmploymentStatus: authErr.EmploymentStatus,
			RetryAfter:       authErr.RetryAfter,
		})
		return
	}

	status := autherrors.HTTPStatus(err)
	code := "INTERNAL_ERROR"
	message := "an internal error occurred"

	switch {
	case errors.Is(err, autherrors.ErrValidation):
		code = "INVALID_INPUT"
		message = err.Error()
	case errors.Is(err, autherrors.ErrAuthentication):
		code = "AUTHENTICATION_FAILED"
		message = "authentication failed"
	case errors.Is(err, autherrors.ErrAuthorization):
		code = "AUTHORIZATION_DENIED"
		message = "access denied"
	case errors.Is(err, autherrors.ErrNotFound):
		code = "NOT_FOUND"
		message = "resource not found"
	case errors.Is(err, autherrors.ErrRateLimited):
		code = "RATE_LIMITED"
		message = "too many requests"
	}

	if status == http.StatusInternalServerError {
		logInternal(r, l, err)
	}

	WriteJSON(w, status, ErrorBody{Error: code, Message: message})
}

// WriteValidationError writes a 400 response for request-body validation
// failures, preserving field-level messages from the validator package.
func WriteValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, ErrorBody{
			Error:   "VALIDATION_ERROR",
			Message: valErr.Error(),
		})
		return
	}
	WriteJSON(w, http.StatusBadRequest, ErrorBody{Error: "INVALID_INPUT", Message: err.Error()})
}

func logInternal(r *http.Request, l *slog.Logger, err error) {
	l.ErrorContext(r.Context(), "internal error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
}
