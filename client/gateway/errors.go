package gateway

import (
	"net/http"

	autherrors "github.com/marshaltudu14/fieldforce-auth/pkg/errors"
	"github.com/marshaltudu14/fieldforce-auth/pkg/httputil"
)

// translateStatus maps a received HTTP error status and body into the closed
// error taxonomy. Received statuses are terminal: they are never retried.
func translateStatus(status int, body httputil.ErrorBody) error {
	message := body.Message

	switch {
	case status == http.StatusBadRequest:
		if message == "" {
			message = "the request was rejected as invalid"
		}
		return autherrors.InvalidInput(message)

	case status == http.StatusUnauthorized:
		if message == "" {
			message = "your session is no longer valid; please log in again"
		}
		return autherrors.AuthenticationFailed(message)

	case status == http.StatusForbidden:
		if message == "" {
			message = "you do not have access to this resource"
		}
		return autherrors.AuthorizationDenied(message, body.EmploymentStatus)

	case status == http.StatusTooManyRequests:
		if message == "" {
			message = "too many requests; please wait before trying again"
		}
		return autherrors.RateLimited(message, body.RetryAfter)

	case status >= 500:
		return &autherrors.AuthError{
			Code:    "SERVER_ERROR",
			Message: "the server had a problem; please try again later",
			Status:  status,
			Err:     autherrors.ErrServer,
		}

	default:
		if message == "" {
			message = "the request failed"
		}
		return &autherrors.AuthError{
			Code:    "REQUEST_FAILED",
			Message: message,
			Status:  status,
			Err:     autherrors.ErrInternal,
		}
	}
}
