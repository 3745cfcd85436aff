package boundary

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/marshaltudu14/fieldforce-auth/internal/event"
	autherrors "github.com/marshaltudu14/fieldforce-auth/pkg/errors"
	"github.com/marshaltudu14/fieldforce-auth/pkg/httputil"
	"github.com/marshaltudu14/fieldforce-auth/pkg/logger"
	"github.com/marshaltudu14/fieldforce-auth/pkg/token"
)

// Middleware runs the classifier on every request and rejects denied callers
// with a 403 before any handler executes. Denials are audited. The verdict is
// stored in the request context for handlers that care about the client type.
func (c *Classifier) Middleware(log *slog.Logger, auditor *event.Auditor) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			verdict := c.Classify(r)
			if !verdict.Allowed {
				log.WarnContext(r.Context(), "boundary denied request",
					slog.String("reason", verdict.Reason),
					slog.String("user_agent", r.UserAgent()),
					slog.String("path", r.URL.Path),
				)
				auditor.Emit(r.Context(), event.TypeBoundaryDeny, event.AuditPayload{
					Reason: verdict.Reason,
				})
				httputil.WriteError(w, r, autherrors.AuthorizationDenied(verdict.Reason, ""), log)
				return
			}
			ctx := context.WithValue(r.Context(), classificationKey{}, verdict)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type claimsKey struct{}

// ClaimsFromContext returns the validated token claims stored by
// EmploymentGate.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*token.Claims)
	return claims, ok
}

// EmploymentGate validates the bearer token and enforces employment-status
// authorization. A valid token whose status forbids login is rejected with a
// 403 carrying the status-specific message; every other failure collapses to
// a generic 401. OPTIONS requests bypass the gate entirely so CORS
// pre-flight can advertise capabilities without a token.
func EmploymentGate(svc *token.Service, log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := token.ExtractFromHeader(r.Header.Get("Authorization"))
			if !ok {
				httputil.WriteError(w, r, autherrors.AuthenticationFailed("authentication required"), log)
				return
			}

			claims, err := svc.Validate(raw)
			if err != nil {
				httputil.WriteError(w, r, autherrors.AuthenticationFailed("authentication failed"), log)
				return
			}

			if !claims.CanLogin {
				status := claims.EmploymentStatus
				log.InfoContext(r.Context(), "employment status denied access",
					slog.String("employee_id", claims.AccountID),
					slog.String("employment_status", string(status)),
				)
				httputil.WriteError(w, r, autherrors.AuthorizationDenied(status.DenialMessage(), string(status)), log)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			ctx = logger.WithEmployeeID(ctx, claims.AccountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
