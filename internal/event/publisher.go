// Package event publishes authentication audit events so downstream HR and
// security consumers can track session activity without querying the auth
// service.
package event

import (
	"context"
	"log/slog"

	"github.com/marshaltudu14/fieldforce-auth/pkg/kafka"
	"github.com/marshaltudu14/fieldforce-auth/pkg/logger"
)

const (
	TopicAuthEvents = "fieldforce.auth.events"

	TypeLogin         = "auth.login"
	TypeLoginDenied   = "auth.login_denied"
	TypeRefresh       = "auth.refresh"
	TypeLogout        = "auth.logout"
	TypeBoundaryDeny  = "auth.boundary_denied"
	aggregateEmployee = "employee"
	source            = "auth-service"
)

// Publisher is the narrow interface the auth service publishes through.
// kafka.Producer satisfies it; tests use an in-memory recorder.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *kafka.Event) error
}

// AuditPayload is the data section of every auth audit event.
type AuditPayload struct {
	EmployeeID       string `json:"employee_id"`
	EmployeeCode     string `json:"employee_code,omitempty"`
	EmploymentStatus string `json:"employment_status,omitempty"`
	ClientType       string `json:"client_type,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

// Auditor emits auth audit events. Publishing is best-effort: a broker
// outage must never fail a login, so errors are logged and swallowed.
type Auditor struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewAuditor creates an audit event emitter.
func NewAuditor(publisher Publisher, log *slog.Logger) *Auditor {
	return &Auditor{publisher: publisher, logger: log}
}

// Emit publishes one audit event of the given type.
func (a *Auditor) Emit(ctx context.Context, eventType string, payload AuditPayload) {
	if a.publisher == nil {
		return
	}

	evt, err := kafka.NewEvent(eventType, payload.EmployeeID, aggregateEmployee, source, payload)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to build audit event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
		return
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}

	if err := a.publisher.Publish(ctx, TopicAuthEvents, evt); err != nil {
		a.logger.ErrorContext(ctx, "failed to publish audit event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
	}
}
