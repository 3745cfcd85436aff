package repository

import (
	"context"
	"time"

	"github.com/marshaltudu14/fieldforce-auth/internal/domain"
)

// EmployeeDirectory looks up employee accounts and their current employment
// status. The directory is the single source of truth for the mutable status
// flag; tokens only carry a snapshot of it.
type EmployeeDirectory interface {
	// GetByID retrieves an employee by their internal account id.
	GetByID(ctx context.Context, id string) (*domain.Employee, error)

	// GetByIdentifier retrieves an employee by their login identifier
	// (employee code or email).
	GetByIdentifier(ctx context.Context, identifier string) (*domain.Employee, error)
}

// RefreshTokenStore persists refresh token hashes and their revocation state.
type RefreshTokenStore interface {
	// Create stores a new refresh token hash.
	Create(ctx context.Context, employeeID, tokenHash string, expiresAt time.Time) error

	// GetByHash retrieves a refresh token record by its hash.
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)

	// Revoke revokes a specific refresh token by its hash.
	Revoke(ctx context.Context, tokenHash string) error

	// RevokeByEmployeeID revokes all refresh tokens for the given employee.
	RevokeByEmployeeID(ctx context.Context, employeeID string) error
}

// RevocationList is a fast deny list consulted on every refresh. Entries
// expire on their own once the underlying token would have expired anyway.
type RevocationList interface {
	// Add marks a token hash as revoked for the given duration.
	Add(ctx context.Context, tokenHash string, ttl time.Duration) error

	// Contains reports whether a token hash has been revoked.
	Contains(ctx context.Context, tokenHash string) (bool, error)
}
