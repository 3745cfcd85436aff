package domain

import (
	"time"

	"github.com/marshaltudu14/fieldforce-auth/pkg/token"
)

// Employee is the account record the auth service authenticates against.
// Only the fields the session-trust core needs are modeled here; the rest of
// the HR profile lives with the dashboard services.
type Employee struct {
	ID           string                 `json:"id"`
	Code         string                 `json:"code"`
	Name         string                 `json:"name"`
	Email        string                 `json:"email"`
	PasswordHash string                 `json:"-"`
	Status       token.EmploymentStatus `json:"employment_status"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// RefreshToken is a stored refresh token record. Only the SHA-256 hash of
// the token is persisted.
type RefreshToken struct {
	ID         string     `json:"id"`
	EmployeeID string     `json:"employee_id"`
	TokenHash  string     `json:"-"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// TokenPair holds an access and refresh token pair returned at login.
type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
}
