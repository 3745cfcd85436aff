package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/marshaltudu14/fieldforce-auth/internal/domain"
	autherrors "github.com/marshaltudu14/fieldforce-auth/pkg/errors"
)

// RefreshTokenRepository implements repository.RefreshTokenStore using PostgreSQL.
type RefreshTokenRepository struct {
	db db
}

// NewRefreshTokenRepository creates a new PostgreSQL-backed refresh token store.
func NewRefreshTokenRepository(db db) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// Create stores a new refresh token hash.
func (r *RefreshTokenRepository) Create(ctx context.Context, employeeID, tokenHash string, expiresAt time.Time) error {
	query := `
		INSERT INTO refresh_tokens (id, employee_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query,
		uuid.New().String(),
		employeeID,
		tokenHash,
		expiresAt,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// GetByHash retrieves a refresh token record by its hash.
func (r *RefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, employee_id, token_hash, expires_at, created_at, revoked_at
		FROM refresh_tokens
		WHERE token_hash = $1`

	var rt domain.RefreshToken
	err := r.db.QueryRow(ctx, query, tokenHash).Scan(
		&rt.ID,
		&rt.EmployeeID,
		&rt.TokenHash,
		&rt.ExpiresAt,
		&rt.CreatedAt,
		&rt.RevokedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, autherrors.NotFound("refresh token", "by hash")
		}
		return nil, fmt.Errorf("query refresh token: %w", err)
	}
	return &rt, nil
}

// Revoke revokes a specific refresh token by its hash. Revoking an already
// revoked or unknown token is not an error so logout stays idempotent.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, tokenHash string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $1
		WHERE token_hash = $2 AND revoked_at IS NULL`

	if _, err := r.db.Exec(ctx, query, time.Now().UTC(), tokenHash); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeByEmployeeID revokes all refresh tokens for the given employee.
func (r *RefreshTokenRepository) RevokeByEmployeeID(ctx context.Context, employeeID string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $1
		WHERE employee_id = $2 AND revoked_at IS NULL`

	if _, err := r.db.Exec(ctx, query, time.Now().UTC(), employeeID); err != nil {
		return fmt.Errorf("revoke refresh tokens for employee: %w", err)
	}
	return nil
}
