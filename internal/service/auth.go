// Package service implements the server-side authentication operations:
// credential verification, token issuance, refresh, and revocation.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/marshaltudu14/fieldforce-auth/internal/domain"
	"github.com/marshaltudu14/fieldforce-auth/internal/event"
	"github.com/marshaltudu14/fieldforce-auth/internal/repository"
	autherrors "github.com/marshaltudu14/fieldforce-auth/pkg/errors"
	"github.com/marshaltudu14/fieldforce-auth/pkg/token"
)

// DefaultRefreshTTL is the refresh token lifetime when none is configured.
const DefaultRefreshTTL = 7 * 24 * time.Hour

// LoginResult is what a successful login returns to the handler layer.
type LoginResult struct {
	Employee *domain.Employee
	Tokens   domain.TokenPair
}

// AuthService verifies credentials and manages the token lifecycle. Refresh
// tokens are opaque random values; only their SHA-256 hash is ever stored.
type AuthService struct {
	employees  repository.EmployeeDirectory
	refreshes  repository.RefreshTokenStore
	denyList   repository.RevocationList
	tokens     *token.Service
	auditor    *event.Auditor
	logger     *slog.Logger
	refreshTTL time.Duration
	nowFunc    func() time.Time
}

// NewAuthService creates the authentication service. A non-positive
// refreshTTL falls back to DefaultRefreshTTL.
func NewAuthService(
	employees repository.EmployeeDirectory,
	refreshes repository.RefreshTokenStore,
	denyList repository.RevocationList,
	tokens *token.Service,
	auditor *event.Auditor,
	logger *slog.Logger,
	refreshTTL time.Duration,
) *AuthService {
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &AuthService{
		employees:  employees,
		refreshes:  refreshes,
		denyList:   denyList,
		tokens:     tokens,
		auditor:    auditor,
		logger:     logger,
		refreshTTL: refreshTTL,
		nowFunc:    time.Now,
	}
}

// Login verifies the identifier/secret pair and issues a token pair. Unknown
// identifiers and wrong secrets produce the same error so account existence
// is not leaked. An employee whose status forbids login gets a 403 with the
// status-specific message even when the secret is correct.
func (s *AuthService) Login(ctx context.Context, identifier, secret string) (*LoginResult, error) {
	if identifier == "" || secret == "" {
		return nil, autherrors.InvalidInput("identifier and secret are required")
	}

	emp, err := s.employees.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, autherrors.ErrNotFound) {
			return nil, autherrors.AuthenticationFailed("invalid credentials")
		}
		return nil, autherrors.Internal(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(emp.PasswordHash), []byte(secret)); err != nil {
		s.logger.InfoContext(ctx, "login rejected",
			slog.String("identifier", identifier),
			slog.String("reason", "bad secret"),
		)
		return nil, autherrors.AuthenticationFailed("invalid credentials")
	}

	if !emp.Status.CanLogin() {
		s.auditor.Emit(ctx, event.TypeLoginDenied, event.AuditPayload{
			EmployeeID:       emp.ID,
			EmployeeCode:     emp.Code,
			EmploymentStatus: string(emp.Status),
			Reason:           "employment status forbids login",
		})
		return nil, autherrors.AuthorizationDenied(emp.Status.DenialMessage(), string(emp.Status))
	}

	accessToken, err := s.tokens.Issue(token.Identity{
		Subject:          emp.Code,
		AccountID:        emp.ID,
		EmploymentStatus: emp.Status,
	})
	if err != nil {
		return nil, autherrors.Internal(err)
	}

	refreshToken, err := newRefreshToken()
	if err != nil {
		return nil, autherrors.Internal(err)
	}
	expiresAt := s.nowFunc().UTC().Add(s.refreshTTL)
	if err := s.refreshes.Create(ctx, emp.ID, hashToken(refreshToken), expiresAt); err != nil {
		return nil, autherrors.Internal(err)
	}

	s.auditor.Emit(ctx, event.TypeLogin, event.AuditPayload{
		EmployeeID:       emp.ID,
		EmployeeCode:     emp.Code,
		EmploymentStatus: string(emp.Status),
	})

	return &LoginResult{
		Employee: emp,
		Tokens: domain.TokenPair{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
		},
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The token
// must not be revoked or expired, and the employee's current status must
// still permit login; a status change since the last issuance is enforced
// here, not just at login.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", autherrors.AuthenticationFailed("refresh token is required")
	}
	hash := hashToken(refreshToken)

	denied, err := s.denyList.Contains(ctx, hash)
	if err != nil {
		// The durable record below is authoritative; a deny-list outage
		// must not take refresh down with it.
		s.logger.WarnContext(ctx, "revocation list unavailable",
			slog.String("error", err.Error()),
		)
	} else if denied {
		return "", autherrors.AuthenticationFailed("session has been revoked")
	}

	record, err := s.refreshes.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, autherrors.ErrNotFound) {
			return "", autherrors.AuthenticationFailed("invalid refresh token")
		}
		return "", autherrors.Internal(err)
	}
	now := s.nowFunc().UTC()
	if record.RevokedAt != nil {
		return "", autherrors.AuthenticationFailed("session has been revoked")
	}
	if now.After(record.ExpiresAt) {
		return "", autherrors.AuthenticationFailed("refresh token has expired")
	}

	emp, err := s.employees.GetByID(ctx, record.EmployeeID)
	if err != nil {
		if errors.Is(err, autherrors.ErrNotFound) {
			return "", autherrors.AuthenticationFailed("invalid refresh token")
		}
		return "", autherrors.Internal(err)
	}
	if !emp.Status.CanLogin() {
		// The status change invalidates every outstanding session, not just
		// this attempt: revoke all of the employee's refresh tokens.
		if err := s.refreshes.RevokeByEmployeeID(ctx, emp.ID); err != nil {
			s.logger.WarnContext(ctx, "failed to revoke sessions after status change",
				slog.String("employee_id", emp.ID),
				slog.String("error", err.Error()),
			)
		}
		s.auditor.Emit(ctx, event.TypeLoginDenied, event.AuditPayload{
			EmployeeID:       emp.ID,
			EmployeeCode:     emp.Code,
			EmploymentStatus: string(emp.Status),
			Reason:           "employment status forbids refresh",
		})
		return "", autherrors.AuthorizationDenied(emp.Status.DenialMessage(), string(emp.Status))
	}

	accessToken, err := s.tokens.Issue(token.Identity{
		Subject:          emp.Code,
		AccountID:        emp.ID,
		EmploymentStatus: emp.Status,
	})
	if err != nil {
		return "", autherrors.Internal(err)
	}

	s.auditor.Emit(ctx, event.TypeRefresh, event.AuditPayload{
		EmployeeID:       emp.ID,
		EmployeeCode:     emp.Code,
		EmploymentStatus: string(emp.Status),
	})
	return accessToken, nil
}

// Logout revokes the given refresh token. Unknown or already revoked tokens
// are not errors: logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	hash := hashToken(refreshToken)

	record, err := s.refreshes.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, autherrors.ErrNotFound) {
			return nil
		}
		return autherrors.Internal(err)
	}

	if err := s.refreshes.Revoke(ctx, hash); err != nil {
		return autherrors.Internal(err)
	}

	ttl := record.ExpiresAt.Sub(s.nowFunc().UTC())
	if err := s.denyList.Add(ctx, hash, ttl); err != nil {
		// The durable revocation above already succeeded.
		s.logger.WarnContext(ctx, "failed to add deny-list entry",
			slog.String("error", err.Error()),
		)
	}

	s.auditor.Emit(ctx, event.TypeLogout, event.AuditPayload{
		EmployeeID: record.EmployeeID,
	})
	return nil
}

// GetUser loads the employee profile for an authenticated request.
func (s *AuthService) GetUser(ctx context.Context, employeeID string) (*domain.Employee, error) {
	emp, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, autherrors.ErrNotFound) {
			return nil, autherrors.AuthenticationFailed("unknown account")
		}
		return nil, autherrors.Internal(err)
	}
	return emp, nil
}

func newRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}
