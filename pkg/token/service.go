// Package token issues and validates the signed access tokens that carry an
// employee's identity and employment status between the auth service and its
// clients. The service is pure: no I/O, no shared mutable state.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Issuer and Audience are fixed for every token this service signs.
	Issuer   = "fieldforce-auth"
	Audience = "fieldforce-clients"

	// DefaultTTL is the access token lifetime when none is configured.
	DefaultTTL = 15 * time.Minute
)

// ErrInvalidToken is returned for every validation failure: malformed
// structure, bad signature, wrong issuer or audience, and expiry all look
// identical to the caller so validation internals are not leaked.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the claim set embedded in every access token.
type Claims struct {
	AccountID        string           `json:"account_id"`
	EmploymentStatus EmploymentStatus `json:"employment_status"`
	CanLogin         bool             `json:"can_login"`
	jwt.RegisteredClaims
}

// Identity is the input to token issuance: who the token is for.
type Identity struct {
	Subject          string
	AccountID        string
	EmploymentStatus EmploymentStatus
}

// Service signs and verifies access tokens with a shared HMAC key.
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService creates a token service. A non-positive ttl falls back to
// DefaultTTL.
func NewService(secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{secret: []byte(secret), ttl: ttl}
}

// TTL returns the configured access token lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue produces a signed token for the given identity. CanLogin is always
// derived from the employment status; a token can never be issued with
// can_login=true for a status outside {ACTIVE, ON_LEAVE}.
func (s *Service) Issue(id Identity) (string, error) {
	if id.Subject == "" {
		return "", fmt.Errorf("issue token: subject is required")
	}
	if id.AccountID == "" {
		return "", fmt.Errorf("issue token: account id is required")
	}
	if !id.EmploymentStatus.Valid() {
		return "", fmt.Errorf("issue token: unknown employment status %q", id.EmploymentStatus)
	}

	now := time.Now().UTC()
	claims := &Claims{
		AccountID:        id.AccountID,
		EmploymentStatus: id.EmploymentStatus,
		CanLogin:         id.EmploymentStatus.CanLogin(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature, issuer, audience, and expiry of the given
// token and returns its claims. Every failure mode returns ErrInvalidToken.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Refresh re-issues a token from an old one, preserving the identity claims
// and opening a fresh issued-at/expires-at window (sliding expiration). This
// is the only operation that accepts an expired token: the signature must
// still verify and the subject and account id must be present, but the
// expiry is deliberately not checked.
func (s *Service) Refresh(oldToken string) (string, error) {
	parsed, err := jwt.ParseWithClaims(oldToken, &Claims{}, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" || claims.AccountID == "" {
		return "", ErrInvalidToken
	}

	return s.Issue(Identity{
		Subject:          claims.Subject,
		AccountID:        claims.AccountID,
		EmploymentStatus: claims.EmploymentStatus,
	})
}

// ExtractFromHeader parses an Authorization header value of the exact form
// "Bearer <token>". Any other scheme, missing token, or surrounding
// whitespace is treated as malformed and returns false. The strictness is
// deliberate: clients send the token verbatim, so leniency here would only
// mask a broken caller.
func ExtractFromHeader(headerValue string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(headerValue, prefix) {
		return "", false
	}
	tok := headerValue[len(prefix):]
	if tok == "" || strings.TrimSpace(tok) != tok {
		return "", false
	}
	return tok, true
}

// DecodeUnverified extracts claims without verifying the signature. Clients
// that received a token from the server over an authenticated channel use it
// for structural checks and expiry inspection; it must never be used to make
// a trust decision on an inbound request.
func DecodeUnverified(tokenString string) (*Claims, error) {
	if strings.Count(tokenString, ".") != 2 {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.AccountID == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return s.secret, nil
}
