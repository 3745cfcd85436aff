// Package credstore owns the durable copy of the client's credentials:
// access token, refresh token, and the cached user profile. The backing
// medium is selected once at initialization (OS keychain when available,
// an on-disk file otherwise) and every method behaves identically
// regardless of which medium backs it.
package credstore

import (
	"context"
	"errors"
	"fmt"
)

const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyUserProfile  = "user_profile"
)

// errNotFound is what backends return for an absent key; the store maps it
// to an empty value.
var errNotFound = errors.New("credential not found")

// Backend is a flat key/value medium. Implementations must be safe for
// concurrent use.
type Backend interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// Store is the credential interface the session layer depends on. Reads of
// absent values return the empty string, not an error.
type Store interface {
	SetAccessToken(ctx context.Context, token string) error
	AccessToken(ctx context.Context) (string, error)
	ClearAccessToken(ctx context.Context) error

	SetRefreshToken(ctx context.Context, token string) error
	RefreshToken(ctx context.Context) (string, error)
	ClearRefreshToken(ctx context.Context) error

	SetUserProfile(ctx context.Context, profile string) error
	UserProfile(ctx context.Context) (string, error)
	ClearUserProfile(ctx context.Context) error

	ClearAll(ctx context.Context) error

	// HasStoredCredentials reports whether both an access token and a user
	// profile are present, without any network call.
	HasStoredCredentials(ctx context.Context) (bool, error)
}

// store gates every operation on one-time asynchronous initialization:
// calls issued before the backend is ready block until it is, so nothing
// is silently dropped.
type store struct {
	ready   chan struct{}
	backend Backend
	initErr error
}

// New selects the backing medium asynchronously: the OS keychain when the
// platform provides one, otherwise a file in the user's config directory.
func New(serviceName string) Store {
	return newWithInit(func() (Backend, error) {
		if kb, err := newKeyringBackend(serviceName); err == nil {
			return kb, nil
		}
		return newFileBackend(serviceName)
	})
}

// NewWithBackend creates a store over an explicit backend. Used by tests
// and by platforms that force a specific medium.
func NewWithBackend(b Backend) Store {
	return newWithInit(func() (Backend, error) { return b, nil })
}

func newWithInit(init func() (Backend, error)) *store {
	s := &store{ready: make(chan struct{})}
	go func() {
		defer close(s.ready)
		s.backend, s.initErr = init()
	}()
	return s
}

func (s *store) ensureInitialized(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ready:
	}
	if s.initErr != nil {
		return fmt.Errorf("credential store unavailable: %w", s.initErr)
	}
	return nil
}

func (s *store) set(ctx context.Context, key, value string) error {
	if err := s.ensureInitialized(ctx); err != nil {
		return err
	}
	return s.backend.Set(key, value)
}

func (s *store) get(ctx context.Context, key string) (string, error) {
	if err := s.ensureInitialized(ctx); err != nil {
		return "", err
	}
	v, err := s.backend.Get(key)
	if errors.Is(err, errNotFound) {
		return "", nil
	}
	return v, err
}

func (s *store) clear(ctx context.Context, key string) error {
	if err := s.ensureInitialized(ctx); err != nil {
		return err
	}
	if err := s.backend.Delete(key); err != nil && !errors.Is(err, errNotFound) {
		return err
	}
	return nil
}

func (s *store) SetAccessToken(ctx context.Context, token string) error {
	return s.set(ctx, keyAccessToken, token)
}

func (s *store) AccessToken(ctx context.Context) (string, error) {
	return s.get(ctx, keyAccessToken)
}

func (s *store) ClearAccessToken(ctx context.Context) error {
	return s.clear(ctx, keyAccessToken)
}

func (s *store) SetRefreshToken(ctx context.Context, token string) error {
	return s.set(ctx, keyRefreshToken, token)
}

func (s *store) RefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, keyRefreshToken)
}

func (s *store) ClearRefreshToken(ctx context.Context) error {
	return s.clear(ctx, keyRefreshToken)
}

func (s *store) SetUserProfile(ctx context.Context, profile string) error {
	return s.set(ctx, keyUserProfile, profile)
}

func (s *store) UserProfile(ctx context.Context) (string, error) {
	return s.get(ctx, keyUserProfile)
}

func (s *store) ClearUserProfile(ctx context.Context) error {
	return s.clear(ctx, keyUserProfile)
}

func (s *store) ClearAll(ctx context.Context) error {
	var errs []error
	for _, key := range []string{keyAccessToken, keyRefreshToken, keyUserProfile} {
		if err := s.clear(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *store) HasStoredCredentials(ctx context.Context) (bool, error) {
	tok, err := s.AccessToken(ctx)
	if err != nil {
		return false, err
	}
	if tok == "" {
		return false, nil
	}
	profile, err := s.UserProfile(ctx)
	if err != nil {
		return false, err
	}
	return profile != "", nil
}
