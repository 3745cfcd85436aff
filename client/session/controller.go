// Package session orchestrates the client-side session lifecycle: login,
// logout, session derivation, and background token refresh. The credential
// store is the source of truth; the controller holds only a logged-in flag
// and serializes every credential write.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/marshaltudu14/fieldforce-auth/client/credstore"
	autherrors "github.com/marshaltudu14/fieldforce-auth/pkg/errors"
	"github.com/marshaltudu14/fieldforce-auth/pkg/token"
)

// ErrNoSession is returned when an operation requires an active session and
// none exists.
var ErrNoSession = errors.New("no active session")

// User is the cached profile of the logged-in employee.
type User struct {
	ID               string `json:"id"`
	Code             string `json:"code"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	EmploymentStatus string `json:"employment_status"`
}

// Session is the derived view of the current authentication state.
type Session struct {
	Authenticated bool
	AccessToken   string
	User          *User
	ExpiresAt     time.Time
	LastActivity  time.Time
}

// Gateway is the transport the controller talks to the auth service
// through. gateway.Gateway satisfies it.
type Gateway interface {
	Do(ctx context.Context, method, path string, body, out any) error
	DoWithToken(ctx context.Context, method, path, bearer string, body, out any) error
}

// Wire types shared with the server's /auth surface.
type loginRequest struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type loginResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user"`
}

type refreshResponse struct {
	Token string `json:"token"`
}

// Config configures a Controller.
type Config struct {
	Gateway Gateway
	Store   credstore.Store
	Logger  *slog.Logger

	// RefreshLead is how long before token expiry the scheduler refreshes.
	// Zero means DefaultRefreshLead.
	RefreshLead time.Duration
}

// Controller owns one session. All credential writes from login, refresh,
// and logout go through its mutex so a refresh completing concurrently with
// a logout can never resurrect cleared credentials.
type Controller struct {
	mu        sync.Mutex
	gw        Gateway
	store     credstore.Store
	scheduler *RefreshScheduler
	logger    *slog.Logger
	loggedIn  bool
}

// NewController creates a session controller with its refresh scheduler.
func NewController(cfg Config) *Controller {
	c := &Controller{
		gw:     cfg.Gateway,
		store:  cfg.Store,
		logger: cfg.Logger,
	}
	c.scheduler = newRefreshScheduler(cfg.RefreshLead, c.refreshForScheduler, c.endSession, cfg.Logger)
	return c
}

// SessionEnded signals when a background refresh failed and the session was
// torn down; the UI layer reacts by returning to the login screen.
func (c *Controller) SessionEnded() <-chan struct{} {
	return c.scheduler.SessionEnded()
}

// Login authenticates and establishes a session. Empty credentials fail
// locally without a network call.
func (c *Controller) Login(ctx context.Context, identifier, secret string) (*User, error) {
	if strings.TrimSpace(identifier) == "" || secret == "" {
		return nil, autherrors.InvalidInput("identifier and secret are required")
	}

	var res loginResponse
	if err := c.gw.Do(ctx, http.MethodPost, "/auth/login",
		loginRequest{Identifier: identifier, Secret: secret}, &res); err != nil {
		return nil, err
	}

	claims, err := token.DecodeUnverified(res.Token)
	if err != nil {
		return nil, autherrors.AuthenticationFailed("received a malformed token")
	}
	if res.User == nil {
		return nil, autherrors.AuthenticationFailed("login response is missing the user profile")
	}
	profile, err := json.Marshal(res.User)
	if err != nil {
		return nil, autherrors.Internal(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.SetAccessToken(ctx, res.Token); err != nil {
		return nil, autherrors.Internal(err)
	}
	if res.RefreshToken != "" {
		if err := c.store.SetRefreshToken(ctx, res.RefreshToken); err != nil {
			return nil, autherrors.Internal(err)
		}
	}
	if err := c.store.SetUserProfile(ctx, string(profile)); err != nil {
		return nil, autherrors.Internal(err)
	}

	c.loggedIn = true
	c.scheduler.Arm(claims.ExpiresAt.Time)

	return res.User, nil
}

// Logout tears the session down. Local teardown is unconditional: the
// scheduler is canceled and the store cleared even when the remote
// invalidation call fails, which is why Logout has no error to return.
func (c *Controller) Logout(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.scheduler.Cancel()
	c.loggedIn = false

	refresh, err := c.store.RefreshToken(ctx)
	if err == nil && refresh != "" {
		if err := c.gw.Do(ctx, http.MethodPost, "/auth/logout", tokenRequest{Token: refresh}, nil); err != nil {
			c.logger.WarnContext(ctx, "remote logout failed; clearing local session anyway",
				slog.String("error", err.Error()),
			)
		}
	}

	if err := c.store.ClearAll(ctx); err != nil {
		c.logger.ErrorContext(ctx, "failed to clear credential store on logout",
			slog.String("error", err.Error()),
		)
	}
}

// CurrentSession derives the authentication state from the credential store
// alone; it never touches the network. A malformed stored token yields an
// unauthenticated session and clears the store so the bad state cannot
// recur. Unexpected store failures also degrade to unauthenticated. An
// authenticated result re-arms the refresh scheduler, so a process restart
// does not silently drop background refresh.
func (c *Controller) CurrentSession(ctx context.Context) Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	accessToken, err := c.store.AccessToken(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "session derivation failed", slog.String("error", err.Error()))
		return Session{}
	}
	if accessToken == "" {
		return Session{}
	}

	claims, err := token.DecodeUnverified(accessToken)
	if err != nil {
		c.selfHeal(ctx, "stored token is malformed")
		return Session{}
	}

	profile, err := c.store.UserProfile(ctx)
	if err != nil || profile == "" {
		c.selfHeal(ctx, "stored profile is missing")
		return Session{}
	}
	var user User
	if err := json.Unmarshal([]byte(profile), &user); err != nil {
		c.selfHeal(ctx, "stored profile is corrupt")
		return Session{}
	}

	c.loggedIn = true
	// A restarted process resumes proactive refresh from the stored expiry;
	// an already-lapsed token is refreshed immediately.
	c.scheduler.Arm(claims.ExpiresAt.Time)
	return Session{
		Authenticated: true,
		AccessToken:   accessToken,
		User:          &user,
		ExpiresAt:     claims.ExpiresAt.Time,
		LastActivity:  time.Now(),
	}
}

// Refresh exchanges the stored refresh token for a new access token and
// re-arms the scheduler. A refresh that completes after logout is discarded
// rather than written back.
func (c *Controller) Refresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	if !c.loggedIn {
		c.mu.Unlock()
		return "", ErrNoSession
	}
	refresh, err := c.store.RefreshToken(ctx)
	c.mu.Unlock()
	if err != nil {
		return "", autherrors.Internal(err)
	}
	if refresh == "" {
		return "", ErrNoSession
	}

	// The network call runs outside the lock so logout is never blocked
	// behind a slow refresh.
	var res refreshResponse
	if err := c.gw.Do(ctx, http.MethodPost, "/auth/refresh", tokenRequest{Token: refresh}, &res); err != nil {
		return "", err
	}
	claims, err := token.DecodeUnverified(res.Token)
	if err != nil {
		return "", autherrors.AuthenticationFailed("received a malformed token")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loggedIn {
		return "", ErrNoSession
	}
	if err := c.store.SetAccessToken(ctx, res.Token); err != nil {
		return "", autherrors.Internal(err)
	}
	c.scheduler.Arm(claims.ExpiresAt.Time)

	return res.Token, nil
}

// refreshForScheduler adapts Refresh for the background timer.
func (c *Controller) refreshForScheduler(ctx context.Context) error {
	_, err := c.Refresh(ctx)
	return err
}

// endSession is the scheduler's teardown path after a failed refresh.
func (c *Controller) endSession(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.scheduler.Cancel()
	c.loggedIn = false
	if err := c.store.ClearAll(ctx); err != nil {
		c.logger.ErrorContext(ctx, "failed to clear credential store after refresh failure",
			slog.String("error", err.Error()),
		)
	}
}

// selfHeal clears broken stored state. Caller holds the mutex.
func (c *Controller) selfHeal(ctx context.Context, reason string) {
	c.logger.WarnContext(ctx, "clearing stored credentials", slog.String("reason", reason))
	c.loggedIn = false
	c.scheduler.Cancel()
	if err := c.store.ClearAll(ctx); err != nil {
		c.logger.ErrorContext(ctx, "credential cleanup failed", slog.String("error", err.Error()))
	}
}
