// Package http exposes the auth service over its HTTP wire contract.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/marshaltudu14/fieldforce-auth/internal/boundary"
	"github.com/marshaltudu14/fieldforce-auth/internal/domain"
	"github.com/marshaltudu14/fieldforce-auth/internal/service"
	autherrors "github.com/marshaltudu14/fieldforce-auth/pkg/errors"
	"github.com/marshaltudu14/fieldforce-auth/pkg/httputil"
	"github.com/marshaltudu14/fieldforce-auth/pkg/validator"
)

// AuthHandler handles the /auth endpoints.
type AuthHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// LoginRequest is the JSON request body for login.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Secret     string `json:"secret" validate:"required"`
}

// RefreshRequest is the JSON request body for token refresh.
type RefreshRequest struct {
	Token string `json:"token" validate:"required"`
}

// LogoutRequest is the JSON request body for logout.
type LogoutRequest struct {
	Token string `json:"token" validate:"required"`
}

// --- Response types ---

// LoginResponse is the flat login response the clients consume.
type LoginResponse struct {
	Token        string           `json:"token"`
	RefreshToken string           `json:"refreshToken,omitempty"`
	User         *domain.Employee `json:"user"`
}

// RefreshResponse carries the re-issued access token.
type RefreshResponse struct {
	Token string `json:"token"`
}

// MessageResponse is a plain acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

// --- Handlers ---

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, autherrors.InvalidInput("invalid request body"), h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	res, err := h.service.Login(r.Context(), req.Identifier, req.Secret)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, LoginResponse{
		Token:        res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		User:         res.Employee,
	})
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, autherrors.InvalidInput("invalid request body"), h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	accessToken, err := h.service.Refresh(r.Context(), req.Token)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, RefreshResponse{Token: accessToken})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, autherrors.InvalidInput("invalid request body"), h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.Logout(r.Context(), req.Token); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
}

// GetUser handles GET /auth/user. The employment gate has already validated
// the bearer token and stored its claims in the context.
func (h *AuthHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := boundary.ClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, autherrors.AuthenticationFailed("authentication required"), h.logger)
		return
	}

	emp, err := h.service.GetUser(r.Context(), claims.AccountID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, emp)
}
