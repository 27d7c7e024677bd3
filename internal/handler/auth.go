// Package handler contains the HTTP handlers for the Arguably API.
//
// This file implements account registration, login, logout, and the
// current-user endpoint.
//
// Routes:
//   - POST /api/auth/register -> HandleRegister
//   - POST /api/auth/login    -> HandleLogin
//   - POST /api/auth/logout   -> HandleLogout
//   - GET  /api/me            -> HandleMe (requires auth)
package handler

import (
	"log/slog"
	"net/http"

	"github.com/jtmorrow/arguably/internal/domain"
	"github.com/jtmorrow/arguably/internal/middleware"
	"github.com/jtmorrow/arguably/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	users    service.UserService
	credits  service.CreditService
	logger   *slog.Logger
	isSecure bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users service.UserService, credits service.CreditService, logger *slog.Logger, isSecure bool) *AuthHandler {
	return &AuthHandler{
		users:    users,
		credits:  credits,
		logger:   logger,
		isSecure: isSecure,
	}
}

// userResponse is the API shape of a user. The password hash never leaves
// the service layer.
type userResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"isAdmin,omitempty"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:      u.ID.String(),
		Email:   u.Email,
		Name:    u.Name,
		IsAdmin: u.IsAdmin,
	}
}

// HandleRegister creates a new account and logs it in.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user, err := h.users.Register(r.Context(), domain.RegisterParams{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	// Log the new account in immediately.
	login, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	middleware.SetSessionCookie(w, login.Token, h.isSecure)

	writeJSON(w, http.StatusCreated, map[string]any{
		"user": toUserResponse(user),
	})
}

// HandleLogin authenticates and sets the session cookie.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	login, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	middleware.SetSessionCookie(w, login.Token, h.isSecure)
	writeJSON(w, http.StatusOK, map[string]any{
		"user": toUserResponse(login.User),
	})
}

// HandleLogout invalidates the session. Safe to call without one.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		if err := h.users.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("logout failed", "error", err)
		}
	}
	middleware.ClearSessionCookie(w, h.isSecure)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe returns the current user with their entitlement snapshot, so the
// client can render counters and feature flags from one request.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	sub, err := h.credits.Balance(r.Context(), user)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	balance := domain.BalanceOf(sub)
	balance.Unlimited = balance.Unlimited || user.IsAdmin

	writeJSON(w, http.StatusOK, map[string]any{
		"user":    toUserResponse(user),
		"tier":    sub.Tier,
		"balance": balance,
		"flags":   sub.Flags(),
	})
}
