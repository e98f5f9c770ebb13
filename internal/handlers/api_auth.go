// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"webmvc/internal/auth"
	"webmvc/internal/middleware"
	"webmvc/internal/models"
	"webmvc/internal/store"
)

// profile is the public view of a user.
type profile struct {
	ID               uuid.UUID `json:"id"`
	UserName         string    `json:"userName"`
	Email            string    `json:"email"`
	DisplayName      string    `json:"displayName"`
	EmailConfirmed   bool      `json:"emailConfirmed"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	Roles            []string  `json:"roles"`
}

func profileOf(u *models.User) profile {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return profile{
		ID:               u.ID,
		UserName:         u.UserName,
		Email:            u.Email,
		DisplayName:      u.DisplayName,
		EmailConfirmed:   u.EmailConfirmed,
		TwoFactorEnabled: u.TwoFactorEnabled,
		Roles:            roles,
	}
}

type loginRequest struct {
	Login         string `json:"login"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	TwoFactorCode string `json:"twoFactorCode"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      profile   `json:"user"`
}

// Login exchanges credentials for a bearer token. Lockout and email
// confirmation apply as on the site; accounts with 2FA must send a current
// authenticator code.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	login := strings.TrimSpace(req.Login)
	if login == "" {
		login = strings.TrimSpace(req.Email)
	}
	if login == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Login and password are required")
		return
	}

	ctx := r.Context()
	users := a.stores.Users
	user, err := users.FindByLogin(ctx, login)
	if err != nil {
		internalError(w, "api login lookup failed", err)
		return
	}
	if user == nil {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if user.IsLockedOut(time.Now()) {
		respondError(w, http.StatusForbidden, auth.ErrLockedOut.Error())
		return
	}
	if !users.CheckPassword(user, req.Password) {
		locked, err := users.RecordFailedLogin(ctx, user.ID, auth.MaxFailedAttempts, auth.LockoutDuration)
		if err != nil {
			slog.Error("record failed login", "error", err)
		}
		if locked {
			slog.Warn("user account locked out", "user_id", user.ID)
			respondError(w, http.StatusForbidden, auth.ErrLockedOut.Error())
			return
		}
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !user.EmailConfirmed {
		respondError(w, http.StatusForbidden, "Email not confirmed")
		return
	}
	if user.TwoFactorEnabled {
		if user.TOTPSecret == nil || !auth.ValidateTOTP(strings.TrimSpace(req.TwoFactorCode), *user.TOTPSecret) {
			respondError(w, http.StatusUnauthorized, "Two-factor code required")
			return
		}
	}
	if err := users.ResetFailedLogins(ctx, user.ID); err != nil {
		slog.Warn("reset failed logins", "error", err)
	}

	token, exp, err := a.tokens.Issue(user)
	if err != nil {
		internalError(w, "api issue token failed", err)
		return
	}
	slog.Info("api token issued", "user_id", user.ID)
	respond(w, http.StatusOK, "Login successful", loginResponse{Token: token, ExpiresAt: exp, User: profileOf(user)})
}

type registerRequest struct {
	UserName        string `json:"userName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Register creates a Member account and mails the confirmation link.
func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userName := strings.TrimSpace(req.UserName)
	email := strings.TrimSpace(req.Email)
	if errs := validateRegistration(userName, email, req.Password, req.ConfirmPassword); len(errs) > 0 {
		respondError(w, http.StatusBadRequest, strings.Join(errs, " "))
		return
	}

	ctx := r.Context()
	user, err := a.stores.Users.Create(ctx, store.NewUser{
		UserName: userName,
		Email:    email,
		Password: req.Password,
		Roles:    []string{models.RoleMember},
	})
	switch {
	case errors.Is(err, store.ErrEmailTaken):
		respondError(w, http.StatusConflict, "Email '"+email+"' is already taken")
		return
	case errors.Is(err, store.ErrUserNameTaken):
		respondError(w, http.StatusConflict, "User name '"+userName+"' is already taken")
		return
	case err != nil:
		internalError(w, "api register failed", err)
		return
	}
	slog.Info("user registered via api", "user_id", user.ID)
	if a.account != nil {
		a.account.sendConfirmation(ctx, user)
	}
	respond(w, http.StatusCreated, "Registration successful. Check your email to confirm your account.", profileOf(user))
}

// Logout acknowledges a logout. Tokens are stateless and expire on their
// own.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	if c := middleware.ClaimsFromCtx(r.Context()); c != nil {
		slog.Info("api logout", "user_id", c.Subject)
	}
	respond(w, http.StatusOK, "Logout successful", nil)
}

// Profile answers the user behind the bearer token.
func (a *API) Profile(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromCtx(r.Context())
	if claims == nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, err := claims.UserID()
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	user, err := a.stores.Users.FindByID(r.Context(), id)
	if err != nil {
		internalError(w, "api profile failed", err)
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	respond(w, http.StatusOK, "Profile retrieved successfully", profileOf(user))
}
