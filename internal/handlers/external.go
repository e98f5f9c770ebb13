package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/facebook"
	"github.com/markbates/goth/providers/google"

	"webmvc/internal/models"
	"webmvc/internal/render"
	"webmvc/internal/store"
)

// ExternalConfig holds the OAuth client credentials of the external login
// providers. A provider is enabled when both of its values are set.
type ExternalConfig struct {
	BaseURL              string
	Secret               string
	Secure               bool
	GoogleClientID       string
	GoogleClientSecret   string
	FacebookClientID     string
	FacebookClientSecret string
}

// SetupExternalLogin registers the configured goth providers and returns
// their names. The OAuth state is kept in a signed cookie.
func SetupExternalLogin(cfg ExternalConfig) []string {
	cs := sessions.NewCookieStore([]byte(cfg.Secret))
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	gothic.Store = cs

	gothic.GetProviderName = func(req *http.Request) (string, error) {
		if p := chi.URLParam(req, "provider"); p != "" {
			return p, nil
		}
		return "", errors.New("provider not found")
	}

	callback := func(name string) string {
		return strings.TrimSuffix(cfg.BaseURL, "/") + "/account/external/" + name + "/callback"
	}

	var providers []goth.Provider
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		providers = append(providers, google.New(cfg.GoogleClientID, cfg.GoogleClientSecret, callback("google"), "email", "profile"))
	}
	if cfg.FacebookClientID != "" && cfg.FacebookClientSecret != "" {
		providers = append(providers, facebook.New(cfg.FacebookClientID, cfg.FacebookClientSecret, callback("facebook"), "email"))
	}

	goth.ClearProviders()
	if len(providers) == 0 {
		slog.Info("no external login providers configured")
		return nil
	}
	goth.UseProviders(providers...)

	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}
	slog.Info("external login providers enabled", "providers", names)
	return names
}

// ExternalBegin redirects to the provider's consent page.
func (a *Account) ExternalBegin(w http.ResponseWriter, r *http.Request) {
	if _, err := goth.GetProvider(chi.URLParam(r, "provider")); err != nil {
		a.renderer.Error(w, r, http.StatusNotFound)
		return
	}
	gothic.BeginAuthHandler(w, r)
}

// ExternalCallback signs in the user behind a provider account. Unknown
// accounts are linked to an existing user with the same email, or a new
// Member account with a confirmed email is created.
func (a *Account) ExternalCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	provider := chi.URLParam(r, "provider")

	gu, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		slog.Warn("external login failed", "provider", provider, "error", err)
		render.SetFlash(w, r, "error", "Error loading external login information.")
		http.Redirect(w, r, "/account/login", http.StatusSeeOther)
		return
	}
	gothic.Logout(w, r)

	user, err := a.users.FindByExternalLogin(ctx, provider, gu.UserID)
	if err != nil {
		slog.Error("external login lookup failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}

	if user == nil {
		email := strings.TrimSpace(gu.Email)
		if !validEmail(email) {
			render.SetFlash(w, r, "error", "The "+provider+" account did not share an email address.")
			http.Redirect(w, r, "/account/login", http.StatusSeeOther)
			return
		}

		user, err = a.users.FindByEmail(ctx, email)
		if err != nil {
			slog.Error("external login lookup failed", "error", err)
			a.renderer.Error(w, r, http.StatusInternalServerError)
			return
		}
		if user == nil {
			user, err = a.users.Create(ctx, store.NewUser{
				UserName:       email,
				Email:          email,
				DisplayName:    gu.Name,
				EmailConfirmed: true,
				Roles:          []string{models.RoleMember},
			})
			if err != nil {
				slog.Error("create external user failed", "error", err)
				a.renderer.Error(w, r, http.StatusInternalServerError)
				return
			}
			slog.Info("user created an account with an external login", "user_id", user.ID, "provider", provider)
		}

		if err := a.users.AddExternalLogin(ctx, user.ID, provider, gu.UserID); err != nil {
			slog.Error("link external login failed", "error", err)
			a.renderer.Error(w, r, http.StatusInternalServerError)
			return
		}
	}

	if !user.EmailConfirmed {
		if err := a.users.ConfirmEmail(ctx, user.ID); err != nil {
			slog.Warn("confirm external email", "error", err)
		}
	}
	a.signIn(w, r, user, "/", false)
}
