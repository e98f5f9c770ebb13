// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains. Routes are
// organized into the HTML site (public, account, manage, admin) and the
// JSON API, each with its own middleware stack.
package router

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"webmvc/internal/handlers"
	"webmvc/internal/middleware"
	"webmvc/internal/models"
	"webmvc/internal/render"
	"webmvc/web"
)

// Handlers bundles the handler groups mounted by New.
type Handlers struct {
	Public  *handlers.Public
	Contact *handlers.Contact
	Cart    *handlers.Cart
	Account *handlers.Account
	Manage  *handlers.Manage
	Admin   *handlers.Admin
	API     *handlers.API
}

// Options carries the middleware dependencies of New.
type Options struct {
	Sessions      middleware.SessionGetter
	Tokens        middleware.TokenParser
	Limiter       *middleware.RateLimiter // nil disables rate limiting of sign-in routes
	Uploads       http.Handler            // serves /contents/ when uploads are stored locally
	SecureCookies bool
	MediaURL      string             // public URL of the photo bucket, allowed in img-src
	Flashes       *render.FlashStore // nil drops flash messages
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(h Handlers, opts Options) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders(middleware.HeaderPolicy{HSTS: opts.SecureCookies, MediaURL: opts.MediaURL}))

	// Health check: no session, no CSRF.
	r.Get("/health", healthHandler)

	staticFS, _ := fs.Sub(web.StaticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	if opts.Uploads != nil {
		r.Handle("/contents/*", http.StripPrefix("/contents/", opts.Uploads))
	}

	limit := func(next http.Handler) http.Handler { return next }
	if opts.Limiter != nil {
		limit = opts.Limiter.Middleware
	}

	r.Route("/api", func(r chi.Router) {
		mountAPI(r, h.API, opts.Tokens, limit)
	})

	// HTML site: cookie session, CSRF, flash messages and the cart badge.
	r.Group(func(r chi.Router) {
		r.Use(middleware.LoadSession(opts.Sessions))
		r.Use(middleware.NewCSRF(opts.SecureCookies))
		if opts.Flashes != nil {
			r.Use(opts.Flashes.Middleware)
		}
		r.Use(h.Cart.Count)

		mountPublic(r, h)

		r.Route("/account", func(r chi.Router) {
			mountAccount(r, h.Account, limit)
		})

		r.Route("/manage", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.Require2FA)
			mountManage(r, h.Manage)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.Require2FA)
			r.Use(middleware.RequireRole(models.RoleAdmin, models.RoleEditor))
			mountAdmin(r, h.Admin)
		})
	})

	return r
}

func mountPublic(r chi.Router, h Handlers) {
	r.Get("/", h.Public.Home)

	r.Get("/post", h.Public.PostList)
	r.Get("/post/{slug}", h.Public.Posts)
	r.Get("/products", h.Public.ProductList)
	r.Get("/products/{slug}", h.Public.ProductCategory)
	r.Get("/product/{slug}", h.Public.ProductDetail)

	r.Get("/contact", h.Contact.Page)
	r.Post("/contact", h.Contact.Submit)

	r.Get("/cart", h.Cart.View)
	r.Get("/add-cart/{productID}", h.Cart.Add)
	r.Get("/remove-cart/{productID}", h.Cart.Remove)
	r.Post("/update-cart", h.Cart.Update)
	r.Get("/checkout", h.Cart.Checkout)
}

func mountAccount(r chi.Router, a *handlers.Account, limit func(http.Handler) http.Handler) {
	r.Get("/login", a.LoginPage)
	r.With(limit).Post("/login", a.LoginSubmit)
	r.Post("/logout", a.Logout)
	r.Get("/lockout", a.Lockout)

	r.Get("/register", a.RegisterPage)
	r.With(limit).Post("/register", a.RegisterSubmit)
	r.Get("/confirm-email", a.ConfirmEmail)

	r.Get("/forgot-password", a.ForgotPage)
	r.With(limit).Post("/forgot-password", a.ForgotSubmit)
	r.Get("/reset-password", a.ResetPage)
	r.With(limit).Post("/reset-password", a.ResetSubmit)

	r.Get("/external/{provider}", a.ExternalBegin)
	r.Get("/external/{provider}/callback", a.ExternalCallback)

	// Second factor: signed in but not yet verified.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Use(limit)
		r.Get("/2fa", a.TwoFAPage)
		r.Post("/2fa", a.TwoFASubmit)
		r.Post("/2fa/send", a.TwoFASend)
		r.Get("/2fa/recovery", a.RecoveryPage)
		r.Post("/2fa/recovery", a.RecoverySubmit)
	})
}

func mountManage(r chi.Router, m *handlers.Manage) {
	r.Get("/", m.Index)
	r.Post("/", m.UpdateProfile)

	r.Get("/change-password", m.ChangePasswordPage)
	r.Post("/change-password", m.ChangePasswordSubmit)

	r.Get("/phone", m.PhonePage)
	r.Post("/phone", m.PhoneSubmit)
	r.Post("/phone/verify", m.PhoneVerify)
	r.Post("/phone/remove", m.PhoneRemove)

	r.Get("/two-factor", m.TwoFactorPage)
	r.Post("/two-factor/disable", m.TwoFactorDisable)
	r.Get("/authenticator", m.AuthenticatorPage)
	r.Post("/authenticator", m.AuthenticatorSubmit)
	r.Post("/authenticator/reset", m.AuthenticatorReset)
	r.Post("/recovery-codes", m.RecoveryCodes)
}

func mountAdmin(r chi.Router, a *handlers.Admin) {
	r.Get("/", a.Dashboard)

	r.Route("/categories/{kind}", func(r chi.Router) {
		r.Get("/", a.CategoriesList)
		r.Get("/new", a.CategoryNew)
		r.Post("/new", a.CategoryCreate)
		r.Get("/{id}", a.CategoryEdit)
		r.Post("/{id}", a.CategoryUpdate)
		r.Post("/{id}/delete", a.CategoryDelete)
	})

	r.Route("/posts", func(r chi.Router) {
		r.Get("/", a.PostsList)
		r.Get("/new", a.PostNew)
		r.Post("/new", a.PostCreate)
		r.Get("/{id}", a.PostEdit)
		r.Post("/{id}", a.PostUpdate)
		r.Post("/{id}/delete", a.PostDelete)
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", a.ProductsList)
		r.Get("/new", a.ProductNew)
		r.Post("/new", a.ProductCreate)
		r.Get("/{id}", a.ProductEdit)
		r.Post("/{id}", a.ProductUpdate)
		r.Post("/{id}/delete", a.ProductDelete)
		r.Post("/{id}/photos", a.PhotosUpload)
		r.Post("/{id}/photos/{photoID}/delete", a.PhotoDelete)
	})

	// Accounts, roles, contact messages, the page cache and the database:
	// Admin only.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(models.RoleAdmin))

		r.Route("/users", func(r chi.Router) {
			r.Get("/", a.UsersList)
			r.Get("/{id}", a.UserEdit)
			r.Post("/{id}/roles", a.UserRoles)
			r.Post("/{id}/password", a.UserPassword)
			r.Post("/{id}/reset-2fa", a.UserResetTwoFA)
			r.Post("/{id}/delete", a.UserDelete)
		})

		r.Route("/roles", func(r chi.Router) {
			r.Get("/", a.RolesList)
			r.Get("/new", a.RoleNew)
			r.Post("/new", a.RoleCreate)
			r.Get("/{id}", a.RoleEdit)
			r.Post("/{id}", a.RoleUpdate)
			r.Post("/{id}/delete", a.RoleDelete)
		})

		r.Get("/contacts", a.ContactsList)
		r.Post("/contacts/{id}/delete", a.ContactDelete)

		r.Post("/cache/clear", a.CacheClear)

		r.Route("/database", func(r chi.Router) {
			r.Get("/", a.DatabasePage)
			r.Post("/migrate", a.DatabaseMigrate)
			r.Post("/seed", a.DatabaseSeed)
			r.Post("/reset", a.DatabaseReset)
		})
	})
}

func mountAPI(r chi.Router, api *handlers.API, tokens middleware.TokenParser, limit func(http.Handler) http.Handler) {
	r.Use(middleware.Bearer(tokens))

	writers := middleware.RequireToken(models.RoleAdmin, models.RoleEditor)
	admins := middleware.RequireToken(models.RoleAdmin)

	r.Route("/blogs", func(r chi.Router) {
		r.Get("/", api.BlogsList)
		r.Get("/search", api.BlogsSearch)
		r.Get("/categories", api.BlogCategories)
		r.Get("/{id}", api.BlogGet)
		r.With(writers).Post("/", api.BlogCreate)
		r.With(writers).Put("/{id}", api.BlogUpdate)
		r.With(admins).Delete("/{id}", api.BlogDelete)
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", api.ProductsList)
		r.Get("/search", api.ProductsSearch)
		r.Get("/categories", api.ProductCategories)
		r.Get("/{id}", api.ProductGet)
		r.With(writers).Post("/", api.ProductCreate)
		r.With(writers).Put("/{id}", api.ProductUpdate)
		r.With(admins).Delete("/{id}", api.ProductDelete)
	})

	r.Route("/public", func(r chi.Router) {
		r.Get("/dashboard", api.Dashboard)
		r.Get("/featured-products", api.FeaturedProducts)
		r.Get("/latest-blogs", api.LatestBlogs)
		r.Get("/categories", api.AllCategories)
		r.Get("/products-by-category/{id}", api.ProductsByCategory)
		r.Get("/blogs-by-category/{id}", api.BlogsByCategory)
		r.Get("/search", api.Search)
	})

	r.Route("/auth", func(r chi.Router) {
		r.With(limit).Post("/login", api.Login)
		r.With(limit).Post("/register", api.Register)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireToken())
			r.Post("/logout", api.Logout)
			r.Get("/profile", api.Profile)
		})
	})

	r.Route("/upload", func(r chi.Router) {
		r.Use(writers)
		r.Post("/product-photos", api.UploadProductPhotos)
		r.Get("/product-photos/{id}", api.ProductPhotos)
		r.Delete("/product-photos/{id}", api.DeleteProductPhoto)
		r.Post("/general", api.UploadGeneral)
	})
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
