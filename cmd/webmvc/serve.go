// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"webmvc/internal/auth"
	"webmvc/internal/cache"
	"webmvc/internal/cart"
	"webmvc/internal/database"
	"webmvc/internal/handlers"
	"webmvc/internal/mail"
	"webmvc/internal/middleware"
	"webmvc/internal/render"
	"webmvc/internal/router"
	"webmvc/internal/secure"
	"webmvc/internal/session"
	"webmvc/internal/sms"
	"webmvc/internal/storage"
)

// Sign-in routes allow this many requests per client and window.
const (
	authRateLimit  = 20
	authRateWindow = time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	// Connect to PostgreSQL and apply pending migrations.
	db, err := database.Connect(ctx, cfg.DSN(), dbPool())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	seed := seedOptions(cfg.IsDev())
	if err := database.Seed(db, seed); err != nil {
		return fmt.Errorf("seed database: %w", err)
	}

	// Valkey holds sessions, carts, one-time codes and the page cache.
	valkeyClient, err := cache.ConnectValkey(ctx, cache.ValkeyConfig{
		Host:     cfg.ValkeyHost,
		Port:     cfg.ValkeyPort,
		Password: cfg.ValkeyPassword,
		DB:       cfg.ValkeyDB,
	})
	if err != nil {
		return fmt.Errorf("connect to valkey: %w", err)
	}
	defer valkeyClient.Close()

	secureCookies := cfg.SecureCookies()
	sessionStore := session.NewStore(valkeyClient, secureCookies)
	codes := auth.NewOneTimeCodes(valkeyClient)
	pageCache := cache.NewPageCache(valkeyClient, cache.DefaultPageTTL)
	carts := cart.NewValkeyStore(valkeyClient, cart.DefaultTTL)

	renderer, err := render.New(cfg.IsDev())
	if err != nil {
		return fmt.Errorf("initialize template renderer: %w", err)
	}

	cipher, err := secure.New(cfg.EncryptionKey, cfg.EncryptionIV)
	if err != nil {
		return fmt.Errorf("initialize phone cipher: %w", err)
	}

	bucket, uploads, err := openBucket(ctx)
	if err != nil {
		return err
	}

	mailer := mail.NewSMTPSender(mail.Config{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		Username:    cfg.SMTPUser,
		Password:    cfg.SMTPPassword,
		From:        cfg.MailFrom,
		DisplayName: "webmvc",
		SaveDir:     cfg.MailSaveDir,
	})
	if !cfg.MailEnabled() {
		slog.Warn("smtp not configured, mail is saved to disk", "dir", cfg.MailSaveDir)
	}
	texter := sms.NewFileSender(filepath.Join(cfg.MailSaveDir, "sms"))

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiration)

	providers := handlers.SetupExternalLogin(handlers.ExternalConfig{
		BaseURL:              cfg.BaseURL,
		Secret:               cfg.Secret,
		Secure:               secureCookies,
		GoogleClientID:       cfg.GoogleClientID,
		GoogleClientSecret:   cfg.GoogleClientSecret,
		FacebookClientID:     cfg.FacebookClientID,
		FacebookClientSecret: cfg.FacebookClientSecret,
	})
	slog.Info("external login providers", "enabled", providers)

	// Create handler groups with their dependencies.
	stores := handlers.NewStores(db)
	account := handlers.NewAccount(renderer, sessionStore, stores.Users, codes, mailer, texter, cipher, cfg.BaseURL, providers)
	h := router.Handlers{
		Public:  handlers.NewPublic(renderer, stores, pageCache, bucket),
		Contact: handlers.NewContact(renderer, stores.Contacts),
		Cart:    handlers.NewCart(renderer, carts, stores.Products, secureCookies),
		Account: account,
		Manage:  handlers.NewManage(renderer, sessionStore, stores.Users, codes, texter, cipher, "webmvc"),
		Admin:   handlers.NewAdmin(renderer, stores, bucket, pageCache, db, cfg.IsDev(), seed),
		API:     handlers.NewAPI(stores, pageCache, bucket, tokens, account),
	}

	limiter := middleware.NewRateLimiter(authRateLimit, authRateWindow, cfg.TrustedProxies...)
	defer limiter.Stop()

	r := router.New(h, router.Options{
		Sessions:      sessionStore,
		Tokens:        tokens,
		Limiter:       limiter,
		Uploads:       uploads,
		SecureCookies: secureCookies,
		MediaURL:      cfg.S3PublicURL,
		Flashes:       render.NewFlashStore([]byte(cfg.Secret), secureCookies),
	})

	// Create the HTTP server with sensible timeouts. Uploads of several
	// photos need the longer read timeout.
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	// Give active requests up to 30 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// openBucket returns the upload backend. Local storage also returns the
// handler serving its files.
func openBucket(ctx context.Context) (storage.Bucket, http.Handler, error) {
	if cfg.S3Enabled() {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		s3, err := storage.NewS3(ctx, storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("initialize s3 storage: %w", err)
		}
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
		return s3, nil, nil
	}

	local, err := storage.NewLocal(cfg.UploadDir)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("uploads stored locally", "dir", cfg.UploadDir)
	return local, local.Handler(), nil
}
