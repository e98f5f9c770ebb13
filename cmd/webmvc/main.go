// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the webmvc server and its maintenance
// commands. Every command loads configuration from the environment (and an
// optional .env file) before it runs.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"webmvc/internal/config"
)

// cfg is loaded once by the root command's PersistentPreRunE.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "webmvc",
	Short: "Blog, storefront and account server",
	Long: `webmvc serves a blog and a storefront with a session cart, user
accounts with two-factor sign-in, an admin back-office and a JSON API.

Without a subcommand the HTTP server is started.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		setupLogger(cfg.IsDev())
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, resetCmd, seedCmd, genJWTKeyCmd)
}

// setupLogger installs the default structured logger: JSON in production,
// text in development.
func setupLogger(dev bool) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if dev {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
