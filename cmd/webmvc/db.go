// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"webmvc/internal/auth"
	"webmvc/internal/database"
)

var (
	seedSample    bool
	resetForce    bool
	migrateStatus bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withDB(cmd, func(db *sql.DB) error {
			if migrateStatus {
				return printStatus(cmd, db)
			}
			if err := database.Migrate(ctx, db); err != nil {
				return err
			}
			v, _ := database.Version(ctx, db)
			slog.Info("migrations applied", "version", v)
			return nil
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop every table and rebuild the schema",
	Long: `Roll back every migration, apply them again and seed the built-in
roles and administrator. Refused outside development unless --force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.IsDev() && !resetForce {
			return errors.New("reset is only available in development; pass --force to override")
		}
		return withDB(cmd, func(db *sql.DB) error {
			if err := database.Reset(cmd.Context(), db); err != nil {
				return err
			}
			slog.Info("database reset")
			return database.Seed(db, seedOptions(false))
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the built-in roles, the administrator and sample data",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(db *sql.DB) error {
			if err := database.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			if err := database.Seed(db, seedOptions(seedSample)); err != nil {
				return err
			}
			slog.Info("database seeded", "sample_data", seedSample)
			return nil
		})
	},
}

var genJWTKeyCmd = &cobra.Command{
	Use:   "gen-jwt-key",
	Short: "Print a random key for JWT_SECRET",
	// Runs without configuration.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := auth.GenerateSigningKey()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedSample, "sample", true, "also insert sample categories, posts and products")
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "allow reset outside development")
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "list migrations instead of applying them")
}

func printStatus(cmd *cobra.Command, db *sql.DB) error {
	list, err := database.Status(cmd.Context(), db)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tFILE\tAPPLIED")
	for _, m := range list {
		applied := "pending"
		if m.Applied {
			applied = m.AppliedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", m.Version, m.File, applied)
	}
	return tw.Flush()
}

func dbPool() database.Pool {
	p := database.DefaultPool
	p.MaxOpen = cfg.DBMaxConns
	if p.MaxIdle > p.MaxOpen {
		p.MaxIdle = p.MaxOpen
	}
	return p
}

func seedOptions(sample bool) database.SeedOptions {
	return database.SeedOptions{
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
		SampleData:    sample,
	}
}

// withDB connects to PostgreSQL, runs fn and closes the connection.
func withDB(cmd *cobra.Command, fn func(db *sql.DB) error) error {
	db, err := database.Connect(cmd.Context(), cfg.DSN(), dbPool())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	return fn(db)
}
