package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/schemafence/schemafence/internal/db"
	"github.com/schemafence/schemafence/internal/dbpool"
)

// newMigrateCmd applies registry migrations and exits. Only DATABASE_URL
// is needed, so a migration job can run without the full server config.
func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply registry schema migrations",
		RunE: func(*cobra.Command, []string) error {
			return runMigrate()
		},
	}
}

func runMigrate() error {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	log := logrus.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := dbpool.NewPool(ctx, dbURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	return db.RunMigrations(ctx, pool, log, db.Migrations())
}
