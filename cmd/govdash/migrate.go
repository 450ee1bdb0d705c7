package main

import (
	"errors"
	"fmt"
	"os"

	"governance-analytics/internal/config"

	dbpkg "governance-analytics/internal/db"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE:  migrateRun,
}

func migrateRun(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	log := newLogger(cfg, os.Stdout)
	defer func() { _ = log.Sync() }()

	gormDB, err := dbpkg.Open(cfg, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if gormDB == nil {
		return errors.New("DATABASE_URL is required")
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}

	if err := dbpkg.AutoMigrate(gormDB); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info("Migrations applied")
	return nil
}
