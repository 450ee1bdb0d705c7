// Package db provides database connection, migrations and the gorm-backed
// stores of proposals, votes, summaries, activities and notifications.
package db

import (
	"fmt"
	"time"

	"governance-analytics/internal/config"
	"governance-analytics/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens a database connection using the provided configuration.
// It returns nil, nil when no database is configured.
func Open(cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	if cfg.DBDialect == "" || cfg.DBDsn == "" {
		return nil, nil
	}

	// Only slow queries and errors reach the process log
	gormLogger := logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	switch cfg.DBDialect {
	case config.DatabaseSchemePostgres:
		return gorm.Open(postgres.Open(cfg.DBDsn), &gorm.Config{Logger: gormLogger})
	default:
		return nil, fmt.Errorf("unsupported DB_DIALECT: %s", cfg.DBDialect)
	}
}

// AutoMigrate runs database migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&models.Proposal{},
		&models.Vote{},
		&models.VoteSummary{},
		&models.Activity{},
		&models.UserStats{},
		&models.Notification{},
	)
}
