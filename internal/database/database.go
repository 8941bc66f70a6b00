// Package database opens the feed's PostgreSQL connection and keeps its
// schema in step with the models.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fitprove/internal/config"
	"fitprove/internal/models"
	"fitprove/internal/observability"

	"github.com/cenkalti/backoff/v5"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
	connectAttempts = 5
)

// DSN builds the PostgreSQL connection string for cfg.
func DSN(cfg *config.Config) string {
	sslMode := cfg.DBSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, sslMode)
}

// Connect opens the database, retrying while the server comes up. Outside
// production the feed tables are auto-migrated.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: NewQueryLogger(observability.Logger, logger.Warn)}

	open := func() (*gorm.DB, error) {
		db, err := gorm.Open(postgres.Open(DSN(cfg)), gcfg)
		if err != nil {
			observability.Logger.Warn("Database not ready", slog.String("error", err.Error()))
			return nil, err
		}
		return db, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	db, err := backoff.Retry(context.Background(), open,
		backoff.WithBackOff(b), backoff.WithMaxTries(connectAttempts))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	observability.Logger.Info("Database connected",
		slog.String("host", cfg.DBHost), slog.String("name", cfg.DBName))

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(maxOpenConns)
		sqlDB.SetMaxIdleConns(maxIdleConns)
		sqlDB.SetConnMaxLifetime(connMaxLifetime)
	}

	if !cfg.IsProduction() {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Migrate creates or updates the feed tables.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Profile{},
		&models.Post{},
		&models.Comment{},
		&models.Reaction{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Ping checks that the connection is alive.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
