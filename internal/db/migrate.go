package db

import (
	"context"                         // Context for the bootstrap update
	"scorekeeper/internal/config"     // Configuration
	"scorekeeper/internal/domain"     // Importing domain models
	"scorekeeper/internal/repository" // Store and schema
	"strings"                         // Email normalization

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Migrate performs automatic migration for the database schema and promotes
// the bootstrap admin when configured
func Migrate(cfg *config.Config) {
	db, err := Open(cfg) // Open a connection to the database
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err) // Log fatal error if connection fails
	}
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := repository.AutoMigrate(db); err != nil {
		logrus.Fatalf("migration failed: %v", err) // Log fatal error if migration fails
	}
	logrus.Info("Migration completed.") // Log successful migration

	if cfg.BootstrapAdminEmail == "" {
		return
	}
	email := strings.ToLower(strings.TrimSpace(cfg.BootstrapAdminEmail))
	if err := PromoteAdmin(context.Background(), repository.NewGormStore(db), email); err != nil {
		logrus.WithFields(logrus.Fields{"email": email, "error": err.Error()}).Error("Admin bootstrap failed")
		return
	}
	logrus.WithField("email", email).Info("Admin bootstrap completed.")
}

// PromoteAdmin grants the admin role to the user registered with email
func PromoteAdmin(ctx context.Context, store repository.Store, email string) error {
	user, err := store.Users().GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return store.Users().SetRole(ctx, user.ID, domain.RoleAdmin)
}
