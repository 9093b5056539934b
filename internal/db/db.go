package db

import (
	"fmt"                         // Error formatting
	"scorekeeper/internal/config" // Configuration
	"time"                        // Pool lifetimes

	"gorm.io/driver/mysql"    // MySQL driver for GORM
	"gorm.io/driver/postgres" // Postgres driver for GORM
	"gorm.io/gorm"            // GORM ORM library
	"gorm.io/gorm/logger"     // GORM logger
)

// Open connects to the configured SQL database
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "mysql":
		dialector = mysql.Open(cfg.MySQLDSN()) // MySQL connection
	case "postgres":
		dialector = postgres.Open(cfg.PostgresDSN()) // Postgres connection
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	logLevel := logger.Warn // Only slow queries and errors in production
	if !cfg.IsProd {
		logLevel = logger.Info // SQL echo while developing
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true, // Surface duplicate keys as gorm.ErrDuplicatedKey
		Logger:         logger.Default.LogMode(logLevel),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB() // Underlying pool
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}
