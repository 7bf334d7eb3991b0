// Package repository provides the data access layer using GORM.
package repository

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lifedrop/donorhub/internal/config"
	"github.com/lifedrop/donorhub/internal/models"
	"github.com/lifedrop/donorhub/pkg/logger"
)

// DB holds the database connection.
type DB struct {
	*gorm.DB
}

// NewDB creates a new database connection.
func NewDB(cfg *config.PostgresConfig, log *logger.Logger) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Database,
		cfg.SSLMode,
	)

	var gormLogLevel gormlogger.LogLevel
	switch log.GetLogger().GetLevel() {
	case 0: // debug
		gormLogLevel = gormlogger.Info
	default:
		gormLogLevel = gormlogger.Warn
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormLogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("Connected to PostgreSQL")

	return &DB{db}, nil
}

// AutoMigrate runs GORM schema migration for all models. Used for local
// development and sqlite-backed tests; production schemas are managed by the
// SQL migrations in migrate.go.
func (db *DB) AutoMigrate() error {
	return db.DB.AutoMigrate(
		&models.User{},
		&models.Badge{},
		&models.UserBadge{},
		&models.BloodBank{},
		&models.BloodInventory{},
		&models.Donation{},
		&models.DonationStatusChange{},
		&models.BloodRequest{},
		&models.DonorResponse{},
		&models.DailyDonationStats{},
	)
}

// SeedBadges inserts the built-in badge catalog, skipping keys that already
// exist.
func (db *DB) SeedBadges() error {
	for _, badge := range models.BadgeCatalog {
		var count int64
		if err := db.Model(&models.Badge{}).Where("key = ?", badge.Key).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check badge %s: %w", badge.Key, err)
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&badge).Error; err != nil {
			return fmt.Errorf("failed to seed badge %s: %w", badge.Key, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health checks if the database is healthy.
func (db *DB) Health() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
