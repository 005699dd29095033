// internal/database/connection.go
package database

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sampledhq/sampled-backend/internal/config"
	"github.com/sampledhq/sampled-backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	} else {
		logrus.Info("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	err := db.AutoMigrate(
		&models.User{},
		&models.Wallet{},
		&models.WalletDeposit{},
		&models.Sample{},
		&models.PurchaseRecord{},
		&models.Earnings{},
		&models.CatalogStats{},
		&models.License{},
		&models.SampleLicenseIndex{},
		&models.OwnerLicenseIndex{},
		&models.LicenseHolding{},
		&models.ExclusiveRight{},
		&models.RoyaltyBalance{},
		&models.RoyaltyPayment{},
		&models.LedgerSettings{},
		&models.LedgerCounter{},
		&models.LedgerEvent{},
		&models.AuditLog{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logrus.Info("Database migrations completed successfully")
	return nil
}

// SeedInitialData creates the fixed admin account, the marketplace service
// account, and the singleton ledger rows. The admin account is established
// once; there is no mechanism to change it afterwards.
func SeedInitialData(db *gorm.DB, cfg *config.Config) error {
	logrus.Info("Seeding initial data...")

	admin, err := ensureUser(db, cfg.Ledger.AdminUsername, cfg.Ledger.AdminEmail,
		cfg.Ledger.AdminPassword, models.UserTypeAdmin)
	if err != nil {
		return fmt.Errorf("failed to seed admin account: %w", err)
	}

	marketplace, err := ensureUser(db, cfg.Ledger.MarketplaceUsername,
		cfg.Ledger.MarketplaceUsername+"@sampled.audio", "", models.UserTypeService)
	if err != nil {
		return fmt.Errorf("failed to seed marketplace account: %w", err)
	}

	// Singleton wiring row. The marketplace account still has to be
	// registered through set-marketplace before minting works.
	var settings models.LedgerSettings
	if err := db.First(&settings, "id = ?", 1).Error; err != nil {
		settings = models.LedgerSettings{ID: 1, AdminID: admin.ID}
		if err := db.Create(&settings).Error; err != nil {
			return fmt.Errorf("failed to create ledger settings: %w", err)
		}
	}

	for _, name := range []string{models.CounterLicenses, models.CounterSamples} {
		var counter models.LedgerCounter
		if err := db.First(&counter, "name = ?", name).Error; err != nil {
			if err := db.Create(&models.LedgerCounter{Name: name, Value: 0}).Error; err != nil {
				return fmt.Errorf("failed to create counter %s: %w", name, err)
			}
		}
	}

	var stats models.CatalogStats
	if err := db.First(&stats, "id = ?", 1).Error; err != nil {
		stats = models.CatalogStats{
			ID:                   1,
			TotalVolume:          models.ZeroAmount(),
			PlatformFeeCollected: models.ZeroAmount(),
		}
		if err := db.Create(&stats).Error; err != nil {
			return fmt.Errorf("failed to create catalog stats: %w", err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"admin":       admin.Username,
		"marketplace": marketplace.Username,
	}).Info("Initial data seeding completed")
	return nil
}

func ensureUser(db *gorm.DB, username, email, password string, userType models.UserType) (*models.User, error) {
	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err == nil {
		return &user, nil
	}

	user = models.User{
		Username: username,
		Email:    email,
		UserType: userType,
		Status:   models.UserStatusActive,
	}
	if password == "" {
		// Service accounts and dev admins get a random, unusable password.
		random, err := generateRandomPassword()
		if err != nil {
			return nil, err
		}
		password = random
	}
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func generateRandomPassword() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
