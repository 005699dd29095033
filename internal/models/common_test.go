// internal/models/common_test.go
package models

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// The uuid column default must stay a parenthesized expression so the
// generated DDL is valid on both PostgreSQL and SQLite.
func TestBaseModelMigratesAndAssignsID(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&User{}, &AuditLog{}, &WalletDeposit{}))

	user := User{
		Username:     "migrator",
		Email:        "migrator@example.com",
		PasswordHash: "x",
		UserType:     UserTypeBuyer,
		Status:       UserStatusActive,
	}
	require.NoError(t, db.Create(&user).Error)
	assert.NotEqual(t, uuid.Nil, user.ID)
}
