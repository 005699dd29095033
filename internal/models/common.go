// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields for uuid-keyed entities
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:(gen_random_uuid())"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// BeforeCreate assigns an id when the database has no uuid default (sqlite in tests).
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL (stored as plain TEXT on sqlite)
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserType string

const (
	UserTypeProducer UserType = "producer"
	UserTypeBuyer    UserType = "buyer"
	UserTypeAdmin    UserType = "admin"
	UserTypeService  UserType = "service" // internal accounts (marketplace caller)
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"
)

// Validation limits for sample metadata, matching the on-catalog caps.
const (
	MaxTitleLength        = 100
	MaxIpfsLinkLength     = 256
	MaxCoverImageLength   = 256
	MaxGenreLength        = 30
	MaxVideoPreviewLength = 256
)

// Primary-sale platform fee (10%) applied by the catalog.
const (
	PlatformFeeNumerator   = 10
	PlatformFeeDenominator = 100
)

// Resale split applied by the license ledger: 10% of the sale price to the
// original creator, 2% to the platform, computed independently with
// truncating division.
const (
	CreatorRoyaltyPercent    = 10
	ResalePlatformFeePercent = 2
)
