// internal/models/license.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// LicenseType is the tier of usage rights a license grants over a sample.
type LicenseType uint8

const (
	// Personal use only - demos, personal projects, non-commercial
	LicenseTypePersonal LicenseType = 0
	// Commercial use - releases, licensee keeps 100% of their royalties
	LicenseTypeCommercial LicenseType = 1
	// Broadcast use - TV, radio, streaming platforms, advertisements
	LicenseTypeBroadcast LicenseType = 2
	// Exclusive rights - sample removed from the marketplace after purchase
	LicenseTypeExclusive LicenseType = 3
)

// ParseLicenseType decodes a wire-level type code. The second return is
// false for unknown codes.
func ParseLicenseType(code uint8) (LicenseType, bool) {
	switch LicenseType(code) {
	case LicenseTypePersonal, LicenseTypeCommercial, LicenseTypeBroadcast, LicenseTypeExclusive:
		return LicenseType(code), true
	default:
		return 0, false
	}
}

func (t LicenseType) String() string {
	switch t {
	case LicenseTypePersonal:
		return "personal"
	case LicenseTypeCommercial:
		return "commercial"
	case LicenseTypeBroadcast:
		return "broadcast"
	case LicenseTypeExclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}

// PriceMultiplier is the license price as a percentage of the sample's base
// price (100 = 1x).
func (t LicenseType) PriceMultiplier() uint64 {
	switch t {
	case LicenseTypeCommercial:
		return 250
	case LicenseTypeBroadcast:
		return 500
	case LicenseTypeExclusive:
		return 2000
	default:
		return 100
	}
}

// License is a usage-rights record over a sample. Created exactly once by
// mint, mutated only by transfer (owner, transfer count), never deleted.
// CurrentOwnerID is the sole ground truth for ownership; the owner index is
// a denormalization reconciled against it on read.
type License struct {
	ID                uint64      `json:"license_id" gorm:"primaryKey;autoIncrement:false"`
	SampleID          uint64      `json:"sample_id" gorm:"not null;index"`
	LicenseType       LicenseType `json:"license_type" gorm:"not null"`
	OriginalCreatorID uuid.UUID   `json:"original_creator_id" gorm:"type:uuid;not null;index"`
	CurrentOwnerID    uuid.UUID   `json:"current_owner_id" gorm:"type:uuid;not null;index"`
	PurchasePrice     Amount      `json:"purchase_price" gorm:"not null"`
	PurchaseTimestamp time.Time   `json:"purchase_timestamp"`
	IsActive          bool        `json:"is_active" gorm:"default:true"`
	TransferCount     uint64      `json:"transfer_count" gorm:"default:0"`
}

// SampleLicenseInfo summarizes the licenses issued for one sample.
type SampleLicenseInfo struct {
	TotalLicenses   uint64     `json:"total_licenses"`
	PersonalCount   uint64     `json:"personal_count"`
	CommercialCount uint64     `json:"commercial_count"`
	BroadcastCount  uint64     `json:"broadcast_count"`
	HasExclusive    bool       `json:"has_exclusive"`
	ExclusiveHolder *uuid.UUID `json:"exclusive_holder,omitempty"`
}
