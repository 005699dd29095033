// internal/models/ledger.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// TombstoneLicenseID marks an owner-index slot as logically removed. License
// ids start at 1, so 0 is never a real license.
const TombstoneLicenseID uint64 = 0

// SampleLicenseIndex is the append-only per-sample issuance history:
// (sample, position) -> license id. Entries are never removed or rewritten.
type SampleLicenseIndex struct {
	SampleID  uint64 `gorm:"primaryKey;autoIncrement:false"`
	Position  uint64 `gorm:"primaryKey;autoIncrement:false"`
	LicenseID uint64 `gorm:"not null"`
}

// OwnerLicenseIndex is the per-owner acquisition history: (owner, position)
// -> license id. On transfer-away the slot is tombstoned (license id set to
// 0) rather than deleted, so positions keep their meaning. Enumeration must
// skip tombstones and re-check License.CurrentOwnerID.
type OwnerLicenseIndex struct {
	OwnerID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Position  uint64    `gorm:"primaryKey;autoIncrement:false"`
	LicenseID uint64    `gorm:"not null"`
}

// LicenseHolding is the duplicate-license guard: at most one active license
// of a given type per (owner, sample). Cleared on transfer-away, set on mint
// and transfer-to.
type LicenseHolding struct {
	OwnerID     uuid.UUID   `gorm:"type:uuid;primaryKey"`
	SampleID    uint64      `gorm:"primaryKey;autoIncrement:false"`
	LicenseType LicenseType `gorm:"primaryKey;autoIncrement:false"`
	Holds       bool        `gorm:"not null"`
	LicenseID   uint64      `gorm:"not null"`
}

// ExclusiveRight records that a sample is exclusively licensed. The row is
// written in the same transaction as the exclusive license itself, so there
// is no observable state with a flag but no holder.
type ExclusiveRight struct {
	SampleID  uint64    `gorm:"primaryKey;autoIncrement:false"`
	LicenseID uint64    `gorm:"not null"`
	HolderID  uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time
}

// RoyaltyBalance accrues resale royalties for an original creator.
// Invariant: LifetimeTotal >= Withdrawable; the difference is the total ever
// withdrawn.
type RoyaltyBalance struct {
	CreatorID     uuid.UUID `json:"creator_id" gorm:"type:uuid;primaryKey"`
	Withdrawable  Amount    `json:"withdrawable"`
	LifetimeTotal Amount    `json:"lifetime_total"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RoyaltyPayment is the per-transfer record of how a resale was split.
type RoyaltyPayment struct {
	ID             uint64    `json:"id" gorm:"primaryKey"`
	LicenseID      uint64    `json:"license_id" gorm:"not null;index"`
	FromID         uuid.UUID `json:"from_id" gorm:"type:uuid;not null"`
	ToID           uuid.UUID `json:"to_id" gorm:"type:uuid;not null"`
	SalePrice      Amount    `json:"sale_price"`
	CreatorRoyalty Amount    `json:"creator_royalty"`
	PlatformFee    Amount    `json:"platform_fee"`
	CreatorID      uuid.UUID `json:"creator_id" gorm:"type:uuid;not null;index"`
	CreatedAt      time.Time `json:"created_at"`
}

// LedgerSettings is the singleton wiring row: the fixed admin account and
// the marketplace account authorized to mint. MarketplaceID is nil until an
// admin registers it.
type LedgerSettings struct {
	ID            uint8      `gorm:"primaryKey;autoIncrement:false"`
	AdminID       uuid.UUID  `gorm:"type:uuid;not null"`
	MarketplaceID *uuid.UUID `gorm:"type:uuid"`
	UpdatedAt     time.Time
}

// LedgerCounter allocates monotonically increasing ids (licenses, samples).
// Values start at 0; the first allocated id is 1. Ids are never reused.
type LedgerCounter struct {
	Name  string `gorm:"primaryKey;size:32"`
	Value uint64 `gorm:"not null"`
}

const (
	CounterLicenses = "licenses"
	CounterSamples  = "samples"
)
