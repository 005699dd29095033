// internal/models/event.go
package models

import "time"

// LedgerEvent is an append-only record of a state change, consumed by
// off-chain indexers through the events feed. Payloads are self-contained:
// an indexer can reconstruct the change without re-querying the ledger.
type LedgerEvent struct {
	ID        uint64    `json:"id" gorm:"primaryKey"`
	Type      string    `json:"type" gorm:"size:64;not null;index"`
	Payload   JSONB     `json:"payload" gorm:"type:jsonb"`
	Hash      string    `json:"hash" gorm:"size:64"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// Event type names.
const (
	EventLicenseMinted      = "license.minted"
	EventLicenseTransferred = "license.transferred"
	EventRoyaltyPaid        = "royalty.paid"
	EventRoyaltiesWithdrawn = "royalty.withdrawn"
	EventExclusiveActivated = "license.exclusive_activated"
	EventSampleUploaded     = "sample.uploaded"
	EventSamplePurchased    = "sample.purchased"
	EventSampleDeactivated  = "sample.deactivated"
	EventPriceUpdated       = "sample.price_updated"
	EventEarningsWithdrawn  = "earnings.withdrawn"
)
