// internal/models/sample.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Sample is a catalog listing for an audio sample. The audio itself lives on
// IPFS (or S3 for previews); the catalog holds metadata, price and the
// active flag consumed by the license ledger.
type Sample struct {
	ID               uint64         `json:"sample_id" gorm:"primaryKey;autoIncrement:false"`
	SellerID         uuid.UUID      `json:"seller_id" gorm:"type:uuid;not null;index"`
	Price            Amount         `json:"price" gorm:"not null"`
	IpfsLink         string         `json:"ipfs_link" gorm:"size:256;not null"`
	Title            string         `json:"title" gorm:"size:100;not null"`
	BPM              uint64         `json:"bpm"`
	Genre            string         `json:"genre" gorm:"size:30"`
	Tags             pq.StringArray `json:"tags" gorm:"type:text[]"`
	CoverImage       string         `json:"cover_image" gorm:"size:256"`
	VideoPreviewLink string         `json:"video_preview_link" gorm:"size:256"`
	TotalSales       uint64         `json:"total_sales" gorm:"default:0"`
	IsActive         bool           `json:"is_active" gorm:"default:true"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`

	Seller User `json:"seller,omitempty" gorm:"foreignKey:SellerID"`
}

// PurchaseRecord tracks an outright sample purchase (full access, distinct
// from a usage license).
type PurchaseRecord struct {
	BuyerID   uuid.UUID `json:"buyer_id" gorm:"type:uuid;primaryKey"`
	SampleID  uint64    `json:"sample_id" gorm:"primaryKey;autoIncrement:false"`
	SellerID  uuid.UUID `json:"seller_id" gorm:"type:uuid;not null"`
	Price     Amount    `json:"price" gorm:"not null"`
	IpfsLink  string    `json:"ipfs_link" gorm:"size:256"`
	CreatedAt time.Time `json:"created_at"`
}

// Earnings holds a seller's withdrawable proceeds from primary sales plus
// lifetime totals. Withdrawable is zeroed on withdrawal; LifetimeEarned only
// grows.
type Earnings struct {
	UserID         uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey"`
	Withdrawable   Amount    `json:"withdrawable"`
	LifetimeEarned Amount    `json:"lifetime_earned"`
	LifetimeSpent  Amount    `json:"lifetime_spent"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CatalogStats is a singleton row of marketplace-wide totals.
type CatalogStats struct {
	ID                   uint8     `json:"-" gorm:"primaryKey;autoIncrement:false"`
	TotalVolume          Amount    `json:"total_volume"`
	PlatformFeeCollected Amount    `json:"platform_fee_collected"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// UserStats aggregates a user's marketplace activity for the stats endpoint.
type UserStats struct {
	UploadedCount  int64  `json:"uploaded_count"`
	PurchasedCount int64  `json:"purchased_count"`
	Earnings       Amount `json:"earnings"`
	TotalEarned    Amount `json:"total_earned"`
	TotalSpent     Amount `json:"total_spent"`
}
