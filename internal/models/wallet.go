// internal/models/wallet.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet is a user's on-platform balance. Payable ledger operations debit
// it by the declared payment amount; sale proceeds and fees credit it.
type Wallet struct {
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey"`
	Balance   Amount    `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WalletDeposit records a consumed payment intent. The unique index makes
// confirming the same intent twice a no-op instead of a double credit.
type WalletDeposit struct {
	BaseModel
	UserID          uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	PaymentIntentID string    `json:"payment_intent_id" gorm:"size:255;uniqueIndex;not null"`
	AmountCents     int64     `json:"amount_cents" gorm:"not null"`
}
