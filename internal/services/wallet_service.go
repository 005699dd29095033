// internal/services/wallet_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"gorm.io/gorm"

	"github.com/sampledhq/sampled-backend/internal/config"
	"github.com/sampledhq/sampled-backend/internal/models"
)

// WalletService manages on-platform balances. Deposits arrive through
// Stripe; ledger operations move value between wallets inside their own
// transactions via the tx-scoped credit/debit helpers. All wallet
// mutations serialize behind the ledger mutex, since transfers touch the
// same rows.
type WalletService struct {
	db     *gorm.DB
	config *config.Config
	ledger *LedgerService
	events *EventService
}

type DepositRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"required,min=100"`
	Currency    string `json:"currency,omitempty"`
}

type DepositIntentResponse struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
	AmountCents     int64  `json:"amount_cents"`
}

type ConfirmDepositRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

type PayoutRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"required,min=1"`
	Method      string `json:"method,omitempty"`
}

func NewWalletService(db *gorm.DB, cfg *config.Config, ledger *LedgerService, events *EventService) *WalletService {
	stripe.Key = cfg.Payment.StripeSecretKey
	return &WalletService{
		db:     db,
		config: cfg,
		ledger: ledger,
		events: events,
	}
}

// CreateDepositIntent starts a Stripe payment that will fund the user's
// wallet once confirmed.
func (s *WalletService) CreateDepositIntent(userID uuid.UUID, req *DepositRequest) (*DepositIntentResponse, error) {
	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(currency),
	}
	params.AddMetadata("user_id", userID.String())
	params.AddMetadata("purpose", "wallet_deposit")

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &DepositIntentResponse{
		PaymentIntentID: pi.ID,
		ClientSecret:    pi.ClientSecret,
		AmountCents:     req.AmountCents,
	}, nil
}

// ConfirmDeposit credits the wallet after Stripe reports the payment
// succeeded. Each intent is recorded on first use, so replaying the same
// payment_intent_id cannot credit the wallet twice.
func (s *WalletService) ConfirmDeposit(userID uuid.UUID, req *ConfirmDepositRequest) (*models.Wallet, error) {
	pi, err := paymentintent.Get(req.PaymentIntentID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment intent: %w", err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, fmt.Errorf("payment not completed: %s", pi.Status)
	}
	if pi.Metadata["user_id"] != userID.String() {
		return nil, ErrUnauthorized
	}

	wallet, err := s.applyDeposit(userID, pi.ID, pi.Amount)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":      userID,
		"amount_cents": pi.Amount,
	}).Info("Wallet deposit confirmed")

	return wallet, nil
}

// applyDeposit consumes a payment intent and credits the wallet in one
// transaction.
func (s *WalletService) applyDeposit(userID uuid.UUID, intentID string, amountCents int64) (*models.Wallet, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()

	var wallet *models.Wallet
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.WalletDeposit
		err := tx.Where("payment_intent_id = ?", intentID).First(&existing).Error
		if err == nil {
			return ErrDepositAlreadyConfirmed
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check deposit: %w", err)
		}

		deposit := models.WalletDeposit{
			UserID:          userID,
			PaymentIntentID: intentID,
			AmountCents:     amountCents,
		}
		if err := tx.Create(&deposit).Error; err != nil {
			return fmt.Errorf("failed to record deposit: %w", err)
		}

		w, err := creditWallet(tx, userID, models.NewAmount(uint64(amountCents)))
		if err != nil {
			return err
		}
		wallet = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// RequestPayout debits the wallet for an off-platform payout. The transfer
// itself runs through the payment processor out of band; this only reserves
// the funds.
func (s *WalletService) RequestPayout(userID uuid.UUID, req *PayoutRequest) (*models.Wallet, error) {
	if req.AmountCents < s.config.Payment.MinimumPayoutCents {
		return nil, fmt.Errorf("minimum payout is %d cents", s.config.Payment.MinimumPayoutCents)
	}

	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()

	var wallet *models.Wallet
	err := s.db.Transaction(func(tx *gorm.DB) error {
		w, err := debitWallet(tx, userID, models.NewAmount(uint64(req.AmountCents)))
		if err != nil {
			return err
		}
		wallet = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":      userID,
		"amount_cents": req.AmountCents,
		"method":       req.Method,
	}).Info("Payout requested")

	return wallet, nil
}

// GetWallet returns the user's wallet, creating an empty one on first read.
func (s *WalletService) GetWallet(userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := s.db.Where("user_id = ?", userID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		wallet = models.Wallet{
			UserID:    userID,
			Balance:   models.ZeroAmount(),
			UpdatedAt: time.Now(),
		}
		if err := s.db.Create(&wallet).Error; err != nil {
			return nil, fmt.Errorf("failed to create wallet: %w", err)
		}
		return &wallet, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch wallet: %w", err)
	}
	return &wallet, nil
}

// creditWallet adds to a balance inside the caller's transaction, creating
// the wallet row if needed.
func creditWallet(tx *gorm.DB, userID uuid.UUID, amount models.Amount) (*models.Wallet, error) {
	var wallet models.Wallet
	err := tx.Where("user_id = ?", userID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		wallet = models.Wallet{
			UserID:  userID,
			Balance: models.ZeroAmount(),
		}
		if err := tx.Create(&wallet).Error; err != nil {
			return nil, fmt.Errorf("failed to create wallet: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to fetch wallet: %w", err)
	}

	wallet.Balance = wallet.Balance.Add(amount)
	wallet.UpdatedAt = time.Now()
	if err := tx.Save(&wallet).Error; err != nil {
		return nil, fmt.Errorf("failed to update wallet: %w", err)
	}
	return &wallet, nil
}

// debitWallet subtracts from a balance inside the caller's transaction.
// Returns ErrInsufficientFunds when the balance does not cover the amount.
func debitWallet(tx *gorm.DB, userID uuid.UUID, amount models.Amount) (*models.Wallet, error) {
	var wallet models.Wallet
	err := tx.Where("user_id = ?", userID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInsufficientFunds
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch wallet: %w", err)
	}

	newBalance, err := wallet.Balance.Sub(amount)
	if err != nil {
		return nil, ErrInsufficientFunds
	}

	wallet.Balance = newBalance
	wallet.UpdatedAt = time.Now()
	if err := tx.Save(&wallet).Error; err != nil {
		return nil, fmt.Errorf("failed to update wallet: %w", err)
	}
	return &wallet, nil
}
