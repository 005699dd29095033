// internal/services/wallet_service_test.go
package services

import (
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sampledhq/sampled-backend/internal/config"
	"github.com/sampledhq/sampled-backend/internal/models"
)

type WalletTestSuite struct {
	suite.Suite
	db     *gorm.DB
	wallet *WalletService
	userID uuid.UUID
}

func (s *WalletTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)

	// One in-memory database per connection otherwise; pin the pool.
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	s.Require().NoError(db.AutoMigrate(
		&models.User{},
		&models.Wallet{},
		&models.WalletDeposit{},
		&models.LedgerEvent{},
	))

	s.db = db
	events := NewEventService(db)
	ledger := NewLedgerService(db, events)

	cfg := &config.Config{}
	cfg.Payment.MinimumPayoutCents = 100
	s.wallet = NewWalletService(db, cfg, ledger, events)

	user := &models.User{
		Username: "depositor",
		Email:    "depositor@example.com",
		UserType: models.UserTypeBuyer,
		Status:   models.UserStatusActive,
	}
	s.Require().NoError(user.SetPassword("TestPass123!"))
	s.Require().NoError(db.Create(user).Error)
	s.userID = user.ID
}

func (s *WalletTestSuite) fundWallet(amount uint64) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		_, err := creditWallet(tx, s.userID, models.NewAmount(amount))
		return err
	})
	s.Require().NoError(err)
}

func (s *WalletTestSuite) balance() string {
	var wallet models.Wallet
	s.Require().NoError(s.db.Where("user_id = ?", s.userID).First(&wallet).Error)
	return wallet.Balance.String()
}

func (s *WalletTestSuite) TestApplyDepositCreditsWallet() {
	wallet, err := s.wallet.applyDeposit(s.userID, "pi_test_1", 5000)
	s.Require().NoError(err)
	s.Equal("5000", wallet.Balance.String())

	var deposit models.WalletDeposit
	s.Require().NoError(s.db.Where("payment_intent_id = ?", "pi_test_1").First(&deposit).Error)
	s.Equal(s.userID, deposit.UserID)
	s.Equal(int64(5000), deposit.AmountCents)
}

func (s *WalletTestSuite) TestDepositReplayDoesNotDoubleCredit() {
	_, err := s.wallet.applyDeposit(s.userID, "pi_test_replay", 5000)
	s.Require().NoError(err)

	_, err = s.wallet.applyDeposit(s.userID, "pi_test_replay", 5000)
	s.ErrorIs(err, ErrDepositAlreadyConfirmed)
	s.Equal("5000", s.balance())

	_, err = s.wallet.applyDeposit(s.userID, "pi_test_other", 2000)
	s.Require().NoError(err)
	s.Equal("7000", s.balance())
}

func (s *WalletTestSuite) TestPayoutDebitsWallet() {
	s.fundWallet(500)

	wallet, err := s.wallet.RequestPayout(s.userID, &PayoutRequest{AmountCents: 300})
	s.Require().NoError(err)
	s.Equal("200", wallet.Balance.String())
}

func (s *WalletTestSuite) TestPayoutBelowMinimumRejected() {
	s.fundWallet(500)

	_, err := s.wallet.RequestPayout(s.userID, &PayoutRequest{AmountCents: 50})
	s.Error(err)
	s.Equal("500", s.balance())
}

func (s *WalletTestSuite) TestPayoutInsufficientFunds() {
	s.fundWallet(100)

	_, err := s.wallet.RequestPayout(s.userID, &PayoutRequest{AmountCents: 200})
	s.ErrorIs(err, ErrInsufficientFunds)
	s.Equal("100", s.balance())
}

func (s *WalletTestSuite) TestConcurrentPayoutsDoNotLoseADebit() {
	s.fundWallet(10000)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.wallet.RequestPayout(s.userID, &PayoutRequest{AmountCents: 6000})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	s.Equal(1, succeeded)
	s.Equal("4000", s.balance())
}

func TestWalletTestSuite(t *testing.T) {
	suite.Run(t, new(WalletTestSuite))
}
