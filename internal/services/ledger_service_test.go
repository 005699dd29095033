// internal/services/ledger_service_test.go
package services

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sampledhq/sampled-backend/internal/models"
)

type LedgerTestSuite struct {
	suite.Suite
	db          *gorm.DB
	events      *EventService
	ledger      *LedgerService
	adminID     uuid.UUID
	marketplace uuid.UUID
	creatorID   uuid.UUID
	aliceID     uuid.UUID
	bobID       uuid.UUID
}

func (s *LedgerTestSuite) SetupTest() {
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
	))

	s.db = db
	s.events = NewEventService(db)
	s.ledger = NewLedgerService(db, s.events)

	s.adminID = s.createUser("admin", models.UserTypeAdmin)
	s.marketplace = s.createUser("marketplace", models.UserTypeService)
	s.creatorID = s.createUser("creator", models.UserTypeProducer)
	s.aliceID = s.createUser("alice", models.UserTypeBuyer)
	s.bobID = s.createUser("bob", models.UserTypeBuyer)

	s.Require().NoError(db.Create(&models.LedgerSettings{ID: 1, AdminID: s.adminID}).Error)
	s.Require().NoError(db.Create(&models.LedgerCounter{Name: models.CounterLicenses, Value: 0}).Error)
	s.Require().NoError(db.Create(&models.LedgerCounter{Name: models.CounterSamples, Value: 0}).Error)
}

func (s *LedgerTestSuite) createUser(name string, userType models.UserType) uuid.UUID {
	user := &models.User{
		Username: name,
		Email:    name + "@example.com",
		UserType: userType,
		Status:   models.UserStatusActive,
	}
	s.Require().NoError(user.SetPassword("TestPass123!"))
	s.Require().NoError(s.db.Create(user).Error)
	return user.ID
}

func (s *LedgerTestSuite) registerMarketplace() {
	s.Require().NoError(s.ledger.SetMarketplace(s.adminID, s.marketplace))
}

func (s *LedgerTestSuite) fundWallet(userID uuid.UUID, amount uint64) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		_, err := creditWallet(tx, userID, models.NewAmount(amount))
		return err
	})
	s.Require().NoError(err)
}

func (s *LedgerTestSuite) walletBalance(userID uuid.UUID) string {
	var wallet models.Wallet
	s.Require().NoError(s.db.Where("user_id = ?", userID).First(&wallet).Error)
	return wallet.Balance.String()
}

func (s *LedgerTestSuite) mint(buyer uuid.UUID, sampleID uint64, code uint8) (*models.License, error) {
	return s.ledger.Mint(s.marketplace, &MintRequest{
		SampleID:        sampleID,
		LicenseTypeCode: code,
		BuyerID:         buyer,
		CreatorID:       s.creatorID,
		PricePaid:       models.NewAmount(1000),
	})
}

func (s *LedgerTestSuite) TestMintRequiresRegisteredMarketplace() {
	_, err := s.mint(s.aliceID, 1, 0)
	s.ErrorIs(err, ErrMarketplaceNotSet)
}

func (s *LedgerTestSuite) TestMintRejectsNonMarketplaceCaller() {
	s.registerMarketplace()

	_, err := s.ledger.Mint(s.aliceID, &MintRequest{
		SampleID:        1,
		LicenseTypeCode: 0,
		BuyerID:         s.aliceID,
		CreatorID:       s.creatorID,
		PricePaid:       models.NewAmount(1000),
	})
	s.ErrorIs(err, ErrUnauthorized)
}

func (s *LedgerTestSuite) TestMintRejectsUnknownLicenseType() {
	s.registerMarketplace()

	_, err := s.mint(s.aliceID, 1, 99)
	s.ErrorIs(err, ErrInvalidLicenseType)
}

func (s *LedgerTestSuite) TestMintAssignsSequentialIDs() {
	s.registerMarketplace()

	first, err := s.mint(s.aliceID, 1, uint8(models.LicenseTypePersonal))
	s.Require().NoError(err)
	s.Equal(uint64(1), first.ID)

	second, err := s.mint(s.bobID, 1, uint8(models.LicenseTypePersonal))
	s.Require().NoError(err)
	s.Equal(uint64(2), second.ID)

	count, err := s.ledger.GetLicenseCount()
	s.Require().NoError(err)
	s.Equal(uint64(2), count)
}

func (s *LedgerTestSuite) TestMintUpdatesIndicesAndGuard() {
	s.registerMarketplace()

	license, err := s.mint(s.aliceID, 7, uint8(models.LicenseTypeCommercial))
	s.Require().NoError(err)

	bySample, err := s.ledger.GetLicensesBySample(7)
	s.Require().NoError(err)
	s.Require().Len(bySample, 1)
	s.Equal(license.ID, bySample[0].ID)

	byOwner, err := s.ledger.GetLicensesByOwner(s.aliceID)
	s.Require().NoError(err)
	s.Require().Len(byOwner, 1)
	s.Equal(license.ID, byOwner[0].ID)

	has, err := s.ledger.HasLicense(s.aliceID, 7, models.LicenseTypeCommercial)
	s.Require().NoError(err)
	s.True(has)

	has, err = s.ledger.HasLicense(s.aliceID, 7, models.LicenseTypePersonal)
	s.Require().NoError(err)
	s.False(has)
}

func (s *LedgerTestSuite) TestDuplicateLicenseTypeRejectedWithoutMutation() {
	s.registerMarketplace()

	_, err := s.mint(s.aliceID, 1, uint8(models.LicenseTypePersonal))
	s.Require().NoError(err)

	_, err = s.mint(s.aliceID, 1, uint8(models.LicenseTypePersonal))
	s.ErrorIs(err, ErrAlreadyHasLicenseType)

	// The failed call must leave no trace: the counter and indices are
	// unchanged.
	count, err := s.ledger.GetLicenseCount()
	s.Require().NoError(err)
	s.Equal(uint64(1), count)

	sampleCount, err := s.ledger.GetSampleLicenseCount(1)
	s.Require().NoError(err)
	s.Equal(uint64(1), sampleCount)

	// A different type for the same sample is fine.
	_, err = s.mint(s.aliceID, 1, uint8(models.LicenseTypeCommercial))
	s.NoError(err)
}

func (s *LedgerTestSuite) TestExclusiveForeclosesAllMinting() {
	s.registerMarketplace()

	_, err := s.mint(s.aliceID, 1, uint8(models.LicenseTypeExclusive))
	s.Require().NoError(err)

	exclusive, err := s.ledger.IsExclusivelyLicensed(1)
	s.Require().NoError(err)
	s.True(exclusive)

	holder, err := s.ledger.GetExclusiveHolder(1)
	s.Require().NoError(err)
	s.Require().NotNil(holder)
	s.Equal(s.aliceID, *holder)

	// No further license of any type, for any buyer.
	_, err = s.mint(s.bobID, 1, uint8(models.LicenseTypePersonal))
	s.ErrorIs(err, ErrSampleExclusivelyLicensed)
	_, err = s.mint(s.bobID, 1, uint8(models.LicenseTypeExclusive))
	s.ErrorIs(err, ErrSampleExclusivelyLicensed)

	// Other samples are unaffected.
	_, err = s.mint(s.bobID, 2, uint8(models.LicenseTypePersonal))
	s.NoError(err)
}

func (s *LedgerTestSuite) TestExclusiveLicenseNotTransferable() {
	s.registerMarketplace()

	license, err := s.mint(s.aliceID, 1, uint8(models.LicenseTypeExclusive))
	s.Require().NoError(err)

	s.fundWallet(s.aliceID, 10000)
	_, err = s.ledger.Transfer(s.aliceID, &TransferRequest{
		LicenseID: license.ID,
		ToID:      s.bobID,
		SalePrice: models.NewAmount(1000),
		Payment:   models.NewAmount(1120),
	})
	s.ErrorIs(err, ErrExclusiveNotTransferable)
}

func (s *LedgerTestSuite) TestTransferPaymentMath() {
	s.registerMarketplace()

	license, err := s.mint(s.aliceID, 1, uint8(models.LicenseTypeCommercial))
	s.Require().NoError(err)

	s.fundWallet(s.aliceID, 2000)

	// Required total for sale price 1000 is 1000 + 100 + 20 = 1120.
	_, err = s.ledger.Transfer(s.aliceID, &TransferRequest{
		LicenseID: license.ID,
		ToID:      s.bobID,
		SalePrice: models.NewAmount(1000),
		Payment:   models.NewAmount(1119),
	})
	s.ErrorIs(err, ErrInsufficientPayment)

	transferred, err := s.ledger.Transfer(s.aliceID, &TransferRequest{
		LicenseID: license.ID,
		ToID:      s.bobID,
		SalePrice: models.NewAmount(1000),
		Payment:   models.NewAmount(1120),
	})
	s.Require().NoError(err)
	s.Equal(s.bobID, transferred.CurrentOwnerID)
	s.Equal(uint64(1), transferred.TransferCount)

	// Alice paid 1120 and received the 1000 sale price back.
	s.Equal("1880", s.walletBalance(s.aliceID))

	// The creator accrued the 10% royalty.
	royalty, err := s.ledger.GetRoyaltyEarnings(s.creatorID)
	s.Require().NoError(err)
	s.Equal("100", royalty.String())

	// The platform account collected the 2% fee.
	s.Equal("20", s.walletBalance(s.adminID))
}

func (s *LedgerTestSuite) TestTransferOverpaymentStaysWithPlatform() {
	s.registerMarketplace()

	license, err := s.mint(s.aliceID, 1, uint8(models.LicenseTypePersonal))
	s.Require().NoError(err)

	s.fundWallet(s.aliceID, 2000)
	_, err = s.ledger.Transfer(s.aliceID, &TransferRequest{
		LicenseID: license.ID,
		ToID:      s.bobID,
		SalePrice: models.NewAmount(1000),
		Payment:   models.NewAmount(1500),
	})
	s.Require().NoError(err)

	// 2% fee plus the 380 paid above the required total.
	s.Equal("400", s.walletBalance(s.adminID))
}

func (s *LedgerTestSuite) TestTransferPreconditions() {
	s.registerMarketplace()

	license, err := s.mint(s.aliceID, 1, uint8(models.LicenseTypePersonal))
	s.Require().NoError(err)
	s.fundWallet(s.bobID, 10000)

	_, err = s.ledger.Transfer(s.aliceID, &TransferRequest{
		LicenseID: 999,
		ToID:      s.bobID,
		SalePrice: models.NewAmount(100),
		Payment:   models.NewAmount(112),
	})
	s.ErrorIs(err, ErrLicenseNotFound)

	_, err = s.ledger.Transfer(s.bobID, &TransferRequest{
		LicenseID: license.ID,
		ToID:      s.bobID,
		SalePrice: models.NewAmount(100),
		Payment:   models.NewAmount(112),
	})
	s.ErrorIs(err, ErrNotLicenseOwner)

	// Insufficient wallet funds roll the whole call back.
	_, err = s.ledger.Transfer(s.aliceID, &TransferRequest{
		LicenseID: license.ID,
		ToID:      s.bobID,
		SalePrice: models.NewAmount(1000),
		Payment:   models.NewAmount(1120),
	})
	s.ErrorIs(err, ErrInsufficientFunds)

	owner, err := s.ledger.GetOwner(license.ID)
	s.Require().NoError(err)
	s.Equal(s.aliceID, owner)
}

func (s *LedgerTestSuite) TestRoundTripTransferAppendsNotResurrects() {
	s.registerMarketplace()

	license, err := s.mint(s.aliceID, 1, uint8(models.LicenseTypeCommercial))
	s.Require().NoError(err)

	s.fundWallet(s.aliceID, 5000)
	s.fundWallet(s.bobID, 5000)

	_, err = s.ledger.Transfer(s.aliceID, &TransferRequest{
		LicenseID: license.ID,
		ToID:      s.bobID,
		SalePrice: models.NewAmount(1000),
		Payment:   models.NewAmount(1120),
	})
	s.Require().NoError(err)

	_, err = s.ledger.Transfer(s.bobID, &TransferRequest{
		LicenseID: license.ID,
		ToID:      s.aliceID,
		SalePrice: models.NewAmount(1000),
		Payment:   models.NewAmount(1120),
	})
	s.Require().NoError(err)

	final, err := s.ledger.GetLicense(license.ID)
	s.Require().NoError(err)
	s.Equal(s.aliceID, final.CurrentOwnerID)
	s.Equal(uint64(2), final.TransferCount)

	// Alice's index holds a tombstoned first slot plus a fresh one; the
	// enumeration shows the license exactly once.
	byOwner, err := s.ledger.GetLicensesByOwner(s.aliceID)
	s.Require().NoError(err)
	s.Require().Len(byOwner, 1)
	s.Equal(license.ID, byOwner[0].ID)

	var entries []models.OwnerLicenseIndex
	s.Require().NoError(s.db.Where("owner_id = ?", s.aliceID).Order("position ASC").Find(&entries).Error)
	s.Require().Len(entries, 2)
	s.Equal(models.TombstoneLicenseID, entries[0].LicenseID)
	s.Equal(license.ID, entries[1].LicenseID)

	// Bob no longer holds the guard; Alice does again.
	has, err := s.ledger.HasLicense(s.bobID, 1, models.LicenseTypeCommercial)
	s.Require().NoError(err)
	s.False(has)
	has, err = s.ledger.HasLicense(s.aliceID, 1, models.LicenseTypeCommercial)
	s.Require().NoError(err)
	s.True(has)

	// The creator earned the royalty on both hops.
	total, err := s.ledger.GetTotalRoyalties(s.creatorID)
	s.Require().NoError(err)
	s.Equal("200", total.String())
}

func (s *LedgerTestSuite) TestWithdrawRoyalties() {
	s.registerMarketplace()

	license, err := s.mint(s.aliceID, 1, uint8(models.LicenseTypePersonal))
	s.Require().NoError(err)

	s.fundWallet(s.aliceID, 2000)
	_, err = s.ledger.Transfer(s.aliceID, &TransferRequest{
		LicenseID: license.ID,
		ToID:      s.bobID,
		SalePrice: models.NewAmount(1000),
		Payment:   models.NewAmount(1120),
	})
	s.Require().NoError(err)

	withdrawn, err := s.ledger.WithdrawRoyalties(s.creatorID)
	s.Require().NoError(err)
	s.Equal("100", withdrawn.String())
	s.Equal("100", s.walletBalance(s.creatorID))

	// Withdrawable is zeroed, lifetime is untouched.
	remaining, err := s.ledger.GetRoyaltyEarnings(s.creatorID)
	s.Require().NoError(err)
	s.True(remaining.IsZero())

	lifetime, err := s.ledger.GetTotalRoyalties(s.creatorID)
	s.Require().NoError(err)
	s.Equal("100", lifetime.String())

	_, err = s.ledger.WithdrawRoyalties(s.creatorID)
	s.ErrorIs(err, ErrNoRoyalties)
}

func (s *LedgerTestSuite) TestWithdrawRoyaltiesWithoutBalance() {
	_, err := s.ledger.WithdrawRoyalties(s.aliceID)
	s.ErrorIs(err, ErrNoRoyalties)
}

func (s *LedgerTestSuite) TestSetMarketplaceAdminOnly() {
	err := s.ledger.SetMarketplace(s.aliceID, s.marketplace)
	s.ErrorIs(err, ErrUnauthorized)

	s.Require().NoError(s.ledger.SetMarketplace(s.adminID, s.marketplace))

	marketplaceID, err := s.ledger.GetMarketplace()
	s.Require().NoError(err)
	s.Require().NotNil(marketplaceID)
	s.Equal(s.marketplace, *marketplaceID)
}

func (s *LedgerTestSuite) TestGetSampleLicenseInfo() {
	s.registerMarketplace()

	_, err := s.mint(s.aliceID, 1, uint8(models.LicenseTypePersonal))
	s.Require().NoError(err)
	_, err = s.mint(s.aliceID, 1, uint8(models.LicenseTypeCommercial))
	s.Require().NoError(err)
	_, err = s.mint(s.bobID, 1, uint8(models.LicenseTypePersonal))
	s.Require().NoError(err)

	info, err := s.ledger.GetSampleLicenseInfo(1)
	s.Require().NoError(err)
	s.Equal(uint64(3), info.TotalLicenses)
	s.Equal(uint64(2), info.PersonalCount)
	s.Equal(uint64(1), info.CommercialCount)
	s.False(info.HasExclusive)
	s.Nil(info.ExclusiveHolder)
}

func TestLedgerTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}
