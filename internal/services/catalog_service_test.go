// internal/services/catalog_service_test.go
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

type CatalogTestSuite struct {
	suite.Suite
	db          *gorm.DB
	ledger      *LedgerService
	catalog     *CatalogService
	adminID     uuid.UUID
	marketplace uuid.UUID
	sellerID    uuid.UUID
	buyerID     uuid.UUID
}

func (s *CatalogTestSuite) SetupTest() {
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
		&models.Sample{},
		&models.PurchaseRecord{},
		&models.Earnings{},
		&models.CatalogStats{},
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
	events := NewEventService(db)
	s.ledger = NewLedgerService(db, events)
	s.catalog = NewCatalogService(db, s.ledger, events)

	s.adminID = s.createUser("admin", models.UserTypeAdmin)
	s.marketplace = s.createUser("marketplace", models.UserTypeService)
	s.sellerID = s.createUser("seller", models.UserTypeProducer)
	s.buyerID = s.createUser("buyer", models.UserTypeBuyer)

	s.Require().NoError(db.Create(&models.LedgerSettings{ID: 1, AdminID: s.adminID}).Error)
	s.Require().NoError(db.Create(&models.LedgerCounter{Name: models.CounterLicenses, Value: 0}).Error)
	s.Require().NoError(db.Create(&models.LedgerCounter{Name: models.CounterSamples, Value: 0}).Error)
	s.Require().NoError(db.Create(&models.CatalogStats{
		ID:                   1,
		TotalVolume:          models.ZeroAmount(),
		PlatformFeeCollected: models.ZeroAmount(),
	}).Error)
	s.Require().NoError(s.ledger.SetMarketplace(s.adminID, s.marketplace))
}

func (s *CatalogTestSuite) createUser(name string, userType models.UserType) uuid.UUID {
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

func (s *CatalogTestSuite) fundWallet(userID uuid.UUID, amount uint64) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		_, err := creditWallet(tx, userID, models.NewAmount(amount))
		return err
	})
	s.Require().NoError(err)
}

func (s *CatalogTestSuite) uploadSample(price uint64) *models.Sample {
	sample, err := s.catalog.UploadSample(s.sellerID, &UploadSampleRequest{
		Title:    "Dusty Break 94",
		Price:    models.NewAmount(price),
		IpfsLink: "ipfs://QmSampleHash",
		BPM:      94,
		Genre:    "breaks",
	})
	s.Require().NoError(err)
	return sample
}

func (s *CatalogTestSuite) earnings(userID uuid.UUID) *models.Earnings {
	var e models.Earnings
	s.Require().NoError(s.db.Where("user_id = ?", userID).First(&e).Error)
	return &e
}

func (s *CatalogTestSuite) TestUploadSampleAssignsSequentialIDs() {
	first := s.uploadSample(1000)
	s.Equal(uint64(1), first.ID)
	s.True(first.IsActive)

	second := s.uploadSample(2000)
	s.Equal(uint64(2), second.ID)
}

func (s *CatalogTestSuite) TestUploadSampleValidation() {
	_, err := s.catalog.UploadSample(s.sellerID, &UploadSampleRequest{
		Title:    "Free Loop",
		Price:    models.ZeroAmount(),
		IpfsLink: "ipfs://QmHash",
	})
	s.ErrorIs(err, ErrInvalidPrice)

	longTitle := make([]byte, models.MaxTitleLength+1)
	for i := range longTitle {
		longTitle[i] = 'a'
	}
	_, err = s.catalog.UploadSample(s.sellerID, &UploadSampleRequest{
		Title:    string(longTitle),
		Price:    models.NewAmount(1000),
		IpfsLink: "ipfs://QmHash",
	})
	s.ErrorIs(err, ErrTitleTooLong)
}

func (s *CatalogTestSuite) TestPurchaseSample() {
	sample := s.uploadSample(1000)
	s.fundWallet(s.buyerID, 5000)

	record, err := s.catalog.PurchaseSample(s.buyerID, sample.ID, &PurchaseSampleRequest{
		Payment: models.NewAmount(1000),
	})
	s.Require().NoError(err)
	s.Equal(sample.ID, record.SampleID)
	s.Equal("ipfs://QmSampleHash", record.IpfsLink)

	// 10% platform fee, 90% to the seller's withdrawable earnings.
	e := s.earnings(s.sellerID)
	s.Equal("900", e.Withdrawable.String())
	s.Equal("900", e.LifetimeEarned.String())

	purchased, err := s.catalog.HasPurchased(s.buyerID, sample.ID)
	s.Require().NoError(err)
	s.True(purchased)

	_, err = s.catalog.PurchaseSample(s.buyerID, sample.ID, &PurchaseSampleRequest{
		Payment: models.NewAmount(1000),
	})
	s.ErrorIs(err, ErrAlreadyPurchased)
}

func (s *CatalogTestSuite) TestPurchaseSampleRejectsSeller() {
	sample := s.uploadSample(1000)
	s.fundWallet(s.sellerID, 5000)

	_, err := s.catalog.PurchaseSample(s.sellerID, sample.ID, &PurchaseSampleRequest{
		Payment: models.NewAmount(1000),
	})
	s.ErrorIs(err, ErrSelfPurchase)
}

func (s *CatalogTestSuite) TestPurchaseLicensePricesByMultiplier() {
	sample := s.uploadSample(1000)
	s.fundWallet(s.buyerID, 10000)

	// Commercial = 2.5x base price.
	_, err := s.catalog.PurchaseLicense(s.buyerID, sample.ID, &PurchaseLicenseRequest{
		LicenseTypeCode: uint8(models.LicenseTypeCommercial),
		Payment:         models.NewAmount(2499),
	})
	s.ErrorIs(err, ErrInsufficientPayment)

	license, err := s.catalog.PurchaseLicense(s.buyerID, sample.ID, &PurchaseLicenseRequest{
		LicenseTypeCode: uint8(models.LicenseTypeCommercial),
		Payment:         models.NewAmount(2500),
	})
	s.Require().NoError(err)
	s.Equal(uint64(1), license.ID)
	s.Equal(models.LicenseTypeCommercial, license.LicenseType)
	s.Equal(s.buyerID, license.CurrentOwnerID)
	s.Equal(s.sellerID, license.OriginalCreatorID)
	s.Equal("2500", license.PurchasePrice.String())

	// Seller nets 90% of the license price.
	e := s.earnings(s.sellerID)
	s.Equal("2250", e.Withdrawable.String())
}

func (s *CatalogTestSuite) TestPurchaseLicenseFailureRollsBackMoney() {
	sample := s.uploadSample(1000)
	s.fundWallet(s.buyerID, 10000)

	_, err := s.catalog.PurchaseLicense(s.buyerID, sample.ID, &PurchaseLicenseRequest{
		LicenseTypeCode: uint8(models.LicenseTypePersonal),
		Payment:         models.NewAmount(1000),
	})
	s.Require().NoError(err)

	// Second personal license for the same buyer trips the ledger's
	// duplicate guard; the debit and earnings credit must roll back too.
	_, err = s.catalog.PurchaseLicense(s.buyerID, sample.ID, &PurchaseLicenseRequest{
		LicenseTypeCode: uint8(models.LicenseTypePersonal),
		Payment:         models.NewAmount(1000),
	})
	s.ErrorIs(err, ErrAlreadyHasLicenseType)

	var wallet models.Wallet
	s.Require().NoError(s.db.Where("user_id = ?", s.buyerID).First(&wallet).Error)
	s.Equal("9000", wallet.Balance.String())

	e := s.earnings(s.sellerID)
	s.Equal("900", e.Withdrawable.String())

	count, err := s.ledger.GetLicenseCount()
	s.Require().NoError(err)
	s.Equal(uint64(1), count)
}

func (s *CatalogTestSuite) TestExclusivePurchaseDeactivatesSample() {
	sample := s.uploadSample(1000)
	s.fundWallet(s.buyerID, 50000)

	// Exclusive = 20x base price.
	license, err := s.catalog.PurchaseLicense(s.buyerID, sample.ID, &PurchaseLicenseRequest{
		LicenseTypeCode: uint8(models.LicenseTypeExclusive),
		Payment:         models.NewAmount(20000),
	})
	s.Require().NoError(err)
	s.Equal(models.LicenseTypeExclusive, license.LicenseType)

	reloaded, err := s.catalog.GetSample(sample.ID)
	s.Require().NoError(err)
	s.False(reloaded.IsActive)

	// Further purchases are refused at the catalog gate.
	other := s.createUser("other", models.UserTypeBuyer)
	s.fundWallet(other, 50000)
	_, err = s.catalog.PurchaseLicense(other, sample.ID, &PurchaseLicenseRequest{
		LicenseTypeCode: uint8(models.LicenseTypePersonal),
		Payment:         models.NewAmount(1000),
	})
	s.ErrorIs(err, ErrSampleInactive)
}

func (s *CatalogTestSuite) TestUpdatePriceSellerOnly() {
	sample := s.uploadSample(1000)

	_, err := s.catalog.UpdatePrice(s.buyerID, sample.ID, &UpdatePriceRequest{
		Price: models.NewAmount(500),
	})
	s.ErrorIs(err, ErrNotSeller)

	updated, err := s.catalog.UpdatePrice(s.sellerID, sample.ID, &UpdatePriceRequest{
		Price: models.NewAmount(500),
	})
	s.Require().NoError(err)
	s.Equal("500", updated.Price.String())
}

func (s *CatalogTestSuite) TestDeactivateSample() {
	sample := s.uploadSample(1000)

	s.ErrorIs(s.catalog.DeactivateSample(s.buyerID, sample.ID), ErrNotSeller)
	s.Require().NoError(s.catalog.DeactivateSample(s.sellerID, sample.ID))
	s.ErrorIs(s.catalog.DeactivateSample(s.sellerID, sample.ID), ErrSampleInactive)
}

func (s *CatalogTestSuite) TestWithdrawEarnings() {
	sample := s.uploadSample(1000)
	s.fundWallet(s.buyerID, 5000)

	_, err := s.catalog.PurchaseSample(s.buyerID, sample.ID, &PurchaseSampleRequest{
		Payment: models.NewAmount(1000),
	})
	s.Require().NoError(err)

	withdrawn, err := s.catalog.WithdrawEarnings(s.sellerID)
	s.Require().NoError(err)
	s.Equal("900", withdrawn.String())

	var wallet models.Wallet
	s.Require().NoError(s.db.Where("user_id = ?", s.sellerID).First(&wallet).Error)
	s.Equal("900", wallet.Balance.String())

	e := s.earnings(s.sellerID)
	s.True(e.Withdrawable.IsZero())
	s.Equal("900", e.LifetimeEarned.String())

	_, err = s.catalog.WithdrawEarnings(s.sellerID)
	s.ErrorIs(err, ErrNoEarnings)
}

func (s *CatalogTestSuite) TestMarketplaceStats() {
	sample := s.uploadSample(1000)
	s.fundWallet(s.buyerID, 5000)

	_, err := s.catalog.PurchaseSample(s.buyerID, sample.ID, &PurchaseSampleRequest{
		Payment: models.NewAmount(1000),
	})
	s.Require().NoError(err)

	stats, err := s.catalog.GetMarketplaceStats()
	s.Require().NoError(err)
	s.Equal("1000", stats["total_volume"])
	s.Equal("100", stats["platform_fee_collected"])
	s.Equal(int64(1), stats["total_samples"])
}

func TestCatalogTestSuite(t *testing.T) {
	suite.Run(t, new(CatalogTestSuite))
}
