// internal/services/catalog_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sampledhq/sampled-backend/internal/models"
	"github.com/sampledhq/sampled-backend/internal/utils"
)

// CatalogService is the marketplace in front of the ledger: sample listings,
// outright purchases, license purchases and seller earnings. License
// purchases debit the buyer, credit the seller and mint through the ledger
// inside one transaction, so a failed mint rolls back the money movement too.
type CatalogService struct {
	db     *gorm.DB
	ledger *LedgerService
	events *EventService
}

type UploadSampleRequest struct {
	Title            string        `json:"title" validate:"required"`
	Price            models.Amount `json:"price"`
	IpfsLink         string        `json:"ipfs_link" validate:"required,ipfs_link"`
	BPM              uint64        `json:"bpm,omitempty"`
	Genre            string        `json:"genre,omitempty"`
	Tags             []string      `json:"tags,omitempty"`
	CoverImage       string        `json:"cover_image,omitempty"`
	VideoPreviewLink string        `json:"video_preview_link,omitempty"`
}

type PurchaseSampleRequest struct {
	Payment models.Amount `json:"payment"`
}

type PurchaseLicenseRequest struct {
	LicenseTypeCode uint8         `json:"license_type"`
	Payment         models.Amount `json:"payment"`
}

type UpdatePriceRequest struct {
	Price models.Amount `json:"price"`
}

type SampleSearchParams struct {
	utils.PaginationParams
	SellerID *uuid.UUID
	MaxBPM   uint64
	MinBPM   uint64
}

func NewCatalogService(db *gorm.DB, ledger *LedgerService, events *EventService) *CatalogService {
	return &CatalogService{
		db:     db,
		ledger: ledger,
		events: events,
	}
}

func validateSampleFields(req *UploadSampleRequest) error {
	if len(req.Title) > models.MaxTitleLength {
		return ErrTitleTooLong
	}
	if len(req.IpfsLink) > models.MaxIpfsLinkLength {
		return ErrIpfsLinkTooLong
	}
	if len(req.CoverImage) > models.MaxCoverImageLength {
		return ErrCoverImageTooLong
	}
	if len(req.Genre) > models.MaxGenreLength {
		return ErrGenreTooLong
	}
	if len(req.VideoPreviewLink) > models.MaxVideoPreviewLength {
		return ErrVideoPreviewTooLong
	}
	return nil
}

// UploadSample lists a new sample. Ids come from the shared counter, so
// sample and license ids are both dense and start at 1.
func (s *CatalogService) UploadSample(sellerID uuid.UUID, req *UploadSampleRequest) (*models.Sample, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if err := validateSampleFields(req); err != nil {
		return nil, err
	}
	if req.Price.IsZero() {
		return nil, ErrInvalidPrice
	}

	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()

	var sample *models.Sample
	err := s.db.Transaction(func(tx *gorm.DB) error {
		id, err := allocateID(tx, models.CounterSamples)
		if err != nil {
			return err
		}

		sample = &models.Sample{
			ID:               id,
			SellerID:         sellerID,
			Price:            req.Price,
			IpfsLink:         req.IpfsLink,
			Title:            req.Title,
			BPM:              req.BPM,
			Genre:            req.Genre,
			Tags:             req.Tags,
			CoverImage:       req.CoverImage,
			VideoPreviewLink: req.VideoPreviewLink,
			IsActive:         true,
		}
		return tx.Create(sample).Error
	})
	if err != nil {
		return nil, err
	}

	s.events.Emit(models.EventSampleUploaded, map[string]interface{}{
		"sample_id": sample.ID,
		"seller_id": sellerID.String(),
		"title":     sample.Title,
		"price":     sample.Price.String(),
	})

	return sample, nil
}

// PurchaseSample buys outright access to a sample. The platform keeps 10%
// of the price; the rest accrues to the seller's withdrawable earnings.
func (s *CatalogService) PurchaseSample(buyerID uuid.UUID, sampleID uint64, req *PurchaseSampleRequest) (*models.PurchaseRecord, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()

	var record *models.PurchaseRecord
	err := s.db.Transaction(func(tx *gorm.DB) error {
		sample, err := loadSample(tx, sampleID)
		if err != nil {
			return err
		}
		if !sample.IsActive {
			return ErrSampleInactive
		}
		if sample.SellerID == buyerID {
			return ErrSelfPurchase
		}

		var existing int64
		if err := tx.Model(&models.PurchaseRecord{}).Where("buyer_id = ? AND sample_id = ?", buyerID, sampleID).Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check purchase record: %w", err)
		}
		if existing > 0 {
			return ErrAlreadyPurchased
		}

		if req.Payment.Cmp(sample.Price) < 0 {
			return ErrInsufficientPayment
		}

		fee := sample.Price.MulFrac(models.PlatformFeeNumerator, models.PlatformFeeDenominator)
		net, err := sample.Price.Sub(fee)
		if err != nil {
			return err
		}

		if _, err := debitWallet(tx, buyerID, req.Payment); err != nil {
			return err
		}
		if err := creditEarnings(tx, sample.SellerID, net); err != nil {
			return err
		}
		if err := recordSpending(tx, buyerID, req.Payment); err != nil {
			return err
		}

		settings, err := ledgerSettings(tx)
		if err != nil {
			return err
		}
		platformCut := fee
		if remainder, err := req.Payment.Sub(sample.Price); err == nil && !remainder.IsZero() {
			platformCut = platformCut.Add(remainder)
		}
		if _, err := creditWallet(tx, settings.AdminID, platformCut); err != nil {
			return err
		}

		record = &models.PurchaseRecord{
			BuyerID:   buyerID,
			SampleID:  sampleID,
			SellerID:  sample.SellerID,
			Price:     sample.Price,
			IpfsLink:  sample.IpfsLink,
			CreatedAt: time.Now(),
		}
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("failed to create purchase record: %w", err)
		}

		sample.TotalSales++
		if err := tx.Save(sample).Error; err != nil {
			return fmt.Errorf("failed to update sample: %w", err)
		}

		return bumpStats(tx, sample.Price, fee)
	})
	if err != nil {
		return nil, err
	}

	s.events.Emit(models.EventSamplePurchased, map[string]interface{}{
		"sample_id": sampleID,
		"buyer_id":  buyerID.String(),
		"seller_id": record.SellerID.String(),
		"price":     record.Price.String(),
	})

	return record, nil
}

// PurchaseLicense buys a usage license for a sample. The license price is
// the sample's base price scaled by the type multiplier. The mint itself
// goes through the ledger as the registered marketplace account inside the
// same transaction; if the ledger refuses, nothing moves.
func (s *CatalogService) PurchaseLicense(buyerID uuid.UUID, sampleID uint64, req *PurchaseLicenseRequest) (*models.License, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()

	var (
		license     *models.License
		deactivated bool
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		sample, err := loadSample(tx, sampleID)
		if err != nil {
			return err
		}
		if !sample.IsActive {
			return ErrSampleInactive
		}
		if sample.SellerID == buyerID {
			return ErrSelfPurchase
		}

		licenseType, ok := models.ParseLicenseType(req.LicenseTypeCode)
		if !ok {
			return ErrInvalidLicenseType
		}

		price := sample.Price.MulFrac(licenseType.PriceMultiplier(), 100)
		if req.Payment.Cmp(price) < 0 {
			return ErrInsufficientPayment
		}

		settings, err := ledgerSettings(tx)
		if err != nil {
			return err
		}
		if settings.MarketplaceID == nil {
			return ErrMarketplaceNotSet
		}

		fee := price.MulFrac(models.PlatformFeeNumerator, models.PlatformFeeDenominator)
		net, err := price.Sub(fee)
		if err != nil {
			return err
		}

		if _, err := debitWallet(tx, buyerID, req.Payment); err != nil {
			return err
		}
		if err := creditEarnings(tx, sample.SellerID, net); err != nil {
			return err
		}
		if err := recordSpending(tx, buyerID, req.Payment); err != nil {
			return err
		}

		platformCut := fee
		if remainder, err := req.Payment.Sub(price); err == nil && !remainder.IsZero() {
			platformCut = platformCut.Add(remainder)
		}
		if _, err := creditWallet(tx, settings.AdminID, platformCut); err != nil {
			return err
		}

		license, err = s.ledger.mintLocked(tx, *settings.MarketplaceID, &MintRequest{
			SampleID:        sampleID,
			LicenseTypeCode: req.LicenseTypeCode,
			BuyerID:         buyerID,
			CreatorID:       sample.SellerID,
			PricePaid:       price,
		})
		if err != nil {
			return err
		}

		sample.TotalSales++
		if licenseType == models.LicenseTypeExclusive {
			sample.IsActive = false
			deactivated = true
		}
		if err := tx.Save(sample).Error; err != nil {
			return fmt.Errorf("failed to update sample: %w", err)
		}

		return bumpStats(tx, price, fee)
	})
	if err != nil {
		return nil, err
	}

	s.ledger.emitMintEvents(license)
	if deactivated {
		s.events.Emit(models.EventSampleDeactivated, map[string]interface{}{
			"sample_id": sampleID,
			"reason":    "exclusive_license",
		})
	}

	return license, nil
}

func (s *CatalogService) UpdatePrice(sellerID uuid.UUID, sampleID uint64, req *UpdatePriceRequest) (*models.Sample, error) {
	if req.Price.IsZero() {
		return nil, ErrInvalidPrice
	}

	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()

	var sample *models.Sample
	err := s.db.Transaction(func(tx *gorm.DB) error {
		loaded, err := loadSample(tx, sampleID)
		if err != nil {
			return err
		}
		if loaded.SellerID != sellerID {
			return ErrNotSeller
		}

		loaded.Price = req.Price
		if err := tx.Save(loaded).Error; err != nil {
			return fmt.Errorf("failed to update sample: %w", err)
		}
		sample = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Emit(models.EventPriceUpdated, map[string]interface{}{
		"sample_id": sampleID,
		"price":     req.Price.String(),
	})

	return sample, nil
}

func (s *CatalogService) DeactivateSample(sellerID uuid.UUID, sampleID uint64) error {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		sample, err := loadSample(tx, sampleID)
		if err != nil {
			return err
		}
		if sample.SellerID != sellerID {
			return ErrNotSeller
		}
		if !sample.IsActive {
			return ErrSampleInactive
		}

		sample.IsActive = false
		return tx.Save(sample).Error
	})
	if err != nil {
		return err
	}

	s.events.Emit(models.EventSampleDeactivated, map[string]interface{}{
		"sample_id": sampleID,
		"reason":    "seller_request",
	})

	return nil
}

// WithdrawEarnings moves a seller's withdrawable earnings into their
// wallet. The earnings row is zeroed before the credit.
func (s *CatalogService) WithdrawEarnings(sellerID uuid.UUID) (models.Amount, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()

	var withdrawn models.Amount
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var earnings models.Earnings
		err := tx.Where("user_id = ?", sellerID).First(&earnings).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoEarnings
		}
		if err != nil {
			return fmt.Errorf("failed to load earnings: %w", err)
		}
		if earnings.Withdrawable.IsZero() {
			return ErrNoEarnings
		}

		withdrawn = earnings.Withdrawable
		earnings.Withdrawable = models.ZeroAmount()
		earnings.UpdatedAt = time.Now()
		if err := tx.Save(&earnings).Error; err != nil {
			return fmt.Errorf("failed to update earnings: %w", err)
		}

		_, err = creditWallet(tx, sellerID, withdrawn)
		return err
	})
	if err != nil {
		return models.ZeroAmount(), err
	}

	s.events.Emit(models.EventEarningsWithdrawn, map[string]interface{}{
		"seller_id": sellerID.String(),
		"amount":    withdrawn.String(),
	})

	return withdrawn, nil
}

// --- catalog helpers ---

func loadSample(tx *gorm.DB, sampleID uint64) (*models.Sample, error) {
	var sample models.Sample
	if err := tx.Where("id = ?", sampleID).First(&sample).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSampleNotFound
		}
		return nil, fmt.Errorf("failed to load sample: %w", err)
	}
	return &sample, nil
}

func creditEarnings(tx *gorm.DB, userID uuid.UUID, amount models.Amount) error {
	var earnings models.Earnings
	err := tx.Where("user_id = ?", userID).First(&earnings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		earnings = models.Earnings{
			UserID:         userID,
			Withdrawable:   models.ZeroAmount(),
			LifetimeEarned: models.ZeroAmount(),
			LifetimeSpent:  models.ZeroAmount(),
		}
		if err := tx.Create(&earnings).Error; err != nil {
			return fmt.Errorf("failed to create earnings: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to load earnings: %w", err)
	}

	earnings.Withdrawable = earnings.Withdrawable.Add(amount)
	earnings.LifetimeEarned = earnings.LifetimeEarned.Add(amount)
	earnings.UpdatedAt = time.Now()
	if err := tx.Save(&earnings).Error; err != nil {
		return fmt.Errorf("failed to update earnings: %w", err)
	}
	return nil
}

func recordSpending(tx *gorm.DB, userID uuid.UUID, amount models.Amount) error {
	var earnings models.Earnings
	err := tx.Where("user_id = ?", userID).First(&earnings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		earnings = models.Earnings{
			UserID:         userID,
			Withdrawable:   models.ZeroAmount(),
			LifetimeEarned: models.ZeroAmount(),
			LifetimeSpent:  models.ZeroAmount(),
		}
		if err := tx.Create(&earnings).Error; err != nil {
			return fmt.Errorf("failed to create earnings: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to load earnings: %w", err)
	}

	earnings.LifetimeSpent = earnings.LifetimeSpent.Add(amount)
	earnings.UpdatedAt = time.Now()
	if err := tx.Save(&earnings).Error; err != nil {
		return fmt.Errorf("failed to update earnings: %w", err)
	}
	return nil
}

func bumpStats(tx *gorm.DB, volume, fee models.Amount) error {
	var stats models.CatalogStats
	if err := tx.Where("id = ?", 1).First(&stats).Error; err != nil {
		return fmt.Errorf("failed to load catalog stats: %w", err)
	}
	stats.TotalVolume = stats.TotalVolume.Add(volume)
	stats.PlatformFeeCollected = stats.PlatformFeeCollected.Add(fee)
	stats.UpdatedAt = time.Now()
	if err := tx.Save(&stats).Error; err != nil {
		return fmt.Errorf("failed to update catalog stats: %w", err)
	}
	return nil
}

// --- reads ---

func (s *CatalogService) GetSample(sampleID uint64) (*models.Sample, error) {
	var sample models.Sample
	err := s.db.Preload("Seller").Where("id = ?", sampleID).First(&sample).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSampleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sample: %w", err)
	}
	return &sample, nil
}

// GetAllSamples lists active samples with pagination and optional filters.
func (s *CatalogService) GetAllSamples(params SampleSearchParams) ([]models.Sample, int64, error) {
	query := s.db.Model(&models.Sample{}).Where("is_active = ?", true)

	if params.Search != "" {
		term := "%" + params.Search + "%"
		query = query.Where("title ILIKE ?", term)
	}
	if params.Genre != "" {
		query = query.Where("genre = ?", params.Genre)
	}
	if params.SellerID != nil {
		query = query.Where("seller_id = ?", *params.SellerID)
	}
	if params.MinBPM > 0 {
		query = query.Where("bpm >= ?", params.MinBPM)
	}
	if params.MaxBPM > 0 {
		query = query.Where("bpm <= ?", params.MaxBPM)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count samples: %w", err)
	}

	query = utils.ApplySort(query, params.PaginationParams, []string{"created_at", "price", "total_sales", "bpm"})
	query = utils.ApplyPagination(query, params.PaginationParams)

	var samples []models.Sample
	if err := query.Preload("Seller").Find(&samples).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch samples: %w", err)
	}

	return samples, total, nil
}

// GetUserSamples lists everything a seller has uploaded, inactive included.
func (s *CatalogService) GetUserSamples(sellerID uuid.UUID, params utils.PaginationParams) ([]models.Sample, int64, error) {
	query := s.db.Model(&models.Sample{}).Where("seller_id = ?", sellerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count samples: %w", err)
	}

	var samples []models.Sample
	offset := (params.Page - 1) * params.Limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(params.Limit).Find(&samples).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch samples: %w", err)
	}

	return samples, total, nil
}

func (s *CatalogService) GetUserPurchases(buyerID uuid.UUID, params utils.PaginationParams) ([]models.PurchaseRecord, int64, error) {
	query := s.db.Model(&models.PurchaseRecord{}).Where("buyer_id = ?", buyerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count purchases: %w", err)
	}

	var purchases []models.PurchaseRecord
	offset := (params.Page - 1) * params.Limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(params.Limit).Find(&purchases).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch purchases: %w", err)
	}

	return purchases, total, nil
}

func (s *CatalogService) HasPurchased(buyerID uuid.UUID, sampleID uint64) (bool, error) {
	var count int64
	err := s.db.Model(&models.PurchaseRecord{}).Where("buyer_id = ? AND sample_id = ?", buyerID, sampleID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check purchase: %w", err)
	}
	return count > 0, nil
}

func (s *CatalogService) GetUserStats(userID uuid.UUID) (*models.UserStats, error) {
	stats := &models.UserStats{
		Earnings:    models.ZeroAmount(),
		TotalEarned: models.ZeroAmount(),
		TotalSpent:  models.ZeroAmount(),
	}

	if err := s.db.Model(&models.Sample{}).Where("seller_id = ?", userID).Count(&stats.UploadedCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count uploads: %w", err)
	}
	if err := s.db.Model(&models.PurchaseRecord{}).Where("buyer_id = ?", userID).Count(&stats.PurchasedCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count purchases: %w", err)
	}

	var earnings models.Earnings
	err := s.db.Where("user_id = ?", userID).First(&earnings).Error
	if err == nil {
		stats.Earnings = earnings.Withdrawable
		stats.TotalEarned = earnings.LifetimeEarned
		stats.TotalSpent = earnings.LifetimeSpent
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load earnings: %w", err)
	}

	return stats, nil
}

func (s *CatalogService) GetMarketplaceStats() (map[string]interface{}, error) {
	var stats models.CatalogStats
	if err := s.db.Where("id = ?", 1).First(&stats).Error; err != nil {
		return nil, fmt.Errorf("failed to load catalog stats: %w", err)
	}

	var sampleCount, activeCount, userCount, licenseCount int64
	if err := s.db.Model(&models.Sample{}).Count(&sampleCount).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Sample{}).Where("is_active = ?", true).Count(&activeCount).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.License{}).Count(&licenseCount).Error; err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"total_volume":           stats.TotalVolume.String(),
		"platform_fee_collected": stats.PlatformFeeCollected.String(),
		"total_samples":          sampleCount,
		"active_samples":         activeCount,
		"total_users":            userCount,
		"total_licenses":         licenseCount,
	}, nil
}
