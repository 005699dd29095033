// internal/services/ledger_service.go
package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sampledhq/sampled-backend/internal/models"
)

// LedgerService owns the license ledger: the license records, the
// denormalized indices, the duplicate guard, exclusivity state and royalty
// balances. All mutating calls are serialized behind one mutex and run
// inside a single transaction, so every call is all-or-nothing and no
// partially applied state is ever observable.
type LedgerService struct {
	db     *gorm.DB
	events *EventService
	mu     sync.Mutex
}

type MintRequest struct {
	SampleID        uint64        `json:"sample_id" validate:"required"`
	LicenseTypeCode uint8         `json:"license_type"`
	BuyerID         uuid.UUID     `json:"buyer_id" validate:"required"`
	CreatorID       uuid.UUID     `json:"creator_id" validate:"required"`
	PricePaid       models.Amount `json:"price_paid"`
}

type TransferRequest struct {
	LicenseID uint64        `json:"license_id" validate:"required"`
	ToID      uuid.UUID     `json:"to_id" validate:"required"`
	SalePrice models.Amount `json:"sale_price"`
	Payment   models.Amount `json:"payment"`
}

func NewLedgerService(db *gorm.DB, events *EventService) *LedgerService {
	return &LedgerService{
		db:     db,
		events: events,
	}
}

// allocateID increments a named counter and returns the new value. The
// first id handed out is 1; 0 is reserved for tombstones. Callers hold the
// ledger mutex, so a plain read-modify-write is race free.
func allocateID(tx *gorm.DB, name string) (uint64, error) {
	var counter models.LedgerCounter
	if err := tx.Where("name = ?", name).First(&counter).Error; err != nil {
		return 0, fmt.Errorf("failed to load counter %s: %w", name, err)
	}
	counter.Value++
	if err := tx.Save(&counter).Error; err != nil {
		return 0, fmt.Errorf("failed to advance counter %s: %w", name, err)
	}
	return counter.Value, nil
}

func ledgerSettings(tx *gorm.DB) (*models.LedgerSettings, error) {
	var settings models.LedgerSettings
	if err := tx.Where("id = ?", 1).First(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to load ledger settings: %w", err)
	}
	return &settings, nil
}

// SetMarketplace registers the marketplace account authorized to mint.
// Only the seeded admin account may call it.
func (s *LedgerService) SetMarketplace(callerID, accountID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		settings, err := ledgerSettings(tx)
		if err != nil {
			return err
		}
		if settings.AdminID != callerID {
			return ErrUnauthorized
		}

		var account models.User
		if err := tx.Where("id = ?", accountID).First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnauthorized
			}
			return fmt.Errorf("failed to load marketplace account: %w", err)
		}

		settings.MarketplaceID = &accountID
		settings.UpdatedAt = time.Now()
		return tx.Save(settings).Error
	})
	if err != nil {
		return err
	}

	logrus.WithField("marketplace_id", accountID).Info("Marketplace account registered")
	return nil
}

// Mint issues a new license. Only the registered marketplace account may
// mint; the catalog purchase flow calls through this gate as that account.
func (s *LedgerService) Mint(callerID uuid.UUID, req *MintRequest) (*models.License, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var license *models.License
	err := s.db.Transaction(func(tx *gorm.DB) error {
		l, err := s.mintLocked(tx, callerID, req)
		if err != nil {
			return err
		}
		license = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitMintEvents(license)
	return license, nil
}

// mintLocked performs the mint inside the caller's transaction. The caller
// must hold s.mu and must emit the mint events only after its transaction
// commits.
func (s *LedgerService) mintLocked(tx *gorm.DB, callerID uuid.UUID, req *MintRequest) (*models.License, error) {
	settings, err := ledgerSettings(tx)
	if err != nil {
		return nil, err
	}
	if settings.MarketplaceID == nil {
		return nil, ErrMarketplaceNotSet
	}
	if *settings.MarketplaceID != callerID {
		return nil, ErrUnauthorized
	}

	licenseType, ok := models.ParseLicenseType(req.LicenseTypeCode)
	if !ok {
		return nil, ErrInvalidLicenseType
	}

	// An exclusive license forecloses all further minting for the sample.
	var exclusiveCount int64
	if err := tx.Model(&models.ExclusiveRight{}).Where("sample_id = ?", req.SampleID).Count(&exclusiveCount).Error; err != nil {
		return nil, fmt.Errorf("failed to check exclusivity: %w", err)
	}
	if exclusiveCount > 0 {
		return nil, ErrSampleExclusivelyLicensed
	}

	var holding models.LicenseHolding
	err = tx.Where("owner_id = ? AND sample_id = ? AND license_type = ?", req.BuyerID, req.SampleID, licenseType).First(&holding).Error
	if err == nil && holding.Holds {
		return nil, ErrAlreadyHasLicenseType
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check license holding: %w", err)
	}

	id, err := allocateID(tx, models.CounterLicenses)
	if err != nil {
		return nil, err
	}

	license := &models.License{
		ID:                id,
		SampleID:          req.SampleID,
		LicenseType:       licenseType,
		OriginalCreatorID: req.CreatorID,
		CurrentOwnerID:    req.BuyerID,
		PurchasePrice:     req.PricePaid,
		PurchaseTimestamp: time.Now(),
		IsActive:          true,
		TransferCount:     0,
	}
	if err := tx.Create(license).Error; err != nil {
		return nil, fmt.Errorf("failed to create license: %w", err)
	}

	if err := appendSampleIndex(tx, req.SampleID, id); err != nil {
		return nil, err
	}
	if err := appendOwnerIndex(tx, req.BuyerID, id); err != nil {
		return nil, err
	}
	if err := setHolding(tx, req.BuyerID, req.SampleID, licenseType, id); err != nil {
		return nil, err
	}

	if licenseType == models.LicenseTypeExclusive {
		right := &models.ExclusiveRight{
			SampleID:  req.SampleID,
			LicenseID: id,
			HolderID:  req.BuyerID,
			CreatedAt: time.Now(),
		}
		if err := tx.Create(right).Error; err != nil {
			return nil, fmt.Errorf("failed to record exclusive right: %w", err)
		}
	}

	return license, nil
}

func (s *LedgerService) emitMintEvents(license *models.License) {
	s.events.Emit(models.EventLicenseMinted, map[string]interface{}{
		"license_id":   license.ID,
		"sample_id":    license.SampleID,
		"license_type": license.LicenseType.String(),
		"owner_id":     license.CurrentOwnerID.String(),
		"creator_id":   license.OriginalCreatorID.String(),
		"price_paid":   license.PurchasePrice.String(),
	})
	if license.LicenseType == models.LicenseTypeExclusive {
		s.events.Emit(models.EventExclusiveActivated, map[string]interface{}{
			"license_id": license.ID,
			"sample_id":  license.SampleID,
			"holder_id":  license.CurrentOwnerID.String(),
		})
	}
}

// Transfer resells a license. The required total is the sale price plus a
// 10% creator royalty plus a 2% platform fee, each computed by its own
// truncating division over the sale price. The caller pays the declared
// payment from their wallet; anything above the required total stays with
// the platform account.
func (s *LedgerService) Transfer(callerID uuid.UUID, req *TransferRequest) (*models.License, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		license *models.License
		royalty models.Amount
		fee     models.Amount
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var l models.License
		if err := tx.Where("id = ?", req.LicenseID).First(&l).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLicenseNotFound
			}
			return fmt.Errorf("failed to load license: %w", err)
		}
		if l.CurrentOwnerID != callerID {
			return ErrNotLicenseOwner
		}
		if !l.IsActive {
			return ErrLicenseInactive
		}
		if l.LicenseType == models.LicenseTypeExclusive {
			return ErrExclusiveNotTransferable
		}

		royalty = req.SalePrice.MulFrac(uint64(models.CreatorRoyaltyPercent), 100)
		fee = req.SalePrice.MulFrac(uint64(models.ResalePlatformFeePercent), 100)
		required := req.SalePrice.Add(royalty).Add(fee)
		if req.Payment.Cmp(required) < 0 {
			return ErrInsufficientPayment
		}

		from := l.CurrentOwnerID
		l.CurrentOwnerID = req.ToID
		l.TransferCount++
		if err := tx.Save(&l).Error; err != nil {
			return fmt.Errorf("failed to update license: %w", err)
		}

		if err := tombstoneOwnerIndex(tx, from, l.ID); err != nil {
			return err
		}
		if err := appendOwnerIndex(tx, req.ToID, l.ID); err != nil {
			return err
		}

		if err := clearHolding(tx, from, l.SampleID, l.LicenseType); err != nil {
			return err
		}
		if err := setHolding(tx, req.ToID, l.SampleID, l.LicenseType, l.ID); err != nil {
			return err
		}

		if _, err := debitWallet(tx, callerID, req.Payment); err != nil {
			return err
		}
		if _, err := creditWallet(tx, from, req.SalePrice); err != nil {
			return err
		}

		if err := creditRoyalty(tx, l.OriginalCreatorID, royalty); err != nil {
			return err
		}

		settings, err := ledgerSettings(tx)
		if err != nil {
			return err
		}
		platformCut := fee
		if remainder, err := req.Payment.Sub(required); err == nil && !remainder.IsZero() {
			platformCut = platformCut.Add(remainder)
		}
		if _, err := creditWallet(tx, settings.AdminID, platformCut); err != nil {
			return err
		}

		payment := &models.RoyaltyPayment{
			LicenseID:      l.ID,
			FromID:         from,
			ToID:           req.ToID,
			SalePrice:      req.SalePrice,
			CreatorRoyalty: royalty,
			PlatformFee:    fee,
			CreatorID:      l.OriginalCreatorID,
			CreatedAt:      time.Now(),
		}
		if err := tx.Create(payment).Error; err != nil {
			return fmt.Errorf("failed to record royalty payment: %w", err)
		}

		license = &l
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Emit(models.EventLicenseTransferred, map[string]interface{}{
		"license_id":     license.ID,
		"sample_id":      license.SampleID,
		"from_id":        callerID.String(),
		"to_id":          req.ToID.String(),
		"sale_price":     req.SalePrice.String(),
		"transfer_count": license.TransferCount,
	})
	s.events.Emit(models.EventRoyaltyPaid, map[string]interface{}{
		"license_id": license.ID,
		"creator_id": license.OriginalCreatorID.String(),
		"royalty":    royalty.String(),
		"fee":        fee.String(),
	})

	return license, nil
}

// WithdrawRoyalties moves a creator's accrued royalties into their wallet.
// The balance is zeroed before the wallet credit; lifetime totals are
// untouched.
func (s *LedgerService) WithdrawRoyalties(callerID uuid.UUID) (models.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var withdrawn models.Amount
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var balance models.RoyaltyBalance
		err := tx.Where("creator_id = ?", callerID).First(&balance).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoRoyalties
		}
		if err != nil {
			return fmt.Errorf("failed to load royalty balance: %w", err)
		}
		if balance.Withdrawable.IsZero() {
			return ErrNoRoyalties
		}

		withdrawn = balance.Withdrawable
		balance.Withdrawable = models.ZeroAmount()
		balance.UpdatedAt = time.Now()
		if err := tx.Save(&balance).Error; err != nil {
			return fmt.Errorf("failed to update royalty balance: %w", err)
		}

		_, err = creditWallet(tx, callerID, withdrawn)
		return err
	})
	if err != nil {
		return models.ZeroAmount(), err
	}

	s.events.Emit(models.EventRoyaltiesWithdrawn, map[string]interface{}{
		"creator_id": callerID.String(),
		"amount":     withdrawn.String(),
	})

	return withdrawn, nil
}

// --- index and guard helpers, all within the caller's transaction ---

func appendSampleIndex(tx *gorm.DB, sampleID, licenseID uint64) error {
	var count int64
	if err := tx.Model(&models.SampleLicenseIndex{}).Where("sample_id = ?", sampleID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to size sample index: %w", err)
	}
	entry := &models.SampleLicenseIndex{
		SampleID:  sampleID,
		Position:  uint64(count) + 1,
		LicenseID: licenseID,
	}
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append sample index: %w", err)
	}
	return nil
}

func appendOwnerIndex(tx *gorm.DB, ownerID uuid.UUID, licenseID uint64) error {
	var count int64
	if err := tx.Model(&models.OwnerLicenseIndex{}).Where("owner_id = ?", ownerID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to size owner index: %w", err)
	}
	entry := &models.OwnerLicenseIndex{
		OwnerID:   ownerID,
		Position:  uint64(count) + 1,
		LicenseID: licenseID,
	}
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append owner index: %w", err)
	}
	return nil
}

// tombstoneOwnerIndex marks the slot holding licenseID as removed instead
// of deleting it, so later slots keep their positions. Missing slots are
// tolerated; License.CurrentOwnerID stays the ground truth.
func tombstoneOwnerIndex(tx *gorm.DB, ownerID uuid.UUID, licenseID uint64) error {
	err := tx.Model(&models.OwnerLicenseIndex{}).
		Where("owner_id = ? AND license_id = ?", ownerID, licenseID).
		Update("license_id", models.TombstoneLicenseID).Error
	if err != nil {
		return fmt.Errorf("failed to tombstone owner index: %w", err)
	}
	return nil
}

func setHolding(tx *gorm.DB, ownerID uuid.UUID, sampleID uint64, licenseType models.LicenseType, licenseID uint64) error {
	holding := &models.LicenseHolding{
		OwnerID:     ownerID,
		SampleID:    sampleID,
		LicenseType: licenseType,
		Holds:       true,
		LicenseID:   licenseID,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "sample_id"}, {Name: "license_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"holds", "license_id"}),
	}).Create(holding).Error
	if err != nil {
		return fmt.Errorf("failed to set license holding: %w", err)
	}
	return nil
}

func clearHolding(tx *gorm.DB, ownerID uuid.UUID, sampleID uint64, licenseType models.LicenseType) error {
	err := tx.Model(&models.LicenseHolding{}).
		Where("owner_id = ? AND sample_id = ? AND license_type = ?", ownerID, sampleID, licenseType).
		Updates(map[string]interface{}{"holds": false, "license_id": models.TombstoneLicenseID}).Error
	if err != nil {
		return fmt.Errorf("failed to clear license holding: %w", err)
	}
	return nil
}

func creditRoyalty(tx *gorm.DB, creatorID uuid.UUID, amount models.Amount) error {
	var balance models.RoyaltyBalance
	err := tx.Where("creator_id = ?", creatorID).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		balance = models.RoyaltyBalance{
			CreatorID:     creatorID,
			Withdrawable:  models.ZeroAmount(),
			LifetimeTotal: models.ZeroAmount(),
		}
		if err := tx.Create(&balance).Error; err != nil {
			return fmt.Errorf("failed to create royalty balance: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to load royalty balance: %w", err)
	}

	balance.Withdrawable = balance.Withdrawable.Add(amount)
	balance.LifetimeTotal = balance.LifetimeTotal.Add(amount)
	balance.UpdatedAt = time.Now()
	if err := tx.Save(&balance).Error; err != nil {
		return fmt.Errorf("failed to update royalty balance: %w", err)
	}
	return nil
}

// --- reads ---

func (s *LedgerService) GetLicense(id uint64) (*models.License, error) {
	var license models.License
	if err := s.db.Where("id = ?", id).First(&license).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLicenseNotFound
		}
		return nil, fmt.Errorf("failed to load license: %w", err)
	}
	return &license, nil
}

func (s *LedgerService) GetOwner(id uint64) (uuid.UUID, error) {
	license, err := s.GetLicense(id)
	if err != nil {
		return uuid.Nil, err
	}
	return license.CurrentOwnerID, nil
}

// GetLicenseCount returns the total number of licenses ever minted.
func (s *LedgerService) GetLicenseCount() (uint64, error) {
	var counter models.LedgerCounter
	if err := s.db.Where("name = ?", models.CounterLicenses).First(&counter).Error; err != nil {
		return 0, fmt.Errorf("failed to load license counter: %w", err)
	}
	return counter.Value, nil
}

// GetLicensesByOwner walks the owner index in acquisition order, skipping
// tombstoned slots and any slot whose license has since changed hands.
func (s *LedgerService) GetLicensesByOwner(ownerID uuid.UUID) ([]models.License, error) {
	var entries []models.OwnerLicenseIndex
	err := s.db.Where("owner_id = ?", ownerID).Order("position ASC").Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read owner index: %w", err)
	}

	licenses := make([]models.License, 0, len(entries))
	for _, entry := range entries {
		if entry.LicenseID == models.TombstoneLicenseID {
			continue
		}
		var license models.License
		if err := s.db.Where("id = ?", entry.LicenseID).First(&license).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to load license %d: %w", entry.LicenseID, err)
		}
		if license.CurrentOwnerID != ownerID {
			continue
		}
		licenses = append(licenses, license)
	}
	return licenses, nil
}

// GetLicensesBySample returns the full issuance history for a sample in
// mint order, including licenses that have since been transferred.
func (s *LedgerService) GetLicensesBySample(sampleID uint64) ([]models.License, error) {
	var entries []models.SampleLicenseIndex
	err := s.db.Where("sample_id = ?", sampleID).Order("position ASC").Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read sample index: %w", err)
	}

	licenses := make([]models.License, 0, len(entries))
	for _, entry := range entries {
		var license models.License
		if err := s.db.Where("id = ?", entry.LicenseID).First(&license).Error; err != nil {
			return nil, fmt.Errorf("failed to load license %d: %w", entry.LicenseID, err)
		}
		licenses = append(licenses, license)
	}
	return licenses, nil
}

func (s *LedgerService) GetSampleLicenseCount(sampleID uint64) (uint64, error) {
	var count int64
	err := s.db.Model(&models.SampleLicenseIndex{}).Where("sample_id = ?", sampleID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count sample licenses: %w", err)
	}
	return uint64(count), nil
}

func (s *LedgerService) HasLicense(ownerID uuid.UUID, sampleID uint64, licenseType models.LicenseType) (bool, error) {
	var holding models.LicenseHolding
	err := s.db.Where("owner_id = ? AND sample_id = ? AND license_type = ?", ownerID, sampleID, licenseType).First(&holding).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check license holding: %w", err)
	}
	return holding.Holds, nil
}

func (s *LedgerService) GetUserLicense(ownerID uuid.UUID, sampleID uint64, licenseType models.LicenseType) (*models.License, error) {
	var holding models.LicenseHolding
	err := s.db.Where("owner_id = ? AND sample_id = ? AND license_type = ?", ownerID, sampleID, licenseType).First(&holding).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !holding.Holds) {
		return nil, ErrLicenseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check license holding: %w", err)
	}
	return s.GetLicense(holding.LicenseID)
}

func (s *LedgerService) IsExclusivelyLicensed(sampleID uint64) (bool, error) {
	var count int64
	err := s.db.Model(&models.ExclusiveRight{}).Where("sample_id = ?", sampleID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check exclusivity: %w", err)
	}
	return count > 0, nil
}

func (s *LedgerService) GetExclusiveHolder(sampleID uint64) (*uuid.UUID, error) {
	var right models.ExclusiveRight
	err := s.db.Where("sample_id = ?", sampleID).First(&right).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load exclusive right: %w", err)
	}
	holder := right.HolderID
	return &holder, nil
}

// GetSampleLicenseInfo replays the sample's issuance history and classifies
// it by license type.
func (s *LedgerService) GetSampleLicenseInfo(sampleID uint64) (*models.SampleLicenseInfo, error) {
	licenses, err := s.GetLicensesBySample(sampleID)
	if err != nil {
		return nil, err
	}

	info := &models.SampleLicenseInfo{TotalLicenses: uint64(len(licenses))}
	for _, license := range licenses {
		switch license.LicenseType {
		case models.LicenseTypePersonal:
			info.PersonalCount++
		case models.LicenseTypeCommercial:
			info.CommercialCount++
		case models.LicenseTypeBroadcast:
			info.BroadcastCount++
		case models.LicenseTypeExclusive:
			info.HasExclusive = true
			holder := license.CurrentOwnerID
			info.ExclusiveHolder = &holder
		}
	}
	return info, nil
}

func (s *LedgerService) GetRoyaltyEarnings(creatorID uuid.UUID) (models.Amount, error) {
	var balance models.RoyaltyBalance
	err := s.db.Where("creator_id = ?", creatorID).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ZeroAmount(), nil
	}
	if err != nil {
		return models.ZeroAmount(), fmt.Errorf("failed to load royalty balance: %w", err)
	}
	return balance.Withdrawable, nil
}

func (s *LedgerService) GetTotalRoyalties(creatorID uuid.UUID) (models.Amount, error) {
	var balance models.RoyaltyBalance
	err := s.db.Where("creator_id = ?", creatorID).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ZeroAmount(), nil
	}
	if err != nil {
		return models.ZeroAmount(), fmt.Errorf("failed to load royalty balance: %w", err)
	}
	return balance.LifetimeTotal, nil
}

func (s *LedgerService) GetMarketplace() (*uuid.UUID, error) {
	settings, err := ledgerSettings(s.db)
	if err != nil {
		return nil, err
	}
	return settings.MarketplaceID, nil
}

func (s *LedgerService) GetAdmin() (uuid.UUID, error) {
	settings, err := ledgerSettings(s.db)
	if err != nil {
		return uuid.Nil, err
	}
	return settings.AdminID, nil
}
