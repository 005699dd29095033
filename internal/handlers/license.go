// internal/handlers/license.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sampledhq/sampled-backend/internal/models"
	"github.com/sampledhq/sampled-backend/internal/services"
	"github.com/sampledhq/sampled-backend/internal/utils"
)

type LicenseHandler struct {
	ledgerService *services.LedgerService
}

func NewLicenseHandler(ledgerService *services.LedgerService) *LicenseHandler {
	return &LicenseHandler{
		ledgerService: ledgerService,
	}
}

func parseLicenseID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		utils.BadRequestResponse(c, "Invalid license ID", nil)
		return 0, false
	}
	return id, true
}

// POST /licenses/mint
// The caller must be the registered marketplace account; the public
// purchase flow is POST /samples/:id/licenses.
func (h *LicenseHandler) Mint(c *gin.Context) {
	userIDStr, ok := callerID(c)
	if !ok {
		return
	}
	caller, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return
	}

	var req services.MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	license, err := h.ledgerService.Mint(caller, &req)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.CreatedResponse(c, license)
}

// POST /licenses/:id/transfer
func (h *LicenseHandler) Transfer(c *gin.Context) {
	userIDStr, ok := callerID(c)
	if !ok {
		return
	}
	caller, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return
	}

	licenseID, ok := parseLicenseID(c)
	if !ok {
		return
	}

	var req services.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}
	req.LicenseID = licenseID

	license, err := h.ledgerService.Transfer(caller, &req)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.SuccessResponse(c, license)
}

// POST /licenses/withdraw-royalties
func (h *LicenseHandler) WithdrawRoyalties(c *gin.Context) {
	userIDStr, ok := callerID(c)
	if !ok {
		return
	}
	caller, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return
	}

	withdrawn, err := h.ledgerService.WithdrawRoyalties(caller)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"withdrawn": withdrawn,
	})
}

// GET /licenses/:id
func (h *LicenseHandler) GetLicense(c *gin.Context) {
	licenseID, ok := parseLicenseID(c)
	if !ok {
		return
	}

	license, err := h.ledgerService.GetLicense(licenseID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.SuccessResponse(c, license)
}

// GET /licenses/count
func (h *LicenseHandler) GetLicenseCount(c *gin.Context) {
	count, err := h.ledgerService.GetLicenseCount()
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"count": count})
}

// GET /licenses/mine
func (h *LicenseHandler) GetMyLicenses(c *gin.Context) {
	userIDStr, ok := callerID(c)
	if !ok {
		return
	}
	caller, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return
	}

	licenses, err := h.ledgerService.GetLicensesByOwner(caller)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"licenses": licenses,
		"count":    len(licenses),
	})
}

// GET /licenses/owner/:owner_id
func (h *LicenseHandler) GetLicensesByOwner(c *gin.Context) {
	ownerID, err := uuid.Parse(c.Param("owner_id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid owner ID", nil)
		return
	}

	licenses, err := h.ledgerService.GetLicensesByOwner(ownerID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"licenses": licenses,
		"count":    len(licenses),
	})
}

// GET /licenses/royalties
func (h *LicenseHandler) GetRoyalties(c *gin.Context) {
	userIDStr, ok := callerID(c)
	if !ok {
		return
	}
	caller, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return
	}

	withdrawable, err := h.ledgerService.GetRoyaltyEarnings(caller)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	lifetime, err := h.ledgerService.GetTotalRoyalties(caller)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"withdrawable":   withdrawable,
		"lifetime_total": lifetime,
	})
}

// GET /samples/:id/licenses
func (h *LicenseHandler) GetSampleLicenses(c *gin.Context) {
	sampleID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || sampleID == 0 {
		utils.BadRequestResponse(c, "Invalid sample ID", nil)
		return
	}

	licenses, err := h.ledgerService.GetLicensesBySample(sampleID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"licenses": licenses,
		"count":    len(licenses),
	})
}

// GET /samples/:id/license-info
func (h *LicenseHandler) GetSampleLicenseInfo(c *gin.Context) {
	sampleID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || sampleID == 0 {
		utils.BadRequestResponse(c, "Invalid sample ID", nil)
		return
	}

	info, err := h.ledgerService.GetSampleLicenseInfo(sampleID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.SuccessResponse(c, info)
}

// GET /samples/:id/exclusive
func (h *LicenseHandler) GetExclusiveStatus(c *gin.Context) {
	sampleID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || sampleID == 0 {
		utils.BadRequestResponse(c, "Invalid sample ID", nil)
		return
	}

	holder, err := h.ledgerService.GetExclusiveHolder(sampleID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"exclusively_licensed": holder != nil,
		"holder":               holder,
	})
}

// GET /samples/:id/my-license?license_type=<code>
func (h *LicenseHandler) GetMyLicenseForSample(c *gin.Context) {
	userIDStr, ok := callerID(c)
	if !ok {
		return
	}
	caller, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return
	}

	sampleID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || sampleID == 0 {
		utils.BadRequestResponse(c, "Invalid sample ID", nil)
		return
	}

	typeCode, err := strconv.ParseUint(c.DefaultQuery("license_type", "0"), 10, 8)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid license type", nil)
		return
	}
	licenseType, valid := models.ParseLicenseType(uint8(typeCode))
	if !valid {
		respondLedgerError(c, services.ErrInvalidLicenseType)
		return
	}

	license, err := h.ledgerService.GetUserLicense(caller, sampleID, licenseType)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.SuccessResponse(c, license)
}

// GET /samples/:id/has-license?owner=<uuid>&license_type=<code>
func (h *LicenseHandler) HasLicense(c *gin.Context) {
	sampleID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || sampleID == 0 {
		utils.BadRequestResponse(c, "Invalid sample ID", nil)
		return
	}

	ownerID, err := uuid.Parse(c.Query("owner"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid owner ID", nil)
		return
	}

	typeCode, err := strconv.ParseUint(c.DefaultQuery("license_type", "0"), 10, 8)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid license type", nil)
		return
	}
	licenseType, valid := models.ParseLicenseType(uint8(typeCode))
	if !valid {
		respondLedgerError(c, services.ErrInvalidLicenseType)
		return
	}

	has, err := h.ledgerService.HasLicense(ownerID, sampleID, licenseType)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"has_license": has})
}
