// internal/handlers/sample.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sampledhq/sampled-backend/internal/services"
	"github.com/sampledhq/sampled-backend/internal/utils"
)

type SampleHandler struct {
	catalogService *services.CatalogService
	storageService *services.StorageService
}

func NewSampleHandler(catalogService *services.CatalogService, storageService *services.StorageService) *SampleHandler {
	return &SampleHandler{
		catalogService: catalogService,
		storageService: storageService,
	}
}

func parseSampleID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		utils.BadRequestResponse(c, "Invalid sample ID", nil)
		return 0, false
	}
	return id, true
}

func parseCaller(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, ok := callerID(c)
	if !ok {
		return uuid.Nil, false
	}
	caller, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return uuid.Nil, false
	}
	return caller, true
}

// POST /samples
func (h *SampleHandler) UploadSample(c *gin.Context) {
	caller, ok := parseCaller(c)
	if !ok {
		return
	}

	var req services.UploadSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	sample, err := h.catalogService.UploadSample(caller, &req)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.CreatedResponse(c, sample)
}

// GET /samples
func (h *SampleHandler) GetSamples(c *gin.Context) {
	params := services.SampleSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
	}

	if minBPM, err := strconv.ParseUint(c.Query("min_bpm"), 10, 64); err == nil {
		params.MinBPM = minBPM
	}
	if maxBPM, err := strconv.ParseUint(c.Query("max_bpm"), 10, 64); err == nil {
		params.MaxBPM = maxBPM
	}
	if sellerID, err := uuid.Parse(c.Query("seller")); err == nil {
		params.SellerID = &sellerID
	}

	samples, total, err := h.catalogService.GetAllSamples(params)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to fetch samples")
		return
	}

	result := utils.CreatePaginationResult(samples, total, params.PaginationParams)
	utils.PaginatedResponse(c, result)
}

// GET /samples/:id
func (h *SampleHandler) GetSample(c *gin.Context) {
	sampleID, ok := parseSampleID(c)
	if !ok {
		return
	}

	sample, err := h.catalogService.GetSample(sampleID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.SuccessResponse(c, sample)
}

// POST /samples/:id/purchase
func (h *SampleHandler) PurchaseSample(c *gin.Context) {
	caller, ok := parseCaller(c)
	if !ok {
		return
	}
	sampleID, ok := parseSampleID(c)
	if !ok {
		return
	}

	var req services.PurchaseSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	record, err := h.catalogService.PurchaseSample(caller, sampleID, &req)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.CreatedResponse(c, record)
}

// POST /samples/:id/licenses
func (h *SampleHandler) PurchaseLicense(c *gin.Context) {
	caller, ok := parseCaller(c)
	if !ok {
		return
	}
	sampleID, ok := parseSampleID(c)
	if !ok {
		return
	}

	var req services.PurchaseLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	license, err := h.catalogService.PurchaseLicense(caller, sampleID, &req)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.CreatedResponse(c, license)
}

// PUT /samples/:id/price
func (h *SampleHandler) UpdatePrice(c *gin.Context) {
	caller, ok := parseCaller(c)
	if !ok {
		return
	}
	sampleID, ok := parseSampleID(c)
	if !ok {
		return
	}

	var req services.UpdatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	sample, err := h.catalogService.UpdatePrice(caller, sampleID, &req)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.SuccessResponse(c, sample)
}

// DELETE /samples/:id
func (h *SampleHandler) DeactivateSample(c *gin.Context) {
	caller, ok := parseCaller(c)
	if !ok {
		return
	}
	sampleID, ok := parseSampleID(c)
	if !ok {
		return
	}

	if err := h.catalogService.DeactivateSample(caller, sampleID); err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"deactivated": true})
}

// POST /samples/withdraw-earnings
func (h *SampleHandler) WithdrawEarnings(c *gin.Context) {
	caller, ok := parseCaller(c)
	if !ok {
		return
	}

	withdrawn, err := h.catalogService.WithdrawEarnings(caller)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"withdrawn": withdrawn})
}

// GET /samples/mine
func (h *SampleHandler) GetMySamples(c *gin.Context) {
	caller, ok := parseCaller(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	samples, total, err := h.catalogService.GetUserSamples(caller, params)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to fetch samples")
		return
	}

	result := utils.CreatePaginationResult(samples, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /samples/purchases
func (h *SampleHandler) GetMyPurchases(c *gin.Context) {
	caller, ok := parseCaller(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	purchases, total, err := h.catalogService.GetUserPurchases(caller, params)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to fetch purchases")
		return
	}

	result := utils.CreatePaginationResult(purchases, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /samples/stats
func (h *SampleHandler) GetMyStats(c *gin.Context) {
	caller, ok := parseCaller(c)
	if !ok {
		return
	}

	stats, err := h.catalogService.GetUserStats(caller)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to fetch stats")
		return
	}

	utils.SuccessResponse(c, stats)
}

// POST /samples/assets?category=cover_images
// Uploads a preview asset and returns its URL for use in a listing.
func (h *SampleHandler) UploadAsset(c *gin.Context) {
	if _, ok := parseCaller(c); !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "No file provided", nil)
		return
	}
	defer file.Close()

	category := c.DefaultQuery("category", "cover_images")
	options := h.storageService.GetDefaultUploadOptions(category)

	switch category {
	case "audio_previews":
		if err := h.storageService.ValidateAudio(file); err != nil {
			utils.BadRequestResponse(c, err.Error(), nil)
			return
		}
	case "cover_images", "avatars":
		if err := h.storageService.ValidateImage(file); err != nil {
			utils.BadRequestResponse(c, err.Error(), nil)
			return
		}
	}

	result, err := h.storageService.UploadFile(file, header, options)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, result)
}
