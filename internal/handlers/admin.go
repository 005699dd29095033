// internal/handlers/admin.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sampledhq/sampled-backend/internal/services"
	"github.com/sampledhq/sampled-backend/internal/utils"
)

type AdminHandler struct {
	ledgerService  *services.LedgerService
	catalogService *services.CatalogService
}

func NewAdminHandler(ledgerService *services.LedgerService, catalogService *services.CatalogService) *AdminHandler {
	return &AdminHandler{
		ledgerService:  ledgerService,
		catalogService: catalogService,
	}
}

// PUT /admin/marketplace
func (h *AdminHandler) SetMarketplace(c *gin.Context) {
	caller, ok := parseCaller(c)
	if !ok {
		return
	}

	var req struct {
		AccountID uuid.UUID `json:"account_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if err := h.ledgerService.SetMarketplace(caller, req.AccountID); err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"marketplace_id": req.AccountID})
}

// GET /admin/marketplace
func (h *AdminHandler) GetMarketplace(c *gin.Context) {
	marketplaceID, err := h.ledgerService.GetMarketplace()
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to fetch marketplace account")
		return
	}

	utils.SuccessResponse(c, gin.H{"marketplace_id": marketplaceID})
}

// GET /admin/stats
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.catalogService.GetMarketplaceStats()
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to fetch stats")
		return
	}

	utils.SuccessResponse(c, stats)
}
