// internal/handlers/wallet.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/sampledhq/sampled-backend/internal/services"
	"github.com/sampledhq/sampled-backend/internal/utils"
)

type WalletHandler struct {
	walletService *services.WalletService
}

func NewWalletHandler(walletService *services.WalletService) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

// POST /wallet/deposit
func (h *WalletHandler) CreateDeposit(c *gin.Context) {
	caller, ok := parseCaller(c)
	if !ok {
		return
	}

	var req services.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	intent, err := h.walletService.CreateDepositIntent(caller, &req)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, intent)
}

// POST /wallet/deposit/confirm
func (h *WalletHandler) ConfirmDeposit(c *gin.Context) {
	caller, ok := parseCaller(c)
	if !ok {
		return
	}

	var req services.ConfirmDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	wallet, err := h.walletService.ConfirmDeposit(caller, &req)
	if err != nil {
		var ledgerErr *services.LedgerError
		if errors.As(err, &ledgerErr) {
			respondLedgerError(c, err)
		} else {
			utils.BadRequestResponse(c, err.Error(), nil)
		}
		return
	}

	utils.SuccessResponse(c, wallet)
}

// POST /wallet/payout
func (h *WalletHandler) RequestPayout(c *gin.Context) {
	caller, ok := parseCaller(c)
	if !ok {
		return
	}

	var req services.PayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	wallet, err := h.walletService.RequestPayout(caller, &req)
	if err != nil {
		if errors.Is(err, services.ErrInsufficientFunds) {
			respondLedgerError(c, err)
		} else {
			utils.BadRequestResponse(c, err.Error(), nil)
		}
		return
	}

	utils.SuccessResponse(c, wallet)
}

// GET /wallet
func (h *WalletHandler) GetWallet(c *gin.Context) {
	caller, ok := parseCaller(c)
	if !ok {
		return
	}

	wallet, err := h.walletService.GetWallet(caller)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to fetch wallet")
		return
	}

	utils.SuccessResponse(c, wallet)
}
