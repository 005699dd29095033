// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sampledhq/sampled-backend/internal/services"
	"github.com/sampledhq/sampled-backend/internal/utils"
)

// respondLedgerError maps a service failure onto an HTTP response. Ledger
// errors carry stable codes; anything else is a 500.
func respondLedgerError(c *gin.Context, err error) {
	var ledgerErr *services.LedgerError
	if !errors.As(err, &ledgerErr) {
		utils.InternalErrorResponse(c, "An unexpected error occurred")
		return
	}

	switch ledgerErr {
	case services.ErrUnauthorized, services.ErrNotLicenseOwner, services.ErrNotSeller:
		utils.ForbiddenResponse(c, ledgerErr.Code, ledgerErr.Message)
	case services.ErrLicenseNotFound, services.ErrSampleNotFound:
		utils.NotFoundResponse(c, ledgerErr.Code, ledgerErr.Message)
	case services.ErrSampleExclusivelyLicensed, services.ErrAlreadyHasLicenseType,
		services.ErrAlreadyPurchased, services.ErrExclusiveNotTransferable,
		services.ErrLicenseInactive, services.ErrSampleInactive, services.ErrSelfPurchase,
		services.ErrDepositAlreadyConfirmed:
		utils.ConflictResponse(c, ledgerErr.Code, ledgerErr.Message)
	case services.ErrInsufficientPayment, services.ErrInsufficientFunds:
		utils.PaymentRequiredResponse(c, ledgerErr.Code, ledgerErr.Message)
	case services.ErrMarketplaceNotSet:
		utils.ErrorResponse(c, http.StatusServiceUnavailable, ledgerErr.Code, ledgerErr.Message, nil)
	default:
		utils.ErrorResponse(c, http.StatusBadRequest, ledgerErr.Code, ledgerErr.Message, nil)
	}
}

// callerID extracts the authenticated user's id, responding 401 on failure.
func callerID(c *gin.Context) (string, bool) {
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return "", false
	}
	return userIDStr, true
}
