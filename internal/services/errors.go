// internal/services/errors.go
package services

// LedgerError is a stable, machine-readable failure. Handlers map the Code
// onto an HTTP status; services return these unwrapped so callers can use
// errors.Is against the sentinels below.
type LedgerError struct {
	Code    string
	Message string
}

func (e *LedgerError) Error() string {
	return e.Message
}

var (
	ErrUnauthorized              = &LedgerError{"UNAUTHORIZED", "caller is not permitted to perform this operation"}
	ErrMarketplaceNotSet         = &LedgerError{"MARKETPLACE_NOT_SET", "no marketplace account has been registered"}
	ErrInvalidLicenseType        = &LedgerError{"INVALID_LICENSE_TYPE", "unknown license type code"}
	ErrSampleExclusivelyLicensed = &LedgerError{"SAMPLE_EXCLUSIVELY_LICENSED", "sample is under an exclusive license"}
	ErrAlreadyHasLicenseType     = &LedgerError{"ALREADY_HAS_LICENSE_TYPE", "owner already holds a license of this type for the sample"}
	ErrLicenseNotFound           = &LedgerError{"LICENSE_NOT_FOUND", "license does not exist"}
	ErrNotLicenseOwner           = &LedgerError{"NOT_LICENSE_OWNER", "caller does not own this license"}
	ErrLicenseInactive           = &LedgerError{"LICENSE_INACTIVE", "license has been deactivated"}
	ErrExclusiveNotTransferable  = &LedgerError{"EXCLUSIVE_NOT_TRANSFERABLE", "exclusive licenses cannot be transferred"}
	ErrInsufficientPayment       = &LedgerError{"INSUFFICIENT_PAYMENT", "payment does not cover sale price plus royalty and platform fee"}
	ErrNoRoyalties               = &LedgerError{"NO_ROYALTIES", "no withdrawable royalties for this creator"}
	ErrSampleNotFound            = &LedgerError{"SAMPLE_NOT_FOUND", "sample does not exist"}
	ErrSampleInactive            = &LedgerError{"SAMPLE_INACTIVE", "sample is not active"}
	ErrInvalidPrice              = &LedgerError{"INVALID_PRICE", "price must be greater than zero"}
	ErrAlreadyPurchased          = &LedgerError{"ALREADY_PURCHASED", "buyer already purchased this sample"}
	ErrNotSeller                 = &LedgerError{"NOT_SELLER", "caller is not the seller of this sample"}
	ErrSelfPurchase              = &LedgerError{"SELF_PURCHASE", "seller cannot purchase their own sample"}
	ErrNoEarnings                = &LedgerError{"NO_EARNINGS", "no withdrawable earnings for this seller"}
	ErrInsufficientFunds         = &LedgerError{"INSUFFICIENT_FUNDS", "wallet balance does not cover the payment"}
	ErrDepositAlreadyConfirmed   = &LedgerError{"DEPOSIT_ALREADY_CONFIRMED", "payment intent has already funded a deposit"}
	ErrTitleTooLong              = &LedgerError{"TITLE_TOO_LONG", "title exceeds the maximum length"}
	ErrIpfsLinkTooLong           = &LedgerError{"IPFS_LINK_TOO_LONG", "ipfs link exceeds the maximum length"}
	ErrCoverImageTooLong         = &LedgerError{"COVER_IMAGE_TOO_LONG", "cover image link exceeds the maximum length"}
	ErrGenreTooLong              = &LedgerError{"GENRE_TOO_LONG", "genre exceeds the maximum length"}
	ErrVideoPreviewTooLong       = &LedgerError{"VIDEO_PREVIEW_TOO_LONG", "video preview link exceeds the maximum length"}
)
