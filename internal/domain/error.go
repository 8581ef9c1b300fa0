package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrSessionNotFound    = errors.New("payment session not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")

	// Checkout errors
	ErrNoGatewaysAvailable = errors.New("no payment gateways enabled")
	ErrUnsupportedGateway  = errors.New("gateway is not enabled")
	ErrInvalidCoupon       = errors.New("coupon code is invalid")
	ErrCouponExpired       = errors.New("coupon has expired")
	ErrCouponExceedsAmount = errors.New("coupon discount exceeds order amount")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrIntentCreation      = errors.New("provider rejected intent creation")
	ErrCharge              = errors.New("provider declined the charge")
	ErrAlreadyProcessing   = errors.New("session is already processing")
	ErrRedirectValidation  = errors.New("redirect callback failed re-validation")
	ErrMissingExchangeRate = errors.New("no exchange rate configured for currency")
	ErrLockNotAcquired     = errors.New("could not acquire lock")
)
