package app

import "errors"

// Validation and policy errors raised by the business layer before or during
// an operation. Storage-level sentinels (not found, insufficient funds,
// duplicates) live in the store package; these cover everything detected
// above it.
var (
	ErrInvalidAmount      = errors.New("amount must be a nonzero fixed-point value")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("not authorized to access this resource")
	ErrServiceInactive    = errors.New("service is not active")
	ErrQuantityOutOfRange = errors.New("quantity outside the service's allowed range")
	ErrAPIKeyExpired      = errors.New("api key has expired")
	ErrAPIKeyBlocked      = errors.New("api key is blocked by admin")
	ErrInvalidTransition  = errors.New("order status transition not allowed")
	ErrRateLimited        = errors.New("rate limit exceeded for this api key")
)
