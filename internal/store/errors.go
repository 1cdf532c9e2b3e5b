package store

import "errors"

// Sentinel errors returned by Repository implementations. Handlers map these
// to HTTP statuses with errors.Is; the business layer never inspects driver
// error codes directly.
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrDuplicateUser       = errors.New("username or email already taken")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrServiceNotFound     = errors.New("service not found")
	ErrDuplicateService    = errors.New("service with this name already exists")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderStatusConflict = errors.New("order status changed concurrently")
	ErrAPIKeyNotFound      = errors.New("api key not found")
	ErrDuplicateAPIKey     = errors.New("api key already in use")
	ErrTransactionNotFound = errors.New("transaction not found")
)
