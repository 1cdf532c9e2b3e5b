package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderPlacedEvent is published after an order and its debit commit together.
type OrderPlacedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	AccountID     uuid.UUID `json:"account_id"`
	ServiceName   string    `json:"service_name"`
	Quantity      int       `json:"quantity"`
	Amount        int64     `json:"amount"` // in cents
	TransactionID uuid.UUID `json:"transaction_id"`
	PlacedAt      time.Time `json:"placed_at"`
}

// OrderStatusEvent carries a fulfillment status change for an order. It is
// published on admin updates and consumed from the fulfillment worker queue.
type OrderStatusEvent struct {
	OrderID uuid.UUID   `json:"order_id"`
	Status  OrderStatus `json:"status"`
	Reason  string      `json:"reason,omitempty"`
}

// BalanceDepositedEvent is published after a deposit commits.
type BalanceDepositedEvent struct {
	AccountID     uuid.UUID `json:"account_id"`
	Amount        int64     `json:"amount"` // in cents
	NewBalance    int64     `json:"new_balance"`
	TransactionID uuid.UUID `json:"transaction_id"`
}

// APIKeyIssuedEvent is published when an account generates or rotates a key.
// The raw key value is intentionally absent.
type APIKeyIssuedEvent struct {
	AccountID uuid.UUID `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Rotated   bool      `json:"rotated"`
}
