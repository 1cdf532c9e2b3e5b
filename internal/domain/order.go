/**
 * @description
 * This file defines the service catalog and order domain models. Orders snapshot
 * the service name and the computed amount at creation time so that later
 * catalog edits never retroactively alter historical orders.
 *
 * @notes
 * - Unit prices are stored as `int64` in hundredths of a cent (four decimal
 *   places of the currency). price * quantity is rounded half-up to whole
 *   cents exactly once, at order creation.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the fulfillment state of an order. The only permitted
// transitions are pending -> processing -> completed, and any -> failed.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderFailed     OrderStatus = "failed"
)

// Valid reports whether the status is one of the known values.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderCompleted, OrderFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status may advance to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if next == OrderFailed {
		return s != OrderFailed
	}
	switch s {
	case OrderPending:
		return next == OrderProcessing
	case OrderProcessing:
		return next == OrderCompleted
	}
	return false
}

// Service maps to the `services` catalog table.
type Service struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Price       int64     `json:"price"` // per unit, in hundredths of a cent
	MinQuantity int       `json:"min_quantity"`
	MaxQuantity int       `json:"max_quantity"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Order maps to the `orders` table. ServiceName and Amount are frozen
// snapshots taken when the order was placed.
type Order struct {
	ID            uuid.UUID   `json:"id"`
	AccountID     uuid.UUID   `json:"account_id"`
	ServiceName   string      `json:"service_name"`
	Quantity      int         `json:"quantity"`
	Link          string      `json:"link"`
	Amount        int64       `json:"amount"` // in cents, frozen at creation
	Status        OrderStatus `json:"status"`
	TransactionID uuid.UUID   `json:"transaction_id"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// PlaceOrderRequest is the DTO for the order placement endpoint.
type PlaceOrderRequest struct {
	ServiceID      uuid.UUID `json:"service_id"`
	Quantity       int       `json:"quantity"`
	Link           string    `json:"link"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
}

// UpsertServiceParams carries the admin catalog fields for creating or
// updating a service.
type UpsertServiceParams struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Price       int64  `json:"price"` // per unit, in hundredths of a cent
	MinQuantity int    `json:"min_quantity"`
	MaxQuantity int    `json:"max_quantity"`
	Active      *bool  `json:"active,omitempty"`
}
