/**
 * @description
 * This file defines the ledger transaction model. Every committed balance
 * mutation on an account is paired with exactly one transaction row carrying
 * the same signed amount; the current balance is always the signed sum of an
 * account's committed transactions.
 *
 * @notes
 * - A transaction is immutable once created. The only permitted mutation is
 *   the pending -> completed/failed status transition, and only for
 *   non-order flows.
 * - The optional idempotency key guards mutating calls against client-side
 *   retries over an unreliable transport: a replay returns the original
 *   transaction instead of reapplying the delta.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType classifies the ledger entry.
type TransactionType string

const (
	TransactionDeposit    TransactionType = "deposit"
	TransactionWithdrawal TransactionType = "withdrawal"
	TransactionOrder      TransactionType = "order"
	TransactionRefund     TransactionType = "refund"
)

// Valid reports whether the type is one of the known values.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionDeposit, TransactionWithdrawal, TransactionOrder, TransactionRefund:
		return true
	}
	return false
}

// TransactionStatus is the settlement state of a ledger entry.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

// Transaction maps to the `transactions` table.
type Transaction struct {
	ID             uuid.UUID         `json:"id"`
	AccountID      uuid.UUID         `json:"account_id"`
	Amount         int64             `json:"amount"` // signed, in cents
	Type           TransactionType   `json:"type"`
	Status         TransactionStatus `json:"status"`
	Description    string            `json:"description"`
	OrderID        *uuid.UUID        `json:"order_id,omitempty"`
	PaymentDetails map[string]any    `json:"payment_details,omitempty"`
	IdempotencyKey *string           `json:"-"`
	CreatedAt      time.Time         `json:"created_at"`
}

// BalanceChange is the result of a committed ledger delta.
type BalanceChange struct {
	NewBalance    int64     `json:"new_balance"` // in cents
	TransactionID uuid.UUID `json:"transaction_id"`
}

// AddBalanceRequest is the DTO for the demo-gateway deposit endpoint.
type AddBalanceRequest struct {
	Amount         int64  `json:"amount"` // in cents, must be positive
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}
