/**
 * @description
 * This file contains the ledger operations: the single choke point through
 * which an account's balance changes. Validation happens before any I/O; the
 * atomic check-and-write itself lives in the repository, so a rejected debit
 * leaves no side effect and concurrent deltas on one account serialize at
 * the storage layer.
 */

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quickearn/api-service/internal/domain"
	"github.com/quickearn/api-service/internal/store"
)

// ApplyDelta validates and applies one signed ledger delta. It is the only
// path that mutates a balance; every caller (deposits, admin adjustments,
// refunds) goes through it. Amount is in cents and must be nonzero.
func (s *Service) ApplyDelta(ctx context.Context, accountID uuid.UUID, amount int64, txType domain.TransactionType, description string, orderID *uuid.UUID, idempotencyKey string) (*domain.BalanceChange, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if !txType.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction type %q", ErrInvalidInput, txType)
	}

	params := store.ApplyDeltaParams{
		AccountID:   accountID,
		Amount:      amount,
		Type:        txType,
		Description: description,
		OrderID:     orderID,
	}
	if idempotencyKey != "" {
		params.IdempotencyKey = &idempotencyKey
	}

	return s.repo.ApplyBalanceDelta(ctx, params)
}

// AddBalance credits an account through the demo payment gateway. The amount
// must be strictly positive; the ledger entry is created completed with the
// gateway metadata attached.
func (s *Service) AddBalance(ctx context.Context, accountID uuid.UUID, amount int64, idempotencyKey string) (*domain.BalanceChange, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	params := store.ApplyDeltaParams{
		AccountID:   accountID,
		Amount:      amount,
		Type:        domain.TransactionDeposit,
		Description: "Balance added via demo gateway",
		PaymentDetails: map[string]any{
			"method":    "demo_gateway",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	}
	if idempotencyKey != "" {
		params.IdempotencyKey = &idempotencyKey
	}

	change, err := s.repo.ApplyBalanceDelta(ctx, params)
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, "balance.deposited", domain.BalanceDepositedEvent{
		AccountID:     accountID,
		Amount:        amount,
		NewBalance:    change.NewBalance,
		TransactionID: change.TransactionID,
	})
	return change, nil
}

// Transactions returns an account's ledger history, newest first.
func (s *Service) Transactions(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	return s.repo.FindTransactionsByAccountID(ctx, accountID)
}
