/**
 * @description
 * This file defines the `Repository` interface, the contract for all data
 * access the service performs. The interface keeps the business logic
 * decoupled from PostgreSQL and lets tests substitute in-memory fakes.
 *
 * Every balance-affecting operation is expressed here as a single atomic
 * call (ApplyBalanceDelta, CreateOrderWithDebit, IncrementAPIKeyUsage); no
 * caller may read-modify-write an account's balance or usage counter around
 * this interface.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/quickearn/api-service/internal/domain"
)

// ApplyDeltaParams describes one ledger mutation. Amount is signed: positive
// credits, negative debits.
type ApplyDeltaParams struct {
	AccountID      uuid.UUID
	Amount         int64 // signed, in cents, nonzero
	Type           domain.TransactionType
	Description    string
	OrderID        *uuid.UUID
	PaymentDetails map[string]any
	IdempotencyKey *string
}

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Account methods
	CreateAccount(ctx context.Context, account *domain.Account) error
	FindAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindAccountByAPIKey(ctx context.Context, key string) (*domain.Account, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	UpdateAccountRole(ctx context.Context, accountID uuid.UUID, role domain.Role) error
	CountAccounts(ctx context.Context) (int64, error)

	// Ledger methods. ApplyBalanceDelta performs the balance check, the
	// balance mutation, and the transaction insert as one atomic unit; a
	// rejected debit leaves no trace. An idempotency replay returns the
	// previously committed transaction without reapplying the delta.
	ApplyBalanceDelta(ctx context.Context, params ApplyDeltaParams) (*domain.BalanceChange, error)
	FindTransactionsByAccountID(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error)
	FindTransactionByID(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error)

	// Service catalog methods
	CreateService(ctx context.Context, service *domain.Service) error
	UpdateService(ctx context.Context, serviceID uuid.UUID, params domain.UpsertServiceParams) (*domain.Service, error)
	FindServiceByID(ctx context.Context, serviceID uuid.UUID) (*domain.Service, error)
	ListServices(ctx context.Context, activeOnly bool) ([]domain.Service, error)

	// Order methods. CreateOrderWithDebit commits the order row, its ledger
	// transaction, and the balance debit in one database transaction.
	CreateOrderWithDebit(ctx context.Context, order *domain.Order, description string, idempotencyKey *string) (*domain.BalanceChange, error)
	FindOrderByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	FindOrdersByAccountID(ctx context.Context, accountID uuid.UUID) ([]domain.Order, error)
	ListRecentOrders(ctx context.Context, limit int) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from, to domain.OrderStatus) error
	CountOrders(ctx context.Context) (int64, error)
	CountOrdersByStatus(ctx context.Context, status domain.OrderStatus) (int64, error)

	// API key methods
	SetAccountAPIKey(ctx context.Context, accountID uuid.UUID, key string, createdAt, expiresAt time.Time) error
	SetAPIKeyStatus(ctx context.Context, accountID uuid.UUID, status domain.APIKeyStatus) error
	ListAPIKeys(ctx context.Context, opts domain.APIKeyListOptions) ([]domain.APIKeyListItem, int64, error)
	KeyInventoryStats(ctx context.Context) (*domain.KeyInventoryStats, error)

	// Usage methods. IncrementAPIKeyUsage is a single-statement atomic
	// increment; it is not transactionally linked to the log insert.
	InsertUsageLog(ctx context.Context, entry *domain.UsageLogEntry) error
	IncrementAPIKeyUsage(ctx context.Context, accountID uuid.UUID) error
	FindUsageLogsByAccountID(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.UsageLogEntry, error)
	UsageStats(ctx context.Context, accountID *uuid.UUID) (*domain.UsageStats, error)
	CountUsageLogs(ctx context.Context) (int64, error)
}
