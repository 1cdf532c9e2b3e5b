/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface. All balance-affecting writes run inside a database transaction
 * with the account row locked via `SELECT ... FOR UPDATE`, so concurrent
 * deltas on one account serialize at the storage layer and a debit can never
 * observe a stale balance.
 *
 * @dependencies
 * - context, errors, strings, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quickearn/api-service/internal/domain"
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, username, email, password_hash, role, balance,
	api_key, api_key_status, api_key_created_at, api_key_expires_at,
	api_key_usage_count, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&account.Balance,
		&account.APIKey,
		&account.APIKeyStatus,
		&account.APIKeyCreatedAt,
		&account.APIKeyExpiresAt,
		&account.APIKeyUsageCount,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreateAccount inserts a new account row. Username and email collisions map
// to ErrDuplicateUser.
func (r *PostgresRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, username, email, password_hash, role, balance)
		VALUES ($1, btrim($2), lower(btrim($3)), $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		account.ID, account.Username, account.Email, account.PasswordHash,
		account.Role, account.Balance,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUser
		}
		return err
	}
	return nil
}

// FindAccountByID retrieves an account by its primary key.
func (r *PostgresRepository) FindAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRow(ctx, query, accountID))
}

// FindAccountByEmail retrieves an account by email, case-insensitively.
func (r *PostgresRepository) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE lower(email) = lower(btrim($1))`
	return scanAccount(r.db.QueryRow(ctx, query, email))
}

// FindAccountByAPIKey retrieves the account owning the given key.
func (r *PostgresRepository) FindAccountByAPIKey(ctx context.Context, key string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE api_key = $1`
	account, err := scanAccount(r.db.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, err
	}
	return account, nil
}

// ListAccounts returns all accounts, newest first.
func (r *PostgresRepository) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

// UpdateAccountRole changes an account's role.
func (r *PostgresRepository) UpdateAccountRole(ctx context.Context, accountID uuid.UUID, role domain.Role) error {
	result, err := r.db.Exec(ctx,
		`UPDATE accounts SET role = $1, updated_at = NOW() WHERE id = $2`, role, accountID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// CountAccounts returns the total number of registered accounts.
func (r *PostgresRepository) CountAccounts(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count)
	return count, err
}

// ApplyBalanceDelta atomically applies one signed ledger delta to an account.
// The account row is locked for the duration of the check-and-write, so two
// concurrent debits cannot both observe a balance that permits them jointly.
// A rejected debit commits nothing, including the transaction row.
func (r *PostgresRepository) ApplyBalanceDelta(ctx context.Context, params ApplyDeltaParams) (*domain.BalanceChange, error) {
	if params.IdempotencyKey != nil {
		if change, ok, err := r.findIdempotentReplay(ctx, params.AccountID, *params.IdempotencyKey); err != nil {
			return nil, err
		} else if ok {
			return change, nil
		}
	}

	change, err := r.applyDeltaOnce(ctx, params)
	if err != nil && isUniqueViolation(err) && params.IdempotencyKey != nil {
		// Lost the race against a concurrent call carrying the same key.
		if change, ok, replayErr := r.findIdempotentReplay(ctx, params.AccountID, *params.IdempotencyKey); replayErr == nil && ok {
			return change, nil
		}
	}
	return change, err
}

func (r *PostgresRepository) applyDeltaOnce(ctx context.Context, params ApplyDeltaParams) (*domain.BalanceChange, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var balance int64
	err = tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1 FOR UPDATE`, params.AccountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	newBalance := balance + params.Amount
	if newBalance < 0 {
		return nil, ErrInsufficientFunds
	}

	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = $1, updated_at = NOW() WHERE id = $2`,
		newBalance, params.AccountID); err != nil {
		return nil, err
	}

	transactionID := uuid.New()
	if _, err := tx.Exec(ctx, `
		INSERT INTO transactions (id, account_id, amount, type, status, description, order_id, payment_details, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		transactionID, params.AccountID, params.Amount, params.Type,
		domain.TransactionCompleted, params.Description, params.OrderID,
		params.PaymentDetails, params.IdempotencyKey); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &domain.BalanceChange{NewBalance: newBalance, TransactionID: transactionID}, nil
}

// findIdempotentReplay looks up a previously committed transaction for the
// given idempotency key and pairs it with the account's current balance.
func (r *PostgresRepository) findIdempotentReplay(ctx context.Context, accountID uuid.UUID, key string) (*domain.BalanceChange, bool, error) {
	var transactionID uuid.UUID
	err := r.db.QueryRow(ctx,
		`SELECT id FROM transactions WHERE account_id = $1 AND idempotency_key = $2`,
		accountID, key).Scan(&transactionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var balance int64
	if err := r.db.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrAccountNotFound
		}
		return nil, false, err
	}
	return &domain.BalanceChange{NewBalance: balance, TransactionID: transactionID}, true, nil
}

const transactionColumns = `id, account_id, amount, type, status, description, order_id, payment_details, idempotency_key, created_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var tr domain.Transaction
	err := row.Scan(
		&tr.ID, &tr.AccountID, &tr.Amount, &tr.Type, &tr.Status,
		&tr.Description, &tr.OrderID, &tr.PaymentDetails, &tr.IdempotencyKey, &tr.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &tr, nil
}

// FindTransactionsByAccountID returns an account's ledger, newest first.
func (r *PostgresRepository) FindTransactionsByAccountID(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE account_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		tr, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *tr)
	}
	return transactions, rows.Err()
}

// FindTransactionByID retrieves one ledger entry.
func (r *PostgresRepository) FindTransactionByID(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return scanTransaction(r.db.QueryRow(ctx, query, transactionID))
}

// CreateService inserts a catalog entry. Name collisions map to ErrDuplicateService.
func (r *PostgresRepository) CreateService(ctx context.Context, service *domain.Service) error {
	query := `
		INSERT INTO services (id, name, description, type, price, min_quantity, max_quantity, active)
		VALUES ($1, btrim($2), $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		service.ID, service.Name, service.Description, service.Type,
		service.Price, service.MinQuantity, service.MaxQuantity, service.Active,
	).Scan(&service.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateService
		}
		return err
	}
	return nil
}

// UpdateService overwrites the editable catalog fields of a service.
func (r *PostgresRepository) UpdateService(ctx context.Context, serviceID uuid.UUID, params domain.UpsertServiceParams) (*domain.Service, error) {
	active := true
	if params.Active != nil {
		active = *params.Active
	}
	query := `
		UPDATE services
		SET name = btrim($1), description = $2, type = $3, price = $4,
			min_quantity = $5, max_quantity = $6, active = $7
		WHERE id = $8
		RETURNING id, name, description, type, price, min_quantity, max_quantity, active, created_at
	`
	service, err := scanService(r.db.QueryRow(ctx, query,
		params.Name, params.Description, params.Type, params.Price,
		params.MinQuantity, params.MaxQuantity, active, serviceID))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateService
		}
		return nil, err
	}
	return service, nil
}

func scanService(row pgx.Row) (*domain.Service, error) {
	var service domain.Service
	err := row.Scan(
		&service.ID, &service.Name, &service.Description, &service.Type,
		&service.Price, &service.MinQuantity, &service.MaxQuantity,
		&service.Active, &service.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &service, nil
}

// FindServiceByID retrieves one catalog entry.
func (r *PostgresRepository) FindServiceByID(ctx context.Context, serviceID uuid.UUID) (*domain.Service, error) {
	query := `SELECT id, name, description, type, price, min_quantity, max_quantity, active, created_at
		FROM services WHERE id = $1`
	return scanService(r.db.QueryRow(ctx, query, serviceID))
}

// ListServices returns catalog entries, optionally restricted to active ones.
func (r *PostgresRepository) ListServices(ctx context.Context, activeOnly bool) ([]domain.Service, error) {
	query := `SELECT id, name, description, type, price, min_quantity, max_quantity, active, created_at FROM services`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []domain.Service
	for rows.Next() {
		service, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, *service)
	}
	return services, rows.Err()
}

// CreateOrderWithDebit commits the order row, its ledger transaction, and the
// balance debit as one database transaction. Either all three land or none
// do; there is no window where funds left the account without an order.
func (r *PostgresRepository) CreateOrderWithDebit(ctx context.Context, order *domain.Order, description string, idempotencyKey *string) (*domain.BalanceChange, error) {
	if idempotencyKey != nil {
		if existing, ok, err := r.findOrderReplay(ctx, order.AccountID, *idempotencyKey); err != nil {
			return nil, err
		} else if ok {
			*order = *existing.order
			return existing.change, nil
		}
	}

	change, err := r.createOrderOnce(ctx, order, description, idempotencyKey)
	if err != nil && isUniqueViolation(err) && idempotencyKey != nil {
		if existing, ok, replayErr := r.findOrderReplay(ctx, order.AccountID, *idempotencyKey); replayErr == nil && ok {
			*order = *existing.order
			return existing.change, nil
		}
	}
	return change, err
}

func (r *PostgresRepository) createOrderOnce(ctx context.Context, order *domain.Order, description string, idempotencyKey *string) (*domain.BalanceChange, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var balance int64
	err = tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1 FOR UPDATE`, order.AccountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	newBalance := balance - order.Amount
	if newBalance < 0 {
		return nil, ErrInsufficientFunds
	}

	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = $1, updated_at = NOW() WHERE id = $2`,
		newBalance, order.AccountID); err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (id, account_id, service_name, quantity, link, amount, status, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		order.ID, order.AccountID, order.ServiceName, order.Quantity,
		order.Link, order.Amount, order.Status, order.TransactionID,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO transactions (id, account_id, amount, type, status, description, order_id, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		order.TransactionID, order.AccountID, -order.Amount, domain.TransactionOrder,
		domain.TransactionCompleted, description, order.ID, idempotencyKey); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &domain.BalanceChange{NewBalance: newBalance, TransactionID: order.TransactionID}, nil
}

type orderReplay struct {
	order  *domain.Order
	change *domain.BalanceChange
}

func (r *PostgresRepository) findOrderReplay(ctx context.Context, accountID uuid.UUID, key string) (orderReplay, bool, error) {
	var transactionID uuid.UUID
	var orderID *uuid.UUID
	err := r.db.QueryRow(ctx,
		`SELECT id, order_id FROM transactions WHERE account_id = $1 AND idempotency_key = $2`,
		accountID, key).Scan(&transactionID, &orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return orderReplay{}, false, nil
		}
		return orderReplay{}, false, err
	}
	if orderID == nil {
		return orderReplay{}, false, fmt.Errorf("idempotency key %q reused across operation kinds", key)
	}

	order, err := r.FindOrderByID(ctx, *orderID)
	if err != nil {
		return orderReplay{}, false, err
	}
	var balance int64
	if err := r.db.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance); err != nil {
		return orderReplay{}, false, err
	}
	return orderReplay{
		order:  order,
		change: &domain.BalanceChange{NewBalance: balance, TransactionID: transactionID},
	}, true, nil
}

const orderColumns = `id, account_id, service_name, quantity, link, amount, status, transaction_id, created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	err := row.Scan(
		&order.ID, &order.AccountID, &order.ServiceName, &order.Quantity,
		&order.Link, &order.Amount, &order.Status, &order.TransactionID,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindOrderByID retrieves one order.
func (r *PostgresRepository) FindOrderByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(r.db.QueryRow(ctx, query, orderID))
}

// FindOrdersByAccountID returns an account's orders, newest first.
func (r *PostgresRepository) FindOrdersByAccountID(ctx context.Context, accountID uuid.UUID) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE account_id = $1 ORDER BY created_at DESC`
	return r.queryOrders(ctx, query, accountID)
}

// ListRecentOrders returns the newest orders across all accounts.
func (r *PostgresRepository) ListRecentOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC LIMIT $1`
	return r.queryOrders(ctx, query, limit)
}

func (r *PostgresRepository) queryOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

// UpdateOrderStatus advances an order conditionally on its current status, so
// a concurrent update cannot be silently overwritten.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from, to domain.OrderStatus) error {
	result, err := r.db.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		to, orderID, from)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		if _, findErr := r.FindOrderByID(ctx, orderID); findErr != nil {
			return findErr
		}
		return ErrOrderStatusConflict
	}
	return nil
}

// CountOrders returns the total order count.
func (r *PostgresRepository) CountOrders(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&count)
	return count, err
}

// CountOrdersByStatus returns the order count in one status.
func (r *PostgresRepository) CountOrdersByStatus(ctx context.Context, status domain.OrderStatus) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE status = $1`, status).Scan(&count)
	return count, err
}

// SetAccountAPIKey installs a freshly generated key on an account, replacing
// any prior key and resetting the block state to active. A collision with a
// key issued to another account maps to ErrDuplicateAPIKey so the issuer can
// retry with new randomness.
func (r *PostgresRepository) SetAccountAPIKey(ctx context.Context, accountID uuid.UUID, key string, createdAt, expiresAt time.Time) error {
	result, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET api_key = $1, api_key_status = $2, api_key_created_at = $3,
			api_key_expires_at = $4, api_key_usage_count = 0, updated_at = NOW()
		WHERE id = $5`,
		key, domain.APIKeyActive, createdAt, expiresAt, accountID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateAPIKey
		}
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// SetAPIKeyStatus toggles the block state of an issued key. Idempotent.
func (r *PostgresRepository) SetAPIKeyStatus(ctx context.Context, accountID uuid.UUID, status domain.APIKeyStatus) error {
	result, err := r.db.Exec(ctx,
		`UPDATE accounts SET api_key_status = $1, updated_at = NOW() WHERE id = $2 AND api_key IS NOT NULL`,
		status, accountID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		if _, findErr := r.FindAccountByID(ctx, accountID); findErr != nil {
			return findErr
		}
		return ErrAPIKeyNotFound
	}
	return nil
}

// buildAPIKeyFilter assembles the WHERE clause and arguments for the admin
// key listing from the requested search text and status filter.
func buildAPIKeyFilter(opts domain.APIKeyListOptions) (string, []any) {
	clauses := []string{"api_key IS NOT NULL"}
	var args []any

	if search := strings.TrimSpace(opts.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(lower(username) LIKE $%d OR lower(email) LIKE $%d)", n, n))
	}
	if opts.Status == string(domain.APIKeyActive) || opts.Status == string(domain.APIKeyBlocked) {
		args = append(args, opts.Status)
		clauses = append(clauses, fmt.Sprintf("api_key_status = $%d", len(args)))
	}

	return strings.Join(clauses, " AND "), args
}

// normalizePagination clamps page/limit to sane bounds and returns the
// LIMIT/OFFSET pair.
func normalizePagination(page, limit int) (int, int) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}

// ListAPIKeys returns a page of issued keys matching the filter, plus the
// total match count for pagination.
func (r *PostgresRepository) ListAPIKeys(ctx context.Context, opts domain.APIKeyListOptions) ([]domain.APIKeyListItem, int64, error) {
	where, args := buildAPIKeyFilter(opts)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := normalizePagination(opts.Page, opts.Limit)
	query := fmt.Sprintf(`
		SELECT id, username, email, api_key, api_key_status,
			api_key_created_at, api_key_expires_at, api_key_usage_count
		FROM accounts
		WHERE %s
		ORDER BY api_key_created_at DESC NULLS LAST
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []domain.APIKeyListItem
	for rows.Next() {
		var item domain.APIKeyListItem
		if err := rows.Scan(
			&item.AccountID, &item.Username, &item.Email, &item.APIKey,
			&item.Status, &item.CreatedAt, &item.ExpiresAt, &item.UsageCount,
		); err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

// KeyInventoryStats counts issued keys by block state.
func (r *PostgresRepository) KeyInventoryStats(ctx context.Context) (*domain.KeyInventoryStats, error) {
	var stats domain.KeyInventoryStats
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE api_key IS NOT NULL),
			COUNT(*) FILTER (WHERE api_key IS NOT NULL AND api_key_status = 'active'),
			COUNT(*) FILTER (WHERE api_key IS NOT NULL AND api_key_status = 'blocked')
		FROM accounts`).Scan(&stats.TotalKeys, &stats.ActiveKeys, &stats.BlockedKeys)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// InsertUsageLog appends one immutable usage log entry.
func (r *PostgresRepository) InsertUsageLog(ctx context.Context, entry *domain.UsageLogEntry) error {
	query := `
		INSERT INTO usage_logs (id, account_id, api_key, query, user_agent, ip_address, status, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	return r.db.QueryRow(ctx, query,
		entry.ID, entry.AccountID, entry.APIKey, entry.Query,
		entry.UserAgent, entry.IPAddress, entry.Status, entry.ErrorMessage,
	).Scan(&entry.CreatedAt)
}

// IncrementAPIKeyUsage bumps the usage counter with a single-statement
// atomic increment. Concurrent calls never lose updates.
func (r *PostgresRepository) IncrementAPIKeyUsage(ctx context.Context, accountID uuid.UUID) error {
	result, err := r.db.Exec(ctx,
		`UPDATE accounts SET api_key_usage_count = api_key_usage_count + 1, updated_at = NOW() WHERE id = $1`,
		accountID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// FindUsageLogsByAccountID returns an account's most recent log entries.
func (r *PostgresRepository) FindUsageLogsByAccountID(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.UsageLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, account_id, api_key, query, user_agent, ip_address, status, error_message, created_at
		FROM usage_logs
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.UsageLogEntry
	for rows.Next() {
		var entry domain.UsageLogEntry
		if err := rows.Scan(
			&entry.ID, &entry.AccountID, &entry.APIKey, &entry.Query,
			&entry.UserAgent, &entry.IPAddress, &entry.Status,
			&entry.ErrorMessage, &entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// UsageStats aggregates request counts, optionally filtered to one account:
// lifetime totals by outcome, the trailing 24 hours, and per-day buckets for
// the trailing seven days.
func (r *PostgresRepository) UsageStats(ctx context.Context, accountID *uuid.UUID) (*domain.UsageStats, error) {
	filter := ""
	var args []any
	if accountID != nil {
		if _, err := r.FindAccountByID(ctx, *accountID); err != nil {
			return nil, err
		}
		filter = " WHERE account_id = $1"
		args = append(args, *accountID)
	}

	var stats domain.UsageStats
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'success'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COUNT(*) FILTER (WHERE created_at >= NOW() - INTERVAL '24 hours')
		FROM usage_logs` + filter
	if err := r.db.QueryRow(ctx, query, args...).Scan(
		&stats.Total, &stats.Success, &stats.Failed, &stats.Last24Hours); err != nil {
		return nil, err
	}

	dailyQuery := `
		SELECT date_trunc('day', created_at) AS day, COUNT(*)
		FROM usage_logs`
	if filter != "" {
		dailyQuery += filter + ` AND created_at >= NOW() - INTERVAL '7 days'`
	} else {
		dailyQuery += ` WHERE created_at >= NOW() - INTERVAL '7 days'`
	}
	dailyQuery += ` GROUP BY day ORDER BY day`

	rows, err := r.db.Query(ctx, dailyQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var bucket domain.DailyUsageBucket
		if err := rows.Scan(&bucket.Day, &bucket.Count); err != nil {
			return nil, err
		}
		stats.Daily = append(stats.Daily, bucket)
	}
	return &stats, rows.Err()
}

// CountUsageLogs returns the total number of metered request attempts.
func (r *PostgresRepository) CountUsageLogs(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM usage_logs`).Scan(&count)
	return count, err
}
