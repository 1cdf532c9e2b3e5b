package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quickearn/api-service/internal/domain"
	"github.com/quickearn/api-service/internal/store"
)

// fakeRepo is a mutex-guarded in-memory store.Repository. It mirrors the
// atomicity contract of the real repository: balance checks, mutations, and
// transaction inserts happen under one lock, so concurrent callers observe
// the same serialization the database provides.
type fakeRepo struct {
	mu sync.Mutex

	accounts     map[uuid.UUID]*domain.Account
	transactions []domain.Transaction
	services     map[uuid.UUID]*domain.Service
	orders       map[uuid.UUID]*domain.Order
	usageLogs    []domain.UsageLogEntry
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		accounts: make(map[uuid.UUID]*domain.Account),
		services: make(map[uuid.UUID]*domain.Service),
		orders:   make(map[uuid.UUID]*domain.Order),
	}
}

// seedAccount inserts an account with the given balance and returns its ID.
func (f *fakeRepo) seedAccount(balance int64) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.accounts[id] = &domain.Account{
		ID:           id,
		Username:     "user-" + id.String()[:8],
		Email:        id.String()[:8] + "@example.com",
		Role:         domain.RoleUser,
		Balance:      balance,
		APIKeyStatus: domain.APIKeyActive,
		CreatedAt:    time.Now(),
	}
	return id
}

func (f *fakeRepo) seedService(svc domain.Service) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	if svc.ID == uuid.Nil {
		svc.ID = uuid.New()
	}
	copied := svc
	f.services[svc.ID] = &copied
	return svc.ID
}

func (f *fakeRepo) CreateAccount(ctx context.Context, account *domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.accounts {
		if strings.EqualFold(existing.Username, account.Username) || strings.EqualFold(existing.Email, account.Email) {
			return store.ErrDuplicateUser
		}
	}
	copied := *account
	copied.APIKeyStatus = domain.APIKeyActive
	copied.CreatedAt = time.Now()
	f.accounts[account.ID] = &copied
	return nil
}

func (f *fakeRepo) FindAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[accountID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (f *fakeRepo) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.accounts {
		if strings.EqualFold(account.Email, email) {
			copied := *account
			return &copied, nil
		}
	}
	return nil, store.ErrAccountNotFound
}

func (f *fakeRepo) FindAccountByAPIKey(ctx context.Context, key string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.accounts {
		if account.APIKey != nil && *account.APIKey == key {
			copied := *account
			return &copied, nil
		}
	}
	return nil, store.ErrAPIKeyNotFound
}

func (f *fakeRepo) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Account, 0, len(f.accounts))
	for _, account := range f.accounts {
		out = append(out, *account)
	}
	return out, nil
}

func (f *fakeRepo) UpdateAccountRole(ctx context.Context, accountID uuid.UUID, role domain.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[accountID]
	if !ok {
		return store.ErrAccountNotFound
	}
	account.Role = role
	return nil
}

func (f *fakeRepo) CountAccounts(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.accounts)), nil
}

func (f *fakeRepo) ApplyBalanceDelta(ctx context.Context, params store.ApplyDeltaParams) (*domain.BalanceChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if params.IdempotencyKey != nil {
		for i := range f.transactions {
			tx := &f.transactions[i]
			if tx.AccountID == params.AccountID && tx.IdempotencyKey != nil && *tx.IdempotencyKey == *params.IdempotencyKey {
				account := f.accounts[params.AccountID]
				return &domain.BalanceChange{NewBalance: account.Balance, TransactionID: tx.ID}, nil
			}
		}
	}

	account, ok := f.accounts[params.AccountID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	newBalance := account.Balance + params.Amount
	if newBalance < 0 {
		return nil, store.ErrInsufficientFunds
	}
	account.Balance = newBalance

	tx := domain.Transaction{
		ID:             uuid.New(),
		AccountID:      params.AccountID,
		Amount:         params.Amount,
		Type:           params.Type,
		Status:         domain.TransactionCompleted,
		Description:    params.Description,
		OrderID:        params.OrderID,
		PaymentDetails: params.PaymentDetails,
		IdempotencyKey: params.IdempotencyKey,
		CreatedAt:      time.Now(),
	}
	f.transactions = append(f.transactions, tx)

	return &domain.BalanceChange{NewBalance: newBalance, TransactionID: tx.ID}, nil
}

func (f *fakeRepo) FindTransactionsByAccountID(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Transaction
	for i := len(f.transactions) - 1; i >= 0; i-- {
		if f.transactions[i].AccountID == accountID {
			out = append(out, f.transactions[i])
		}
	}
	return out, nil
}

func (f *fakeRepo) FindTransactionByID(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.transactions {
		if f.transactions[i].ID == transactionID {
			copied := f.transactions[i]
			return &copied, nil
		}
	}
	return nil, store.ErrTransactionNotFound
}

func (f *fakeRepo) CreateService(ctx context.Context, service *domain.Service) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.services {
		if strings.EqualFold(existing.Name, service.Name) {
			return store.ErrDuplicateService
		}
	}
	copied := *service
	copied.CreatedAt = time.Now()
	f.services[service.ID] = &copied
	return nil
}

func (f *fakeRepo) UpdateService(ctx context.Context, serviceID uuid.UUID, params domain.UpsertServiceParams) (*domain.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	svc, ok := f.services[serviceID]
	if !ok {
		return nil, store.ErrServiceNotFound
	}
	svc.Name = params.Name
	svc.Description = params.Description
	svc.Type = params.Type
	svc.Price = params.Price
	svc.MinQuantity = params.MinQuantity
	svc.MaxQuantity = params.MaxQuantity
	if params.Active != nil {
		svc.Active = *params.Active
	}
	copied := *svc
	return &copied, nil
}

func (f *fakeRepo) FindServiceByID(ctx context.Context, serviceID uuid.UUID) (*domain.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	svc, ok := f.services[serviceID]
	if !ok {
		return nil, store.ErrServiceNotFound
	}
	copied := *svc
	return &copied, nil
}

func (f *fakeRepo) ListServices(ctx context.Context, activeOnly bool) ([]domain.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Service
	for _, svc := range f.services {
		if activeOnly && !svc.Active {
			continue
		}
		out = append(out, *svc)
	}
	return out, nil
}

func (f *fakeRepo) CreateOrderWithDebit(ctx context.Context, order *domain.Order, description string, idempotencyKey *string) (*domain.BalanceChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if idempotencyKey != nil {
		for i := range f.transactions {
			tx := &f.transactions[i]
			if tx.AccountID == order.AccountID && tx.IdempotencyKey != nil && *tx.IdempotencyKey == *idempotencyKey {
				account := f.accounts[order.AccountID]
				if tx.OrderID != nil {
					if existing, ok := f.orders[*tx.OrderID]; ok {
						*order = *existing
					}
				}
				return &domain.BalanceChange{NewBalance: account.Balance, TransactionID: tx.ID}, nil
			}
		}
	}

	account, ok := f.accounts[order.AccountID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	newBalance := account.Balance - order.Amount
	if newBalance < 0 {
		return nil, store.ErrInsufficientFunds
	}
	account.Balance = newBalance

	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	copied := *order
	f.orders[order.ID] = &copied

	orderID := order.ID
	f.transactions = append(f.transactions, domain.Transaction{
		ID:             order.TransactionID,
		AccountID:      order.AccountID,
		Amount:         -order.Amount,
		Type:           domain.TransactionOrder,
		Status:         domain.TransactionCompleted,
		Description:    description,
		OrderID:        &orderID,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
	})

	return &domain.BalanceChange{NewBalance: newBalance, TransactionID: order.TransactionID}, nil
}

func (f *fakeRepo) FindOrderByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, store.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeRepo) FindOrdersByAccountID(ctx context.Context, accountID uuid.UUID) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, order := range f.orders {
		if order.AccountID == accountID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListRecentOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, order := range f.orders {
		out = append(out, *order)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from, to domain.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return store.ErrOrderNotFound
	}
	if order.Status != from {
		return store.ErrOrderStatusConflict
	}
	order.Status = to
	order.UpdatedAt = time.Now()
	return nil
}

func (f *fakeRepo) CountOrders(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.orders)), nil
}

func (f *fakeRepo) CountOrdersByStatus(ctx context.Context, status domain.OrderStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, order := range f.orders {
		if order.Status == status {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) SetAccountAPIKey(ctx context.Context, accountID uuid.UUID, key string, createdAt, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, account := range f.accounts {
		if id != accountID && account.APIKey != nil && *account.APIKey == key {
			return store.ErrDuplicateAPIKey
		}
	}
	account, ok := f.accounts[accountID]
	if !ok {
		return store.ErrAccountNotFound
	}
	account.APIKey = &key
	account.APIKeyStatus = domain.APIKeyActive
	account.APIKeyCreatedAt = &createdAt
	account.APIKeyExpiresAt = &expiresAt
	account.APIKeyUsageCount = 0
	return nil
}

func (f *fakeRepo) SetAPIKeyStatus(ctx context.Context, accountID uuid.UUID, status domain.APIKeyStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[accountID]
	if !ok {
		return store.ErrAccountNotFound
	}
	if account.APIKey == nil {
		return store.ErrAPIKeyNotFound
	}
	account.APIKeyStatus = status
	return nil
}

func (f *fakeRepo) ListAPIKeys(ctx context.Context, opts domain.APIKeyListOptions) ([]domain.APIKeyListItem, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.APIKeyListItem
	for _, account := range f.accounts {
		if account.APIKey == nil {
			continue
		}
		if opts.Status != "" && string(account.APIKeyStatus) != opts.Status {
			continue
		}
		out = append(out, domain.APIKeyListItem{
			AccountID:  account.ID,
			Username:   account.Username,
			Email:      account.Email,
			APIKey:     *account.APIKey,
			Status:     account.APIKeyStatus,
			CreatedAt:  account.APIKeyCreatedAt,
			ExpiresAt:  account.APIKeyExpiresAt,
			UsageCount: account.APIKeyUsageCount,
		})
	}
	return out, int64(len(out)), nil
}

func (f *fakeRepo) KeyInventoryStats(ctx context.Context) (*domain.KeyInventoryStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &domain.KeyInventoryStats{}
	for _, account := range f.accounts {
		if account.APIKey == nil {
			continue
		}
		stats.TotalKeys++
		if account.APIKeyStatus == domain.APIKeyBlocked {
			stats.BlockedKeys++
		} else {
			stats.ActiveKeys++
		}
	}
	return stats, nil
}

func (f *fakeRepo) InsertUsageLog(ctx context.Context, entry *domain.UsageLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *entry
	copied.CreatedAt = time.Now()
	f.usageLogs = append(f.usageLogs, copied)
	return nil
}

func (f *fakeRepo) IncrementAPIKeyUsage(ctx context.Context, accountID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[accountID]
	if !ok {
		return store.ErrAccountNotFound
	}
	account.APIKeyUsageCount++
	return nil
}

func (f *fakeRepo) FindUsageLogsByAccountID(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.UsageLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.UsageLogEntry
	for i := len(f.usageLogs) - 1; i >= 0 && len(out) < limit; i-- {
		if f.usageLogs[i].AccountID == accountID {
			out = append(out, f.usageLogs[i])
		}
	}
	return out, nil
}

func (f *fakeRepo) UsageStats(ctx context.Context, accountID *uuid.UUID) (*domain.UsageStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &domain.UsageStats{}
	cutoff := time.Now().Add(-24 * time.Hour)
	for _, entry := range f.usageLogs {
		if accountID != nil && entry.AccountID != *accountID {
			continue
		}
		stats.Total++
		if entry.Status == domain.UsageSuccess {
			stats.Success++
		} else {
			stats.Failed++
		}
		if entry.CreatedAt.After(cutoff) {
			stats.Last24Hours++
		}
	}
	return stats, nil
}

func (f *fakeRepo) CountUsageLogs(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.usageLogs)), nil
}
