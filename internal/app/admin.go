/**
 * @description
 * This file contains the admin-only operations: the dashboard aggregates,
 * user management, the service catalog, and the API-key inventory. Balance
 * edits from the admin panel never write the balance column directly; they
 * are converted into ledger deltas so the transaction history stays a
 * complete account of every balance change.
 */

package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/quickearn/api-service/internal/domain"
	"github.com/quickearn/api-service/internal/store"
)

// DashboardStats is the admin landing-page aggregate.
type DashboardStats struct {
	TotalUsers      int64                    `json:"total_users"`
	TotalOrders     int64                    `json:"total_orders"`
	OrdersByStatus  map[string]int64         `json:"orders_by_status"`
	Keys            domain.KeyInventoryStats `json:"keys"`
	TotalUsageCalls int64                    `json:"total_usage_calls"`
}

// UserDetail bundles the per-user drill-down view.
type UserDetail struct {
	Account      *domain.Account        `json:"account"`
	Orders       []domain.Order         `json:"orders"`
	Transactions []domain.Transaction   `json:"transactions"`
	UsageLogs    []domain.UsageLogEntry `json:"usage_logs"`
}

const adminDetailLimit = 50

// Dashboard assembles the admin overview counters.
func (s *Service) Dashboard(ctx context.Context) (*DashboardStats, error) {
	users, err := s.repo.CountAccounts(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.repo.CountOrders(ctx)
	if err != nil {
		return nil, err
	}
	byStatus := make(map[string]int64, 4)
	for _, status := range []domain.OrderStatus{
		domain.OrderPending,
		domain.OrderProcessing,
		domain.OrderCompleted,
		domain.OrderFailed,
	} {
		count, err := s.repo.CountOrdersByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		byStatus[string(status)] = count
	}
	keys, err := s.repo.KeyInventoryStats(ctx)
	if err != nil {
		return nil, err
	}
	usageCalls, err := s.repo.CountUsageLogs(ctx)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		TotalUsers:      users,
		TotalOrders:     orders,
		OrdersByStatus:  byStatus,
		Keys:            *keys,
		TotalUsageCalls: usageCalls,
	}, nil
}

// ListUsers returns all accounts, newest first.
func (s *Service) ListUsers(ctx context.Context) ([]domain.Account, error) {
	return s.repo.ListAccounts(ctx)
}

// UserDetail returns one account with its recent orders, ledger entries and
// usage logs.
func (s *Service) UserDetail(ctx context.Context, accountID uuid.UUID) (*UserDetail, error) {
	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	orders, err := s.repo.FindOrdersByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	transactions, err := s.repo.FindTransactionsByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	logs, err := s.repo.FindUsageLogsByAccountID(ctx, accountID, adminDetailLimit)
	if err != nil {
		return nil, err
	}
	return &UserDetail{
		Account:      account,
		Orders:       orders,
		Transactions: transactions,
		UsageLogs:    logs,
	}, nil
}

// UpdateUser applies admin edits to an account. A balance edit is translated
// into a ledger delta (deposit for an increase, withdrawal for a decrease) so
// the history always explains the new balance; a role edit is a plain column
// update.
func (s *Service) UpdateUser(ctx context.Context, accountID uuid.UUID, params domain.UpdateAccountParams) (*domain.Account, error) {
	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if params.Balance != nil {
		if *params.Balance < 0 {
			return nil, fmt.Errorf("%w: balance cannot be negative", ErrInvalidAmount)
		}
		delta := *params.Balance - account.Balance
		if delta != 0 {
			deltaType := domain.TransactionDeposit
			if delta < 0 {
				deltaType = domain.TransactionWithdrawal
			}
			if _, err := s.repo.ApplyBalanceDelta(ctx, store.ApplyDeltaParams{
				AccountID:   accountID,
				Amount:      delta,
				Type:        deltaType,
				Description: "admin balance adjustment",
			}); err != nil {
				return nil, err
			}
		}
	}

	if params.Role != nil {
		if *params.Role != domain.RoleUser && *params.Role != domain.RoleAdmin {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, *params.Role)
		}
		if err := s.repo.UpdateAccountRole(ctx, accountID, *params.Role); err != nil {
			return nil, err
		}
	}

	return s.repo.FindAccountByID(ctx, accountID)
}

// CreateService adds a catalog entry. Price is in hundredths of a cent per
// unit and must be positive.
func (s *Service) CreateService(ctx context.Context, params domain.UpsertServiceParams) (*domain.Service, error) {
	if err := validateServiceParams(params); err != nil {
		return nil, err
	}
	active := true
	if params.Active != nil {
		active = *params.Active
	}
	svc := &domain.Service{
		ID:          uuid.New(),
		Name:        params.Name,
		Description: params.Description,
		Type:        params.Type,
		Price:       params.Price,
		MinQuantity: params.MinQuantity,
		MaxQuantity: params.MaxQuantity,
		Active:      active,
	}
	if err := s.repo.CreateService(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// UpdateService replaces a catalog entry's mutable fields. Existing orders
// keep their frozen name and amount snapshots regardless of catalog edits.
func (s *Service) UpdateService(ctx context.Context, serviceID uuid.UUID, params domain.UpsertServiceParams) (*domain.Service, error) {
	if err := validateServiceParams(params); err != nil {
		return nil, err
	}
	return s.repo.UpdateService(ctx, serviceID, params)
}

// AllServices lists the catalog including inactive entries.
func (s *Service) AllServices(ctx context.Context) ([]domain.Service, error) {
	return s.repo.ListServices(ctx, false)
}

// RecentOrders lists the newest orders across all accounts.
func (s *Service) RecentOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	return s.repo.ListRecentOrders(ctx, limit)
}

// APIKeyInventory returns the filtered, paginated key listing for the admin
// panel along with the total match count.
func (s *Service) APIKeyInventory(ctx context.Context, opts domain.APIKeyListOptions) ([]domain.APIKeyListItem, int64, error) {
	return s.repo.ListAPIKeys(ctx, opts)
}

func validateServiceParams(params domain.UpsertServiceParams) error {
	if params.Name == "" {
		return fmt.Errorf("%w: service name is required", ErrInvalidInput)
	}
	if params.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidAmount)
	}
	if params.MinQuantity <= 0 || params.MaxQuantity < params.MinQuantity {
		return fmt.Errorf("%w: quantity bounds are invalid", ErrInvalidInput)
	}
	return nil
}
