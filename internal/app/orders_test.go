package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/quickearn/api-service/internal/domain"
	"github.com/quickearn/api-service/internal/store"
)

func TestRoundHalfUpCents(t *testing.T) {
	tests := []struct {
		name       string
		fractional int64
		want       int64
	}{
		{"exact cents", 500, 5},
		{"below half rounds down", 449, 4},
		{"exactly half rounds up", 450, 5},
		{"above half rounds up", 451, 5},
		{"sub-cent price times odd quantity", 150 * 3, 5}, // 4.5 cents -> 5
		{"zero", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := roundHalfUpCents(tt.fractional); got != tt.want {
				t.Fatalf("roundHalfUpCents(%d) = %d, want %d", tt.fractional, got, tt.want)
			}
		})
	}
}

func seedViewsService(repo *fakeRepo, price int64, active bool) uuid.UUID {
	return repo.seedService(domain.Service{
		Name:        "YouTube Views",
		Description: "High retention views",
		Type:        "views",
		Price:       price,
		MinQuantity: 1,
		MaxQuantity: 10000,
		Active:      active,
	})
}

func TestPlaceOrder_DebitsBalanceAndFreezesSnapshot(t *testing.T) {
	repo := newFakeRepo()
	accountID := repo.seedAccount(1000) // 10.00
	serviceID := seedViewsService(repo, 500, true)
	svc := newTestService(repo)

	order, err := svc.PlaceOrder(context.Background(), accountID, domain.PlaceOrderRequest{
		ServiceID: serviceID,
		Quantity:  120,
		Link:      "https://youtube.com/watch?v=abc",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	// 120 * 5.00 cents = 600 cents
	if order.Amount != 600 {
		t.Fatalf("expected frozen amount 600, got %d", order.Amount)
	}
	if order.Status != domain.OrderPending {
		t.Fatalf("expected pending order, got %s", order.Status)
	}
	if order.ServiceName != "YouTube Views" {
		t.Fatalf("expected service name snapshot, got %q", order.ServiceName)
	}

	account, _ := repo.FindAccountByID(context.Background(), accountID)
	if account.Balance != 400 {
		t.Fatalf("expected balance 400 after debit, got %d", account.Balance)
	}

	// The catalog edit must not retroactively alter the order.
	newName := "Renamed Service"
	if _, err := repo.UpdateService(context.Background(), serviceID, domain.UpsertServiceParams{
		Name: newName, Price: 9999, MinQuantity: 1, MaxQuantity: 10000,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reloaded, _ := repo.FindOrderByID(context.Background(), order.ID)
	if reloaded.ServiceName != "YouTube Views" || reloaded.Amount != 600 {
		t.Fatalf("expected frozen snapshot, got name=%q amount=%d", reloaded.ServiceName, reloaded.Amount)
	}
}

func TestPlaceOrder_SubCentPricingRoundsOnce(t *testing.T) {
	repo := newFakeRepo()
	accountID := repo.seedAccount(1000)
	// 0.015 currency units per unit = 1.5 cents = 150 hundredths of a cent.
	serviceID := seedViewsService(repo, 150, true)
	svc := newTestService(repo)

	order, err := svc.PlaceOrder(context.Background(), accountID, domain.PlaceOrderRequest{
		ServiceID: serviceID,
		Quantity:  3,
		Link:      "https://youtube.com/watch?v=abc",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	// 3 * 1.5 cents = 4.5 cents, rounded half-up to 5 — not 3 * round(1.5) = 6.
	if order.Amount != 5 {
		t.Fatalf("expected single half-up rounding to 5 cents, got %d", order.Amount)
	}
}

func TestPlaceOrder_RejectionsLeaveNoTrace(t *testing.T) {
	repo := newFakeRepo()
	accountID := repo.seedAccount(1000)
	activeID := seedViewsService(repo, 500, true)
	inactiveID := repo.seedService(domain.Service{
		Name: "Paused", Price: 100, MinQuantity: 1, MaxQuantity: 100, Active: false,
	})
	svc := newTestService(repo)

	tests := []struct {
		name    string
		req     domain.PlaceOrderRequest
		wantErr error
	}{
		{"unknown service", domain.PlaceOrderRequest{ServiceID: uuid.New(), Quantity: 5}, store.ErrServiceNotFound},
		{"inactive service", domain.PlaceOrderRequest{ServiceID: inactiveID, Quantity: 5}, ErrServiceInactive},
		{"quantity below minimum", domain.PlaceOrderRequest{ServiceID: activeID, Quantity: 0}, ErrInvalidInput},
		{"quantity above maximum", domain.PlaceOrderRequest{ServiceID: activeID, Quantity: 20000}, ErrQuantityOutOfRange},
		{"insufficient balance", domain.PlaceOrderRequest{ServiceID: activeID, Quantity: 10000}, store.ErrInsufficientFunds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.PlaceOrder(context.Background(), accountID, tt.req); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	account, _ := repo.FindAccountByID(context.Background(), accountID)
	if account.Balance != 1000 {
		t.Fatalf("expected untouched balance 1000, got %d", account.Balance)
	}
	orders, _ := repo.FindOrdersByAccountID(context.Background(), accountID)
	if len(orders) != 0 {
		t.Fatalf("expected no orders, got %d", len(orders))
	}
	txs, _ := repo.FindTransactionsByAccountID(context.Background(), accountID)
	if len(txs) != 0 {
		t.Fatalf("expected no transactions, got %d", len(txs))
	}
}

func TestGetOrder_OwnerOrAdminOnly(t *testing.T) {
	repo := newFakeRepo()
	ownerID := repo.seedAccount(1000)
	strangerID := repo.seedAccount(0)
	serviceID := seedViewsService(repo, 100, true)
	svc := newTestService(repo)

	order, err := svc.PlaceOrder(context.Background(), ownerID, domain.PlaceOrderRequest{
		ServiceID: serviceID, Quantity: 10,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if _, err := svc.GetOrder(context.Background(), order.ID, ownerID, domain.RoleUser); err != nil {
		t.Fatalf("owner read failed: %v", err)
	}
	if _, err := svc.GetOrder(context.Background(), order.ID, strangerID, domain.RoleUser); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for stranger, got %v", err)
	}
	if _, err := svc.GetOrder(context.Background(), order.ID, strangerID, domain.RoleAdmin); err != nil {
		t.Fatalf("admin read failed: %v", err)
	}
}

func TestUpdateOrderStatus_EnforcesTransitions(t *testing.T) {
	repo := newFakeRepo()
	accountID := repo.seedAccount(1000)
	serviceID := seedViewsService(repo, 100, true)
	svc := newTestService(repo)

	order, err := svc.PlaceOrder(context.Background(), accountID, domain.PlaceOrderRequest{
		ServiceID: serviceID, Quantity: 10,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	// pending -> completed skips processing and must be rejected.
	if _, err := svc.UpdateOrderStatus(context.Background(), order.ID, domain.OrderCompleted); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	if _, err := svc.UpdateOrderStatus(context.Background(), order.ID, domain.OrderProcessing); err != nil {
		t.Fatalf("pending -> processing failed: %v", err)
	}
	updated, err := svc.UpdateOrderStatus(context.Background(), order.ID, domain.OrderCompleted)
	if err != nil {
		t.Fatalf("processing -> completed failed: %v", err)
	}
	if updated.Status != domain.OrderCompleted {
		t.Fatalf("expected completed order, got %s", updated.Status)
	}

	// Same-status update is a no-op, not an error.
	if _, err := svc.UpdateOrderStatus(context.Background(), order.ID, domain.OrderCompleted); err != nil {
		t.Fatalf("same-status update should be a no-op, got %v", err)
	}

	// Completed orders cannot be reopened, but can still fail.
	if _, err := svc.UpdateOrderStatus(context.Background(), order.ID, domain.OrderProcessing); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition when reopening, got %v", err)
	}
	if _, err := svc.UpdateOrderStatus(context.Background(), order.ID, domain.OrderFailed); err != nil {
		t.Fatalf("completed -> failed should be allowed, got %v", err)
	}
}

func TestFulfillmentConsumer_AckAndRequeueDecisions(t *testing.T) {
	repo := newFakeRepo()
	accountID := repo.seedAccount(1000)
	serviceID := seedViewsService(repo, 100, true)
	svc := newTestService(repo)

	order, err := svc.PlaceOrder(context.Background(), accountID, domain.PlaceOrderRequest{
		ServiceID: serviceID, Quantity: 10,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	consumer := svc.NewFulfillmentConsumer()

	if !consumer.HandleMessage([]byte("{not json")) {
		t.Fatal("malformed payload must be acked, not requeued")
	}
	if !consumer.HandleMessage(mustMarshalEvent(t, domain.OrderStatusEvent{OrderID: uuid.New(), Status: domain.OrderProcessing})) {
		t.Fatal("event for unknown order must be acked")
	}
	if !consumer.HandleMessage(mustMarshalEvent(t, domain.OrderStatusEvent{OrderID: order.ID, Status: domain.OrderCompleted})) {
		t.Fatal("impossible transition must be acked")
	}

	if !consumer.HandleMessage(mustMarshalEvent(t, domain.OrderStatusEvent{OrderID: order.ID, Status: domain.OrderProcessing})) {
		t.Fatal("valid transition must be acked")
	}
	reloaded, _ := repo.FindOrderByID(context.Background(), order.ID)
	if reloaded.Status != domain.OrderProcessing {
		t.Fatalf("expected processing order, got %s", reloaded.Status)
	}
}

func mustMarshalEvent(t *testing.T, event domain.OrderStatusEvent) []byte {
	t.Helper()
	body, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	return body
}
