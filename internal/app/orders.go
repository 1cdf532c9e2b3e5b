/**
 * @description
 * This file contains the order operations: converting a purchase intent into
 * a frozen order plus its ledger debit, listing orders, and advancing order
 * status under the allowed transition set. The order row, its transaction,
 * and the balance debit commit as one unit in the repository, so a debit can
 * never exist without its order.
 */

package app

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/quickearn/api-service/internal/domain"
)

// roundHalfUpCents converts an amount expressed in hundredths of a cent into
// whole cents, rounding half-up. Catalog prices carry four decimal places so
// that price * quantity is rounded exactly once, here.
func roundHalfUpCents(fractional int64) int64 {
	if fractional < 0 {
		return -roundHalfUpCents(-fractional)
	}
	return (fractional + 50) / 100
}

// orderAmountCents computes the frozen charge for quantity units at the
// service's fractional unit price.
func orderAmountCents(price int64, quantity int) int64 {
	return roundHalfUpCents(price * int64(quantity))
}

// PlaceOrder validates a purchase request against the catalog and the
// account balance, then commits the order together with its debit. On any
// failure the caller sees the error and no state has changed.
func (s *Service) PlaceOrder(ctx context.Context, accountID uuid.UUID, req domain.PlaceOrderRequest) (*domain.Order, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}

	service, err := s.repo.FindServiceByID(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if !service.Active {
		return nil, ErrServiceInactive
	}
	if req.Quantity < service.MinQuantity || req.Quantity > service.MaxQuantity {
		return nil, fmt.Errorf("%w: quantity must be between %d and %d",
			ErrQuantityOutOfRange, service.MinQuantity, service.MaxQuantity)
	}

	order := &domain.Order{
		ID:            uuid.New(),
		AccountID:     accountID,
		ServiceName:   service.Name,
		Quantity:      req.Quantity,
		Link:          req.Link,
		Amount:        orderAmountCents(service.Price, req.Quantity),
		Status:        domain.OrderPending,
		TransactionID: uuid.New(),
	}

	var idempotencyKey *string
	if req.IdempotencyKey != "" {
		idempotencyKey = &req.IdempotencyKey
	}

	description := fmt.Sprintf("Order for %s", service.Name)
	if _, err := s.repo.CreateOrderWithDebit(ctx, order, description, idempotencyKey); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, "order.placed", domain.OrderPlacedEvent{
		OrderID:       order.ID,
		AccountID:     order.AccountID,
		ServiceName:   order.ServiceName,
		Quantity:      order.Quantity,
		Amount:        order.Amount,
		TransactionID: order.TransactionID,
		PlacedAt:      order.CreatedAt,
	})
	return order, nil
}

// Orders returns the account's orders, newest first.
func (s *Service) Orders(ctx context.Context, accountID uuid.UUID) ([]domain.Order, error) {
	return s.repo.FindOrdersByAccountID(ctx, accountID)
}

// GetOrder returns one order, restricted to its owner or an admin.
func (s *Service) GetOrder(ctx context.Context, orderID uuid.UUID, callerID uuid.UUID, callerRole domain.Role) (*domain.Order, error) {
	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.AccountID != callerID && callerRole != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	return order, nil
}

// ActiveServices returns the purchasable catalog.
func (s *Service) ActiveServices(ctx context.Context) ([]domain.Service, error) {
	return s.repo.ListServices(ctx, true)
}

// UpdateOrderStatus advances an order's fulfillment status. Only the edges
// pending -> processing -> completed and any -> failed are allowed; the
// update is conditional on the current status so concurrent actors cannot
// race past the transition check.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, next domain.OrderStatus) (*domain.Order, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, next)
	}

	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == next {
		return order, nil
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, next)
	}

	if err := s.repo.UpdateOrderStatus(ctx, orderID, order.Status, next); err != nil {
		return nil, err
	}
	order.Status = next

	s.publishEvent(ctx, "order.status.updated", domain.OrderStatusEvent{
		OrderID: order.ID,
		Status:  next,
	})
	return order, nil
}

// FulfillmentConsumer bridges broker-delivered fulfillment status events into
// UpdateOrderStatus under the same transition rules as the admin surface.
type FulfillmentConsumer struct {
	service *Service
}

// NewFulfillmentConsumer creates the consumer facade.
func (s *Service) NewFulfillmentConsumer() *FulfillmentConsumer {
	return &FulfillmentConsumer{service: s}
}

// HandleMessage processes one fulfillment event. It returns true when the
// message should be acknowledged; malformed or impossible events are dropped
// rather than requeued, since replaying them can never succeed.
func (c *FulfillmentConsumer) HandleMessage(body []byte) bool {
	event, err := decodeOrderStatusEvent(body)
	if err != nil {
		log.Printf("level=warn component=fulfillment_consumer msg=\"dropping malformed event\" err=%v", err)
		return true
	}

	ctx := context.Background()
	if _, err := c.service.UpdateOrderStatus(ctx, event.OrderID, event.Status); err != nil {
		switch {
		case isTerminalFulfillmentError(err):
			log.Printf("level=warn component=fulfillment_consumer msg=\"dropping unprocessable event\" order_id=%s status=%s err=%v",
				event.OrderID, event.Status, err)
			return true
		default:
			log.Printf("level=error component=fulfillment_consumer msg=\"event processing failed; will retry\" order_id=%s err=%v",
				event.OrderID, err)
			return false
		}
	}
	return true
}
