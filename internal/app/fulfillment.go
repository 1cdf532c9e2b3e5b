package app

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/quickearn/api-service/internal/domain"
	"github.com/quickearn/api-service/internal/store"
)

func decodeOrderStatusEvent(body []byte) (domain.OrderStatusEvent, error) {
	var event domain.OrderStatusEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return event, err
	}
	if event.OrderID == uuid.Nil {
		return event, fmt.Errorf("missing order id")
	}
	if !event.Status.Valid() {
		return event, fmt.Errorf("unknown status %q", event.Status)
	}
	return event, nil
}

// isTerminalFulfillmentError reports whether retrying the event can never
// succeed: the order does not exist or the transition is not allowed from
// the order's current state. Status conflicts are retried, since the
// concurrent writer may have moved the order into a state the event can
// still apply to.
func isTerminalFulfillmentError(err error) bool {
	return errors.Is(err, store.ErrOrderNotFound) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInvalidInput)
}
