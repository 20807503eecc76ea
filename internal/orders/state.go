package orders

import (
	"fmt"

	"github.com/sokonihq/sokoni-backend/pkg/enums"
	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
)

// transitions is the order lifecycle table. A status maps to the set of
// statuses it may move to; anything else is rejected. delivered is not
// listed as a source for completed here because buyer confirmation is a
// separate action with its own side effects, not a tracking update.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:        {enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed:      {enums.OrderStatusPreparing, enums.OrderStatusCancelled},
	enums.OrderStatusPreparing:      {enums.OrderStatusReadyForPickup, enums.OrderStatusCancelled},
	enums.OrderStatusReadyForPickup: {enums.OrderStatusOutForDelivery, enums.OrderStatusCancelled},
	enums.OrderStatusOutForDelivery: {enums.OrderStatusDelivered, enums.OrderStatusCancelled},
	enums.OrderStatusDelivered:      {},
	enums.OrderStatusCompleted:      {},
	enums.OrderStatusCancelled:      {},
	enums.OrderStatusDeliveryIssue:  {},
}

// issueSources are the statuses a buyer may report a delivery issue from.
var issueSources = []enums.OrderStatus{
	enums.OrderStatusOutForDelivery,
	enums.OrderStatusDelivered,
}

// CanTransition reports whether the lifecycle table allows current → next.
func CanTransition(current, next enums.OrderStatus) bool {
	for _, allowed := range transitions[current] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CanReportIssue reports whether a delivery issue may be raised from the
// given status.
func CanReportIssue(current enums.OrderStatus) bool {
	for _, allowed := range issueSources {
		if allowed == current {
			return true
		}
	}
	return false
}

// CanCancel reports whether an order in the given status may still be
// cancelled. Delivered and later statuses are past the point of no return.
func CanCancel(current enums.OrderStatus) bool {
	return CanTransition(current, enums.OrderStatusCancelled)
}

func invalidTransition(current, requested enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("cannot move order from %s to %s", current, requested)).
		WithDetails(map[string]any{
			"current_status":   current,
			"requested_status": requested,
		})
}
