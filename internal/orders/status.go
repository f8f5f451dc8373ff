package orders

import (
	"errors"
	"fmt"

	"souqra-system/internal/database/models"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrEmptyOrder        = errors.New("order must have at least one item")
	ErrVariantNotFound   = errors.New("product variant not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// allowedTransitions is the order state machine. completed and cancelled
// are terminal; everything else can still be cancelled.
var allowedTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending: {
		models.OrderStatusProcessing,
		models.OrderStatusDelivered,
		models.OrderStatusCompleted,
		models.OrderStatusCancelled,
	},
	models.OrderStatusProcessing: {
		models.OrderStatusDelivered,
		models.OrderStatusCompleted,
		models.OrderStatusCancelled,
	},
	models.OrderStatusDelivered: {
		models.OrderStatusCompleted,
		models.OrderStatusCancelled,
	},
	models.OrderStatusCompleted: {
		models.OrderStatusCancelled,
	},
	models.OrderStatusCancelled: {},
}

func ValidStatus(status models.OrderStatus) bool {
	_, ok := allowedTransitions[status]
	return ok
}

func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func validateTransition(from, to models.OrderStatus) error {
	if !ValidStatus(to) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
