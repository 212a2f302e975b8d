package checkout

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

// CancelOrder cancels one of the user's orders and restores the stock of
// every order item, atomically. Only pending and confirmed orders can be
// cancelled; the status flip is a conditional update, so when two cancels
// race only one matches and stock is restored exactly once.
func (e *Engine) CancelOrder(ctx context.Context, userID, orderID primitive.ObjectID) (*models.Order, error) {
	var cancelled *models.Order
	err := e.store.InTransaction(ctx, func(ctx context.Context) error {
		order, err := e.store.Order(ctx, userID, orderID)
		if err != nil {
			return &PersistenceError{Op: "load order", Err: err}
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if !order.Status.Cancellable() {
			return InvalidStateTransitionError{From: string(order.Status), To: string(models.OrderCancelled)}
		}

		matched, err := e.store.SetOrderStatus(ctx, order.ID,
			[]models.OrderStatus{models.OrderPending, models.OrderConfirmed},
			models.OrderCancelled)
		if err != nil {
			return &PersistenceError{Op: "update order status", Err: err}
		}
		if !matched {
			return InvalidStateTransitionError{From: string(order.Status), To: string(models.OrderCancelled)}
		}

		for _, item := range order.Items {
			if err := e.store.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return &PersistenceError{Op: "restore stock", Err: err}
			}
		}

		order.Status = models.OrderCancelled
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, e.surface(err, "cancel order")
	}
	return cancelled, nil
}

// AdvanceOrder performs an admin-side status transition (confirm, ship,
// deliver or cancel). Transitions outside the state machine fail with
// InvalidStateTransitionError; an admin cancel restores stock like a user
// cancel.
func (e *Engine) AdvanceOrder(ctx context.Context, orderID primitive.ObjectID, next models.OrderStatus) (*models.Order, error) {
	if !next.Valid() {
		return nil, InvalidStateTransitionError{From: "unknown", To: string(next)}
	}

	var updated *models.Order
	err := e.store.InTransaction(ctx, func(ctx context.Context) error {
		order, err := e.store.OrderByID(ctx, orderID)
		if err != nil {
			return &PersistenceError{Op: "load order", Err: err}
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if !order.Status.CanTransition(next) {
			return InvalidStateTransitionError{From: string(order.Status), To: string(next)}
		}

		matched, err := e.store.SetOrderStatus(ctx, order.ID, []models.OrderStatus{order.Status}, next)
		if err != nil {
			return &PersistenceError{Op: "update order status", Err: err}
		}
		if !matched {
			return InvalidStateTransitionError{From: string(order.Status), To: string(next)}
		}

		if next == models.OrderCancelled {
			for _, item := range order.Items {
				if err := e.store.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
					return &PersistenceError{Op: "restore stock", Err: err}
				}
			}
		}

		order.Status = next
		updated = order
		return nil
	})
	if err != nil {
		return nil, e.surface(err, "advance order")
	}
	return updated, nil
}

// RecordPayment stores the verified outcome of a payment attempt. A paid
// outcome also confirms a still-pending order. A declined attempt is not
// terminal: the customer can retry, so failed moves to paid on a later
// successful verification. Paid is terminal — recording against an order
// that already settled fails with InvalidStateTransitionError, so double
// verification never double-applies.
func (e *Engine) RecordPayment(ctx context.Context, userID, orderID primitive.ObjectID, outcome models.PaymentStatus) (*models.Order, error) {
	if outcome != models.PaymentPaid && outcome != models.PaymentFailed {
		return nil, InvalidStateTransitionError{From: string(models.PaymentPending), To: string(outcome)}
	}

	var updated *models.Order
	err := e.store.InTransaction(ctx, func(ctx context.Context) error {
		order, err := e.store.Order(ctx, userID, orderID)
		if err != nil {
			return &PersistenceError{Op: "load order", Err: err}
		}
		if order == nil {
			return ErrOrderNotFound
		}

		matched, err := e.store.SetPaymentStatus(ctx, order.ID,
			[]models.PaymentStatus{models.PaymentPending, models.PaymentFailed}, outcome)
		if err != nil {
			return &PersistenceError{Op: "update payment status", Err: err}
		}
		if !matched {
			return InvalidStateTransitionError{From: string(order.PaymentStatus), To: string(outcome)}
		}
		order.PaymentStatus = outcome

		if outcome == models.PaymentPaid && order.Status == models.OrderPending {
			confirmed, err := e.store.SetOrderStatus(ctx, order.ID,
				[]models.OrderStatus{models.OrderPending}, models.OrderConfirmed)
			if err != nil {
				return &PersistenceError{Op: "confirm order", Err: err}
			}
			if confirmed {
				order.Status = models.OrderConfirmed
			}
		}

		updated = order
		return nil
	})
	if err != nil {
		return nil, e.surface(err, "record payment")
	}
	return updated, nil
}
