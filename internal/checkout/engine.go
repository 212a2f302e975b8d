package checkout

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

// Engine turns carts into orders. All multi-step mutations run inside a
// single store transaction, so a failure at any step leaves no partial
// state behind.
type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// CreateOrderInput carries the caller-supplied checkout parameters.
type CreateOrderInput struct {
	AddressID     string
	PaymentMethod models.PaymentMethod
	PaymentIntent string
	Notes         string
}

// Preview prices the user's current cart without mutating anything. Safe
// to call repeatedly.
func (e *Engine) Preview(ctx context.Context, userID primitive.ObjectID) (*Quote, error) {
	lines, err := e.store.CartLines(ctx, userID)
	if err != nil {
		return nil, &PersistenceError{Op: "load cart", Err: err}
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	quote := Price(lines)
	return &quote, nil
}

// CreateOrder materializes the user's cart into a durable order: it
// validates every line against live product state, prices the cart,
// inserts the order with its item snapshots, decrements stock and clears
// the cart — all in one transaction. Validation and mutation read the same
// snapshot, and the stock decrement itself is conditional, so two
// concurrent checkouts can never overdraw inventory.
//
// An order-number collision aborts the whole transaction: once a statement
// fails the server will not accept further statements on that transaction,
// so the retry must start over with a fresh number rather than re-issue
// the insert.
func (e *Engine) CreateOrder(ctx context.Context, userID primitive.ObjectID, in CreateOrderInput) (*models.Order, error) {
	if !in.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	var created *models.Order
	var err error
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		created, err = e.createOrder(ctx, userID, in)
		if errors.Is(err, ErrDuplicateOrderNumber) {
			continue
		}
		break
	}
	if errors.Is(err, ErrDuplicateOrderNumber) {
		return nil, &PersistenceError{Op: "insert order", Err: err}
	}
	if err != nil {
		return nil, e.surface(err, "create order")
	}
	return created, nil
}

func (e *Engine) createOrder(ctx context.Context, userID primitive.ObjectID, in CreateOrderInput) (*models.Order, error) {
	var created *models.Order
	err := e.store.InTransaction(ctx, func(ctx context.Context) error {
		lines, err := e.store.CartLines(ctx, userID)
		if err != nil {
			return &PersistenceError{Op: "load cart", Err: err}
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		address, err := e.store.Address(ctx, userID, in.AddressID)
		if err != nil {
			return &PersistenceError{Op: "resolve address", Err: err}
		}
		if address == nil {
			return ErrInvalidAddress
		}

		for _, line := range lines {
			if line.Product.IsDeleted || !line.Product.IsActive {
				return ProductUnavailableError{Name: line.Product.Name}
			}
			if line.Product.Stock < line.Quantity {
				return InsufficientStockError{
					Name:      line.Product.Name,
					Available: line.Product.Stock,
					Requested: line.Quantity,
				}
			}
		}

		quote := Price(lines)

		status := models.OrderPending
		if in.PaymentMethod == models.PaymentCOD {
			status = models.OrderConfirmed
		}

		order := &models.Order{
			UserID:        userID,
			Items:         quote.OrderItems(),
			Address:       *address,
			PaymentMethod: in.PaymentMethod,
			PaymentStatus: models.PaymentPending,
			PaymentIntent: in.PaymentIntent,
			Status:        status,
			Subtotal:      quote.Subtotal,
			ShippingCost:  quote.ShippingCost,
			Tax:           quote.Tax,
			Total:         quote.Total,
			Notes:         in.Notes,
			CreatedAt:     time.Now().UTC(),
		}

		order.OrderNumber = newOrderNumber(order.CreatedAt)
		if err := e.store.InsertOrder(ctx, order); err != nil {
			if errors.Is(err, ErrDuplicateOrderNumber) {
				// abort; CreateOrder retries with a fresh number
				return err
			}
			return &PersistenceError{Op: "insert order", Err: err}
		}

		for _, line := range lines {
			ok, err := e.store.DecrementStock(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return &PersistenceError{Op: "decrement stock", Err: err}
			}
			if !ok {
				// a concurrent checkout took the stock between our
				// validation read and this update
				return InsufficientStockError{
					Name:      line.Product.Name,
					Available: line.Product.Stock,
					Requested: line.Quantity,
				}
			}
		}

		if err := e.store.ClearCart(ctx, userID); err != nil {
			return &PersistenceError{Op: "clear cart", Err: err}
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Order returns one of the user's orders. Foreign or unknown ids both map
// to ErrOrderNotFound.
func (e *Engine) Order(ctx context.Context, userID, orderID primitive.ObjectID) (*models.Order, error) {
	order, err := e.store.Order(ctx, userID, orderID)
	if err != nil {
		return nil, &PersistenceError{Op: "load order", Err: err}
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// OrderPage is one page of a user's order history.
type OrderPage struct {
	Orders []models.Order `json:"orders"`
	Page   int64          `json:"page"`
	Limit  int64          `json:"limit"`
	Total  int64          `json:"total"`
}

// ListOrders returns the user's orders newest first. Page and limit
// default to 1 and 10.
func (e *Engine) ListOrders(ctx context.Context, userID primitive.ObjectID, page, limit int64) (*OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	orders, total, err := e.store.ListOrders(ctx, userID, (page-1)*limit, limit)
	if err != nil {
		return nil, &PersistenceError{Op: "list orders", Err: err}
	}
	return &OrderPage{Orders: orders, Page: page, Limit: limit, Total: total}, nil
}

// ListAllOrders is the unscoped admin listing.
func (e *Engine) ListAllOrders(ctx context.Context, page, limit int64) (*OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	orders, total, err := e.store.ListAllOrders(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, &PersistenceError{Op: "list orders", Err: err}
	}
	return &OrderPage{Orders: orders, Page: page, Limit: limit, Total: total}, nil
}

// surface returns business errors untouched and wraps anything else, so a
// raw session or commit failure never reaches a caller unlabelled.
func (e *Engine) surface(err error, op string) error {
	var persistence *PersistenceError
	if IsBusinessError(err) || errors.As(err, &persistence) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
