package checkout

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

// CartLine is one cart entry joined with a snapshot of its live product.
type CartLine struct {
	ProductID primitive.ObjectID
	Quantity  int
	Product   models.Product
}

// Store is the persistence contract the checkout core runs against. All
// methods honour the session bound to ctx, so calls made inside the
// function passed to InTransaction share one atomic transaction and roll
// back together on error.
type Store interface {
	// CartLines returns the user's cart joined with current product state.
	CartLines(ctx context.Context, userID primitive.ObjectID) ([]CartLine, error)

	// Address resolves an address id within the given user's account.
	// Returns nil (no error) when the user or address does not exist.
	Address(ctx context.Context, userID primitive.ObjectID, addressID string) (*models.Address, error)

	// InTransaction runs fn atomically. Any error from fn aborts the
	// transaction and is returned unchanged.
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// InsertOrder persists the order and fills in its id. Returns
	// ErrDuplicateOrderNumber when the order number unique index rejects
	// the write.
	InsertOrder(ctx context.Context, order *models.Order) error

	// DecrementStock atomically subtracts qty from the product's stock,
	// guarded so stock never goes below zero. Reports false when the
	// guard rejected the update.
	DecrementStock(ctx context.Context, productID primitive.ObjectID, qty int) (bool, error)

	// IncrementStock restores qty units to the product's stock.
	IncrementStock(ctx context.Context, productID primitive.ObjectID, qty int) error

	// ClearCart deletes every cart item belonging to the user.
	ClearCart(ctx context.Context, userID primitive.ObjectID) error

	// Order loads an order scoped by owner. Returns nil (no error) when
	// absent or owned by someone else.
	Order(ctx context.Context, userID, orderID primitive.ObjectID) (*models.Order, error)

	// OrderByID loads an order without ownership scoping, for admin use.
	OrderByID(ctx context.Context, orderID primitive.ObjectID) (*models.Order, error)

	// SetOrderStatus moves the order to the given status only when its
	// current status is one of from. Reports whether a document matched.
	SetOrderStatus(ctx context.Context, orderID primitive.ObjectID, from []models.OrderStatus, to models.OrderStatus) (bool, error)

	// SetPaymentStatus moves the order's paymentStatus to the given value
	// only when its current value is one of from. Reports whether a
	// document matched.
	SetPaymentStatus(ctx context.Context, orderID primitive.ObjectID, from []models.PaymentStatus, to models.PaymentStatus) (bool, error)

	// ListOrders returns a newest-first page of the user's orders plus the
	// total count.
	ListOrders(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.Order, int64, error)

	// ListAllOrders is the unscoped admin variant of ListOrders.
	ListAllOrders(ctx context.Context, skip, limit int64) ([]models.Order, int64, error)
}
