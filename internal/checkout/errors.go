package checkout

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCart is returned when a preview or checkout finds no cart lines.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInvalidAddress is returned when the supplied address id does not
	// exist on the ordering user's account. No placeholder address is ever
	// substituted.
	ErrInvalidAddress = errors.New("address not found")

	// ErrOrderNotFound covers both a missing order and an order owned by a
	// different user, so callers cannot probe for foreign order ids.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidPaymentMethod is returned for a payment method outside the
	// supported set.
	ErrInvalidPaymentMethod = errors.New("unsupported payment method")

	// ErrDuplicateOrderNumber signals that the generated order number hit
	// the unique index; the engine retries with a fresh number.
	ErrDuplicateOrderNumber = errors.New("order number already exists")
)

// ProductUnavailableError marks a cart line whose product is inactive or
// removed from the catalog.
type ProductUnavailableError struct {
	Name string
}

func (e ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %q is no longer available", e.Name)
}

// InsufficientStockError marks a cart line requesting more units than the
// product currently has.
type InsufficientStockError struct {
	Name      string
	Available int
	Requested int
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: %d available, %d requested", e.Name, e.Available, e.Requested)
}

// InvalidStateTransitionError marks an illegal order or payment state
// change, such as cancelling a shipped order or re-cancelling a cancelled
// one.
type InvalidStateTransitionError struct {
	From string
	To   string
}

func (e InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

// PersistenceError wraps a storage failure. The cause stays available for
// server-side logging via Unwrap; the message itself is safe to show a
// caller.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage failure during %s", e.Op)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsBusinessError reports whether err is one of the caller-correctable
// checkout errors, as opposed to a storage failure.
func IsBusinessError(err error) bool {
	var unavailable ProductUnavailableError
	var stock InsufficientStockError
	var transition InvalidStateTransitionError
	return errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrInvalidAddress) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrInvalidPaymentMethod) ||
		errors.As(err, &unavailable) ||
		errors.As(err, &stock) ||
		errors.As(err, &transition)
}
