package checkout

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/models"
)

func TestCancelRestoresStockExactlyOnce(t *testing.T) {
	store := newFakeStore()
	userID := store.seedUser(homeAddress())
	productID := store.seedProduct("Olive Oil 1l", 650, 6)
	store.addToCart(userID, productID, 2)

	engine := NewEngine(store)
	order, err := engine.CreateOrder(context.Background(), userID, CreateOrderInput{
		AddressID:     "addr-1",
		PaymentMethod: models.PaymentCOD,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if store.productStock(productID) != 4 {
		t.Fatalf("expected stock 4 after checkout, got %d", store.productStock(productID))
	}

	cancelled, err := engine.CancelOrder(context.Background(), userID, order.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != models.OrderCancelled {
		t.Fatalf("expected cancelled status, got %s", cancelled.Status)
	}
	if store.productStock(productID) != 6 {
		t.Fatalf("expected stock restored to 6, got %d", store.productStock(productID))
	}

	_, err = engine.CancelOrder(context.Background(), userID, order.ID)
	var transition InvalidStateTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("expected InvalidStateTransitionError on second cancel, got %v", err)
	}
	if store.productStock(productID) != 6 {
		t.Fatalf("expected stock unchanged after failed re-cancel, got %d", store.productStock(productID))
	}
}

func TestCancelShippedOrderFails(t *testing.T) {
	store := newFakeStore()
	userID := store.seedUser(homeAddress())
	productID := store.seedProduct("Pasta 500g", 85, 8)
	store.addToCart(userID, productID, 1)

	engine := NewEngine(store)
	order, err := engine.CreateOrder(context.Background(), userID, CreateOrderInput{
		AddressID:     "addr-1",
		PaymentMethod: models.PaymentCOD,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if _, err := engine.AdvanceOrder(context.Background(), order.ID, models.OrderShipped); err != nil {
		t.Fatalf("ship failed: %v", err)
	}

	_, err = engine.CancelOrder(context.Background(), userID, order.ID)
	var transition InvalidStateTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("expected InvalidStateTransitionError, got %v", err)
	}
	if store.productStock(productID) != 7 {
		t.Fatalf("expected stock untouched by failed cancel, got %d", store.productStock(productID))
	}
}

func TestCancelIsOwnershipScoped(t *testing.T) {
	store := newFakeStore()
	owner := store.seedUser(homeAddress())
	stranger := store.seedUser(homeAddress())
	productID := store.seedProduct("Dark Chocolate", 150, 5)
	store.addToCart(owner, productID, 1)

	engine := NewEngine(store)
	order, err := engine.CreateOrder(context.Background(), owner, CreateOrderInput{
		AddressID:     "addr-1",
		PaymentMethod: models.PaymentCOD,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if _, err := engine.CancelOrder(context.Background(), stranger, order.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for foreign cancel, got %v", err)
	}
	if store.productStock(productID) != 4 {
		t.Fatal("expected stock unchanged by foreign cancel attempt")
	}
}

func TestAdvanceOrderFollowsStateMachine(t *testing.T) {
	store := newFakeStore()
	userID := store.seedUser(homeAddress())
	productID := store.seedProduct("Green Tea", 210, 9)
	store.addToCart(userID, productID, 1)

	engine := NewEngine(store)
	order, err := engine.CreateOrder(context.Background(), userID, CreateOrderInput{
		AddressID:     "addr-1",
		PaymentMethod: models.PaymentCOD,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	shipped, err := engine.AdvanceOrder(context.Background(), order.ID, models.OrderShipped)
	if err != nil {
		t.Fatalf("confirmed -> shipped failed: %v", err)
	}
	if shipped.Status != models.OrderShipped {
		t.Fatalf("expected shipped, got %s", shipped.Status)
	}

	delivered, err := engine.AdvanceOrder(context.Background(), order.ID, models.OrderDelivered)
	if err != nil {
		t.Fatalf("shipped -> delivered failed: %v", err)
	}
	if delivered.Status != models.OrderDelivered {
		t.Fatalf("expected delivered, got %s", delivered.Status)
	}

	_, err = engine.AdvanceOrder(context.Background(), order.ID, models.OrderCancelled)
	var transition InvalidStateTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("expected InvalidStateTransitionError for delivered -> cancelled, got %v", err)
	}
}

func TestAdminCancelRestoresStock(t *testing.T) {
	store := newFakeStore()
	userID := store.seedUser(homeAddress())
	productID := store.seedProduct("Walnuts 500g", 540, 3)
	store.addToCart(userID, productID, 3)

	engine := NewEngine(store)
	order, err := engine.CreateOrder(context.Background(), userID, CreateOrderInput{
		AddressID:     "addr-1",
		PaymentMethod: models.PaymentCOD,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if store.productStock(productID) != 0 {
		t.Fatalf("expected stock 0, got %d", store.productStock(productID))
	}

	if _, err := engine.AdvanceOrder(context.Background(), order.ID, models.OrderCancelled); err != nil {
		t.Fatalf("admin cancel failed: %v", err)
	}
	if store.productStock(productID) != 3 {
		t.Fatalf("expected stock restored to 3, got %d", store.productStock(productID))
	}
}

func TestRecordPaymentConfirmsPendingOrder(t *testing.T) {
	store := newFakeStore()
	userID := store.seedUser(homeAddress())
	productID := store.seedProduct("Cashews 500g", 490, 4)
	store.addToCart(userID, productID, 1)

	engine := NewEngine(store)
	order, err := engine.CreateOrder(context.Background(), userID, CreateOrderInput{
		AddressID:     "addr-1",
		PaymentMethod: models.PaymentCard,
		PaymentIntent: "pi_abc",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.Status != models.OrderPending {
		t.Fatalf("expected pending card order, got %s", order.Status)
	}

	paid, err := engine.RecordPayment(context.Background(), userID, order.ID, models.PaymentPaid)
	if err != nil {
		t.Fatalf("record payment failed: %v", err)
	}
	if paid.PaymentStatus != models.PaymentPaid {
		t.Fatalf("expected paid, got %s", paid.PaymentStatus)
	}
	if paid.Status != models.OrderConfirmed {
		t.Fatalf("expected payment to confirm the order, got %s", paid.Status)
	}

	_, err = engine.RecordPayment(context.Background(), userID, order.ID, models.PaymentPaid)
	var transition InvalidStateTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("expected InvalidStateTransitionError on double settlement, got %v", err)
	}
}

func TestRecordPaymentFailureKeepsOrderPending(t *testing.T) {
	store := newFakeStore()
	userID := store.seedUser(homeAddress())
	productID := store.seedProduct("Raisins 250g", 95, 7)
	store.addToCart(userID, productID, 1)

	engine := NewEngine(store)
	order, err := engine.CreateOrder(context.Background(), userID, CreateOrderInput{
		AddressID:     "addr-1",
		PaymentMethod: models.PaymentCard,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	failed, err := engine.RecordPayment(context.Background(), userID, order.ID, models.PaymentFailed)
	if err != nil {
		t.Fatalf("record payment failed: %v", err)
	}
	if failed.PaymentStatus != models.PaymentFailed {
		t.Fatalf("expected failed payment status, got %s", failed.PaymentStatus)
	}
	if failed.Status != models.OrderPending {
		t.Fatalf("expected order to stay pending, got %s", failed.Status)
	}
}

func TestRecordPaymentRetryAfterDecline(t *testing.T) {
	store := newFakeStore()
	userID := store.seedUser(homeAddress())
	productID := store.seedProduct("Saffron 1g", 320, 2)
	store.addToCart(userID, productID, 1)

	engine := NewEngine(store)
	order, err := engine.CreateOrder(context.Background(), userID, CreateOrderInput{
		AddressID:     "addr-1",
		PaymentMethod: models.PaymentCard,
		PaymentIntent: "pi_declined",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if _, err := engine.RecordPayment(context.Background(), userID, order.ID, models.PaymentFailed); err != nil {
		t.Fatalf("recording the decline failed: %v", err)
	}

	// a declined card is not the end of the order; the next successful
	// attempt settles it
	paid, err := engine.RecordPayment(context.Background(), userID, order.ID, models.PaymentPaid)
	if err != nil {
		t.Fatalf("retry after decline failed: %v", err)
	}
	if paid.PaymentStatus != models.PaymentPaid {
		t.Fatalf("expected paid after retry, got %s", paid.PaymentStatus)
	}
	if paid.Status != models.OrderConfirmed {
		t.Fatalf("expected the retried payment to confirm the order, got %s", paid.Status)
	}

	_, err = engine.RecordPayment(context.Background(), userID, order.ID, models.PaymentPaid)
	var transition InvalidStateTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("expected paid to stay terminal, got %v", err)
	}
}
