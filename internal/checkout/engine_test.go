package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

func TestCreateOrderDecrementsStockAndClearsCart(t *testing.T) {
	store := newFakeStore()
	userID := store.seedUser(homeAddress())
	productID := store.seedProduct("Basmati Rice 5kg", 600, 10)
	store.addToCart(userID, productID, 2)

	engine := NewEngine(store)
	order, err := engine.CreateOrder(context.Background(), userID, CreateOrderInput{
		AddressID:     "addr-1",
		PaymentMethod: models.PaymentCOD,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if got := store.productStock(productID); got != 8 {
		t.Fatalf("expected stock 8 after checkout, got %d", got)
	}
	if store.cartSize(userID) != 0 {
		t.Fatal("expected cart to be empty after checkout")
	}
	if order.Status != models.OrderConfirmed {
		t.Fatalf("expected cod order to be confirmed, got %s", order.Status)
	}
	if order.PaymentStatus != models.PaymentPending {
		t.Fatalf("expected payment pending, got %s", order.PaymentStatus)
	}
	if !strings.HasPrefix(order.OrderNumber, "ORD-") {
		t.Fatalf("unexpected order number %q", order.OrderNumber)
	}

	sum := models.MoneyFromInt(0)
	for _, item := range order.Items {
		sum = sum.Add(item.Total)
	}
	if !sum.Equal(order.Subtotal) {
		t.Fatalf("item totals %s do not match subtotal %s", sum, order.Subtotal)
	}
	if order.Subtotal.String() != "1200.00" || order.Total.String() != "1416.00" {
		t.Fatalf("unexpected pricing: subtotal=%s total=%s", order.Subtotal, order.Total)
	}
}

func TestCreateOrderCardStaysPending(t *testing.T) {
	store := newFakeStore()
	userID := store.seedUser(homeAddress())
	productID := store.seedProduct("Ghee 1l", 450, 5)
	store.addToCart(userID, productID, 1)

	engine := NewEngine(store)
	order, err := engine.CreateOrder(context.Background(), userID, CreateOrderInput{
		AddressID:     "addr-1",
		PaymentMethod: models.PaymentCard,
		PaymentIntent: "pi_123",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.Status != models.OrderPending {
		t.Fatalf("expected card order to stay pending, got %s", order.Status)
	}
	if order.PaymentIntent != "pi_123" {
		t.Fatalf("expected payment intent to be stored, got %q", order.PaymentIntent)
	}
}

func TestCreateOrderEmptyCart(t *testing.T) {
	store := newFakeStore()
	userID := store.seedUser(homeAddress())
	productID := store.seedProduct("Tea 500g", 120, 4)

	engine := NewEngine(store)
	_, err := engine.CreateOrder(context.Background(), userID, CreateOrderInput{
		AddressID:     "addr-1",
		PaymentMethod: models.PaymentCOD,
	})
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	if store.orderCount() != 0 {
		t.Fatal("expected no order to be created")
	}
	if store.productStock(productID) != 4 {
		t.Fatal("expected stock to be untouched")
	}
}

func TestCreateOrderInvalidAddress(t *testing.T) {
	store := newFakeStore()
	userID := store.seedUser(homeAddress())
	productID := store.seedProduct("Honey 250g", 240, 3)
	store.addToCart(userID, productID, 1)

	engine := NewEngine(store)
	_, err := engine.CreateOrder(context.Background(), userID, CreateOrderInput{
		AddressID:     "someone-elses-address",
		PaymentMethod: models.PaymentCOD,
	})
	if !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
	if store.orderCount() != 0 || store.cartSize(userID) != 1 {
		t.Fatal("expected no mutations on invalid address")
	}
}

func TestCreateOrderInactiveProduct(t *testing.T) {
	store := newFakeStore()
	userID := store.seedUser(homeAddress())
	productID := store.seedProduct("Discontinued Jam", 99, 10)
	product := store.state.products[productID]
	product.IsActive = false
	store.state.products[productID] = product
	store.addToCart(userID, productID, 1)

	engine := NewEngine(store)
	_, err := engine.CreateOrder(context.Background(), userID, CreateOrderInput{
		AddressID:     "addr-1",
		PaymentMethod: models.PaymentCOD,
	})

	var unavailable ProductUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ProductUnavailableError, got %v", err)
	}
	if unavailable.Name != "Discontinued Jam" {
		t.Fatalf("expected product name in error, got %q", unavailable.Name)
	}
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	store := newFakeStore()
	userID := store.seedUser(homeAddress())
	productID := store.seedProduct("Almonds 1kg", 800, 2)
	store.addToCart(userID, productID, 3)

	engine := NewEngine(store)
	_, err := engine.CreateOrder(context.Background(), userID, CreateOrderInput{
		AddressID:     "addr-1",
		PaymentMethod: models.PaymentCOD,
	})

	var stockErr InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Available != 2 || stockErr.Requested != 3 {
		t.Fatalf("unexpected error detail: %+v", stockErr)
	}
	if store.productStock(productID) != 2 {
		t.Fatalf("expected stock to remain 2, got %d", store.productStock(productID))
	}
	if store.orderCount() != 0 || store.cartSize(userID) != 1 {
		t.Fatal("expected no partial effects")
	}
}

func TestCreateOrderRollsBackPartialDecrement(t *testing.T) {
	store := newFakeStore()
	userID := store.seedUser(homeAddress())
	okProduct := store.seedProduct("Flour 1kg", 60, 10)
	racedProduct := store.seedProduct("Sugar 1kg", 45, 10)
	store.addToCart(userID, okProduct, 2)
	store.addToCart(userID, racedProduct, 1)

	// validation passes, but the conditional update on the second line is
	// rejected as if a concurrent checkout took the stock first
	store.failDecrement[racedProduct] = true

	engine := NewEngine(store)
	_, err := engine.CreateOrder(context.Background(), userID, CreateOrderInput{
		AddressID:     "addr-1",
		PaymentMethod: models.PaymentCOD,
	})

	var stockErr InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if store.productStock(okProduct) != 10 {
		t.Fatalf("expected first line's decrement to roll back, stock=%d", store.productStock(okProduct))
	}
	if store.orderCount() != 0 || store.cartSize(userID) != 2 {
		t.Fatal("expected full rollback")
	}
}

func TestCreateOrderRetriesOrderNumberCollision(t *testing.T) {
	store := newFakeStore()
	userID := store.seedUser(homeAddress())
	productID := store.seedProduct("Salt 1kg", 25, 5)
	store.addToCart(userID, productID, 1)
	store.duplicateInserts = 2

	engine := NewEngine(store)
	order, err := engine.CreateOrder(context.Background(), userID, CreateOrderInput{
		AddressID:     "addr-1",
		PaymentMethod: models.PaymentCOD,
	})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if store.insertAttempts != 3 {
		t.Fatalf("expected 3 insert attempts, got %d", store.insertAttempts)
	}
	// a collision aborts the transaction, so every attempt must open a
	// fresh one rather than re-issue the insert on the aborted session
	if store.transactions != 3 {
		t.Fatalf("expected one transaction per attempt, got %d", store.transactions)
	}
	if order.OrderNumber == "" {
		t.Fatal("expected an order number on the stored order")
	}
}

func TestCreateOrderGivesUpAfterRepeatedCollisions(t *testing.T) {
	store := newFakeStore()
	userID := store.seedUser(homeAddress())
	productID := store.seedProduct("Oats 1kg", 110, 5)
	store.addToCart(userID, productID, 1)
	store.duplicateInserts = 10

	engine := NewEngine(store)
	_, err := engine.CreateOrder(context.Background(), userID, CreateOrderInput{
		AddressID:     "addr-1",
		PaymentMethod: models.PaymentCOD,
	})

	var persistence *PersistenceError
	if !errors.As(err, &persistence) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if store.insertAttempts != 3 {
		t.Fatalf("expected exactly 3 attempts before giving up, got %d", store.insertAttempts)
	}
	if store.orderCount() != 0 || store.productStock(productID) != 5 {
		t.Fatal("expected no effects after giving up")
	}
}

func TestCreateOrderInvalidPaymentMethod(t *testing.T) {
	store := newFakeStore()
	userID := store.seedUser(homeAddress())

	engine := NewEngine(store)
	_, err := engine.CreateOrder(context.Background(), userID, CreateOrderInput{
		AddressID:     "addr-1",
		PaymentMethod: "cheque",
	})
	if !errors.Is(err, ErrInvalidPaymentMethod) {
		t.Fatalf("expected ErrInvalidPaymentMethod, got %v", err)
	}
}

func TestConcurrentCheckoutOfLastUnit(t *testing.T) {
	store := newFakeStore()
	productID := store.seedProduct("Limited Edition Mug", 350, 1)
	userA := store.seedUser(homeAddress())
	userB := store.seedUser(homeAddress())
	store.addToCart(userA, productID, 1)
	store.addToCart(userB, productID, 1)

	engine := NewEngine(store)
	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, userID := range []primitive.ObjectID{userA, userB} {
		uid := userID
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.CreateOrder(context.Background(), uid, CreateOrderInput{
				AddressID:     "addr-1",
				PaymentMethod: models.PaymentCOD,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, stockFailures int
	for err := range results {
		switch {
		case err == nil:
			successes++
		default:
			var stockErr InsufficientStockError
			if errors.As(err, &stockErr) {
				stockFailures++
			} else {
				t.Fatalf("unexpected error: %v", err)
			}
		}
	}

	if successes != 1 || stockFailures != 1 {
		t.Fatalf("expected exactly one success and one stock failure, got %d/%d", successes, stockFailures)
	}
	if got := store.productStock(productID); got != 0 {
		t.Fatalf("expected final stock 0, got %d", got)
	}
}

func TestOrderRetrievalIsOwnershipScoped(t *testing.T) {
	store := newFakeStore()
	owner := store.seedUser(homeAddress())
	stranger := store.seedUser(homeAddress())
	productID := store.seedProduct("Coffee 250g", 380, 5)
	store.addToCart(owner, productID, 1)

	engine := NewEngine(store)
	order, err := engine.CreateOrder(context.Background(), owner, CreateOrderInput{
		AddressID:     "addr-1",
		PaymentMethod: models.PaymentCOD,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if _, err := engine.Order(context.Background(), stranger, order.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for foreign order, got %v", err)
	}
	if _, err := engine.Order(context.Background(), owner, order.ID); err != nil {
		t.Fatalf("owner should see the order, got %v", err)
	}
}

func TestListOrdersPaginationDefaults(t *testing.T) {
	store := newFakeStore()
	userID := store.seedUser(homeAddress())
	productID := store.seedProduct("Biscuits", 30, 1000)

	engine := NewEngine(store)
	for i := 0; i < 12; i++ {
		store.addToCart(userID, productID, 1)
		if _, err := engine.CreateOrder(context.Background(), userID, CreateOrderInput{
			AddressID:     "addr-1",
			PaymentMethod: models.PaymentCOD,
		}); err != nil {
			t.Fatalf("create order %d failed: %v", i, err)
		}
	}

	page, err := engine.ListOrders(context.Background(), userID, 0, 0)
	if err != nil {
		t.Fatalf("list orders failed: %v", err)
	}
	if page.Page != 1 || page.Limit != 10 {
		t.Fatalf("expected defaults 1/10, got %d/%d", page.Page, page.Limit)
	}
	if len(page.Orders) != 10 || page.Total != 12 {
		t.Fatalf("expected 10 of 12 orders, got %d of %d", len(page.Orders), page.Total)
	}

	second, err := engine.ListOrders(context.Background(), userID, 2, 10)
	if err != nil {
		t.Fatalf("list second page failed: %v", err)
	}
	if len(second.Orders) != 2 {
		t.Fatalf("expected 2 orders on second page, got %d", len(second.Orders))
	}
}
