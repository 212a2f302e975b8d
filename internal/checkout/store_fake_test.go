package checkout

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

// fakeStore is an in-memory Store. InTransaction snapshots the whole state
// and restores it when fn fails, mirroring the all-or-nothing semantics of
// the real store. A single mutex serializes transactions; nested calls run
// lock-free via a context marker.
type fakeStore struct {
	mu    sync.Mutex
	state fakeState

	// test hooks and counters
	failDecrement    map[primitive.ObjectID]bool
	duplicateInserts int
	insertAttempts   int
	transactions     int

	// like the real server, a transaction accepts no further statements
	// once one of its statements has failed
	txAborted bool
}

type fakeState struct {
	users    map[primitive.ObjectID]models.User
	products map[primitive.ObjectID]models.Product
	carts    map[primitive.ObjectID][]models.CartItem
	orders   []models.Order
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		state: fakeState{
			users:    make(map[primitive.ObjectID]models.User),
			products: make(map[primitive.ObjectID]models.Product),
			carts:    make(map[primitive.ObjectID][]models.CartItem),
		},
		failDecrement: make(map[primitive.ObjectID]bool),
	}
}

func (s fakeState) clone() fakeState {
	next := fakeState{
		users:    make(map[primitive.ObjectID]models.User, len(s.users)),
		products: make(map[primitive.ObjectID]models.Product, len(s.products)),
		carts:    make(map[primitive.ObjectID][]models.CartItem, len(s.carts)),
		orders:   append([]models.Order(nil), s.orders...),
	}
	for id, u := range s.users {
		u.Addresses = append([]models.Address(nil), u.Addresses...)
		next.users[id] = u
	}
	for id, p := range s.products {
		next.products[id] = p
	}
	for id, items := range s.carts {
		next.carts[id] = append([]models.CartItem(nil), items...)
	}
	for i := range next.orders {
		next.orders[i].Items = append([]models.OrderItem(nil), next.orders[i].Items...)
	}
	return next
}

type fakeTxKey struct{}

func (f *fakeStore) lock(ctx context.Context) func() {
	if ctx.Value(fakeTxKey{}) != nil {
		return func() {}
	}
	f.mu.Lock()
	return f.mu.Unlock
}

func (f *fakeStore) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.transactions++
	f.txAborted = false
	snapshot := f.state.clone()
	if err := fn(context.WithValue(ctx, fakeTxKey{}, true)); err != nil {
		f.state = snapshot
		return err
	}
	return nil
}

func (f *fakeStore) CartLines(ctx context.Context, userID primitive.ObjectID) ([]CartLine, error) {
	defer f.lock(ctx)()

	items := f.state.carts[userID]
	lines := make([]CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, CartLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Product:   f.state.products[item.ProductID],
		})
	}
	return lines, nil
}

func (f *fakeStore) Address(ctx context.Context, userID primitive.ObjectID, addressID string) (*models.Address, error) {
	defer f.lock(ctx)()

	user, ok := f.state.users[userID]
	if !ok {
		return nil, nil
	}
	addr := user.AddressByID(addressID)
	if addr == nil {
		return nil, nil
	}
	copied := *addr
	return &copied, nil
}

func (f *fakeStore) InsertOrder(ctx context.Context, order *models.Order) error {
	defer f.lock(ctx)()

	if f.txAborted {
		return errors.New("transaction aborted")
	}
	f.insertAttempts++
	if f.duplicateInserts > 0 {
		f.duplicateInserts--
		f.txAborted = true
		return ErrDuplicateOrderNumber
	}
	for _, existing := range f.state.orders {
		if existing.OrderNumber == order.OrderNumber {
			f.txAborted = true
			return ErrDuplicateOrderNumber
		}
	}
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	f.state.orders = append(f.state.orders, *order)
	return nil
}

func (f *fakeStore) DecrementStock(ctx context.Context, productID primitive.ObjectID, qty int) (bool, error) {
	defer f.lock(ctx)()

	if f.failDecrement[productID] {
		return false, nil
	}
	product, ok := f.state.products[productID]
	if !ok || product.IsDeleted || product.Stock < qty {
		return false, nil
	}
	product.Stock -= qty
	f.state.products[productID] = product
	return true, nil
}

func (f *fakeStore) IncrementStock(ctx context.Context, productID primitive.ObjectID, qty int) error {
	defer f.lock(ctx)()

	product := f.state.products[productID]
	product.Stock += qty
	f.state.products[productID] = product
	return nil
}

func (f *fakeStore) ClearCart(ctx context.Context, userID primitive.ObjectID) error {
	defer f.lock(ctx)()

	delete(f.state.carts, userID)
	return nil
}

func (f *fakeStore) Order(ctx context.Context, userID, orderID primitive.ObjectID) (*models.Order, error) {
	defer f.lock(ctx)()

	for i := range f.state.orders {
		if f.state.orders[i].ID == orderID && f.state.orders[i].UserID == userID {
			copied := f.state.orders[i]
			copied.Items = append([]models.OrderItem(nil), copied.Items...)
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) OrderByID(ctx context.Context, orderID primitive.ObjectID) (*models.Order, error) {
	defer f.lock(ctx)()

	for i := range f.state.orders {
		if f.state.orders[i].ID == orderID {
			copied := f.state.orders[i]
			copied.Items = append([]models.OrderItem(nil), copied.Items...)
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SetOrderStatus(ctx context.Context, orderID primitive.ObjectID, from []models.OrderStatus, to models.OrderStatus) (bool, error) {
	defer f.lock(ctx)()

	for i := range f.state.orders {
		if f.state.orders[i].ID != orderID {
			continue
		}
		for _, status := range from {
			if f.state.orders[i].Status == status {
				f.state.orders[i].Status = to
				return true, nil
			}
		}
		return false, nil
	}
	return false, nil
}

func (f *fakeStore) SetPaymentStatus(ctx context.Context, orderID primitive.ObjectID, from []models.PaymentStatus, to models.PaymentStatus) (bool, error) {
	defer f.lock(ctx)()

	for i := range f.state.orders {
		if f.state.orders[i].ID != orderID {
			continue
		}
		for _, status := range from {
			if f.state.orders[i].PaymentStatus == status {
				f.state.orders[i].PaymentStatus = to
				return true, nil
			}
		}
		return false, nil
	}
	return false, nil
}

func (f *fakeStore) ListOrders(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.Order, int64, error) {
	defer f.lock(ctx)()

	var owned []models.Order
	for _, order := range f.state.orders {
		if order.UserID == userID {
			owned = append(owned, order)
		}
	}
	return pageOrders(owned, skip, limit)
}

func (f *fakeStore) ListAllOrders(ctx context.Context, skip, limit int64) ([]models.Order, int64, error) {
	defer f.lock(ctx)()

	all := append([]models.Order(nil), f.state.orders...)
	return pageOrders(all, skip, limit)
}

func pageOrders(orders []models.Order, skip, limit int64) ([]models.Order, int64, error) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	total := int64(len(orders))
	if skip >= total {
		return nil, total, nil
	}
	end := skip + limit
	if end > total {
		end = total
	}
	return orders[skip:end], total, nil
}

// test fixtures

func (f *fakeStore) seedUser(addresses ...models.Address) primitive.ObjectID {
	id := primitive.NewObjectID()
	f.state.users[id] = models.User{
		ID:        id,
		Email:     "buyer@example.com",
		Role:      models.RoleUser,
		IsActive:  true,
		Addresses: addresses,
	}
	return id
}

func (f *fakeStore) seedProduct(name string, price int64, stock int) primitive.ObjectID {
	id := primitive.NewObjectID()
	f.state.products[id] = models.Product{
		ID:       id,
		Name:     name,
		Price:    models.MoneyFromInt(price),
		Stock:    stock,
		IsActive: true,
	}
	return id
}

func (f *fakeStore) addToCart(userID, productID primitive.ObjectID, qty int) {
	f.state.carts[userID] = append(f.state.carts[userID], models.CartItem{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		ProductID: productID,
		Quantity:  qty,
	})
}

func (f *fakeStore) productStock(id primitive.ObjectID) int {
	return f.state.products[id].Stock
}

func (f *fakeStore) cartSize(userID primitive.ObjectID) int {
	return len(f.state.carts[userID])
}

func (f *fakeStore) orderCount() int {
	return len(f.state.orders)
}

func homeAddress() models.Address {
	return models.Address{
		ID:      "addr-1",
		Name:    "Asha Rao",
		Phone:   "9000000000",
		Street:  "12 MG Road",
		City:    "Bengaluru",
		State:   "KA",
		Pincode: "560001",
		Country: "IN",
	}
}
