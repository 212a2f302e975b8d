package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// orderTransitions lists the legal next states per status. Delivered and
// cancelled are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderShipped, OrderCancelled},
	OrderShipped:   {OrderDelivered},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is legal.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Cancellable reports whether an order in this state may still be cancelled.
func (s OrderStatus) Cancellable() bool {
	return s == OrderPending || s == OrderConfirmed
}

// PaymentStatus tracks money collection independently of fulfilment.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// PaymentMethod is how the buyer pays.
type PaymentMethod string

const (
	PaymentCOD  PaymentMethod = "cod"
	PaymentCard PaymentMethod = "card"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCOD, PaymentCard:
		return true
	}
	return false
}

// OrderItem is the immutable snapshot of one purchased line. Price and
// Total are the values charged at checkout and are never recomputed from
// the live product.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Name      string             `bson:"name" json:"name"`
	Price     Money              `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Total     Money              `bson:"total" json:"total"`
}

// Order defines the persisted order document. Everything except Status and
// PaymentStatus is immutable once written.
type Order struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	OrderNumber   string             `bson:"orderNumber" json:"orderNumber"`
	Items         []OrderItem        `bson:"items" json:"items"`
	Address       Address            `bson:"address" json:"address"`
	PaymentMethod PaymentMethod      `bson:"paymentMethod" json:"paymentMethod"`
	PaymentStatus PaymentStatus      `bson:"paymentStatus" json:"paymentStatus"`
	PaymentIntent string             `bson:"paymentIntent,omitempty" json:"paymentIntent,omitempty"`
	Status        OrderStatus        `bson:"status" json:"status"`
	Subtotal      Money              `bson:"subtotal" json:"subtotal"`
	ShippingCost  Money              `bson:"shippingCost" json:"shippingCost"`
	Tax           Money              `bson:"tax" json:"tax"`
	Total         Money              `bson:"total" json:"total"`
	Notes         string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}
