package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/checkout"
	"storefront/internal/models"
)

// Mongo implements checkout.Store on a shared *mongo.Database. The client
// owns the connection pool; one Mongo value is constructed at startup and
// injected everywhere. Transactions work through session contexts: every
// method takes the caller's ctx, so calls made inside InTransaction's fn
// automatically join the session.
type Mongo struct {
	db *mongo.Database
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{db: db}
}

func (s *Mongo) CartLines(ctx context.Context, userID primitive.ObjectID) ([]checkout.CartLine, error) {
	cursor, err := s.db.Collection("cartItems").Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []models.CartItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}

	lines := make([]checkout.CartLine, 0, len(items))
	for _, item := range items {
		var product models.Product
		err := s.db.Collection("products").FindOne(ctx, bson.M{"_id": item.ProductID}).Decode(&product)
		if err == mongo.ErrNoDocuments {
			// hard-deleted product still referenced by the cart; surfaces
			// to the engine as unavailable
			product = models.Product{ID: item.ProductID, Name: "removed product"}
		} else if err != nil {
			return nil, err
		}

		lines = append(lines, checkout.CartLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Product:   product,
		})
	}
	return lines, nil
}

func (s *Mongo) Address(ctx context.Context, userID primitive.ObjectID, addressID string) (*models.Address, error) {
	var user models.User
	err := s.db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user.AddressByID(addressID), nil
}

func (s *Mongo) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

func (s *Mongo) InsertOrder(ctx context.Context, order *models.Order) error {
	res, err := s.db.Collection("orders").InsertOne(ctx, order)
	if mongo.IsDuplicateKeyError(err) {
		return checkout.ErrDuplicateOrderNumber
	}
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		order.ID = id
	}
	return nil
}

// DecrementStock is an atomic conditional update: the stock guard and the
// $inc run as one statement, so stock can never go below zero even under
// concurrent checkouts.
func (s *Mongo) DecrementStock(ctx context.Context, productID primitive.ObjectID, qty int) (bool, error) {
	res, err := s.db.Collection("products").UpdateOne(ctx,
		bson.M{
			"_id":       productID,
			"isDeleted": bson.M{"$ne": true},
			"stock":     bson.M{"$gte": qty},
		},
		bson.M{"$inc": bson.M{"stock": -qty}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (s *Mongo) IncrementStock(ctx context.Context, productID primitive.ObjectID, qty int) error {
	_, err := s.db.Collection("products").UpdateByID(ctx, productID,
		bson.M{"$inc": bson.M{"stock": qty}})
	return err
}

func (s *Mongo) ClearCart(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.db.Collection("cartItems").DeleteMany(ctx, bson.M{"userId": userID})
	return err
}

func (s *Mongo) Order(ctx context.Context, userID, orderID primitive.ObjectID) (*models.Order, error) {
	return s.findOrder(ctx, bson.M{"_id": orderID, "userId": userID})
}

func (s *Mongo) OrderByID(ctx context.Context, orderID primitive.ObjectID) (*models.Order, error) {
	return s.findOrder(ctx, bson.M{"_id": orderID})
}

func (s *Mongo) findOrder(ctx context.Context, filter bson.M) (*models.Order, error) {
	var order models.Order
	err := s.db.Collection("orders").FindOne(ctx, filter).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Mongo) SetOrderStatus(ctx context.Context, orderID primitive.ObjectID, from []models.OrderStatus, to models.OrderStatus) (bool, error) {
	res, err := s.db.Collection("orders").UpdateOne(ctx,
		bson.M{"_id": orderID, "status": bson.M{"$in": from}},
		bson.M{"$set": bson.M{"status": to}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (s *Mongo) SetPaymentStatus(ctx context.Context, orderID primitive.ObjectID, from []models.PaymentStatus, to models.PaymentStatus) (bool, error) {
	res, err := s.db.Collection("orders").UpdateOne(ctx,
		bson.M{"_id": orderID, "paymentStatus": bson.M{"$in": from}},
		bson.M{"$set": bson.M{"paymentStatus": to}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (s *Mongo) ListOrders(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.Order, int64, error) {
	return s.listOrders(ctx, bson.M{"userId": userID}, skip, limit)
}

func (s *Mongo) ListAllOrders(ctx context.Context, skip, limit int64) ([]models.Order, int64, error) {
	return s.listOrders(ctx, bson.M{}, skip, limit)
}

func (s *Mongo) listOrders(ctx context.Context, filter bson.M, skip, limit int64) ([]models.Order, int64, error) {
	total, err := s.db.Collection("orders").CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := s.db.Collection("orders").Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}
