package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const (
	userCollection    = "user"
	productCollection = "product"
	reviewCollection  = "review"
	orderCollection   = "order"
	counterCollection = "counters"
)

type userDocument struct {
	Username  string `bson:"username"`
	Password  string `bson:"password"`
	FirstName string `bson:"first_name"`
	LastName  string `bson:"last_name"`
}

type productDocument struct {
	ProductID   int64                `bson:"product_id"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Price       primitive.Decimal128 `bson:"price"`
	Stock       int                  `bson:"stock_quantity"`
	CreatedAt   time.Time            `bson:"created_at"`
}

type reviewDocument struct {
	Username  string    `bson:"username"`
	ProductID int64     `bson:"product_id"`
	Rating    int       `bson:"rating"`
	Text      string    `bson:"review_text"`
	Date      time.Time `bson:"date"`
}

type lineItemDocument struct {
	ProductID int64 `bson:"product_id"`
	Quantity  int   `bson:"quantity"`
}

type orderDocument struct {
	OrderID   int64              `bson:"order_id"`
	RequestID string             `bson:"request_id"`
	Username  string             `bson:"username"`
	Date      time.Time          `bson:"date"`
	Products  []lineItemDocument `bson:"products"`
}

type counterDocument struct {
	Name  string `bson:"_id"`
	Value int64  `bson:"seq"`
}

type MongoAdapter struct {
	users    *mongo.Collection
	products *mongo.Collection
	reviews  *mongo.Collection
	orders   *mongo.Collection
	counters *mongo.Collection
}

var _ port.Store = (*MongoAdapter)(nil)

func NewMongoAdapter(db *mongo.Database) *MongoAdapter {
	return &MongoAdapter{
		users:    db.Collection(userCollection),
		products: db.Collection(productCollection),
		reviews:  db.Collection(reviewCollection),
		orders:   db.Collection(orderCollection),
		counters: db.Collection(counterCollection),
	}
}

// EnsureIndexes creates the unique indexes every insert relies on for
// duplicate rejection.
func (m *MongoAdapter) EnsureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll *mongo.Collection
		keys bson.D
	}{
		{m.users, bson.D{{Key: "username", Value: 1}}},
		{m.products, bson.D{{Key: "product_id", Value: 1}}},
		{m.reviews, bson.D{{Key: "username", Value: 1}, {Key: "product_id", Value: 1}}},
		{m.orders, bson.D{{Key: "order_id", Value: 1}}},
		{m.orders, bson.D{{Key: "request_id", Value: 1}}},
	}

	for _, idx := range indexes {
		_, err := idx.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    idx.keys,
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return fmt.Errorf("create index on %s: %w", idx.coll.Name(), err)
		}
	}

	_, err := m.reviews.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "product_id", Value: 1}}})
	if err != nil {
		return fmt.Errorf("create index on %s: %w", reviewCollection, err)
	}
	return nil
}

func (m *MongoAdapter) InsertUser(ctx context.Context, user domain.User) error {
	_, err := m.users.InsertOne(ctx, userDocument{
		Username:  user.Username,
		Password:  user.Password,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
	return mongoInsertError(err)
}

func (m *MongoAdapter) FindUser(ctx context.Context, username string) (*domain.User, error) {
	var doc userDocument
	err := m.users.FindOne(ctx, bson.M{"username": username}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &domain.User{
		Username:  doc.Username,
		Password:  doc.Password,
		FirstName: doc.FirstName,
		LastName:  doc.LastName,
	}, nil
}

func (m *MongoAdapter) InsertProduct(ctx context.Context, product domain.Product) error {
	price, err := primitive.ParseDecimal128(product.Price.String())
	if err != nil {
		return fmt.Errorf("encode price: %w", err)
	}

	_, err = m.products.InsertOne(ctx, productDocument{
		ProductID:   product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       price,
		Stock:       product.Stock,
		CreatedAt:   product.CreatedAt,
	})
	return mongoInsertError(err)
}

func (m *MongoAdapter) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	var doc productDocument
	err := m.products.FindOne(ctx, bson.M{"product_id": productID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	price, err := decimal.NewFromString(doc.Price.String())
	if err != nil {
		return nil, fmt.Errorf("decode price: %w", err)
	}

	return &domain.Product{
		ID:          doc.ProductID,
		Name:        doc.Name,
		Description: doc.Description,
		Price:       price,
		Stock:       doc.Stock,
		CreatedAt:   doc.CreatedAt,
	}, nil
}

func (m *MongoAdapter) IncrementStock(ctx context.Context, productID int64, delta int) error {
	result, err := m.products.UpdateOne(ctx,
		bson.M{"product_id": productID},
		bson.M{"$inc": bson.M{"stock_quantity": delta}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DecrementStockIfEnough puts the availability check in the update filter,
// so the server evaluates it and the $inc as one document operation.
func (m *MongoAdapter) DecrementStockIfEnough(ctx context.Context, productID int64, quantity int) (bool, error) {
	result, err := m.products.UpdateOne(ctx,
		bson.M{"product_id": productID, "stock_quantity": bson.M{"$gte": quantity}},
		bson.M{"$inc": bson.M{"stock_quantity": -quantity}},
	)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount == 1, nil
}

func (m *MongoAdapter) InsertReview(ctx context.Context, review domain.Review) error {
	_, err := m.reviews.InsertOne(ctx, reviewDocument{
		Username:  review.Username,
		ProductID: review.ProductID,
		Rating:    review.Rating,
		Text:      review.Text,
		Date:      review.Date,
	})
	return mongoInsertError(err)
}

func (m *MongoAdapter) ListReviewsByProduct(ctx context.Context, productID int64) ([]domain.Review, error) {
	return m.findReviews(ctx, bson.M{"product_id": productID})
}

func (m *MongoAdapter) ListReviewsByUser(ctx context.Context, username string) ([]domain.Review, error) {
	return m.findReviews(ctx, bson.M{"username": username})
}

func (m *MongoAdapter) findReviews(ctx context.Context, filter bson.M) ([]domain.Review, error) {
	cursor, err := m.reviews.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	var docs []reviewDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	reviews := make([]domain.Review, 0, len(docs))
	for _, d := range docs {
		reviews = append(reviews, domain.Review{
			Username:  d.Username,
			ProductID: d.ProductID,
			Rating:    d.Rating,
			Text:      d.Text,
			Date:      d.Date,
		})
	}
	return reviews, nil
}

// InsertOrder writes the order and its line items as one document, which
// mongo applies atomically without a transaction.
func (m *MongoAdapter) InsertOrder(ctx context.Context, order domain.Order) error {
	items := make([]lineItemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, lineItemDocument{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	_, err := m.orders.InsertOne(ctx, orderDocument{
		OrderID:   order.ID,
		RequestID: order.RequestID.String(),
		Username:  order.Username,
		Date:      order.CreatedAt,
		Products:  items,
	})
	return mongoInsertError(err)
}

func (m *MongoAdapter) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	var doc orderDocument
	err := m.orders.FindOne(ctx, bson.M{"order_id": orderID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	requestID, err := uuid.Parse(doc.RequestID)
	if err != nil {
		return nil, fmt.Errorf("decode request id: %w", err)
	}

	order := domain.Order{
		ID:        doc.OrderID,
		RequestID: requestID,
		Username:  doc.Username,
		CreatedAt: doc.Date,
		Items:     make([]domain.LineItem, 0, len(doc.Products)),
	}
	for _, p := range doc.Products {
		order.Items = append(order.Items, domain.LineItem{ProductID: p.ProductID, Quantity: p.Quantity})
	}
	return &order, nil
}

func (m *MongoAdapter) NextID(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc counterDocument
	err := m.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Value, nil
}

func mongoInsertError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrDuplicateKey
	}
	return err
}
