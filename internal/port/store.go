package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

type UserRepository interface {
	// InsertUser stores a new user, returns domain.ErrDuplicateKey if the username is taken
	InsertUser(ctx context.Context, user domain.User) error

	// FindUser retrieves a user by username, returns nil when absent
	FindUser(ctx context.Context, username string) (*domain.User, error)
}

type ProductRepository interface {
	// InsertProduct stores a new product under product.ID
	InsertProduct(ctx context.Context, product domain.Product) error

	// GetProduct retrieves a product by ID, returns nil when absent
	GetProduct(ctx context.Context, productID int64) (*domain.Product, error)

	// IncrementStock atomically adds delta to stock, returns domain.ErrNotFound if absent
	IncrementStock(ctx context.Context, productID int64, delta int) error

	// DecrementStockIfEnough atomically decreases stock only when stock >= quantity,
	// returns false if insufficient or absent
	DecrementStockIfEnough(ctx context.Context, productID int64, quantity int) (bool, error)
}

type ReviewRepository interface {
	// InsertReview stores a review, returns domain.ErrDuplicateKey if the user already reviewed the product
	InsertReview(ctx context.Context, review domain.Review) error

	// ListReviewsByProduct returns every review of a product
	ListReviewsByProduct(ctx context.Context, productID int64) ([]domain.Review, error)

	// ListReviewsByUser returns every review written by a user
	ListReviewsByUser(ctx context.Context, username string) ([]domain.Review, error)
}

type OrderRepository interface {
	// InsertOrder persists an order together with its line items
	InsertOrder(ctx context.Context, order domain.Order) error

	// GetOrder retrieves an order by ID, returns nil when absent
	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)
}

type SequenceGenerator interface {
	// NextID atomically advances the named counter and returns the new value, starting at 1
	NextID(ctx context.Context, name string) (int64, error)
}

// Store is the full storage boundary the core runs against.
type Store interface {
	UserRepository
	ProductRepository
	ReviewRepository
	OrderRepository
	SequenceGenerator
}
