package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
)

// ProductDetails is a product together with its reviews.
type ProductDetails struct {
	Product domain.Product
	Reviews []domain.Review
}

// Storefront is the operation surface of the core. It is implemented in
// process by service.Shop and remotely by handler.GRPCClient.
type Storefront interface {
	CreateAccount(ctx context.Context, user domain.User) error
	AddProduct(ctx context.Context, name, description string, price decimal.Decimal, stock int) (int64, error)
	AddStock(ctx context.Context, productID int64, delta int) error
	GetProductAndReviews(ctx context.Context, productID int64) (*ProductDetails, error)
	GetAverageRating(ctx context.Context, username string) (float64, error)
	SubmitOrder(ctx context.Context, username, password string, items []domain.LineItem) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	PostReview(ctx context.Context, username, password string, productID int64, rating int, text string) error
}
