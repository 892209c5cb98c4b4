package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const productSequence = "product"

type CatalogService struct {
	products port.ProductRepository
	reviews  port.ReviewRepository
	ids      port.SequenceGenerator
	logger   *slog.Logger
}

func NewCatalogService(products port.ProductRepository, reviews port.ReviewRepository, ids port.SequenceGenerator, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		products: products,
		reviews:  reviews,
		ids:      ids,
		logger:   logger,
	}
}

// AddProduct assigns the next product id from the store's counter and
// returns it.
func (s *CatalogService) AddProduct(ctx context.Context, name, description string, price decimal.Decimal, stock int) (int64, error) {
	if stock < 0 || price.IsNegative() {
		return 0, fmt.Errorf("%w: stock and price must not be negative", ErrInvalidArgument)
	}

	id, err := s.ids.NextID(ctx, productSequence)
	if err != nil {
		return 0, storeFailure("next product id", err)
	}

	err = s.products.InsertProduct(ctx, domain.Product{
		ID:          id,
		Name:        name,
		Description: description,
		Price:       price,
		Stock:       stock,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return 0, storeFailure("insert product", err)
	}

	s.logger.DebugContext(ctx, "product added", "product_id", id, "stock", stock)
	return id, nil
}

// GetProductAndReviews is a plain read; stock may lag concurrent orders.
func (s *CatalogService) GetProductAndReviews(ctx context.Context, productID int64) (*port.ProductDetails, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, storeFailure("get product", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	reviews, err := s.reviews.ListReviewsByProduct(ctx, productID)
	if err != nil {
		return nil, storeFailure("list reviews", err)
	}

	return &port.ProductDetails{Product: *product, Reviews: reviews}, nil
}
