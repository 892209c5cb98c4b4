package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

type ReviewService struct {
	accounts *AccountService
	products port.ProductRepository
	reviews  port.ReviewRepository
	logger   *slog.Logger
}

func NewReviewService(accounts *AccountService, products port.ProductRepository, reviews port.ReviewRepository, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		accounts: accounts,
		products: products,
		reviews:  reviews,
		logger:   logger,
	}
}

// PostReview stores at most one review per (username, product); the store's
// uniqueness constraint decides between concurrent posts.
func (s *ReviewService) PostReview(ctx context.Context, username, password string, productID int64, rating int, text string) error {
	if !domain.ValidRating(rating) {
		return fmt.Errorf("%w: rating must be between %d and %d", ErrInvalidArgument, domain.MinRating, domain.MaxRating)
	}

	if _, err := s.accounts.Authorize(ctx, username, password); err != nil {
		return err
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return storeFailure("get product", err)
	}
	if product == nil {
		return ErrProductNotFound
	}

	err = s.reviews.InsertReview(ctx, domain.Review{
		Username:  username,
		ProductID: productID,
		Rating:    rating,
		Text:      text,
		Date:      time.Now().UTC(),
	})
	if errors.Is(err, domain.ErrDuplicateKey) {
		return ErrReviewExists
	}
	if err != nil {
		return storeFailure("insert review", err)
	}

	s.logger.DebugContext(ctx, "review posted", "username", username, "product_id", productID)
	return nil
}

// GetAverageRating is 0 for a user without reviews.
func (s *ReviewService) GetAverageRating(ctx context.Context, username string) (float64, error) {
	reviews, err := s.reviews.ListReviewsByUser(ctx, username)
	if err != nil {
		return 0, storeFailure("list reviews", err)
	}
	if len(reviews) == 0 {
		return 0, nil
	}

	total := 0
	for _, r := range reviews {
		total += r.Rating
	}
	return float64(total) / float64(len(reviews)), nil
}
