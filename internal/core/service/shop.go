package service

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// Shop wires the registries, ledger and order processor over one store.
type Shop struct {
	Accounts  *AccountService
	Inventory *InventoryLedger
	Orders    *OrderService
	Reviews   *ReviewService
	Catalog   *CatalogService
}

var _ port.Storefront = (*Shop)(nil)

func NewShop(store port.Store, logger *slog.Logger) *Shop {
	if logger == nil {
		logger = slog.Default()
	}

	accounts := NewAccountService(store, logger.With("component", "accounts"))
	ledger := NewInventoryLedger(store)

	return &Shop{
		Accounts:  accounts,
		Inventory: ledger,
		Orders:    NewOrderService(accounts, ledger, store, store, logger.With("component", "orders")),
		Reviews:   NewReviewService(accounts, store, store, logger.With("component", "reviews")),
		Catalog:   NewCatalogService(store, store, store, logger.With("component", "catalog")),
	}
}

func (s *Shop) CreateAccount(ctx context.Context, user domain.User) error {
	return s.Accounts.CreateAccount(ctx, user)
}

func (s *Shop) AddProduct(ctx context.Context, name, description string, price decimal.Decimal, stock int) (int64, error) {
	return s.Catalog.AddProduct(ctx, name, description, price, stock)
}

func (s *Shop) AddStock(ctx context.Context, productID int64, delta int) error {
	return s.Inventory.AddStock(ctx, productID, delta)
}

func (s *Shop) GetProductAndReviews(ctx context.Context, productID int64) (*port.ProductDetails, error) {
	return s.Catalog.GetProductAndReviews(ctx, productID)
}

func (s *Shop) GetAverageRating(ctx context.Context, username string) (float64, error) {
	return s.Reviews.GetAverageRating(ctx, username)
}

func (s *Shop) SubmitOrder(ctx context.Context, username, password string, items []domain.LineItem) (*domain.Order, error) {
	return s.Orders.SubmitOrder(ctx, username, password, items)
}

func (s *Shop) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.Orders.GetOrder(ctx, orderID)
}

func (s *Shop) PostReview(ctx context.Context, username, password string, productID int64, rating int, text string) error {
	return s.Reviews.PostReview(ctx, username, password, productID, rating, text)
}
