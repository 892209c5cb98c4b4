package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const (
	orderSequence   = "order"
	rollbackTimeout = 5 * time.Second
)

// OrderService submits orders with the reserve-then-rollback policy: line
// items are reserved one at a time in product id order, and any failure
// returns every unit already reserved for the order before reporting it.
type OrderService struct {
	accounts *AccountService
	ledger   *InventoryLedger
	orders   port.OrderRepository
	ids      port.SequenceGenerator
	logger   *slog.Logger
}

func NewOrderService(
	accounts *AccountService,
	ledger *InventoryLedger,
	orders port.OrderRepository,
	ids port.SequenceGenerator,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		accounts: accounts,
		ledger:   ledger,
		orders:   orders,
		ids:      ids,
		logger:   logger,
	}
}

func (s *OrderService) SubmitOrder(ctx context.Context, username, password string, items []domain.LineItem) (*domain.Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: order has no items", ErrInvalidArgument)
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidArgument)
		}
	}
	items = domain.NormalizeItems(items)

	if _, err := s.accounts.Authorize(ctx, username, password); err != nil {
		return nil, err
	}

	reserved := make([]domain.LineItem, 0, len(items))
	for _, item := range items {
		ok, err := s.ledger.TryDecrement(ctx, item.ProductID, item.Quantity)
		if err != nil {
			return nil, errors.Join(err, s.release(ctx, reserved))
		}
		if !ok {
			err = fmt.Errorf("%w: product %d", ErrInsufficientStock, item.ProductID)
			return nil, errors.Join(err, s.release(ctx, reserved))
		}
		reserved = append(reserved, item)
	}

	id, err := s.ids.NextID(ctx, orderSequence)
	if err != nil {
		return nil, errors.Join(storeFailure("next order id", err), s.release(ctx, reserved))
	}

	order := domain.Order{
		ID:        id,
		RequestID: uuid.New(),
		Username:  username,
		Items:     items,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.orders.InsertOrder(ctx, order); err != nil {
		return nil, errors.Join(storeFailure("insert order", err), s.release(ctx, reserved))
	}

	s.logger.DebugContext(ctx, "order placed", "order_id", order.ID, "username", username, "items", len(items))
	return &order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, storeFailure("get order", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// release returns reserved units to stock. It runs detached from the
// caller's cancellation so an abandoned request still restores stock.
func (s *OrderService) release(ctx context.Context, reserved []domain.LineItem) error {
	if len(reserved) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	var errs []error
	for _, item := range reserved {
		if err := s.ledger.AddStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.ErrorContext(ctx, "CRITICAL rollback failed",
				"product_id", item.ProductID, "quantity", item.Quantity, "error", err)
			errs = append(errs, fmt.Errorf("rollback product %d: %w", item.ProductID, err))
		}
	}
	return errors.Join(errs...)
}
