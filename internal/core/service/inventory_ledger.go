package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// InventoryLedger owns every stock mutation. Both operations are single
// store-side atomic steps; stock is never read and written back.
type InventoryLedger struct {
	products port.ProductRepository
}

func NewInventoryLedger(products port.ProductRepository) *InventoryLedger {
	return &InventoryLedger{products: products}
}

func (l *InventoryLedger) AddStock(ctx context.Context, productID int64, delta int) error {
	if delta <= 0 {
		return fmt.Errorf("%w: delta must be positive", ErrInvalidArgument)
	}

	err := l.products.IncrementStock(ctx, productID, delta)
	if errors.Is(err, domain.ErrNotFound) {
		return ErrProductNotFound
	}
	if err != nil {
		return storeFailure("increment stock", err)
	}
	return nil
}

// TryDecrement removes quantity units only if that many are available.
// It returns false, leaving stock untouched, otherwise.
func (l *InventoryLedger) TryDecrement(ctx context.Context, productID int64, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, fmt.Errorf("%w: quantity must be positive", ErrInvalidArgument)
	}

	ok, err := l.products.DecrementStockIfEnough(ctx, productID, quantity)
	if err != nil {
		return false, storeFailure("decrement stock", err)
	}
	return ok, nil
}
