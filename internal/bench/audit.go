package bench

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rl1809/storefront/internal/core/service"
)

type StockMismatch struct {
	ProductID int64
	Expected  int
	Actual    int
}

// snapshotStock reads the current stock of ids. Products that do not exist
// are left out.
func (r *Runner) snapshotStock(ctx context.Context, ids []int64) (map[int64]int, error) {
	stock := make(map[int64]int, len(ids))
	for _, id := range ids {
		details, err := r.shop.GetProductAndReviews(ctx, id)
		if errors.Is(err, service.ErrProductNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read product %d: %w", id, err)
		}
		stock[id] = details.Product.Stock
	}
	return stock, nil
}

// audit compares final stock with baseline plus every reported effect. A
// product created during the trial has a baseline of zero. Negative stock is
// always a mismatch.
func (r *Runner) audit(ctx context.Context, baseline, effects map[int64]int) ([]StockMismatch, error) {
	ids := make([]int64, 0, len(baseline)+len(effects))
	for id := range baseline {
		ids = append(ids, id)
	}
	for id := range effects {
		if _, ok := baseline[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	final, err := r.snapshotStock(ctx, ids)
	if err != nil {
		return nil, err
	}

	var mismatches []StockMismatch
	for _, id := range ids {
		expected := baseline[id] + effects[id]
		actual, ok := final[id]
		if !ok {
			actual = 0
		}
		if actual != expected || actual < 0 {
			mismatches = append(mismatches, StockMismatch{ProductID: id, Expected: expected, Actual: actual})
		}
	}
	return mismatches, nil
}

func mergeLedgers(ledgers []map[int64]int) map[int64]int {
	merged := make(map[int64]int)
	for _, ledger := range ledgers {
		for id, delta := range ledger {
			merged[id] += delta
		}
	}
	return merged
}
