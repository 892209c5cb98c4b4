package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

type LineItem struct {
	ProductID int64
	Quantity  int
}

type Order struct {
	ID        int64
	RequestID uuid.UUID
	Username  string
	Items     []LineItem
	CreatedAt time.Time
}

// NormalizeItems merges repeated products and sorts by product id, which is
// the order stock is reserved in.
func NormalizeItems(items []LineItem) []LineItem {
	merged := make(map[int64]int, len(items))
	for _, item := range items {
		merged[item.ProductID] += item.Quantity
	}

	out := make([]LineItem, 0, len(merged))
	for id, qty := range merged {
		out = append(out, LineItem{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })

	return out
}

// TotalQuantity sums quantities per product.
func TotalQuantity(items []LineItem) map[int64]int {
	totals := make(map[int64]int, len(items))
	for _, item := range items {
		totals[item.ProductID] += item.Quantity
	}
	return totals
}
