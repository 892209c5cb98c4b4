package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront/internal/core/domain"
)

func TestMemoryAdapter_Contract(t *testing.T) {
	runStoreContract(t, NewMemoryAdapter())
}

func TestMemoryAdapter_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAdapter()
	id := givenProduct(t, store, 4)

	p, err := store.GetProduct(ctx, id)
	require.NoError(t, err)
	p.Stock = -100

	assert.Equal(t, 4, stockOf(t, store, id), "mutating a returned product must not touch the store")

	items := []domain.LineItem{{ProductID: id, Quantity: 1}}
	require.NoError(t, store.InsertOrder(ctx, domain.Order{ID: 1, Items: items, CreatedAt: time.Now()}))
	items[0].Quantity = 99

	orders := store.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, 1, orders[0].Items[0].Quantity)
}
