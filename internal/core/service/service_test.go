package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/core/domain"
)

var errStoreDown = errors.New("connection refused")

// faultyStore wraps the memory store and fails selected calls.
type faultyStore struct {
	*storage.MemoryAdapter

	mu              sync.Mutex
	failDecrementOn map[int64]bool
	failIncrement   bool
	failInsertOrder bool
	failNextID      bool
	decrements      int
}

func newFaultyStore() *faultyStore {
	return &faultyStore{
		MemoryAdapter:   storage.NewMemoryAdapter(),
		failDecrementOn: make(map[int64]bool),
	}
}

func (f *faultyStore) DecrementStockIfEnough(ctx context.Context, productID int64, quantity int) (bool, error) {
	f.mu.Lock()
	f.decrements++
	fail := f.failDecrementOn[productID]
	f.mu.Unlock()

	if fail {
		return false, errStoreDown
	}
	return f.MemoryAdapter.DecrementStockIfEnough(ctx, productID, quantity)
}

func (f *faultyStore) IncrementStock(ctx context.Context, productID int64, delta int) error {
	f.mu.Lock()
	fail := f.failIncrement
	f.mu.Unlock()

	if fail {
		return errStoreDown
	}
	return f.MemoryAdapter.IncrementStock(ctx, productID, delta)
}

func (f *faultyStore) InsertOrder(ctx context.Context, order domain.Order) error {
	if f.failInsertOrder {
		return errStoreDown
	}
	return f.MemoryAdapter.InsertOrder(ctx, order)
}

func (f *faultyStore) NextID(ctx context.Context, name string) (int64, error) {
	if f.failNextID && name == orderSequence {
		return 0, errStoreDown
	}
	return f.MemoryAdapter.NextID(ctx, name)
}

type fixture struct {
	store *faultyStore
	shop  *Shop
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newFaultyStore()
	return &fixture{
		store: store,
		shop:  NewShop(store, slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
}

func (f *fixture) givenUser(t *testing.T, username string) domain.User {
	t.Helper()
	user := domain.User{Username: username, Password: "password-" + username, FirstName: "First", LastName: "Last"}
	require.NoError(t, f.shop.CreateAccount(context.Background(), user))
	return user
}

func (f *fixture) givenProduct(t *testing.T, stock int) int64 {
	t.Helper()
	id, err := f.shop.AddProduct(context.Background(), fmt.Sprintf("Product-%d", stock), "desc", decimal.NewFromFloat(9.5), stock)
	require.NoError(t, err)
	return id
}

func (f *fixture) stockOf(t *testing.T, productID int64) int {
	t.Helper()
	p, err := f.store.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Stock
}
