package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// runStoreContract exercises the guarantees the core depends on. Every
// backend test calls it with a live store.
func runStoreContract(t *testing.T, store port.Store) {
	t.Run("UserUniqueness", func(t *testing.T) { testUserUniqueness(t, store) })
	t.Run("ConcurrentUserInsert", func(t *testing.T) { testConcurrentUserInsert(t, store) })
	t.Run("ProductRoundTrip", func(t *testing.T) { testProductRoundTrip(t, store) })
	t.Run("IncrementStock", func(t *testing.T) { testIncrementStock(t, store) })
	t.Run("DecrementStock", func(t *testing.T) { testDecrementStock(t, store) })
	t.Run("ConcurrentDecrement", func(t *testing.T) { testConcurrentDecrement(t, store) })
	t.Run("Reviews", func(t *testing.T) { testReviews(t, store) })
	t.Run("ConcurrentReviewInsert", func(t *testing.T) { testConcurrentReviewInsert(t, store) })
	t.Run("Orders", func(t *testing.T) { testOrders(t, store) })
	t.Run("ConcurrentNextID", func(t *testing.T) { testConcurrentNextID(t, store) })
}

func uniqueName(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

func givenProduct(t *testing.T, store port.Store, stock int) int64 {
	t.Helper()
	ctx := context.Background()

	id, err := store.NextID(ctx, "product")
	require.NoError(t, err)

	err = store.InsertProduct(ctx, domain.Product{
		ID:          id,
		Name:        "Product",
		Description: "Description for product",
		Price:       decimal.RequireFromString("19.99"),
		Stock:       stock,
		CreatedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)
	return id
}

func stockOf(t *testing.T, store port.Store, productID int64) int {
	t.Helper()
	p, err := store.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Stock
}

func testUserUniqueness(t *testing.T, store port.Store) {
	ctx := context.Background()
	user := domain.User{Username: uniqueName("user"), Password: "secret", FirstName: "Ada", LastName: "Lovelace"}

	require.NoError(t, store.InsertUser(ctx, user))
	assert.ErrorIs(t, store.InsertUser(ctx, user), domain.ErrDuplicateKey)

	found, err := store.FindUser(ctx, user.Username)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user, *found)

	missing, err := store.FindUser(ctx, uniqueName("nobody"))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func testConcurrentUserInsert(t *testing.T, store port.Store) {
	ctx := context.Background()
	name := uniqueName("racer")

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.InsertUser(ctx, domain.User{Username: name, Password: "pw"})
			if err == nil {
				successCount.Add(1)
				return
			}
			assert.ErrorIs(t, err, domain.ErrDuplicateKey)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successCount.Load())
}

func testProductRoundTrip(t *testing.T, store port.Store) {
	ctx := context.Background()
	id := givenProduct(t, store, 12)

	p, err := store.GetProduct(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, "Product", p.Name)
	assert.True(t, decimal.RequireFromString("19.99").Equal(p.Price), "price %s", p.Price)
	assert.Equal(t, 12, p.Stock)

	missing, err := store.GetProduct(ctx, -1)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func testIncrementStock(t *testing.T, store port.Store) {
	ctx := context.Background()
	id := givenProduct(t, store, 5)

	require.NoError(t, store.IncrementStock(ctx, id, 3))
	assert.Equal(t, 8, stockOf(t, store, id))

	assert.ErrorIs(t, store.IncrementStock(ctx, -1, 3), domain.ErrNotFound)
}

func testDecrementStock(t *testing.T, store port.Store) {
	ctx := context.Background()
	id := givenProduct(t, store, 10)

	ok, err := store.DecrementStockIfEnough(ctx, id, 3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, stockOf(t, store, id))

	ok, err = store.DecrementStockIfEnough(ctx, id, 8)
	require.NoError(t, err)
	assert.False(t, ok, "expected failure due to insufficient stock")
	assert.Equal(t, 7, stockOf(t, store, id), "stock must be unchanged")

	ok, err = store.DecrementStockIfEnough(ctx, id, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, stockOf(t, store, id))

	ok, err = store.DecrementStockIfEnough(ctx, -1, 1)
	require.NoError(t, err)
	assert.False(t, ok, "expected failure for unknown product")
}

func testConcurrentDecrement(t *testing.T, store port.Store) {
	ctx := context.Background()
	initialStock := 20
	totalRequests := 50
	id := givenProduct(t, store, initialStock)

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.DecrementStockIfEnough(ctx, id, 1)
			if !assert.NoError(t, err) {
				return
			}
			if ok {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(initialStock), successCount.Load())
	assert.Equal(t, 0, stockOf(t, store, id))
}

func testReviews(t *testing.T, store port.Store) {
	ctx := context.Background()
	productID := givenProduct(t, store, 1)
	otherProductID := givenProduct(t, store, 1)
	username := uniqueName("reviewer")

	review := domain.Review{Username: username, ProductID: productID, Rating: 4, Text: "good", Date: time.Now().UTC()}
	require.NoError(t, store.InsertReview(ctx, review))
	assert.ErrorIs(t, store.InsertReview(ctx, review), domain.ErrDuplicateKey)

	other := domain.Review{Username: username, ProductID: otherProductID, Rating: 2, Text: "meh", Date: time.Now().UTC()}
	require.NoError(t, store.InsertReview(ctx, other))

	byProduct, err := store.ListReviewsByProduct(ctx, productID)
	require.NoError(t, err)
	require.Len(t, byProduct, 1)
	assert.Equal(t, username, byProduct[0].Username)
	assert.Equal(t, 4, byProduct[0].Rating)
	assert.Equal(t, "good", byProduct[0].Text)
	assert.WithinDuration(t, review.Date, byProduct[0].Date, time.Second)

	byUser, err := store.ListReviewsByUser(ctx, username)
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	none, err := store.ListReviewsByUser(ctx, uniqueName("silent"))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testConcurrentReviewInsert(t *testing.T, store port.Store) {
	ctx := context.Background()
	productID := givenProduct(t, store, 1)
	username := uniqueName("reviewer")

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(rating int) {
			defer wg.Done()
			err := store.InsertReview(ctx, domain.Review{
				Username: username, ProductID: productID, Rating: rating, Text: "race", Date: time.Now().UTC(),
			})
			if err == nil {
				successCount.Add(1)
			}
		}(i%5 + 1)
	}
	wg.Wait()

	assert.Equal(t, int32(1), successCount.Load())

	reviews, err := store.ListReviewsByProduct(ctx, productID)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
}

func testOrders(t *testing.T, store port.Store) {
	ctx := context.Background()
	first := givenProduct(t, store, 1)
	second := givenProduct(t, store, 1)

	id, err := store.NextID(ctx, "order")
	require.NoError(t, err)

	order := domain.Order{
		ID:        id,
		RequestID: uuid.New(),
		Username:  uniqueName("buyer"),
		Items:     []domain.LineItem{{ProductID: first, Quantity: 2}, {ProductID: second, Quantity: 5}},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.InsertOrder(ctx, order))
	assert.ErrorIs(t, store.InsertOrder(ctx, order), domain.ErrDuplicateKey)

	found, err := store.GetOrder(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, order.ID, found.ID)
	assert.Equal(t, order.RequestID, found.RequestID)
	assert.Equal(t, order.Username, found.Username)
	assert.Equal(t, order.Items, found.Items)
	assert.WithinDuration(t, order.CreatedAt, found.CreatedAt, time.Second)

	missing, err := store.GetOrder(ctx, -1)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func testConcurrentNextID(t *testing.T, store port.Store) {
	ctx := context.Background()
	name := uniqueName("seq")
	total := 100

	ids := make(chan int64, total)
	var wg sync.WaitGroup
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := store.NextID(ctx, name)
			if assert.NoError(t, err) {
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool, total)
	for id := range ids {
		assert.False(t, seen[id], "id %d assigned twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, total)
	for i := int64(1); i <= int64(total); i++ {
		assert.True(t, seen[i], "id %d missing", i)
	}
}
