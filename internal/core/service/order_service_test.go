package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront/internal/core/domain"
)

func TestSubmitOrder_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.givenUser(t, "alice")
	first := f.givenProduct(t, 10)
	second := f.givenProduct(t, 3)

	order, err := f.shop.SubmitOrder(ctx, user.Username, user.Password, []domain.LineItem{
		{ProductID: second, Quantity: 3},
		{ProductID: first, Quantity: 4},
	})
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, int64(1), order.ID)
	assert.NotEqual(t, uuid.Nil, order.RequestID)
	assert.Equal(t, "alice", order.Username)
	assert.Equal(t, []domain.LineItem{{ProductID: first, Quantity: 4}, {ProductID: second, Quantity: 3}}, order.Items)

	assert.Equal(t, 6, f.stockOf(t, first))
	assert.Equal(t, 0, f.stockOf(t, second))

	stored, err := f.shop.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.Items, stored.Items)
}

func TestSubmitOrder_MergesRepeatedProducts(t *testing.T) {
	f := newFixture(t)
	user := f.givenUser(t, "alice")
	id := f.givenProduct(t, 5)

	order, err := f.shop.SubmitOrder(context.Background(), user.Username, user.Password, []domain.LineItem{
		{ProductID: id, Quantity: 2},
		{ProductID: id, Quantity: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.LineItem{{ProductID: id, Quantity: 5}}, order.Items)
	assert.Equal(t, 0, f.stockOf(t, id))
}

func TestSubmitOrder_AuthorizationFailed(t *testing.T) {
	f := newFixture(t)
	f.givenUser(t, "alice")
	id := f.givenProduct(t, 5)

	order, err := f.shop.SubmitOrder(context.Background(), "alice", "wrong", []domain.LineItem{{ProductID: id, Quantity: 1}})
	assert.Nil(t, order)
	assert.ErrorIs(t, err, ErrAuthorizationFailed)
	assert.Equal(t, 5, f.stockOf(t, id))
	assert.Zero(t, f.store.decrements, "no stock may be touched before authorization")
	assert.Empty(t, f.store.Orders())
}

func TestSubmitOrder_InvalidItems(t *testing.T) {
	f := newFixture(t)
	user := f.givenUser(t, "alice")
	id := f.givenProduct(t, 5)
	ctx := context.Background()

	_, err := f.shop.SubmitOrder(ctx, user.Username, user.Password, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = f.shop.SubmitOrder(ctx, user.Username, user.Password, []domain.LineItem{{ProductID: id, Quantity: 0}})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, 5, f.stockOf(t, id))
}

func TestSubmitOrder_InsufficientStockLeavesEveryItemUnchanged(t *testing.T) {
	f := newFixture(t)
	user := f.givenUser(t, "alice")
	first := f.givenProduct(t, 10)
	second := f.givenProduct(t, 10)
	short := f.givenProduct(t, 2)

	order, err := f.shop.SubmitOrder(context.Background(), user.Username, user.Password, []domain.LineItem{
		{ProductID: first, Quantity: 4},
		{ProductID: second, Quantity: 5},
		{ProductID: short, Quantity: 3},
	})
	assert.Nil(t, order)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.True(t, IsRejection(err))

	assert.Equal(t, 10, f.stockOf(t, first))
	assert.Equal(t, 10, f.stockOf(t, second))
	assert.Equal(t, 2, f.stockOf(t, short))
	assert.Empty(t, f.store.Orders())
}

func TestSubmitOrder_UnknownProductRollsBack(t *testing.T) {
	f := newFixture(t)
	user := f.givenUser(t, "alice")
	id := f.givenProduct(t, 10)

	_, err := f.shop.SubmitOrder(context.Background(), user.Username, user.Password, []domain.LineItem{
		{ProductID: id, Quantity: 1},
		{ProductID: 9999, Quantity: 1},
	})
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 10, f.stockOf(t, id))
}

func TestSubmitOrder_StoreFailureMidOrderRollsBack(t *testing.T) {
	f := newFixture(t)
	user := f.givenUser(t, "alice")
	first := f.givenProduct(t, 10)
	second := f.givenProduct(t, 10)
	f.store.failDecrementOn[second] = true

	_, err := f.shop.SubmitOrder(context.Background(), user.Username, user.Password, []domain.LineItem{
		{ProductID: first, Quantity: 6},
		{ProductID: second, Quantity: 1},
	})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.False(t, IsRejection(err))
	assert.Equal(t, 10, f.stockOf(t, first))
	assert.Empty(t, f.store.Orders())
}

func TestSubmitOrder_InsertFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	user := f.givenUser(t, "alice")
	id := f.givenProduct(t, 10)
	f.store.failInsertOrder = true

	_, err := f.shop.SubmitOrder(context.Background(), user.Username, user.Password, []domain.LineItem{{ProductID: id, Quantity: 7}})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, 10, f.stockOf(t, id))
}

func TestSubmitOrder_SequenceFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	user := f.givenUser(t, "alice")
	id := f.givenProduct(t, 10)
	f.store.failNextID = true

	_, err := f.shop.SubmitOrder(context.Background(), user.Username, user.Password, []domain.LineItem{{ProductID: id, Quantity: 7}})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, 10, f.stockOf(t, id))
}

func TestSubmitOrder_RollbackFailureReported(t *testing.T) {
	f := newFixture(t)
	user := f.givenUser(t, "alice")
	first := f.givenProduct(t, 10)
	short := f.givenProduct(t, 0)
	f.store.failIncrement = true

	_, err := f.shop.SubmitOrder(context.Background(), user.Username, user.Password, []domain.LineItem{
		{ProductID: first, Quantity: 2},
		{ProductID: short, Quantity: 1},
	})
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.ErrorIs(t, err, ErrStoreUnavailable, "a failed rollback must surface")
	assert.Equal(t, 8, f.stockOf(t, first), "lost rollback under-reports stock but never oversells")
}

func TestSubmitOrder_CanceledContextStillRollsBack(t *testing.T) {
	f := newFixture(t)
	user := f.givenUser(t, "alice")
	first := f.givenProduct(t, 10)
	short := f.givenProduct(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.shop.SubmitOrder(ctx, user.Username, user.Password, []domain.LineItem{
		{ProductID: first, Quantity: 2},
		{ProductID: short, Quantity: 1},
	})
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 10, f.stockOf(t, first))
}

func TestSubmitOrder_ConcurrentNeverOversells(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	initialStock := 20
	totalRequests := 200

	users := make([]domain.User, 10)
	for i := range users {
		users[i] = f.givenUser(t, fmt.Sprintf("user%d", i))
	}
	hot := f.givenProduct(t, initialStock)
	cold := f.givenProduct(t, initialStock*10)

	var (
		successCount atomic.Int32
		mu           sync.Mutex
		placed       []domain.Order
		wg           sync.WaitGroup
	)
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := users[i%len(users)]
			order, err := f.shop.SubmitOrder(ctx, user.Username, user.Password, []domain.LineItem{
				{ProductID: cold, Quantity: 1},
				{ProductID: hot, Quantity: i%3 + 1},
			})
			if err != nil {
				assert.ErrorIs(t, err, ErrInsufficientStock)
				return
			}
			successCount.Add(1)
			mu.Lock()
			placed = append(placed, *order)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	require.Positive(t, successCount.Load())

	sold := map[int64]int{}
	ids := map[int64]bool{}
	for _, o := range placed {
		assert.False(t, ids[o.ID], "order id %d assigned twice", o.ID)
		ids[o.ID] = true
		for id, qty := range domain.TotalQuantity(o.Items) {
			sold[id] += qty
		}
	}

	hotStock := f.stockOf(t, hot)
	coldStock := f.stockOf(t, cold)
	assert.GreaterOrEqual(t, hotStock, 0)
	assert.LessOrEqual(t, sold[hot], initialStock)
	assert.Equal(t, initialStock-sold[hot], hotStock)
	assert.Equal(t, initialStock*10-sold[cold], coldStock, "failed orders must return the cold item")
	assert.Len(t, f.store.Orders(), len(placed))
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.shop.GetOrder(context.Background(), 77)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
