package storage

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestRedisAdapter_Contract(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	runStoreContract(t, NewRedisAdapter(client))
}

func TestRedisAdapter_StockKeyLayout(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)
	id := givenProduct(t, adapter, 10)

	// stock lives in its own integer key so the scripts can DECRBY it
	stock, err := client.Get(ctx, stockKey(id)).Int()
	require.NoError(t, err)
	assert.Equal(t, 10, stock)

	ok, err := adapter.DecrementStockIfEnough(ctx, id, 4)
	require.NoError(t, err)
	assert.True(t, ok)

	stock, err = client.Get(ctx, stockKey(id)).Int()
	require.NoError(t, err)
	assert.Equal(t, 6, stock)
}

func TestRedisAdapter_IncrementDoesNotCreateStock(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	client.Del(ctx, stockKey(-42))
	require.Error(t, adapter.IncrementStock(ctx, -42, 5))

	exists, err := client.Exists(ctx, stockKey(-42)).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}
