package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront/internal/config"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestOpenStore_Memory(t *testing.T) {
	store, closeStore, err := OpenStore(context.Background(), &config.Config{Backend: config.BackendMemory}, discard)
	require.NoError(t, err)
	defer closeStore()

	id, err := store.NextID(context.Background(), "product")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	_, _, err := OpenStore(context.Background(), &config.Config{Backend: "sqlite"}, discard)
	assert.Error(t, err)
}

func TestOpenStore_UnreachableRedis(t *testing.T) {
	cfg := &config.Config{Backend: config.BackendRedis, RedisAddr: "127.0.0.1:1"}
	_, _, err := OpenStore(context.Background(), cfg, discard)
	assert.Error(t, err)
}
