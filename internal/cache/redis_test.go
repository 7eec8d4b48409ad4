package cache

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/pkg/circuitbreaker"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisCartStore instance
func setupTestRedis(t *testing.T, breaker *circuitbreaker.Breaker) (*RedisCartStore, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr:       mr.Addr(),
		MaxRetries: -1,
	})

	store := NewRedisCartStore(client, DefaultTTL, breaker)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return store, mr, cleanup
}

func sampleItems() []domain.CartItem {
	return []domain.CartItem{
		{ID: "1", Name: "Neural Link Headset", Price: 299, Quantity: 1, UpdatedAt: 100},
		{ID: "2", Name: "Void Pulse Watch", Price: 189, Quantity: 2, Variant: "Chrome"},
	}
}

func TestGet_Success(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t, nil)
	defer cleanup()

	data, _ := json.Marshal(sampleItems())
	require.NoError(t, mr.Set(cacheKey("user123"), string(data)))

	items, err := store.Get(context.Background(), "user123")
	require.NoError(t, err)
	assert.Equal(t, sampleItems(), items)
}

func TestGet_CacheMiss(t *testing.T) {
	store, _, cleanup := setupTestRedis(t, nil)
	defer cleanup()

	items, err := store.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, items)
}

func TestGet_InvalidJSON(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t, nil)
	defer cleanup()

	require.NoError(t, mr.Set(cacheKey("user123"), "{not json"))

	_, err := store.Get(context.Background(), "user123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal cart failed")
}

func TestSet_StoresArrayWithTTL(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t, nil)
	defer cleanup()

	require.NoError(t, store.Set(context.Background(), "user123", sampleItems()))

	raw, err := mr.Get("cart:user123")
	require.NoError(t, err)
	var stored []domain.CartItem
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, sampleItems(), stored)
	assert.Equal(t, DefaultTTL, mr.TTL("cart:user123"))
}

func TestSet_EmptyCartIsStoredAsEmptyArray(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t, nil)
	defer cleanup()

	require.NoError(t, store.Set(context.Background(), "user123", nil))
	raw, err := mr.Get("cart:user123")
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)
}

func TestGet_ExpiredAfterTTL(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t, nil)
	defer cleanup()

	require.NoError(t, store.Set(context.Background(), "user123", sampleItems()))
	mr.FastForward(DefaultTTL + time.Second)

	_, err := store.Get(context.Background(), "user123")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestDelete(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t, nil)
	defer cleanup()

	require.NoError(t, store.Set(context.Background(), "user123", sampleItems()))
	require.NoError(t, store.Delete(context.Background(), "user123"))
	assert.False(t, mr.Exists("cart:user123"))

	// deleting a missing key is not an error
	assert.NoError(t, store.Delete(context.Background(), "user123"))
}

func TestBreaker_DisablesStoreAfterFailures(t *testing.T) {
	breaker := circuitbreaker.New(circuitbreaker.Settings{
		Name:        "cart-cache",
		MaxFailures: 2,
		OpenTimeout: time.Minute,
		Ignore:      IsExpected,
	})
	store, mr, cleanup := setupTestRedis(t, breaker)
	defer cleanup()

	ctx := context.Background()
	_, err := store.Get(ctx, "user123")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.True(t, store.Enabled())

	mr.SetError("LOADING server is loading")
	assert.Error(t, store.Set(ctx, "user123", sampleItems()))
	assert.Error(t, store.Set(ctx, "user123", sampleItems()))
	assert.False(t, store.Enabled())

	mr.SetError("")
	err = store.Set(ctx, "user123", sampleItems())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDisabledCartStore(t *testing.T) {
	var store CartStore = DisabledCartStore{}
	assert.False(t, store.Enabled())
	_, err := store.Get(context.Background(), "u")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, store.Set(context.Background(), "u", nil), ErrUnavailable)
	assert.ErrorIs(t, store.Delete(context.Background(), "u"), ErrUnavailable)
}

// gateHook holds every command until release is closed
type gateHook struct {
	release chan struct{}
}

func (h gateHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h gateHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		<-h.release
		return next(ctx, cmd)
	}
}

func (h gateHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestGet_CancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t, nil)
	defer cleanup()
	data, err := json.Marshal(sampleItems())
	require.NoError(t, err)
	require.NoError(t, mr.Set("cart:user_1", string(data)))

	gate := gateHook{release: make(chan struct{})}
	store.client.AddHook(gate)

	first, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := store.Get(first, "user_1")
		firstErr <- err
	}()

	type result struct {
		items []domain.CartItem
		err   error
	}
	second := make(chan result, 1)
	go func() {
		items, err := store.Get(context.Background(), "user_1")
		second <- result{items, err}
	}()

	time.Sleep(20 * time.Millisecond)
	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(gate.release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, sampleItems(), got.items)
}
