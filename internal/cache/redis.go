package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/pkg/circuitbreaker"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL = 30 * 24 * time.Hour
	// fetchTimeout bounds a coalesced read, which outlives any one caller.
	fetchTimeout = 5 * time.Second
)

func NewRedisCartStore(client *redis.Client, ttl time.Duration, breaker *circuitbreaker.Breaker) *RedisCartStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCartStore{
		client:  client,
		ttl:     ttl,
		breaker: breaker,
	}
}

type RedisCartStore struct {
	client  *redis.Client
	ttl     time.Duration
	breaker *circuitbreaker.Breaker
	group   singleflight.Group
}

func (r *RedisCartStore) Enabled() bool {
	return r.breaker == nil || !r.breaker.Open()
}

func (r *RedisCartStore) Get(ctx context.Context, userID string) ([]domain.CartItem, error) {
	key := cacheKey(userID)

	// concurrent pulls for the same user share one round trip; a caller
	// giving up does not cancel it for the others
	ch := r.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		var items []domain.CartItem
		err := r.guard(func() error {
			data, err := r.client.Get(fctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return ErrCacheMiss
			}
			if err != nil {
				return fmt.Errorf("redis get failed: %w", err)
			}
			if err := json.Unmarshal(data, &items); err != nil {
				return fmt.Errorf("unmarshal cart failed: %w", err)
			}
			return nil
		})
		return items, err
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	v, err := res.Val, res.Err
	if err != nil {
		return nil, err
	}
	return domain.CloneItems(v.([]domain.CartItem)), nil
}

func (r *RedisCartStore) Set(ctx context.Context, userID string, items []domain.CartItem) error {
	if items == nil {
		items = []domain.CartItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	return r.guard(func() error {
		if err := r.client.Set(ctx, cacheKey(userID), data, r.ttl).Err(); err != nil {
			return fmt.Errorf("redis set failed: %w", err)
		}
		return nil
	})
}

func (r *RedisCartStore) Delete(ctx context.Context, userID string) error {
	return r.guard(func() error {
		if err := r.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
			return fmt.Errorf("redis delete failed: %w", err)
		}
		return nil
	})
}

func (r *RedisCartStore) guard(fn func() error) error {
	if r.breaker == nil {
		return fn()
	}
	err := r.breaker.Execute(fn)
	if circuitbreaker.Rejected(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// IsExpected reports cache outcomes that must not trip the breaker.
func IsExpected(err error) bool {
	return errors.Is(err, ErrCacheMiss) || errors.Is(err, context.Canceled)
}

func cacheKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}
