package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_storefront/internal/domain"
)

// CartStore holds the remote cart snapshot of signed-in users.
type CartStore interface {
	// Enabled reports whether the store can currently serve requests. A
	// disabled store is treated as absent, not as failing.
	Enabled() bool
	Get(ctx context.Context, userID string) ([]domain.CartItem, error)
	Set(ctx context.Context, userID string, items []domain.CartItem) error
	Delete(ctx context.Context, userID string) error
}

var (
	ErrCacheMiss   = errors.New("cache miss")
	ErrUnavailable = errors.New("cart cache unavailable")
)

// DisabledCartStore is used when no cache is configured.
type DisabledCartStore struct{}

func (DisabledCartStore) Enabled() bool { return false }

func (DisabledCartStore) Get(context.Context, string) ([]domain.CartItem, error) {
	return nil, ErrUnavailable
}

func (DisabledCartStore) Set(context.Context, string, []domain.CartItem) error {
	return ErrUnavailable
}

func (DisabledCartStore) Delete(context.Context, string) error {
	return ErrUnavailable
}
