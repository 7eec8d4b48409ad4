package cart

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
)

// StorageKey is where the cart snapshot is persisted.
const StorageKey = "cart-storage"

// LocalStorage is durable key/value storage owned by the client.
type LocalStorage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

type FlyingItem struct {
	ID    string
	X, Y  float64
	Image string
}

type persistedCart struct {
	Items []domain.CartItem `json:"items"`
}

// Store is the client-side cart. It never talks to the network; remote
// reconciliation is driven by SyncController through OnChange.
type Store struct {
	mu           sync.RWMutex
	items        []domain.CartItem
	isOpen       bool
	isSearchOpen bool
	flying       *FlyingItem
	listeners    []func([]domain.CartItem)

	storage LocalStorage
	now     func() time.Time
}

// NewStore restores the persisted cart from storage.
func NewStore(storage LocalStorage) (*Store, error) {
	s := &Store{storage: storage, now: time.Now, items: []domain.CartItem{}}

	raw, ok, err := storage.Get(StorageKey)
	if err != nil {
		return nil, fmt.Errorf("restore cart: %w", err)
	}
	if ok {
		var p persistedCart
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode persisted cart: %w", err)
		}
		s.items = domain.CloneItems(p.Items)
	}
	return s, nil
}

// OnChange registers fn to run after every committed mutation of the items.
func (s *Store) OnChange(fn func([]domain.CartItem)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// AddItem increments the quantity of the first line with the same product
// id, regardless of variant, or appends a new line.
func (s *Store) AddItem(item domain.CartItem) error {
	return s.mutate(func(items []domain.CartItem) []domain.CartItem {
		stamp := s.now().UnixMilli()
		for i := range items {
			if items[i].ID == item.ID {
				items[i].Quantity += item.Quantity
				items[i].UpdatedAt = stamp
				return items
			}
		}
		item.UpdatedAt = stamp
		return append(items, item)
	})
}

func (s *Store) RemoveItem(id string) error {
	return s.mutate(func(items []domain.CartItem) []domain.CartItem {
		out := items[:0]
		for _, it := range items {
			if it.ID != id {
				out = append(out, it)
			}
		}
		return out
	})
}

// UpdateQuantity sets the quantity verbatim; callers clamp to at least one.
func (s *Store) UpdateQuantity(id string, quantity int) error {
	return s.mutate(func(items []domain.CartItem) []domain.CartItem {
		stamp := s.now().UnixMilli()
		for i := range items {
			if items[i].ID == id {
				items[i].Quantity = quantity
				items[i].UpdatedAt = stamp
			}
		}
		return items
	})
}

func (s *Store) ClearCart() error {
	return s.mutate(func([]domain.CartItem) []domain.CartItem {
		return []domain.CartItem{}
	})
}

// SetItems replaces the whole cart.
func (s *Store) SetItems(items []domain.CartItem) error {
	return s.mutate(func([]domain.CartItem) []domain.CartItem {
		return domain.CloneItems(items)
	})
}

func (s *Store) Items() []domain.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneItems(s.items)
}

func (s *Store) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

// TotalPrice is display-only; checkout re-prices from the catalog.
func (s *Store) TotalPrice() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CartTotal(s.items)
}

func (s *Store) SetIsOpen(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isOpen = open
}

func (s *Store) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isOpen
}

func (s *Store) SetIsSearchOpen(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isSearchOpen = open
}

func (s *Store) IsSearchOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSearchOpen
}

// SetFlyingItem sets the transient add-to-cart animation slot; nil clears it.
func (s *Store) SetFlyingItem(item *FlyingItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flying = item
}

func (s *Store) FlyingItem() *FlyingItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.flying == nil {
		return nil
	}
	cp := *s.flying
	return &cp
}

func (s *Store) mutate(fn func([]domain.CartItem) []domain.CartItem) error {
	s.mu.Lock()
	next := fn(domain.CloneItems(s.items))
	data, err := json.Marshal(persistedCart{Items: next})
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.storage.Set(StorageKey, string(data)); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist cart: %w", err)
	}
	s.items = next
	snapshot := domain.CloneItems(next)
	listeners := append([]func([]domain.CartItem){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
	return nil
}
