package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/store"
	"github.com/google/uuid"
)

// MemoryStore implements store.Store with in-memory maps. It backs local
// development and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	products   map[string]*domain.Product
	productIDs []string                 // insertion order
	orders     map[string]*domain.Order // stripe session id -> order
}

func New() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]*domain.Product),
		orders:   make(map[string]*domain.Order),
	}
}

func (s *MemoryStore) ListProducts(_ context.Context, limit int) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Product, 0, len(s.productIDs))
	for _, id := range s.productIDs {
		if limit > 0 && len(result) == limit {
			break
		}
		result = append(result, copyProduct(s.products[id]))
	}
	return result, nil
}

func (s *MemoryStore) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.products[id]
	if !exists {
		return nil, store.ErrProductNotFound
	}
	cp := copyProduct(p)
	return &cp, nil
}

func (s *MemoryStore) ProductsByIDs(_ context.Context, ids []string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Product, 0, len(ids))
	for _, id := range store.UniqueIDs(ids) {
		if p, exists := s.products[id]; exists {
			result = append(result, copyProduct(p))
		}
	}
	return result, nil
}

func (s *MemoryStore) SearchProducts(_ context.Context, query string, limit int) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := store.SearchTerms(query)
	result := make([]domain.Product, 0, limit)
	for _, id := range s.productIDs {
		if limit > 0 && len(result) == limit {
			break
		}
		if p := s.products[id]; store.MatchesSearch(*p, terms) {
			result = append(result, copyProduct(p))
		}
	}
	return result, nil
}

func (s *MemoryStore) InsertProduct(_ context.Context, p domain.Product) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[p.ID]; exists {
		return false, nil
	}
	cp := copyProduct(&p)
	s.products[p.ID] = &cp
	s.productIDs = append(s.productIDs, p.ID)
	return true, nil
}

// SetStock overwrites the stock level of an existing product.
func (s *MemoryStore) SetStock(id string, stock int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.products[id]
	if !exists {
		return store.ErrProductNotFound
	}
	p.Stock = stock
	return nil
}

func (s *MemoryStore) GetOrderBySessionID(_ context.Context, sessionID string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, exists := s.orders[sessionID]
	if !exists {
		return nil, store.ErrOrderNotFound
	}
	cp := copyOrder(o)
	return &cp, nil
}

func (s *MemoryStore) CreateOrder(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.StripeSessionID]; exists {
		return store.ErrDuplicateOrder
	}
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	cp := copyOrder(order)
	s.orders[order.StripeSessionID] = &cp
	return nil
}

func (s *MemoryStore) ListOrdersByUser(_ context.Context, userID string) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Order, 0)
	for _, o := range s.orders {
		if o.UserID == userID {
			result = append(result, copyOrder(o))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].OrderDate.After(result[j].OrderDate)
	})
	return result, nil
}

func (s *MemoryStore) DecrementStock(_ context.Context, items []domain.StockDecrement) ([]string, error) {
	items = store.CoalesceDecrements(items)
	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: every product must exist before anything is applied
	for _, item := range items {
		if _, exists := s.products[item.ProductID]; !exists {
			return nil, store.ErrProductNotFound
		}
	}

	// Second pass: apply
	var oversold []string
	for _, item := range items {
		p := s.products[item.ProductID]
		p.Stock -= item.Quantity
		if p.Stock < 0 {
			oversold = append(oversold, p.ID)
		}
	}
	return oversold, nil
}

func (s *MemoryStore) Close(context.Context) error {
	return nil
}

func copyProduct(p *domain.Product) domain.Product {
	cp := *p
	if p.Images != nil {
		cp.Images = append([]string(nil), p.Images...)
	}
	return cp
}

func copyOrder(o *domain.Order) domain.Order {
	cp := *o
	cp.LineItems = append([]domain.OrderLineItem(nil), o.LineItems...)
	return cp
}

var _ store.Store = (*MemoryStore)(nil)
