package store

import (
	"cmp"
	"context"
	"errors"
	"slices"

	"github.com/fjod/go_storefront/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrDuplicateOrder  = errors.New("order for this payment session already exists")
)

const MaxSearchResults = 5

type Catalog interface {
	ListProducts(ctx context.Context, limit int) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	// ProductsByIDs returns the products that exist among ids; missing ids
	// are simply absent from the result.
	ProductsByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
	SearchProducts(ctx context.Context, query string, limit int) ([]domain.Product, error)
	// InsertProduct adds p unless a product with the same id exists.
	InsertProduct(ctx context.Context, p domain.Product) (bool, error)
}

type Orders interface {
	GetOrderBySessionID(ctx context.Context, sessionID string) (*domain.Order, error)
	CreateOrder(ctx context.Context, order *domain.Order) error
	ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error)
}

type Inventory interface {
	// DecrementStock applies every decrement atomically. It does not refuse
	// to go below zero; the ids whose stock ended negative are returned.
	DecrementStock(ctx context.Context, items []domain.StockDecrement) ([]string, error)
}

type Store interface {
	Catalog
	Orders
	Inventory
	Close(ctx context.Context) error
}

// CoalesceDecrements sums repeated product ids and orders the result by id,
// so every transaction locks product rows in the same order.
func CoalesceDecrements(items []domain.StockDecrement) []domain.StockDecrement {
	out := make([]domain.StockDecrement, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		if i, ok := index[item.ProductID]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(out)
		out = append(out, item)
	}
	slices.SortFunc(out, func(a, b domain.StockDecrement) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	return out
}
