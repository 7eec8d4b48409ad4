// Package storetest holds behaviour checks shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Factory func(t *testing.T) (store.Store, func())

func Products() []domain.Product {
	return []domain.Product{
		{ID: "1", Name: "Neural Link Headset", Price: 299, Image: "https://img/1.jpg", Stock: 10, Category: "Audio", Description: "The peak of human engineering."},
		{ID: "2", Name: "Void Pulse Watch", Price: 189, Image: "https://img/2.jpg", Stock: 3, Category: "Wearables", Description: "A masterpiece of precision."},
		{ID: "3", Name: "Gravity Boots", Price: 450, Image: "https://img/3.jpg", Stock: 0, Category: "Footwear", Description: "Defy the laws of physics."},
	}
}

func seed(t *testing.T, s store.Store) {
	t.Helper()
	for _, p := range Products() {
		created, err := s.InsertProduct(context.Background(), p)
		require.NoError(t, err)
		require.True(t, created)
	}
}

func Run(t *testing.T, newStore Factory) {
	t.Run("InsertProductSkipsExisting", func(t *testing.T) {
		s, cleanup := newStore(t)
		defer cleanup()
		seed(t, s)

		p := Products()[0]
		p.Name = "renamed"
		created, err := s.InsertProduct(context.Background(), p)
		require.NoError(t, err)
		assert.False(t, created)

		got, err := s.GetProduct(context.Background(), "1")
		require.NoError(t, err)
		assert.Equal(t, "Neural Link Headset", got.Name)
	})

	t.Run("GetProductNotFound", func(t *testing.T) {
		s, cleanup := newStore(t)
		defer cleanup()

		_, err := s.GetProduct(context.Background(), "missing")
		assert.ErrorIs(t, err, store.ErrProductNotFound)
	})

	t.Run("ListProductsLimit", func(t *testing.T) {
		s, cleanup := newStore(t)
		defer cleanup()
		seed(t, s)

		all, err := s.ListProducts(context.Background(), 0)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		two, err := s.ListProducts(context.Background(), 2)
		require.NoError(t, err)
		assert.Len(t, two, 2)
	})

	t.Run("ProductsByIDsOmitsMissing", func(t *testing.T) {
		s, cleanup := newStore(t)
		defer cleanup()
		seed(t, s)

		got, err := s.ProductsByIDs(context.Background(), []string{"2", "missing", "1", "2"})
		require.NoError(t, err)
		ids := make([]string, 0, len(got))
		for _, p := range got {
			ids = append(ids, p.ID)
		}
		assert.ElementsMatch(t, []string{"1", "2"}, ids)
	})

	t.Run("SearchProducts", func(t *testing.T) {
		s, cleanup := newStore(t)
		defer cleanup()
		seed(t, s)

		got, err := s.SearchProducts(context.Background(), "grav", store.MaxSearchResults)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "3", got[0].ID)

		got, err = s.SearchProducts(context.Background(), "PRECISION", store.MaxSearchResults)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "2", got[0].ID)

		got, err = s.SearchProducts(context.Background(), "nothing-here", store.MaxSearchResults)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("CreateOrderIsUniquePerSession", func(t *testing.T) {
		s, cleanup := newStore(t)
		defer cleanup()
		ctx := context.Background()

		order := newOrder("cs_123", "user_1", time.Now())
		require.NoError(t, s.CreateOrder(ctx, order))
		assert.NotEmpty(t, order.ID)

		err := s.CreateOrder(ctx, newOrder("cs_123", "user_1", time.Now()))
		assert.ErrorIs(t, err, store.ErrDuplicateOrder)

		got, err := s.GetOrderBySessionID(ctx, "cs_123")
		require.NoError(t, err)
		assert.Equal(t, "CS_123", got.OrderNumber)
		assert.Equal(t, 299.0, got.TotalPrice)
		assert.Equal(t, domain.OrderStatusPaid, got.Status)
		require.Len(t, got.LineItems, 1)
		assert.Equal(t, "42", got.LineItems[0].ProductRef)
	})

	t.Run("GetOrderBySessionIDNotFound", func(t *testing.T) {
		s, cleanup := newStore(t)
		defer cleanup()

		_, err := s.GetOrderBySessionID(context.Background(), "cs_missing")
		assert.ErrorIs(t, err, store.ErrOrderNotFound)
	})

	t.Run("ListOrdersByUserNewestFirst", func(t *testing.T) {
		s, cleanup := newStore(t)
		defer cleanup()
		ctx := context.Background()

		base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, s.CreateOrder(ctx, newOrder("cs_old", "user_1", base)))
		require.NoError(t, s.CreateOrder(ctx, newOrder("cs_new", "user_1", base.Add(time.Hour))))
		require.NoError(t, s.CreateOrder(ctx, newOrder("cs_other", "user_2", base)))

		orders, err := s.ListOrdersByUser(ctx, "user_1")
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, "cs_new", orders[0].StripeSessionID)
		assert.Equal(t, "cs_old", orders[1].StripeSessionID)
	})

	t.Run("DecrementStockAppliesAll", func(t *testing.T) {
		s, cleanup := newStore(t)
		defer cleanup()
		seed(t, s)
		ctx := context.Background()

		oversold, err := s.DecrementStock(ctx, []domain.StockDecrement{
			{ProductID: "1", Quantity: 2},
			{ProductID: "2", Quantity: 5},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"2"}, oversold)

		p1, err := s.GetProduct(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, 8, p1.Stock)
		p2, err := s.GetProduct(ctx, "2")
		require.NoError(t, err)
		assert.Equal(t, -2, p2.Stock)
	})

	t.Run("DecrementStockIsAllOrNothing", func(t *testing.T) {
		s, cleanup := newStore(t)
		defer cleanup()
		seed(t, s)
		ctx := context.Background()

		_, err := s.DecrementStock(ctx, []domain.StockDecrement{
			{ProductID: "1", Quantity: 2},
			{ProductID: "missing", Quantity: 1},
		})
		assert.ErrorIs(t, err, store.ErrProductNotFound)

		p1, err := s.GetProduct(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, 10, p1.Stock)
	})

	t.Run("DecrementStockConcurrentOppositeOrder", func(t *testing.T) {
		s, cleanup := newStore(t)
		defer cleanup()
		seed(t, s)
		ctx := context.Background()

		const rounds = 10
		batches := [][]domain.StockDecrement{
			{{ProductID: "1", Quantity: 1}, {ProductID: "2", Quantity: 1}},
			{{ProductID: "2", Quantity: 1}, {ProductID: "1", Quantity: 1}},
		}
		errs := make(chan error, rounds*len(batches))
		var wg sync.WaitGroup
		for i := 0; i < rounds; i++ {
			for _, batch := range batches {
				wg.Add(1)
				go func(batch []domain.StockDecrement) {
					defer wg.Done()
					_, err := s.DecrementStock(ctx, batch)
					errs <- err
				}(batch)
			}
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		p1, err := s.GetProduct(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, 10-2*rounds, p1.Stock)
		p2, err := s.GetProduct(ctx, "2")
		require.NoError(t, err)
		assert.Equal(t, 3-2*rounds, p2.Stock)
	})

	t.Run("DecrementStockMergesRepeatedIDs", func(t *testing.T) {
		s, cleanup := newStore(t)
		defer cleanup()
		seed(t, s)
		ctx := context.Background()

		oversold, err := s.DecrementStock(ctx, []domain.StockDecrement{
			{ProductID: "2", Quantity: 2},
			{ProductID: "2", Quantity: 2},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"2"}, oversold)

		p2, err := s.GetProduct(ctx, "2")
		require.NoError(t, err)
		assert.Equal(t, -1, p2.Stock)
	})
}

func newOrder(sessionID, userID string, at time.Time) *domain.Order {
	return &domain.Order{
		StripeSessionID: sessionID,
		OrderNumber:     domain.OrderNumberFromSession(sessionID),
		CustomerName:    "Ada",
		Email:           "ada@example.com",
		UserID:          userID,
		LineItems:       []domain.OrderLineItem{{ProductRef: "42", Quantity: 1}},
		TotalPrice:      299,
		Status:          domain.OrderStatusPaid,
		OrderDate:       at.UTC().Truncate(time.Millisecond),
	}
}
