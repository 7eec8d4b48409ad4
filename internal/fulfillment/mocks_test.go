package fulfillment

import (
	"context"
	"errors"
	"sync"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/events"
)

// MockPublisher records published events
type MockPublisher struct {
	mu     sync.Mutex
	Events []events.OrderPaid
	Err    error
}

func (m *MockPublisher) PublishOrderPaid(_ context.Context, e events.OrderPaid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, e)
	return nil
}

func (m *MockPublisher) Close() error { return nil }

// FailingInventory rejects every decrement
type FailingInventory struct{}

func (FailingInventory) DecrementStock(context.Context, []domain.StockDecrement) ([]string, error) {
	return nil, errors.New("transaction aborted")
}
