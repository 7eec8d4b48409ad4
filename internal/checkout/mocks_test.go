package checkout

import (
	"context"
	"errors"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/payment"
)

// MockProcessor implements payment.Processor for testing
type MockProcessor struct {
	Session    *payment.Session
	Err        error
	Calls      int
	LastParams *payment.SessionParams
}

func (m *MockProcessor) CreateCheckoutSession(_ context.Context, params payment.SessionParams) (*payment.Session, error) {
	m.Calls++
	m.LastParams = &params
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Session, nil
}

func (m *MockProcessor) RetrieveSession(_ context.Context, _ string) (*payment.Session, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Session, nil
}

func (m *MockProcessor) VerifyWebhook([]byte, string) (*payment.Event, error) {
	return nil, errors.New("not implemented")
}

// FailingCatalog returns Err from every lookup
type FailingCatalog struct {
	Err error
}

func (f FailingCatalog) ListProducts(context.Context, int) ([]domain.Product, error) {
	return nil, f.Err
}

func (f FailingCatalog) GetProduct(context.Context, string) (*domain.Product, error) {
	return nil, f.Err
}

func (f FailingCatalog) ProductsByIDs(context.Context, []string) ([]domain.Product, error) {
	return nil, f.Err
}

func (f FailingCatalog) SearchProducts(context.Context, string, int) ([]domain.Product, error) {
	return nil, f.Err
}

func (f FailingCatalog) InsertProduct(context.Context, domain.Product) (bool, error) {
	return false, f.Err
}
