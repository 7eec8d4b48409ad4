package http

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fjod/go_storefront/internal/fulfillment"
	"github.com/fjod/go_storefront/internal/payment"
)

// MockProcessor implements payment.Processor for testing
type MockProcessor struct {
	mu         sync.Mutex
	Session    *payment.Session
	Err        error
	Calls      int
	LastParams *payment.SessionParams
}

func (m *MockProcessor) CreateCheckoutSession(_ context.Context, params payment.SessionParams) (*payment.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.LastParams = &params
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Session, nil
}

func (m *MockProcessor) RetrieveSession(context.Context, string) (*payment.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Session, nil
}

func (m *MockProcessor) VerifyWebhook([]byte, string) (*payment.Event, error) {
	return nil, errors.New("not implemented")
}

// MockWebhookProcessor records deliveries and answers with a fixed result
type MockWebhookProcessor struct {
	Outcome       fulfillment.Outcome
	Err           error
	LastPayload   []byte
	LastSignature string
	Delay         time.Duration
}

func (m *MockWebhookProcessor) Handle(_ context.Context, payload []byte, signature string) (fulfillment.Outcome, error) {
	time.Sleep(m.Delay)
	m.LastPayload = payload
	m.LastSignature = signature
	return m.Outcome, m.Err
}
