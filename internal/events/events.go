package events

import (
	"context"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
)

const TypeOrderPaid = "order.paid"

type OrderPaid struct {
	Type            string                 `json:"type"`
	OrderID         string                 `json:"orderId"`
	OrderNumber     string                 `json:"orderNumber"`
	StripeSessionID string                 `json:"stripeSessionId"`
	UserID          string                 `json:"userId"`
	Items           []domain.OrderLineItem `json:"items"`
	TotalPrice      float64                `json:"totalPrice"`
	OccurredAt      time.Time              `json:"occurredAt"`
}

func NewOrderPaid(o *domain.Order, at time.Time) OrderPaid {
	return OrderPaid{
		Type:            TypeOrderPaid,
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		StripeSessionID: o.StripeSessionID,
		UserID:          o.UserID,
		Items:           o.LineItems,
		TotalPrice:      o.TotalPrice,
		OccurredAt:      at,
	}
}

type Publisher interface {
	PublishOrderPaid(ctx context.Context, event OrderPaid) error
	Close() error
}

// NopPublisher drops events; used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderPaid(context.Context, OrderPaid) error { return nil }

func (NopPublisher) Close() error { return nil }
