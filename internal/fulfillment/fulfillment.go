// Package fulfillment turns verified payment-completed webhooks into
// orders, exactly once per payment session.
package fulfillment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/go_storefront/internal/apperr"
	"github.com/fjod/go_storefront/internal/cache"
	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/events"
	"github.com/fjod/go_storefront/internal/payment"
	"github.com/fjod/go_storefront/internal/store"
)

type Outcome string

const (
	OutcomeRejected  Outcome = "rejected"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFulfilled Outcome = "fulfilled"
	// OutcomeIgnored is a verified event of a type this handler does not process.
	OutcomeIgnored Outcome = "ignored"
)

const publishTimeout = 5 * time.Second

type WebhookVerifier interface {
	VerifyWebhook(payload []byte, signature string) (*payment.Event, error)
}

type Handler struct {
	verifier  WebhookVerifier
	orders    store.Orders
	inventory store.Inventory
	carts     cache.CartStore
	publisher events.Publisher
	now       func() time.Time
}

func NewHandler(verifier WebhookVerifier, orders store.Orders, inventory store.Inventory, carts cache.CartStore, publisher events.Publisher) *Handler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Handler{
		verifier:  verifier,
		orders:    orders,
		inventory: inventory,
		carts:     carts,
		publisher: publisher,
		now:       time.Now,
	}
}

// Handle processes one webhook delivery. Any returned error other than a
// rejection should make the processor redeliver.
func (h *Handler) Handle(ctx context.Context, payload []byte, signature string) (Outcome, error) {
	event, err := h.verifier.VerifyWebhook(payload, signature)
	if err != nil {
		return OutcomeRejected, apperr.Wrap(err, apperr.KindSignatureInvalid, "INVALID_SIGNATURE", apperr.MsgInvalidSignature)
	}
	if event.Type != payment.EventCheckoutSessionCompleted || event.Session == nil {
		return OutcomeIgnored, nil
	}
	session := event.Session
	log := slog.With("session_id", session.ID)

	existing, err := h.orders.GetOrderBySessionID(ctx, session.ID)
	if err == nil {
		log.InfoContext(ctx, "order already exists, skipping redelivery", "order_number", existing.OrderNumber)
		return OutcomeDuplicate, nil
	}
	if !errors.Is(err, store.ErrOrderNotFound) {
		return "", fulfillmentErr(err)
	}

	meta, err := domain.DecodeOrderItems(session.Metadata[checkout.MetadataOrderItems])
	if err != nil {
		return "", fulfillmentErr(err)
	}
	order := buildOrder(session, meta, h.now())

	if err := h.orders.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, store.ErrDuplicateOrder) {
			log.InfoContext(ctx, "concurrent delivery created the order first")
			return OutcomeDuplicate, nil
		}
		return "", fulfillmentErr(err)
	}

	decrements := make([]domain.StockDecrement, 0, len(meta))
	for _, m := range meta {
		decrements = append(decrements, domain.StockDecrement{ProductID: m.ID, Quantity: m.Quantity})
	}
	oversold, err := h.inventory.DecrementStock(ctx, decrements)
	if err != nil {
		log.ErrorContext(ctx, "stock decrement failed after order creation, needs reconciliation",
			"order_number", order.OrderNumber, "error", err)
		return "", fulfillmentErr(err)
	}
	if len(oversold) > 0 {
		log.WarnContext(ctx, "oversold", "order_number", order.OrderNumber, "product_ids", oversold)
	}

	if order.UserID != "" && h.carts.Enabled() {
		if err := h.carts.Delete(ctx, order.UserID); err != nil {
			log.ErrorContext(ctx, "failed to clear synced cart", "user_id", order.UserID, "error", err)
			return "", fulfillmentErr(err)
		}
	}

	h.publish(ctx, order)
	log.InfoContext(ctx, "order fulfilled", "order_number", order.OrderNumber, "user_id", order.UserID)
	return OutcomeFulfilled, nil
}

func (h *Handler) publish(ctx context.Context, order *domain.Order) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := h.publisher.PublishOrderPaid(ctx, events.NewOrderPaid(order, h.now())); err != nil {
		slog.WarnContext(ctx, "failed to publish order paid event", "order_number", order.OrderNumber, "error", err)
	}
}

func buildOrder(s *payment.Session, meta []domain.OrderItemMetadata, now time.Time) *domain.Order {
	name := s.CustomerName
	if name == "" {
		name = domain.UnknownCustomer
	}
	email := s.CustomerEmail
	if email == "" {
		email = domain.UnknownCustomer
	}
	lines := make([]domain.OrderLineItem, 0, len(meta))
	for _, m := range meta {
		lines = append(lines, m.LineItem())
	}
	return &domain.Order{
		StripeSessionID: s.ID,
		OrderNumber:     domain.OrderNumberFromSession(s.ID),
		CustomerName:    name,
		Email:           email,
		UserID:          s.Metadata[checkout.MetadataUserID],
		LineItems:       lines,
		TotalPrice:      domain.FromMinorUnits(s.AmountTotal),
		Status:          domain.OrderStatusPaid,
		OrderDate:       now.UTC(),
	}
}

func fulfillmentErr(err error) error {
	return apperr.Wrap(err, apperr.KindFatal, "FULFILLMENT_FAILED", "Failed to fulfill order")
}
