package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strings"

	"github.com/fjod/go_storefront/internal/apperr"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/payment"
	"github.com/fjod/go_storefront/internal/store"
)

const (
	MetadataUserID     = "userId"
	MetadataOrderItems = "orderItems"
)

type RequestedItem struct {
	ID       string
	Quantity int
	Variant  string
}

// StockShortage describes one line that cannot be fulfilled.
type StockShortage struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

type Config struct {
	// BaseURL is the public storefront origin used for redirect urls.
	BaseURL string
}

type Service struct {
	catalog  store.Catalog
	payments payment.Processor
	cfg      Config
}

func NewService(catalog store.Catalog, payments payment.Processor, cfg Config) *Service {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Service{catalog: catalog, payments: payments, cfg: cfg}
}

// ParseRequestedItems validates the raw `items` field of a checkout
// request. A missing, non-array or empty list is an empty cart; each entry
// needs an id and a strictly positive integer quantity.
func ParseRequestedItems(raw json.RawMessage) ([]RequestedItem, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, apperr.New(apperr.KindValidation, "CART_EMPTY", apperr.MsgCartEmpty)
	}

	var entries []struct {
		ID       *string  `json:"id"`
		Quantity *float64 `json:"quantity"`
		Variant  string   `json:"variant"`
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, apperr.Wrap(err, apperr.KindValidation, "VALIDATION_ERROR", apperr.MsgValidation)
	}
	if len(entries) == 0 {
		return nil, apperr.New(apperr.KindValidation, "CART_EMPTY", apperr.MsgCartEmpty)
	}

	items := make([]RequestedItem, 0, len(entries))
	for _, e := range entries {
		if e.ID == nil || *e.ID == "" || e.Quantity == nil {
			return nil, apperr.New(apperr.KindValidation, "VALIDATION_ERROR", apperr.MsgValidation)
		}
		q := *e.Quantity
		if q < 1 || q != math.Trunc(q) || q > math.MaxInt32 {
			return nil, apperr.New(apperr.KindValidation, "VALIDATION_ERROR", apperr.MsgValidation)
		}
		items = append(items, RequestedItem{ID: *e.ID, Quantity: int(q), Variant: e.Variant})
	}
	return items, nil
}

// CreateSession re-verifies every requested line against the catalog and
// opens a hosted payment session. Client prices are never used.
func (s *Service) CreateSession(ctx context.Context, userID, email string, items []RequestedItem) (string, error) {
	if userID == "" {
		return "", apperr.New(apperr.KindUnauthorized, "UNAUTHORIZED", apperr.MsgUnauthorized)
	}
	if len(items) == 0 {
		return "", apperr.New(apperr.KindValidation, "CART_EMPTY", apperr.MsgCartEmpty)
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	products, err := s.catalog.ProductsByIDs(ctx, ids)
	if err != nil {
		return "", apperr.Wrap(err, apperr.KindUpstreamUnavailable, "CHECKOUT_ERROR", apperr.MsgInternal)
	}
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var missing []string
	for _, id := range store.UniqueIDs(ids) {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return "", apperr.New(apperr.KindNotFound, "PRODUCT_NOT_FOUND", apperr.MsgProductNotFound).
			With("productIds", missing)
	}

	var shortages []StockShortage
	for _, it := range items {
		p := byID[it.ID]
		if p.Stock <= 0 || it.Quantity > p.Stock {
			shortages = append(shortages, StockShortage{
				ID:        p.ID,
				Name:      p.Name,
				Requested: it.Quantity,
				Available: max(p.Stock, 0),
			})
		}
	}
	if len(shortages) > 0 {
		return "", apperr.New(apperr.KindConflict, "OUT_OF_STOCK", apperr.MsgOutOfStock).
			With("items", shortages)
	}

	lineItems := make([]payment.LineItem, 0, len(items))
	meta := make([]domain.OrderItemMetadata, 0, len(items))
	for _, it := range items {
		p := byID[it.ID]
		lineItems = append(lineItems, payment.LineItem{
			Name:       p.Name,
			Image:      p.Image,
			UnitAmount: domain.ToMinorUnits(p.Price),
			Quantity:   int64(it.Quantity),
		})
		meta = append(meta, domain.OrderItemMetadata{ID: it.ID, Quantity: it.Quantity, Variant: it.Variant})
	}
	orderItems, err := domain.EncodeOrderItems(meta)
	if err != nil {
		return "", apperr.Wrap(err, apperr.KindFatal, "CHECKOUT_ERROR", apperr.MsgInternal)
	}

	session, err := s.payments.CreateCheckoutSession(ctx, payment.SessionParams{
		LineItems:     lineItems,
		SuccessURL:    s.cfg.BaseURL + "/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.cfg.BaseURL + "/shop",
		CustomerEmail: email,
		Metadata: map[string]string{
			MetadataUserID:     userID,
			MetadataOrderItems: orderItems,
		},
	})
	if err != nil {
		return "", apperr.Wrap(err, apperr.KindUpstreamUnavailable, "CHECKOUT_ERROR", apperr.MsgInternal)
	}
	if session.URL == "" {
		return "", apperr.Wrap(payment.ErrNoSessionURL, apperr.KindFatal, "SESSION_CREATION_FAILED", "Failed to create checkout session")
	}
	return session.URL, nil
}

type SummaryLineItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Quantity int64   `json:"quantity"`
	Amount   float64 `json:"amount"`
}

type Summary struct {
	CustomerName  string            `json:"customerName"`
	CustomerEmail string            `json:"customerEmail"`
	AmountTotal   float64           `json:"amountTotal"`
	LineItems     []SummaryLineItem `json:"lineItems"`
}

// SessionSummary returns the confirmation view of a completed session
// owned by userID.
func (s *Service) SessionSummary(ctx context.Context, userID, sessionID string) (*Summary, error) {
	if sessionID == "" {
		return nil, apperr.New(apperr.KindValidation, "MISSING_SESSION_ID", "Session ID is required")
	}
	if userID == "" {
		return nil, apperr.New(apperr.KindUnauthorized, "UNAUTHORIZED", apperr.MsgUnauthorized)
	}

	session, err := s.payments.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindUpstreamUnavailable, "SESSION_RETRIEVAL_FAILED", "Failed to retrieve session")
	}
	if session.Metadata[MetadataUserID] != userID {
		return nil, apperr.New(apperr.KindForbidden, "FORBIDDEN", apperr.MsgForbidden)
	}
	if session.Status != payment.StatusComplete {
		return nil, apperr.New(apperr.KindValidation, "SESSION_INCOMPLETE", apperr.MsgSessionIncomplete).
			With("status", session.Status)
	}

	summary := &Summary{
		CustomerName:  session.CustomerName,
		CustomerEmail: session.CustomerEmail,
		AmountTotal:   domain.FromMinorUnits(session.AmountTotal),
		LineItems:     make([]SummaryLineItem, 0, len(session.LineItems)),
	}
	for _, li := range session.LineItems {
		summary.LineItems = append(summary.LineItems, SummaryLineItem{
			ID:       li.ID,
			Name:     li.Description,
			Quantity: li.Quantity,
			Amount:   domain.FromMinorUnits(li.AmountTotal),
		})
	}
	return summary, nil
}
