package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/apperr"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/store"
)

type OrdersHandler struct {
	orders     store.Orders
	catalog    store.Catalog
	timeout    time.Duration
	production bool
}

func NewOrdersHandler(orders store.Orders, catalog store.Catalog, timeout time.Duration, production bool) *OrdersHandler {
	return &OrdersHandler{
		orders:     orders,
		catalog:    catalog,
		timeout:    timeout,
		production: production,
	}
}

type OrderItemResponse struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	Quantity  int    `json:"quantity"`
	Variant   string `json:"variant,omitempty"`
}

type OrderResponse struct {
	OrderNumber  string              `json:"orderNumber"`
	CustomerName string              `json:"customerName"`
	Email        string              `json:"email"`
	TotalPrice   float64             `json:"totalPrice"`
	Status       domain.OrderStatus  `json:"status"`
	OrderDate    time.Time           `json:"orderDate"`
	Items        []OrderItemResponse `json:"items"`
}

type OrdersResponse struct {
	Orders []OrderResponse `json:"orders"`
}

// List returns the caller's orders, newest first, with product names and
// images resolved from the catalog. Lines whose product was removed keep
// only the reference.
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondAppError(w, r, apperr.New(apperr.KindUnauthorized, "UNAUTHORIZED", apperr.MsgUnauthorized), h.production)
		return
	}

	orders, err := h.orders.ListOrdersByUser(ctx, userID)
	if err != nil {
		respondAppError(w, r, apperr.Wrap(err, apperr.KindUpstreamUnavailable, "ORDERS_ERROR", apperr.MsgInternal), h.production)
		return
	}

	var ids []string
	for _, o := range orders {
		for _, li := range o.LineItems {
			ids = append(ids, li.ProductRef)
		}
	}
	byID := make(map[string]domain.Product)
	if len(ids) > 0 {
		products, err := h.catalog.ProductsByIDs(ctx, store.UniqueIDs(ids))
		if err != nil {
			respondAppError(w, r, catalogErr(err), h.production)
			return
		}
		for _, p := range products {
			byID[p.ID] = p
		}
	}

	resp := OrdersResponse{Orders: make([]OrderResponse, 0, len(orders))}
	for _, o := range orders {
		items := make([]OrderItemResponse, 0, len(o.LineItems))
		for _, li := range o.LineItems {
			p := byID[li.ProductRef]
			items = append(items, OrderItemResponse{
				ProductID: li.ProductRef,
				Name:      p.Name,
				Image:     p.Image,
				Quantity:  li.Quantity,
				Variant:   li.Variant,
			})
		}
		resp.Orders = append(resp.Orders, OrderResponse{
			OrderNumber:  o.OrderNumber,
			CustomerName: o.CustomerName,
			Email:        o.Email,
			TotalPrice:   o.TotalPrice,
			Status:       o.Status,
			OrderDate:    o.OrderDate,
			Items:        items,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}
