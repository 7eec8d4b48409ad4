package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/apperr"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/store"
	"github.com/go-chi/chi/v5"
)

type ProductHandler struct {
	catalog    store.Catalog
	timeout    time.Duration
	production bool
}

func NewProductHandler(catalog store.Catalog, timeout time.Duration, production bool) *ProductHandler {
	return &ProductHandler{
		catalog:    catalog,
		timeout:    timeout,
		production: production,
	}
}

type ProductsResponse struct {
	Products []domain.Product `json:"products"`
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	products, err := h.catalog.ListProducts(ctx, limit)
	if err != nil {
		respondAppError(w, r, catalogErr(err), h.production)
		return
	}
	respondJSON(w, http.StatusOK, ProductsResponse{Products: nonNil(products)})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := chi.URLParam(r, "id")
	product, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			respondAppError(w, r, apperr.Wrap(err, apperr.KindNotFound, "PRODUCT_NOT_FOUND", apperr.MsgProductNotFound).
				With("productIds", []string{id}), h.production)
			return
		}
		respondAppError(w, r, catalogErr(err), h.production)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// Search returns up to five products matching every word of q by prefix.
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		respondJSON(w, http.StatusOK, ProductsResponse{Products: []domain.Product{}})
		return
	}
	products, err := h.catalog.SearchProducts(ctx, q, store.MaxSearchResults)
	if err != nil {
		respondAppError(w, r, catalogErr(err), h.production)
		return
	}
	respondJSON(w, http.StatusOK, ProductsResponse{Products: nonNil(products)})
}

func catalogErr(err error) error {
	return apperr.Wrap(err, apperr.KindUpstreamUnavailable, "CATALOG_ERROR", apperr.MsgInternal)
}

func nonNil(products []domain.Product) []domain.Product {
	if products == nil {
		return []domain.Product{}
	}
	return products
}
