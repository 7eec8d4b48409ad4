package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/apperr"
	"github.com/fjod/go_storefront/internal/cache"
	"github.com/fjod/go_storefront/internal/domain"
)

const msgCartSyncUnavailable = "Cart sync unavailable"

type CartHandler struct {
	carts      cache.CartStore
	timeout    time.Duration
	production bool
}

func NewCartHandler(carts cache.CartStore, timeout time.Duration, production bool) *CartHandler {
	if carts == nil {
		carts = cache.DisabledCartStore{}
	}
	return &CartHandler{
		carts:      carts,
		timeout:    timeout,
		production: production,
	}
}

type CartResponse struct {
	Items   []domain.CartItem `json:"items"`
	Error   string            `json:"error,omitempty"`
	Code    string            `json:"code,omitempty"`
	Details string            `json:"details,omitempty"`
}

type SyncResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// GetCart returns the caller's synced snapshot. Anonymous callers and an
// unavailable cache both get an empty cart.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	empty := CartResponse{Items: []domain.CartItem{}}
	userID := getUserIDFromContext(r.Context())
	if userID == "" || !h.carts.Enabled() {
		respondJSON(w, http.StatusOK, empty)
		return
	}

	items, err := h.carts.Get(ctx, userID)
	switch {
	case err == nil:
		if items == nil {
			items = []domain.CartItem{}
		}
		respondJSON(w, http.StatusOK, CartResponse{Items: items})
	case errors.Is(err, cache.ErrCacheMiss), errors.Is(err, cache.ErrUnavailable):
		respondJSON(w, http.StatusOK, empty)
	default:
		slog.ErrorContext(ctx, "cart fetch failed", "user_id", userID, "error", err)
		resp := CartResponse{
			Items: []domain.CartItem{},
			Error: "Failed to fetch cart from cloud",
			Code:  "REDIS_FETCH_ERROR",
		}
		if !h.production {
			resp.Details = err.Error()
		}
		respondJSON(w, http.StatusInternalServerError, resp)
	}
}

// SyncCart replaces the caller's synced snapshot.
func (h *CartHandler) SyncCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", apperr.MsgUnauthorized)
		return
	}
	if !h.carts.Enabled() {
		slog.WarnContext(ctx, "cart cache not available, sync skipped", "user_id", userID)
		respondJSON(w, http.StatusOK, SyncResponse{Success: false, Message: msgCartSyncUnavailable})
		return
	}

	var req struct {
		Items json.RawMessage `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if isBodyTooLarge(err) {
			respondError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
			return
		}
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", apperr.MsgValidation)
		return
	}
	items, ok := parseCartItems(req.Items)
	if !ok {
		respondError(w, http.StatusBadRequest, "INVALID_ITEMS", apperr.MsgValidation)
		return
	}

	if err := h.carts.Set(ctx, userID, items); err != nil {
		if errors.Is(err, cache.ErrUnavailable) {
			respondJSON(w, http.StatusOK, SyncResponse{Success: false, Message: msgCartSyncUnavailable})
			return
		}
		slog.ErrorContext(ctx, "cart sync failed", "user_id", userID, "error", err)
		resp := ErrorResponse{Error: "Failed to sync cart to cloud", Code: "REDIS_SYNC_ERROR"}
		if !h.production {
			resp.Details = err.Error()
		}
		respondJSON(w, http.StatusInternalServerError, resp)
		return
	}
	respondJSON(w, http.StatusOK, SyncResponse{Success: true})
}

// parseCartItems accepts only a JSON array of lines with an id. Lines whose
// quantity dropped below one are discarded.
func parseCartItems(raw json.RawMessage) ([]domain.CartItem, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var items []domain.CartItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	for _, it := range items {
		if it.ID == "" {
			return nil, false
		}
	}
	return domain.Normalize(items), true
}
