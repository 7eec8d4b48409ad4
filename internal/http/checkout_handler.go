package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/apperr"
	"github.com/fjod/go_storefront/internal/checkout"
)

type CheckoutHandler struct {
	service    *checkout.Service
	timeout    time.Duration
	production bool
}

func NewCheckoutHandler(service *checkout.Service, timeout time.Duration, production bool) *CheckoutHandler {
	return &CheckoutHandler{
		service:    service,
		timeout:    timeout,
		production: production,
	}
}

type CheckoutResponse struct {
	URL string `json:"url"`
}

func (h *CheckoutHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondAppError(w, r, apperr.New(apperr.KindUnauthorized, "UNAUTHORIZED", apperr.MsgUnauthorized), h.production)
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
		respondAppError(w, r, apperr.Wrap(err, apperr.KindValidation, "VALIDATION_ERROR", apperr.MsgValidation), h.production)
		return
	}
	items, err := checkout.ParseRequestedItems(req.Items)
	if err != nil {
		respondAppError(w, r, err, h.production)
		return
	}

	url, err := h.service.CreateSession(ctx, userID, getEmailFromContext(r.Context()), items)
	if err != nil {
		respondAppError(w, r, err, h.production)
		return
	}
	respondJSON(w, http.StatusOK, CheckoutResponse{URL: url})
}

func (h *CheckoutHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	summary, err := h.service.SessionSummary(ctx, getUserIDFromContext(r.Context()), r.URL.Query().Get("session_id"))
	if err != nil {
		respondAppError(w, r, err, h.production)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
