package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/fulfillment"
)

const stripeSignatureHeader = "Stripe-Signature"

// WebhookProcessor handles one verified-or-rejected payment webhook delivery.
type WebhookProcessor interface {
	Handle(ctx context.Context, payload []byte, signature string) (fulfillment.Outcome, error)
}

type WebhookHandler struct {
	processor  WebhookProcessor
	timeout    time.Duration
	production bool
}

func NewWebhookHandler(processor WebhookProcessor, timeout time.Duration, production bool) *WebhookHandler {
	return &WebhookHandler{
		processor:  processor,
		timeout:    timeout,
		production: production,
	}
}

type WebhookResponse struct {
	Received bool `json:"received"`
}

func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		if isBodyTooLarge(err) {
			respondError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
			return
		}
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read request body")
		return
	}

	// the order must not be half-written because the processor hung up
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.timeout)
	defer cancel()

	outcome, err := h.processor.Handle(ctx, payload, r.Header.Get(stripeSignatureHeader))
	if err != nil {
		respondAppError(w, r, err, h.production)
		return
	}
	slog.DebugContext(ctx, "webhook handled", "outcome", outcome)
	respondJSON(w, http.StatusOK, WebhookResponse{Received: true})
}
