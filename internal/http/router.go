package http

import (
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/cache"
	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/fjod/go_storefront/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Deps struct {
	Store        store.Store
	Carts        cache.CartStore
	Checkout     *checkout.Service
	Webhooks     WebhookProcessor
	Importer     *catalog.Importer
	ImportSecret string

	UserHeader     string
	EmailHeader    string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	Production     bool
}

type HealthResponse struct {
	Status string `json:"status"`
	Cache  string `json:"cache"`
}

func NewRouter(d Deps) http.Handler {
	if d.Carts == nil {
		d.Carts = cache.DisabledCartStore{}
	}
	if d.UserHeader == "" {
		d.UserHeader = "X-User-ID"
	}
	if d.EmailHeader == "" {
		d.EmailHeader = "X-User-Email"
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 30 * time.Second
	}

	cartHandler := NewCartHandler(d.Carts, d.RequestTimeout, d.Production)
	checkoutHandler := NewCheckoutHandler(d.Checkout, d.RequestTimeout, d.Production)
	webhookHandler := NewWebhookHandler(d.Webhooks, d.RequestTimeout, d.Production)
	productHandler := NewProductHandler(d.Store, d.RequestTimeout, d.Production)
	ordersHandler := NewOrdersHandler(d.Store, d.Store, d.RequestTimeout, d.Production)
	importHandler := NewImportHandler(d.Importer, d.ImportSecret, d.RequestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(MaxBodyMiddleware(d.MaxBodyBytes))
	r.Use(IdentityMiddleware(d.UserHeader, d.EmailHeader))

	// fulfillment runs detached from the request and bounds itself
	r.Post("/api/webhooks/stripe", webhookHandler.Stripe)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(d.RequestTimeout))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			state := "disabled"
			if d.Carts.Enabled() {
				state = "enabled"
			}
			respondJSON(w, http.StatusOK, HealthResponse{Status: "ok", Cache: state})
		})

		r.Route("/api", func(r chi.Router) {
			r.Route("/cart", func(r chi.Router) {
				r.Get("/sync", cartHandler.GetCart)
				r.Post("/sync", cartHandler.SyncCart)
			})
			r.Route("/checkout", func(r chi.Router) {
				r.Post("/", checkoutHandler.CreateSession)
				r.Get("/session", checkoutHandler.GetSession)
			})
			r.Route("/products", func(r chi.Router) {
				r.Get("/", productHandler.List)
				r.Get("/search", productHandler.Search)
				r.Get("/{id}", productHandler.Get)
			})
			r.Get("/orders", ordersHandler.List)
			r.Route("/catalog/import", func(r chi.Router) {
				r.Get("/", importHandler.MethodNotAllowed)
				r.Post("/", importHandler.Import)
			})
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
