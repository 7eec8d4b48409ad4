package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_storefront/internal/apperr"
	"github.com/fjod/go_storefront/internal/cache"
	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/fulfillment"
	"github.com/fjod/go_storefront/internal/payment"
	"github.com/fjod/go_storefront/internal/store/memstore"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	router   http.Handler
	store    *memstore.MemoryStore
	mr       *miniredis.Miniredis
	payments *MockProcessor
	webhooks *MockWebhookProcessor
}

type option func(*Deps)

func withoutCache(d *Deps) { d.Carts = cache.DisabledCartStore{} }
func inProduction(d *Deps) { d.Production = true }
func withImportSecret(s string) option {
	return func(d *Deps) { d.ImportSecret = s }
}
func withMaxBody(n int64) option {
	return func(d *Deps) { d.MaxBodyBytes = n }
}
func withRequestTimeout(d time.Duration) option {
	return func(deps *Deps) { deps.RequestTimeout = d }
}

func setup(t *testing.T, opts ...option) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })

	s := memstore.New()
	seed, err := catalog.SeedProducts()
	require.NoError(t, err)
	for _, p := range seed {
		_, err := s.InsertProduct(context.Background(), p)
		require.NoError(t, err)
	}

	payments := &MockProcessor{Session: &payment.Session{ID: "cs_test_1", URL: "https://checkout.example/cs_test_1"}}
	webhooks := &MockWebhookProcessor{Outcome: fulfillment.OutcomeFulfilled}
	d := Deps{
		Store:          s,
		Carts:          cache.NewRedisCartStore(client, cache.DefaultTTL, nil),
		Checkout:       checkout.NewService(s, payments, checkout.Config{BaseURL: "https://shop.example"}),
		Webhooks:       webhooks,
		Importer:       catalog.NewImporter(s),
		RequestTimeout: 5 * time.Second,
		MaxBodyBytes:   1 << 20,
	}
	for _, o := range opts {
		o(&d)
	}
	return &fixture{router: NewRouter(d), store: s, mr: mr, payments: payments, webhooks: webhooks}
}

func newRedisClient(t *testing.T, f *fixture) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: f.mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	return client
}

func (f *fixture) do(t *testing.T, method, path, body, userID string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	rec := setup(t).do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "ok", "cache": "enabled"}, decode(t, rec))

	rec = setup(t, withoutCache).do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, "disabled", decode(t, rec)["cache"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	f := setup(t)
	rec := f.do(t, http.MethodGet, "/health", "", "", "X-Request-ID", "req-abc")
	assert.Equal(t, "req-abc", rec.Header().Get("X-Request-ID"))

	rec = f.do(t, http.MethodGet, "/health", "", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAccessLogCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := middleware.DefaultLogger
	middleware.DefaultLogger = middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: log.New(&buf, "", 0), NoColor: true})
	t.Cleanup(func() { middleware.DefaultLogger = prev })

	f := setup(t)
	f.do(t, http.MethodGet, "/health", "", "", "X-Request-ID", "req-logged")
	assert.Contains(t, buf.String(), "[req-logged]")
}

func TestCartSync_AnonymousGetsEmptyCart(t *testing.T) {
	rec := setup(t).do(t, http.MethodGet, "/api/cart/sync", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

func TestCartSync_MissIsEmptyCart(t *testing.T) {
	rec := setup(t).do(t, http.MethodGet, "/api/cart/sync", "", "user_1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

func TestCartSync_PushThenPull(t *testing.T) {
	f := setup(t)
	body := `{"items":[{"id":"1","name":"Neural Link Headset","price":299,"image":"a.jpg","quantity":2,"updatedAt":100},{"id":"2","name":"Void Pulse Watch","price":189,"image":"b.jpg","quantity":0}]}`

	rec := f.do(t, http.MethodPost, "/api/cart/sync", body, "user_1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.Equal(t, cache.DefaultTTL, f.mr.TTL("cart:user_1"))

	rec = f.do(t, http.MethodGet, "/api/cart/sync", "", "user_1")
	require.Equal(t, http.StatusOK, rec.Code)
	var got CartResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got.Items, 1)
	assert.Equal(t, domain.CartItem{ID: "1", Name: "Neural Link Headset", Price: 299, Image: "a.jpg", Quantity: 2, UpdatedAt: 100}, got.Items[0])

	// other users never see it
	rec = f.do(t, http.MethodGet, "/api/cart/sync", "", "user_2")
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

func TestCartSync_PostRequiresUser(t *testing.T) {
	rec := setup(t).do(t, http.MethodPost, "/api/cart/sync", `{"items":[]}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decode(t, rec)["code"])
}

func TestCartSync_PostValidation(t *testing.T) {
	f := setup(t)
	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed json", `{"items":`, "INVALID_REQUEST"},
		{"items missing", `{}`, "INVALID_ITEMS"},
		{"items not an array", `{"items":{"id":"1"}}`, "INVALID_ITEMS"},
		{"line without id", `{"items":[{"quantity":1}]}`, "INVALID_ITEMS"},
		{"wrong field type", `{"items":[{"id":"1","quantity":"two"}]}`, "INVALID_ITEMS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/cart/sync", tt.body, "user_1")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decode(t, rec)["code"])
		})
	}
	assert.False(t, f.mr.Exists("cart:user_1"))
}

func TestCartSync_DisabledCache(t *testing.T) {
	f := setup(t, withoutCache)

	rec := f.do(t, http.MethodGet, "/api/cart/sync", "", "user_1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/cart/sync", `{"items":[]}`, "user_1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Cart sync unavailable"}`, rec.Body.String())
}

func TestCartSync_StoreFailure(t *testing.T) {
	f := setup(t)
	f.mr.SetError("connection reset")

	rec := f.do(t, http.MethodGet, "/api/cart/sync", "", "user_1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "REDIS_FETCH_ERROR", body["code"])
	assert.Equal(t, []any{}, body["items"])
	assert.NotEmpty(t, body["details"])

	rec = f.do(t, http.MethodPost, "/api/cart/sync", `{"items":[]}`, "user_1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "REDIS_SYNC_ERROR", decode(t, rec)["code"])
}

func TestCartSync_ProductionHidesDetails(t *testing.T) {
	f := setup(t, inProduction)
	f.mr.SetError("connection reset")

	rec := f.do(t, http.MethodGet, "/api/cart/sync", "", "user_1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, decode(t, rec), "details")
}

func TestCartSync_BodyTooLarge(t *testing.T) {
	f := setup(t, withMaxBody(64))
	body := `{"items":[{"id":"1","name":"` + strings.Repeat("x", 200) + `","quantity":1}]}`
	rec := f.do(t, http.MethodPost, "/api/cart/sync", body, "user_1")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCheckout_RequiresUser(t *testing.T) {
	f := setup(t)
	rec := f.do(t, http.MethodPost, "/api/checkout", `{"items":[{"id":"1","quantity":1}]}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decode(t, rec)["code"])
	assert.Zero(t, f.payments.Calls)
}

func TestCheckout_Validation(t *testing.T) {
	f := setup(t)
	tests := []struct {
		name string
		body string
		code string
	}{
		{"empty items", `{"items":[]}`, "CART_EMPTY"},
		{"items missing", `{}`, "CART_EMPTY"},
		{"malformed json", `{"items"`, "VALIDATION_ERROR"},
		{"zero quantity", `{"items":[{"id":"1","quantity":0}]}`, "VALIDATION_ERROR"},
		{"fractional quantity", `{"items":[{"id":"1","quantity":1.5}]}`, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/checkout", tt.body, "user_1")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decode(t, rec)["code"])
		})
	}
	assert.Zero(t, f.payments.Calls)
}

func TestCheckout_UnknownProduct(t *testing.T) {
	f := setup(t)
	rec := f.do(t, http.MethodPost, "/api/checkout", `{"items":[{"id":"1","quantity":1},{"id":"99","quantity":1}]}`, "user_1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "PRODUCT_NOT_FOUND", body["code"])
	assert.Equal(t, []any{"99"}, body["productIds"])
	assert.Zero(t, f.payments.Calls)
}

func TestCheckout_OutOfStock(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.store.SetStock("4", 3))

	rec := f.do(t, http.MethodPost, "/api/checkout", `{"items":[{"id":"4","quantity":5}]}`, "user_1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "OUT_OF_STOCK", body["code"])
	assert.Equal(t, []any{map[string]any{
		"id": "4", "name": "Holo Lens Pro", "requested": float64(5), "available": float64(3),
	}}, body["items"])
	assert.Zero(t, f.payments.Calls)
}

func TestCheckout_CreatesSession(t *testing.T) {
	f := setup(t)
	rec := f.do(t, http.MethodPost, "/api/checkout",
		`{"items":[{"id":"1","quantity":2,"variant":"Obsidian Black","price":1}]}`, "user_1",
		"X-User-Email", "ada@example.com")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"url":"https://checkout.example/cs_test_1"}`, rec.Body.String())

	params := f.payments.LastParams
	require.NotNil(t, params)
	assert.Equal(t, "ada@example.com", params.CustomerEmail)
	assert.Equal(t, "user_1", params.Metadata[checkout.MetadataUserID])
	require.Len(t, params.LineItems, 1)
	assert.Equal(t, int64(29900), params.LineItems[0].UnitAmount)
}

func TestCheckout_ProcessorFailure(t *testing.T) {
	f := setup(t)
	f.payments.Err = errors.New("stripe down")

	rec := f.do(t, http.MethodPost, "/api/checkout", `{"items":[{"id":"1","quantity":1}]}`, "user_1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "CHECKOUT_ERROR", decode(t, rec)["code"])
}

func TestCheckoutSession(t *testing.T) {
	f := setup(t)
	f.payments.Session = &payment.Session{
		ID:            "cs_test_1",
		Status:        payment.StatusComplete,
		Metadata:      map[string]string{checkout.MetadataUserID: "user_1"},
		CustomerName:  "Ada Lovelace",
		CustomerEmail: "ada@example.com",
		AmountTotal:   29900,
		LineItems:     []payment.SessionLineItem{{ID: "li_1", Description: "Neural Link Headset", Quantity: 1, AmountTotal: 29900}},
	}

	rec := f.do(t, http.MethodGet, "/api/checkout/session", "", "user_1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MISSING_SESSION_ID", decode(t, rec)["code"])

	rec = f.do(t, http.MethodGet, "/api/checkout/session?session_id=cs_test_1", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/checkout/session?session_id=cs_test_1", "", "user_2")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", decode(t, rec)["code"])

	rec = f.do(t, http.MethodGet, "/api/checkout/session?session_id=cs_test_1", "", "user_1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"customerName":"Ada Lovelace","customerEmail":"ada@example.com","amountTotal":299,
		"lineItems":[{"id":"li_1","name":"Neural Link Headset","quantity":1,"amount":299}]
	}`, rec.Body.String())

	f.payments.Session.Status = "open"
	rec = f.do(t, http.MethodGet, "/api/checkout/session?session_id=cs_test_1", "", "user_1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "SESSION_INCOMPLETE", body["code"])
	assert.Equal(t, "open", body["status"])
}

func TestWebhook_PassesRawBodyAndSignature(t *testing.T) {
	f := setup(t)
	rec := f.do(t, http.MethodPost, "/api/webhooks/stripe", `{"id":"evt_1"}`, "", "Stripe-Signature", "t=1,v1=abc")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	assert.Equal(t, `{"id":"evt_1"}`, string(f.webhooks.LastPayload))
	assert.Equal(t, "t=1,v1=abc", f.webhooks.LastSignature)
}

func TestWebhook_DuplicateIsAcknowledged(t *testing.T) {
	f := setup(t)
	f.webhooks.Outcome = fulfillment.OutcomeDuplicate
	rec := f.do(t, http.MethodPost, "/api/webhooks/stripe", `{}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhook_SlowFulfillmentIsNotTimedOut(t *testing.T) {
	f := setup(t, withRequestTimeout(50*time.Millisecond))
	f.webhooks.Delay = 150 * time.Millisecond

	rec := f.do(t, http.MethodPost, "/api/webhooks/stripe", `{}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
}

func TestWebhook_Errors(t *testing.T) {
	f := setup(t)

	f.webhooks.Err = apperr.New(apperr.KindSignatureInvalid, "INVALID_SIGNATURE", apperr.MsgInvalidSignature)
	rec := f.do(t, http.MethodPost, "/api/webhooks/stripe", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_SIGNATURE", decode(t, rec)["code"])

	f.webhooks.Err = apperr.Wrap(errors.New("db down"), apperr.KindFatal, "FULFILLMENT_FAILED", "Failed to fulfill order")
	rec = f.do(t, http.MethodPost, "/api/webhooks/stripe", `{}`, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "FULFILLMENT_FAILED", decode(t, rec)["code"])
}

func TestProducts(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodGet, "/api/products", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all ProductsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&all))
	assert.Len(t, all.Products, 4)

	rec = f.do(t, http.MethodGet, "/api/products?limit=2", "", "")
	var limited ProductsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&limited))
	assert.Len(t, limited.Products, 2)

	rec = f.do(t, http.MethodGet, "/api/products?limit=abc", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProducts_Get(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodGet, "/api/products/3", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p domain.Product
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	assert.Equal(t, "Gravity Boots", p.Name)
	assert.Equal(t, "gravity-boots", p.Slug)

	rec = f.do(t, http.MethodGet, "/api/products/99", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "PRODUCT_NOT_FOUND", decode(t, rec)["code"])
}

func TestProducts_Search(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodGet, "/api/products/search?q=holo", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res ProductsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	require.Len(t, res.Products, 1)
	assert.Equal(t, "4", res.Products[0].ID)

	rec = f.do(t, http.MethodGet, "/api/products/search?q=%20", "", "")
	assert.JSONEq(t, `{"products":[]}`, rec.Body.String())
}

func TestOrders_RequiresUser(t *testing.T) {
	rec := setup(t).do(t, http.MethodGet, "/api/orders", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOrders_ListsNewestFirstWithProductDetails(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	older := &domain.Order{
		ID: "o1", StripeSessionID: "cs_old", OrderNumber: "OLD", UserID: "user_1",
		LineItems: []domain.OrderLineItem{{ProductRef: "2", Quantity: 1}},
		Status:    domain.OrderStatusPaid, OrderDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	newer := &domain.Order{
		ID: "o2", StripeSessionID: "cs_new", OrderNumber: "NEW", UserID: "user_1", TotalPrice: 598,
		LineItems: []domain.OrderLineItem{{ProductRef: "1", Quantity: 2, Variant: "Obsidian Black"}, {ProductRef: "gone", Quantity: 1}},
		Status:    domain.OrderStatusPaid, OrderDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	other := &domain.Order{ID: "o3", StripeSessionID: "cs_other", UserID: "user_2", OrderDate: time.Now()}
	for _, o := range []*domain.Order{older, newer, other} {
		require.NoError(t, f.store.CreateOrder(ctx, o))
	}

	rec := f.do(t, http.MethodGet, "/api/orders", "", "user_1")
	require.Equal(t, http.StatusOK, rec.Code)
	var res OrdersResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	require.Len(t, res.Orders, 2)
	assert.Equal(t, "NEW", res.Orders[0].OrderNumber)
	assert.Equal(t, "OLD", res.Orders[1].OrderNumber)
	assert.Equal(t, OrderItemResponse{
		ProductID: "1", Name: "Neural Link Headset", Image: res.Orders[0].Items[0].Image, Quantity: 2, Variant: "Obsidian Black",
	}, res.Orders[0].Items[0])
	assert.NotEmpty(t, res.Orders[0].Items[0].Image)
	assert.Equal(t, OrderItemResponse{ProductID: "gone", Quantity: 1}, res.Orders[0].Items[1])
}

func TestImport(t *testing.T) {
	f := setup(t, withImportSecret("s3cret"))

	rec := f.do(t, http.MethodGet, "/api/catalog/import", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Method not allowed. Use POST with authentication.","created":0,"skipped":0}`, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/catalog/import", "", "", "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized: Invalid or missing secret key", decode(t, rec)["error"])

	rec = f.do(t, http.MethodPost, "/api/catalog/import", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/catalog/import", "", "", "Authorization", "Bearer s3cret")
	require.Equal(t, http.StatusOK, rec.Code)
	var res ImportResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 4, res.Skipped)

	rec = f.do(t, http.MethodPost, "/api/catalog/import", `{"secretKey":"s3cret"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestImport_NotConfigured(t *testing.T) {
	rec := setup(t).do(t, http.MethodPost, "/api/catalog/import", "", "", "Authorization", "Bearer anything")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Server configuration error", decode(t, rec)["error"])
}
