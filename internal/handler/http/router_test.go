package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Catalina-leal/Huertohogarapp/internal/domain"
	"github.com/Catalina-leal/Huertohogarapp/internal/event"
	"github.com/Catalina-leal/Huertohogarapp/internal/notification"
	"github.com/Catalina-leal/Huertohogarapp/internal/repository"
	"github.com/Catalina-leal/Huertohogarapp/internal/repository/sqlite"
	"github.com/Catalina-leal/Huertohogarapp/internal/repository/watch"
	"github.com/Catalina-leal/Huertohogarapp/internal/service"
	"github.com/Catalina-leal/Huertohogarapp/internal/session"
	"github.com/Catalina-leal/Huertohogarapp/pkg/health"
	"github.com/Catalina-leal/Huertohogarapp/pkg/middleware"
	"github.com/Catalina-leal/Huertohogarapp/pkg/pagination"
)

const testAdminSecret = "test-admin-secret"

// --- Test Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, notification.Notification) {}

// newTestRouter wires the storefront over an in-memory store the way the
// app does, without a remote API or Kafka.
func newTestRouter(t *testing.T, adminSecret string) http.Handler {
	t.Helper()
	return newTestRouterWithPrefs(t, adminSecret, nil)
}

// newTestRouterWithPrefs lets a test wrap the preferences store that backs
// the session.
func newTestRouterWithPrefs(t *testing.T, adminSecret string, wrap func(repository.PreferencesRepository) repository.PreferencesRepository) http.Handler {
	t.Helper()
	logger := testLogger()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db, err := sqlite.Open(ctx, ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cartRepo := watch.NewCartRepository(sqlite.NewCartRepository(db), logger)
	productRepo := watch.NewProductRepository(sqlite.NewProductRepository(db), logger)
	orderRepo := watch.NewOrderRepository(sqlite.NewOrderRepository(db), logger)
	var prefs repository.PreferencesRepository = sqlite.NewPreferencesRepository(db)
	if wrap != nil {
		prefs = wrap(prefs)
	}
	provider := session.NewProvider(prefs, logger)

	cart := service.NewCartService(cartRepo, logger)
	orders := service.NewOrderService(orderRepo, event.NewProducer(nil, logger), discardNotifier{}, logger, service.OrderOptions{})

	svc := Services{
		Cart:     cart,
		Checkout: service.NewCheckoutService(provider, cart, orders, logger),
		Orders:   orders,
		Payments: service.NewPaymentService(orderRepo, nil, logger),
		Catalog:  service.NewCatalogService(productRepo, nil, logger),
		Sales:    service.NewSalesService(orderRepo, logger),
		Session:  provider,
	}

	return NewRouter(ctx, svc, health.NewHandler(), logger, RouterConfig{
		ServiceName:    "storefront-test",
		AdminSecret:    adminSecret,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	})
}

func do(t *testing.T, h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.Nil(t, env.Error)
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	return env.Error.Code
}

func adminToken(t *testing.T, role string) string {
	t.Helper()
	token, err := middleware.SignHS256(testAdminSecret, "admin@huertohogar.cl", role, time.Hour)
	require.NoError(t, err)
	return token
}

func login(t *testing.T, h http.Handler, email string) {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/v1/session", map[string]string{"email": email}, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func addItem(t *testing.T, h http.Handler, productID string, price int64, qty int) CartView {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/v1/cart/items", map[string]any{
		"product_id": productID,
		"name":       "Producto " + productID,
		"unit_price": price,
		"quantity":   qty,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeData[CartView](t, rec)
}

// --- Cart ---

func TestCart_AddMergeAndTotals(t *testing.T) {
	h := newTestRouter(t, "")

	addItem(t, h, "A", 1000, 1)
	view := addItem(t, h, "A", 1000, 2)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 3, view.Lines[0].Quantity)

	view = addItem(t, h, "B", 500, 1)
	assert.Equal(t, int64(3500), view.Total)
	assert.Equal(t, int64(3500), view.Subtotal)
	assert.Equal(t, 4, view.ItemCount)

	rec := do(t, h, http.MethodGet, "/api/v1/cart", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeData[CartView](t, rec)
	assert.Equal(t, "A", got.Lines[0].ProductID)
	assert.Equal(t, "B", got.Lines[1].ProductID)
}

func TestCart_ZeroQuantityRemovesLine(t *testing.T) {
	h := newTestRouter(t, "")
	addItem(t, h, "A", 1000, 2)

	rec := do(t, h, http.MethodPut, "/api/v1/cart/items/A", map[string]int{"quantity": 0}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeData[CartView](t, rec).Lines)
}

func TestCart_UpdateUnknownProduct(t *testing.T) {
	h := newTestRouter(t, "")

	rec := do(t, h, http.MethodPut, "/api/v1/cart/items/NOPE", map[string]int{"quantity": 2}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/v1/cart/items/NOPE", map[string]int{"quantity": 0}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCart_RemoveAndClear(t *testing.T) {
	h := newTestRouter(t, "")
	addItem(t, h, "A", 1000, 1)
	addItem(t, h, "B", 500, 1)

	rec := do(t, h, http.MethodDelete, "/api/v1/cart/items/A", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/v1/cart", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/cart", nil, "")
	assert.Empty(t, decodeData[CartView](t, rec).Lines)
}

func TestCart_AddValidation(t *testing.T) {
	h := newTestRouter(t, "")

	rec := do(t, h, http.MethodPost, "/api/v1/cart/items", map[string]any{"name": "sin id", "unit_price": 100}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "ProductID")
}

func TestCart_RejectsNonJSONBody(t *testing.T) {
	h := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader("product_id=A"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestCart_StreamPushesSnapshots(t *testing.T) {
	h := newTestRouter(t, "")
	srv := httptest.NewServer(h)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/cart/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var initial CartView
	require.NoError(t, conn.ReadJSON(&initial))
	assert.Empty(t, initial.Lines)

	addItem(t, h, "A", 1000, 2)

	for {
		var view CartView
		require.NoError(t, conn.ReadJSON(&view))
		if view.ItemCount == 2 {
			assert.Equal(t, int64(2000), view.Total)
			return
		}
	}
}

// --- Session & Checkout ---

func TestSession_LoginAndLogout(t *testing.T) {
	h := newTestRouter(t, "")

	rec := do(t, h, http.MethodPost, "/api/v1/session", map[string]string{"email": "Ana@HuertoHogar.cl"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeData[session.State](t, rec)
	assert.True(t, st.LoggedIn)
	assert.Equal(t, "ana@huertohogar.cl", st.Email)

	rec = do(t, h, http.MethodDelete, "/api/v1/session", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/session", nil, "")
	assert.False(t, decodeData[session.State](t, rec).LoggedIn)
}

func TestSession_InvalidEmail(t *testing.T) {
	h := newTestRouter(t, "")

	rec := do(t, h, http.MethodPost, "/api/v1/session", map[string]string{"email": "no-es-un-correo"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckout_PlacesOrderAndClearsCart(t *testing.T) {
	h := newTestRouter(t, "")
	login(t, h, "ana@huertohogar.cl")
	addItem(t, h, "A", 1000, 2)
	addItem(t, h, "B", 500, 3)

	rec := do(t, h, http.MethodPost, "/api/v1/checkout", map[string]string{
		"address": "Av. Providencia 1234",
		"city":    "Santiago",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decodeData[CheckoutResponse](t, rec)
	assert.NotEmpty(t, res.OrderID)
	assert.Equal(t, int64(3500), res.TotalAmount)

	rec = do(t, h, http.MethodGet, "/api/v1/cart", nil, "")
	assert.Empty(t, decodeData[CartView](t, rec).Lines)

	rec = do(t, h, http.MethodGet, "/api/v1/orders", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	orders := decodeData[[]domain.Order](t, rec)
	require.Len(t, orders, 1)
	assert.Equal(t, res.OrderID, orders[0].ID)

	rec = do(t, h, http.MethodGet, "/api/v1/orders/"+res.OrderID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	order := decodeData[domain.Order](t, rec)
	assert.Equal(t, "Av. Providencia 1234, Santiago", order.ShippingAddress)
	assert.Len(t, order.Items, 2)
}

func TestCheckout_EmptyCart(t *testing.T) {
	h := newTestRouter(t, "")
	login(t, h, "ana@huertohogar.cl")

	rec := do(t, h, http.MethodPost, "/api/v1/checkout", map[string]string{"address": "Calle 1"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "EMPTY_CART", errorCode(t, rec))
}

func TestCheckout_NotAuthenticated(t *testing.T) {
	h := newTestRouter(t, "")
	addItem(t, h, "A", 1000, 1)

	rec := do(t, h, http.MethodPost, "/api/v1/checkout", map[string]string{"address": "Calle 1"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "NOT_AUTHENTICATED", errorCode(t, rec))

	rec = do(t, h, http.MethodGet, "/api/v1/cart", nil, "")
	assert.Len(t, decodeData[CartView](t, rec).Lines, 1)
}

func TestOrders_OtherShopperCannotSeeOrder(t *testing.T) {
	h := newTestRouter(t, "")
	login(t, h, "ana@huertohogar.cl")
	addItem(t, h, "A", 1000, 1)
	rec := do(t, h, http.MethodPost, "/api/v1/checkout", map[string]string{"address": "Calle 1"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	orderID := decodeData[CheckoutResponse](t, rec).OrderID

	login(t, h, "pedro@huertohogar.cl")
	rec = do(t, h, http.MethodGet, "/api/v1/orders/"+orderID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/orders", nil, "")
	assert.Empty(t, decodeData[[]domain.Order](t, rec))
}

func TestOrders_PaymentWithoutBackend(t *testing.T) {
	h := newTestRouter(t, "")
	login(t, h, "ana@huertohogar.cl")
	addItem(t, h, "A", 1000, 1)
	rec := do(t, h, http.MethodPost, "/api/v1/checkout", map[string]string{"address": "Calle 1"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	orderID := decodeData[CheckoutResponse](t, rec).OrderID

	rec = do(t, h, http.MethodPost, "/api/v1/orders/"+orderID+"/payment", map[string]string{"payment_method": "cash"}, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/orders/"+orderID+"/payment", map[string]string{"payment_method": "bitcoin"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- Catalog ---

func TestProducts_ListAndFilter(t *testing.T) {
	h := newTestRouter(t, "")

	rec := do(t, h, http.MethodGet, "/api/v1/products?category=productos_lacteos", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	products := decodeData[[]domain.Product](t, rec)
	require.NotEmpty(t, products)
	for _, p := range products {
		assert.Equal(t, domain.CategoryDairy, p.Category)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/products?category=JUGUETES", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/products?organic=quizas", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/products/FR001", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Manzanas Fuji", decodeData[domain.Product](t, rec).Name)

	rec = do(t, h, http.MethodGet, "/api/v1/products/NOPE", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Admin ---

func TestAdmin_NotMountedWithoutSecret(t *testing.T) {
	h := newTestRouter(t, "")

	rec := do(t, h, http.MethodGet, "/api/v1/admin/sales", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdmin_RequiresAdminRole(t *testing.T) {
	h := newTestRouter(t, testAdminSecret)

	rec := do(t, h, http.MethodGet, "/api/v1/admin/sales", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/admin/sales", nil, adminToken(t, "customer"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/admin/sales", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdmin_OrderLifecycleAndSales(t *testing.T) {
	h := newTestRouter(t, testAdminSecret)
	token := adminToken(t, middleware.RoleAdmin)

	login(t, h, "ana@huertohogar.cl")
	addItem(t, h, "A", 1500, 2)
	rec := do(t, h, http.MethodPost, "/api/v1/checkout", map[string]string{"address": "Calle 1"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	orderID := decodeData[CheckoutResponse](t, rec).OrderID

	rec = do(t, h, http.MethodPut, "/api/v1/admin/orders/"+orderID+"/status", map[string]string{"status": "shipped"}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	shipped := decodeData[domain.Order](t, rec)
	assert.Equal(t, domain.StatusShipped, shipped.Status)
	assert.True(t, strings.HasPrefix(shipped.TrackingNumber, "TRACK-"))

	rec = do(t, h, http.MethodPut, "/api/v1/admin/orders/"+orderID+"/status", map[string]string{"status": "LOST"}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/v1/admin/orders/missing/status", map[string]string{"status": "DELIVERED"}, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/v1/admin/orders/"+orderID+"/status", map[string]string{"status": "DELIVERED"}, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/admin/sales", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decodeData[service.SalesReport](t, rec)
	assert.Equal(t, int64(3000), report.Snapshot.TotalSales)
	assert.Equal(t, 1, report.Snapshot.DeliveredOrders)
	require.Len(t, report.RecentOrders, 1)

	rec = do(t, h, http.MethodGet, "/api/v1/admin/orders?status=delivered&per_page=10", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeData[pagination.Result[domain.Order]](t, rec)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 1, page.TotalCount)

	rec = do(t, h, http.MethodGet, "/api/v1/admin/orders?status=pending", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeData[pagination.Result[domain.Order]](t, rec).Items)

	rec = do(t, h, http.MethodGet, "/api/v1/admin/orders/"+orderID+"/items", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decodeData[[]domain.OrderItem](t, rec)
	require.Len(t, items, 1)
	assert.Equal(t, int64(3000), items[0].TotalPrice)

	rec = do(t, h, http.MethodGet, "/api/v1/admin/orders?per_page=0", nil, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/admin/sales?limit=0", nil, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_ProductMaintenance(t *testing.T) {
	h := newTestRouter(t, testAdminSecret)
	token := adminToken(t, middleware.RoleAdmin)

	rec := do(t, h, http.MethodPut, "/api/v1/admin/products/NEW1", map[string]any{
		"name":     "Palta Hass",
		"price":    2500,
		"stock":    10,
		"category": domain.CategoryFreshFruit,
	}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decodeData[domain.Product](t, rec).IsActive)

	rec = do(t, h, http.MethodPut, "/api/v1/admin/products/NEW1/active", map[string]bool{"active": false}, token)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/products?q=palta", nil, "")
	assert.Empty(t, decodeData[[]domain.Product](t, rec))

	rec = do(t, h, http.MethodDelete, "/api/v1/admin/products/NEW1", nil, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/v1/admin/products/NEW1", nil, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Health ---

func TestHealthAndMetrics(t *testing.T) {
	h := newTestRouter(t, "")

	rec := do(t, h, http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

type countingPrefs struct {
	repository.PreferencesRepository
	reads atomic.Int32
}

func (c *countingPrefs) Get(ctx context.Context, key string) (string, bool, error) {
	c.reads.Add(1)
	return c.PreferencesRepository.Get(ctx, key)
}

func TestHealthAndMetrics_DoNotReadSession(t *testing.T) {
	var counter *countingPrefs
	h := newTestRouterWithPrefs(t, "", func(p repository.PreferencesRepository) repository.PreferencesRepository {
		counter = &countingPrefs{PreferencesRepository: p}
		return counter
	})

	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		rec := do(t, h, http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
	assert.Zero(t, counter.reads.Load())

	rec := do(t, h, http.MethodGet, "/api/v1/cart", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Positive(t, counter.reads.Load())
}
