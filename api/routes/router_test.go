package routes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/internal/campaigns"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type memoryStore struct {
	data     map[string]string
	counters map[string]int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, counters: map[string]int64{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memoryStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	m.counters[scope]++
	return m.counters[scope] <= limit, m.counters[scope], nil
}

func (m *memoryStore) Ping(context.Context) error {
	return nil
}

type stubCheckout struct {
	calls int
}

func (s *stubCheckout) Execute(ctx context.Context, input checkout.Input) (*models.Order, error) {
	s.calls++
	return &models.Order{ID: uuid.New(), OrderNumber: fmt.Sprint(1000 + s.calls), CustomerEmail: input.Customer.Email}, nil
}

func (s *stubCheckout) Quote(ctx context.Context, input checkout.QuoteInput) (*pricing.PricedOrder, error) {
	return &pricing.PricedOrder{}, nil
}

type stubOrders struct {
	orders.Service
	updates int
}

func (s *stubOrders) UpdateStatus(ctx context.Context, input orders.StatusUpdateInput) (*orders.OrderDetail, error) {
	s.updates++
	return &orders.OrderDetail{OrderNumber: input.OrderNumber}, nil
}

type stubCampaigns struct {
	campaigns.Service
}

func (stubCampaigns) List(ctx context.Context) ([]models.Campaign, error) {
	return []models.Campaign{{ID: uuid.New(), Name: "Black Friday"}}, nil
}

type harness struct {
	handler  http.Handler
	checkout *stubCheckout
	orders   *stubOrders
}

func newHarness(t *testing.T) harness {
	t.Helper()
	cfg := &config.Config{
		App:   config.AppConfig{Env: "test"},
		Admin: config.AdminConfig{APIToken: "secret"},
		RateLimit: config.RateLimitConfig{
			OrdersWindow:     time.Minute,
			OrdersIPLimit:    2,
			OrdersEmailLimit: 5,
		},
	}
	co := &stubCheckout{}
	ord := &stubOrders{}
	handler := NewRouter(cfg, nil, stubPinger{}, newMemoryStore(), prometheus.NewRegistry(), Services{
		Checkout:  co,
		Orders:    ord,
		Campaigns: stubCampaigns{},
	})
	return harness{handler: handler, checkout: co, orders: ord}
}

func (h harness) do(method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	h.handler.ServeHTTP(resp, req)
	return resp
}

const orderBody = `{
	"customer": {"name": "Ana", "email": "ana@example.com"},
	"shipping_address": {"street": "Rua A", "number": "10", "city": "Sao Paulo", "state": "SP", "postal_code": "01000-000"},
	"items": [{"product_name": "Scarf", "quantity": 1, "unit_price": "50"}],
	"shipping_cost": "0"
}`

func TestHealthAndMetricsRoutes(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		if resp := h.do(http.MethodGet, path, "", nil); resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	h := newHarness(t)

	if resp := h.do(http.MethodGet, "/api/admin/v1/campaigns", "", nil); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
	if resp := h.do(http.MethodGet, "/api/admin/v1/campaigns", "", map[string]string{"Authorization": "Bearer wrong"}); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token got %d", resp.Code)
	}
	resp := h.do(http.MethodGet, "/api/admin/v1/campaigns", "", map[string]string{"Authorization": "Bearer secret"})
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "Black Friday") {
		t.Fatalf("expected campaign list got %d %s", resp.Code, resp.Body.String())
	}
}

func TestOrderStatusUpdateNeedsIdempotencyKey(t *testing.T) {
	h := newHarness(t)
	auth := map[string]string{"Authorization": "Bearer secret"}

	if resp := h.do(http.MethodPatch, "/api/admin/v1/orders/1001", `{"order_status": "shipped"}`, auth); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key got %d", resp.Code)
	}

	auth["Idempotency-Key"] = "ship-1001"
	for i := 0; i < 2; i++ {
		if resp := h.do(http.MethodPatch, "/api/admin/v1/orders/1001", `{"order_status": "shipped"}`, auth); resp.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
		}
	}
	if h.orders.updates != 1 {
		t.Fatalf("expected replayed update, service ran %d times", h.orders.updates)
	}
}

func TestCreateOrderReplayAndRateLimit(t *testing.T) {
	h := newHarness(t)
	key := map[string]string{"Idempotency-Key": "cart-1"}

	first := h.do(http.MethodPost, "/api/v1/orders", orderBody, key)
	replay := h.do(http.MethodPost, "/api/v1/orders", orderBody, key)
	if first.Code != http.StatusCreated || replay.Code != http.StatusCreated {
		t.Fatalf("expected 201 twice got %d and %d", first.Code, replay.Code)
	}
	if first.Body.String() != replay.Body.String() || h.checkout.calls != 1 {
		t.Fatalf("expected replay of the first order, calls=%d", h.checkout.calls)
	}

	if resp := h.do(http.MethodPost, "/api/v1/orders", orderBody, nil); resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if resp := h.do(http.MethodPost, "/api/v1/orders", orderBody, nil); resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after ip limit got %d", resp.Code)
	}
}

func TestQuoteHasItsOwnRateLimit(t *testing.T) {
	h := newHarness(t)
	quote := `{"items": [{"product_name": "Scarf", "quantity": 1, "unit_price": "50"}]}`

	for i := 0; i < 2; i++ {
		if resp := h.do(http.MethodPost, "/api/v1/orders/quote", quote, nil); resp.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
		}
	}
	resp := h.do(http.MethodPost, "/api/v1/orders/quote", quote, nil)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after ip limit got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "net_margin") {
		t.Fatalf("rate limit body leaked pricing: %s", resp.Body.String())
	}

	if resp := h.do(http.MethodPost, "/api/v1/orders", orderBody, nil); resp.Code != http.StatusCreated {
		t.Fatalf("quotes must not spend the order budget, got %d", resp.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t)
	resp := h.do(http.MethodOptions, "/api/v1/orders", "", map[string]string{
		"Origin":                         "http://localhost:3000",
		"Access-Control-Request-Method":  http.MethodPost,
		"Access-Control-Request-Headers": "Content-Type, Idempotency-Key",
	})
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected allowed origin header got %q", got)
	}
}
