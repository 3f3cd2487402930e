package httpapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ordercore/internal/domain"
	"github.com/vladislavdragonenkov/ordercore/internal/service/httpapi"
	"github.com/vladislavdragonenkov/ordercore/internal/service/order"
	"github.com/vladislavdragonenkov/ordercore/internal/service/sequence"
	"github.com/vladislavdragonenkov/ordercore/internal/storage/memory"
)

type apiEnv struct {
	server   *httptest.Server
	store    *memory.Store
	customer domain.Customer
	widget   domain.Product
}

func newAPI(t *testing.T) *apiEnv {
	t.Helper()

	store := memory.NewStore()
	env := &apiEnv{
		store:    store,
		customer: store.AddCustomer(domain.Customer{Name: "Ada", Email: "ada@example.com"}),
		widget:   store.AddProduct(domain.Product{Name: "Widget", SKU: "WID", PriceCents: 1999, Quantity: 10}),
	}

	clock := func() time.Time { return time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC) }
	svc := order.NewService(store, store, sequence.NewAtomicGenerator(clock), order.WithClock(clock))
	env.server = httptest.NewServer(httpapi.NewHandler(svc, nil).Router())
	t.Cleanup(env.server.Close)
	return env
}

func (e *apiEnv) post(t *testing.T, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(e.server.URL+"/orders", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestCreateAndGetOrder(t *testing.T) {
	env := newAPI(t)

	resp := env.post(t, fmt.Sprintf(`{"customerId":%d,"items":[{"productId":%d,"quantity":2}]}`, env.customer.ID, env.widget.ID))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "/orders/ORD-2026-000001", resp.Header.Get("Location"))

	var created order.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.Equal(t, "39.98", created.Subtotal)
	require.Equal(t, "4.00", created.Tax)
	require.Equal(t, "43.98", created.Total)

	get, err := http.Get(env.server.URL + "/orders/" + created.OrderID)
	require.NoError(t, err)
	defer get.Body.Close()
	require.Equal(t, http.StatusOK, get.StatusCode)

	var fetched order.Snapshot
	require.NoError(t, json.NewDecoder(get.Body).Decode(&fetched))
	require.Equal(t, created.ID, fetched.ID)
	require.Equal(t, created.Items, fetched.Items)
}

func TestCreateOrderErrors(t *testing.T) {
	env := newAPI(t)

	cases := []struct {
		name string
		body string
		code int
		kind string
	}{
		{name: "malformed", body: `{"customerId":`, code: http.StatusBadRequest, kind: "invalid_argument"},
		{name: "unknown field", body: `{"customer":1}`, code: http.StatusBadRequest, kind: "invalid_argument"},
		{name: "zero quantity", body: fmt.Sprintf(`{"customerId":%d,"items":[{"productId":%d,"quantity":0}]}`, env.customer.ID, env.widget.ID), code: http.StatusBadRequest, kind: "invalid_argument"},
		{name: "empty", body: fmt.Sprintf(`{"customerId":%d,"items":[]}`, env.customer.ID), code: http.StatusBadRequest, kind: "invalid_argument"},
		{name: "customer", body: fmt.Sprintf(`{"customerId":999,"items":[{"productId":%d,"quantity":1}]}`, env.widget.ID), code: http.StatusUnprocessableEntity, kind: "customer_not_found"},
		{name: "product", body: fmt.Sprintf(`{"customerId":%d,"items":[{"productId":999,"quantity":1}]}`, env.customer.ID), code: http.StatusUnprocessableEntity, kind: "product_not_found"},
		{name: "stock", body: fmt.Sprintf(`{"customerId":%d,"items":[{"productId":%d,"quantity":11}]}`, env.customer.ID, env.widget.ID), code: http.StatusUnprocessableEntity, kind: "insufficient_inventory"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.post(t, tc.body)
			require.Equal(t, tc.code, resp.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			require.Equal(t, tc.kind, body["error"])
		})
	}

	p, ok := env.store.Product(env.widget.ID)
	require.True(t, ok)
	require.Equal(t, int32(10), p.Quantity)
	require.Zero(t, env.store.OrderCount())
}

func TestGetOrderNotFound(t *testing.T) {
	env := newAPI(t)

	resp, err := http.Get(env.server.URL + "/orders/ORD-2026-000404")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type conflictCoordinator struct{}

func (conflictCoordinator) CreateOrder(context.Context, domain.CreateOrderRequest) (order.Snapshot, error) {
	return order.Snapshot{}, fmt.Errorf("lock product 1: %w", domain.ErrPersistenceConflict)
}

func (conflictCoordinator) GetOrder(context.Context, string) (order.Snapshot, error) {
	return order.Snapshot{}, fmt.Errorf("connection refused")
}

func TestConflictAndInternalErrors(t *testing.T) {
	server := httptest.NewServer(httpapi.NewHandler(conflictCoordinator{}, nil).Router())
	defer server.Close()

	resp, err := http.Post(server.URL+"/orders", "application/json", strings.NewReader(`{"customerId":1,"items":[{"productId":1,"quantity":1}]}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "1", resp.Header.Get("Retry-After"))

	get, err := http.Get(server.URL + "/orders/ORD-2026-000001")
	require.NoError(t, err)
	defer get.Body.Close()
	require.Equal(t, http.StatusInternalServerError, get.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(get.Body).Decode(&body))
	require.Equal(t, "internal error", body["message"])
}
