package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ariefcatur/go-storefront-orders.git/internal/cart"
	"github.com/ariefcatur/go-storefront-orders.git/internal/catalog"
	"github.com/ariefcatur/go-storefront-orders.git/internal/events"
	"github.com/ariefcatur/go-storefront-orders.git/internal/orders"
	"github.com/ariefcatur/go-storefront-orders.git/internal/pricing"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCatalog struct {
	products map[string]catalog.Product
	govs     []catalog.Governorate
}

func (f *fakeCatalog) GetProduct(_ context.Context, id string) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (f *fakeCatalog) ListGovernorates(context.Context) ([]catalog.Governorate, error) {
	return f.govs, nil
}

func (f *fakeCatalog) ListProducts(_ context.Context, page int) ([]catalog.Product, error) {
	if page < 0 {
		return nil, catalog.ErrInvalidPage
	}
	out := make([]catalog.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeCatalog) ListFeatured(context.Context) ([]catalog.Product, error) { return nil, nil }

func (f *fakeCatalog) ListRelated(context.Context, string, string) ([]catalog.Product, error) {
	return nil, nil
}

func (f *fakeCatalog) Search(_ context.Context, q string) ([]catalog.Product, error) {
	if len(q) < catalog.MinSearchLength {
		return nil, catalog.ErrShortQuery
	}
	return nil, nil
}

type fakeWriter struct {
	orders int
	items  int
	fail   bool
}

func (w *fakeWriter) InsertCustomer(context.Context, orders.CustomerRecord) (string, error) {
	return "c1", nil
}

func (w *fakeWriter) InsertOrder(context.Context, orders.OrderRecord) (orders.OrderRef, error) {
	w.orders++
	return orders.OrderRef{ID: "o1", Number: int64(1000 + w.orders)}, nil
}

func (w *fakeWriter) InsertOrderItems(_ context.Context, items []orders.ItemRecord) error {
	if w.fail {
		return errors.New("connection reset")
	}
	w.items += len(items)
	return nil
}

type fakeOrders struct {
	tracked map[int64]orders.TrackedOrder
}

func (f *fakeOrders) GetByNumber(_ context.Context, n int64) (orders.TrackedOrder, error) {
	o, ok := f.tracked[n]
	if !ok {
		return orders.TrackedOrder{}, orders.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrders) GetOrderStatus(ctx context.Context, n int64) (orders.Status, error) {
	o, err := f.GetByNumber(ctx, n)
	return o.Status, err
}

func (f *fakeOrders) UpdateStatus(_ context.Context, n int64, _, to orders.Status) error {
	o := f.tracked[n]
	o.Status = to
	f.tracked[n] = o
	return nil
}

type statusSink struct{ changed []events.OrderStatusChangedPayload }

func (s *statusSink) OrderStatusChanged(_ context.Context, pl events.OrderStatusChangedPayload) error {
	s.changed = append(s.changed, pl)
	return nil
}

type testServer struct {
	router *chi.Mux
	writer *fakeWriter
	orders *fakeOrders
	events *statusSink
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cat := &fakeCatalog{
		products: map[string]catalog.Product{
			"p1": {
				ID:    "p1",
				Name:  "Dress",
				Price: decimal.NewFromInt(100),
				ColorVariants: []catalog.ColorVariant{
					{Color: "red", Sizes: []string{"S", "M"}},
				},
				QuantityPricing: []pricing.Tier{{Threshold: 3, UnitPrice: decimal.NewFromInt(80)}},
			},
		},
		govs: []catalog.Governorate{{ID: "g1", Name: "Giza", ShippingCost: decimal.NewFromInt(30)}},
	}
	log := zap.NewNop()
	w := &fakeWriter{}
	fo := &fakeOrders{tracked: map[int64]orders.TrackedOrder{
		1042: {Number: 1042, Status: orders.StatusPending, TotalAmount: decimal.NewFromInt(250), ShippingCost: decimal.NewFromInt(30)},
	}}
	ev := &statusSink{}
	backend := cart.NewMemoryBackend()

	r := NewRouter()
	(&CatalogHandler{Browse: cat, Products: cat, Log: log}).Register(r)
	(&CartHandler{Carts: backend, Products: cat, Log: log}).Register(r)
	(&OrdersHandler{
		Composer:   orders.NewComposer(w, cat, nil, log),
		Products:   cat,
		Carts:      backend,
		Orders:     fo,
		Events:     ev,
		AdminToken: "s3cret",
		Log:        log,
	}).Register(r)
	return &testServer{router: r, writer: w, orders: fo, events: ev}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

var session = map[string]string{HeaderCartSession: "shopper-1"}

func validCustomer() map[string]string {
	return map[string]string{"name": "Mona", "phone": "0100", "address": "12 Nile St", "governorate_id": "g1"}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetProduct(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/products/p1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "/placeholder.svg", body["primary_image"])
	assert.Equal(t, []any{"red"}, body["colors"])

	rec = ts.do(t, http.MethodGet, "/products/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearch_ShortQuery(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/products/search?q=a", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCart_RequiresSession(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/cart/", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCart_AddSelectionAndCheckout(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/cart/selection", map[string]any{
		"product_id": "p1",
		"rows": []map[string]any{
			{"color": "red", "size": "S", "quantity": 2},
			{"color": "red", "size": "M", "quantity": 1},
		},
	}, session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var cv cartView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cv))
	require.Len(t, cv.Items, 2)
	assert.Equal(t, 3, cv.TotalItems)
	assert.True(t, cv.TotalPrice.Equal(decimal.NewFromInt(240)))

	rec = ts.do(t, http.MethodPost, "/checkout", map[string]any{"customer": validCustomer()}, session)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var rc orders.Receipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rc))
	assert.EqualValues(t, 1001, rc.OrderNumber)
	assert.True(t, rc.GrandTotal.Equal(decimal.NewFromInt(270)))
	assert.Equal(t, 2, ts.writer.items)

	rec = ts.do(t, http.MethodGet, "/cart/", nil, session)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cv))
	assert.Empty(t, cv.Items)
}

func TestCheckout_WriteFailureIsGeneric(t *testing.T) {
	ts := newTestServer(t)
	ts.writer.fail = true

	rec := ts.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": "p1", "color": "red", "size": "S", "quantity": 1}, session)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/checkout", map[string]any{"customer": validCustomer()}, session)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "items")

	var cv cartView
	rec = ts.do(t, http.MethodGet, "/cart/", nil, session)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cv))
	assert.Len(t, cv.Items, 1)
}

func TestCheckout_Validation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/checkout", map[string]any{"customer": validCustomer()}, session)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": "p1", "color": "red", "size": "S", "quantity": 1}, session)
	cust := validCustomer()
	delete(cust, "phone")
	rec = ts.do(t, http.MethodPost, "/checkout", map[string]any{"customer": cust}, session)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"phone"`)
	assert.Zero(t, ts.writer.orders)
}

func TestQuote(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/products/p1/quote", map[string]any{
		"rows": []map[string]any{{"color": "red", "quantity": 3}},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var q struct {
		TotalQuantity int             `json:"total_quantity"`
		UnitPrice     decimal.Decimal `json:"unit_price"`
		Total         decimal.Decimal `json:"total"`
		Complete      bool            `json:"complete"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
	assert.Equal(t, 3, q.TotalQuantity)
	assert.True(t, q.UnitPrice.Equal(decimal.NewFromInt(80)))
	assert.True(t, q.Total.Equal(decimal.NewFromInt(240)))
	assert.False(t, q.Complete)
}

func TestQuote_OverCap(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/products/p1/quote", map[string]any{
		"rows": []map[string]any{{"color": "red", "size": "S", "quantity": 13}},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVariantsNotOffered(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/products/p1/orders", map[string]any{
		"rows":     []map[string]any{{"color": "zzz", "quantity": 1}},
		"customer": validCustomer(),
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, ts.writer.items)

	rec = ts.do(t, http.MethodPost, "/cart/items", map[string]any{
		"product_id": "p1", "color": "red", "size": "XXL", "quantity": 1,
	}, session)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/cart/items", map[string]any{
		"product_id": "p1", "color": "red", "size": "S", "quantity": 1,
	}, session)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestOrderNow(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/products/p1/orders", map[string]any{
		"rows":     []map[string]any{{"color": "red", "size": "M", "quantity": 1}},
		"customer": validCustomer(),
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 1, ts.writer.items)

	rec = ts.do(t, http.MethodPost, "/products/p1/orders", map[string]any{
		"rows":     []map[string]any{{"color": "red", "quantity": 1}},
		"customer": validCustomer(),
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrack(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/orders/%231042", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "280", body["grand_total"])

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/orders/999", nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/orders/abc", nil, nil).Code)
}

func TestUpdateStatus(t *testing.T) {
	ts := newTestServer(t)
	admin := map[string]string{"Authorization": "Bearer s3cret"}

	rec := ts.do(t, http.MethodPatch, "/orders/1042/status", map[string]string{"status": "processing"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPatch, "/orders/1042/status", map[string]string{"status": "processing"}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, orders.StatusProcessing, ts.orders.tracked[1042].Status)
	require.Len(t, ts.events.changed, 1)
	assert.Equal(t, "pending", ts.events.changed[0].From)

	rec = ts.do(t, http.MethodPatch, "/orders/1042/status", map[string]string{"status": "pending"}, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
