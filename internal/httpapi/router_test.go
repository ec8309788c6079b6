package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mogesh-developer/billing-webapp/internal/catalog"
	"github.com/mogesh-developer/billing-webapp/internal/client"
	"github.com/mogesh-developer/billing-webapp/internal/domain"
	"github.com/mogesh-developer/billing-webapp/internal/metrics"
	"github.com/mogesh-developer/billing-webapp/internal/sales"
	"github.com/mogesh-developer/billing-webapp/internal/store"
	"github.com/mogesh-developer/billing-webapp/pkg/idempotency"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	store   *store.Store
	metrics *metrics.ServerMetrics
	handler http.Handler
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	st, err := store.Open(context.Background(), store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, st.RunMigrations("../store/migrations"))
	t.Cleanup(func() { st.Close() })

	m := metrics.NewServerMetrics("test", nil)
	cat := catalog.NewService(st, nil, zap.NewNop())
	return &testServer{
		store:   st,
		metrics: m,
		handler: NewRouter(Deps{
			Settings: st,
			Catalog:  cat,
			Recorder: sales.NewRecorder(st, cat, m, zap.NewNop()),
			Bills:    st,
			DB:       st,
			Metrics:  m,
			Logger:   zap.NewNop(),
		}),
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, buf)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) product(t *testing.T, barcode string) domain.Product {
	t.Helper()
	p, err := s.store.ProductByBarcode(context.Background(), barcode)
	require.NoError(t, err)
	return p
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func sale(p domain.Product, qty int) domain.CheckoutPayload {
	subtotal := p.Price.Mul(decimal.NewFromInt(int64(qty)))
	return domain.CheckoutPayload{
		Subtotal:       subtotal,
		TaxAmount:      decimal.Zero,
		DiscountAmount: decimal.Zero,
		TotalAmount:    subtotal,
		PaymentMode:    domain.PaymentModeCash,
		Items: domain.Cart{{
			ProductID:    p.ID,
			Name:         p.Name,
			UnitPrice:    p.Price,
			Quantity:     qty,
			LineSubtotal: subtotal,
		}},
	}
}

func withKey(key string) http.Header {
	h := http.Header{}
	h.Set(idempotency.Header, key)
	return h
}

func TestHealth(t *testing.T) {
	s := setupServer(t)

	rec := s.do(t, http.MethodGet, "/health", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRequestID_Propagated(t *testing.T) {
	s := setupServer(t)
	h := http.Header{}
	h.Set(RequestIDHeader, "req-42")

	rec := s.do(t, http.MethodGet, "/health", nil, h)

	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
}

func TestSettings_GetAndPut(t *testing.T) {
	s := setupServer(t)

	rec := s.do(t, http.MethodGet, "/api/settings", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st domain.ShopSettings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "My Shop", st.ShopName)

	st.ShopName = "Corner Store"
	st.DefaultTaxRate = decimal.RequireFromString("5")
	rec = s.do(t, http.MethodPut, "/api/settings", st, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	saved, err := s.store.GetSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Corner Store", saved.ShopName)
	assert.True(t, saved.DefaultTaxRate.Equal(decimal.NewFromInt(5)))
}

func TestSettings_PutValidation(t *testing.T) {
	s := setupServer(t)

	tests := []struct {
		name string
		body any
		code string
	}{
		{"blank name", map[string]any{"shop_name": " ", "currency_symbol": "$"}, "invalid_settings"},
		{"negative tax", map[string]any{"shop_name": "A", "default_tax_rate": "-1"}, "invalid_settings"},
		{"huge tax", map[string]any{"shop_name": "A", "default_tax_rate": "1e50000000"}, "invalid_settings"},
		{"unknown field", map[string]any{"shop_name": "A", "owner": "me"}, "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPut, "/api/settings", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, errorBody(t, rec).Code)
		})
	}
}

func TestProducts_LookupAndSearch(t *testing.T) {
	s := setupServer(t)

	rec := s.do(t, http.MethodGet, "/api/product/1001", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var p domain.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "Ballpoint Pen", p.Name)

	rec = s.do(t, http.MethodGet, "/api/product/9999", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Product not found", errorBody(t, rec).Error)

	rec = s.do(t, http.MethodGet, "/api/products?q=pen", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var found []domain.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	names := make([]string, len(found))
	for i, f := range found {
		names[i] = f.Name
	}
	assert.ElementsMatch(t, []string{"Ballpoint Pen", "Pencil HB"}, names)

	rec = s.do(t, http.MethodGet, "/api/products?q=zzz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestProducts_CreateUpdateDelete(t *testing.T) {
	s := setupServer(t)

	rec := s.do(t, http.MethodPost, "/api/products", map[string]any{
		"name": "Stapler", "barcode": "3001", "price": "4.50", "stock_quantity": 10,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotZero(t, created.ID)

	rec = s.do(t, http.MethodPost, "/api/products", map[string]any{"name": "Clone", "barcode": "3001"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/products", map[string]any{"name": "", "barcode": "3002"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	created.Price = decimal.RequireFromString("5.00")
	rec = s.do(t, http.MethodPut, fmt.Sprintf("/api/product/%d", created.ID), created, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, s.product(t, "3001").Price.Equal(decimal.NewFromInt(5)))

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/api/product/%d", created.ID), nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/api/product/%d", created.ID), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/product/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckout_RecordsSaleOnce(t *testing.T) {
	s := setupServer(t)
	pen := s.product(t, "1001")

	rec := s.do(t, http.MethodPost, "/api/checkout", sale(pen, 2), withKey("till-1:7"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var first domain.TransactionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.NotEmpty(t, first.TransactionID)
	assert.Len(t, first.BillNumber, 8)

	rec = s.do(t, http.MethodPost, "/api/checkout", sale(pen, 2), withKey("till-1:7"))
	require.Equal(t, http.StatusCreated, rec.Code)
	var second domain.TransactionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, first.TransactionID, second.TransactionID)

	assert.Equal(t, pen.StockQuantity-2, s.product(t, "1001").StockQuantity)

	rec = s.do(t, http.MethodGet, "/api/bills", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bills []domain.Bill
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bills))
	require.Len(t, bills, 1)
	assert.Equal(t, domain.DefaultCustomerName, bills[0].CustomerName)

	rec = s.do(t, http.MethodGet, "/api/bills/"+first.TransactionID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/receipt/"+first.TransactionID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "Ballpoint Pen")
	assert.Contains(t, rec.Body.String(), "Bill #"+first.BillNumber)
}

func TestCheckout_Rejections(t *testing.T) {
	s := setupServer(t)
	coffee := s.product(t, "2002")

	rec := s.do(t, http.MethodPost, "/api/checkout", sale(coffee, coffee.StockQuantity+1), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Insufficient stock for Instant Coffee 100g", errorBody(t, rec).Error)
	assert.Equal(t, coffee.StockQuantity, s.product(t, "2002").StockQuantity)

	rec = s.do(t, http.MethodPost, "/api/checkout", domain.CheckoutPayload{}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Bill is empty", errorBody(t, rec).Error)
}

func TestCheckout_HugeExponentRejected(t *testing.T) {
	s := setupServer(t)
	body := `{"items":[{"product_id":1,"name":"Ballpoint Pen","price":"1e50000000","quantity":1,"subtotal":"1e50000000"}],` +
		`"subtotal":"1e50000000","tax_amount":"0","discount_amount":"0","total_amount":"1e50000000","payment_mode":"Cash"}`

	req := httptest.NewRequest(http.MethodPost, "/api/checkout", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Bill amounts are out of range", errorBody(t, rec).Error)
	assert.Equal(t, 100, s.product(t, "1001").StockQuantity)
}

func TestCheckout_BadRequests(t *testing.T) {
	s := setupServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/checkout", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	long := make([]byte, idempotency.MaxKeyLength+1)
	for i := range long {
		long[i] = 'k'
	}
	rec = s.do(t, http.MethodPost, "/api/checkout", domain.CheckoutPayload{}, withKey(string(long)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_idempotency_key", errorBody(t, rec).Code)
}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, domain.CheckoutPayload, string) (domain.Bill, error) {
	return domain.Bill{}, errors.New("disk full")
}

func TestCheckout_InternalErrorIsGeneric(t *testing.T) {
	handler := NewCheckoutHandler(failingRecorder{}, zap.NewNop(), time.Second)
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", bytes.NewBufferString(`{"items":[]}`))
	rec := httptest.NewRecorder()

	handler.Checkout(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to record sale", errorBody(t, rec).Error)
	assert.NotContains(t, rec.Body.String(), "disk full")
}

func TestBills_NotFoundAndBadLimit(t *testing.T) {
	s := setupServer(t)

	rec := s.do(t, http.MethodGet, "/api/bills/77", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/receipt/77", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Bill not found", errorBody(t, rec).Error)

	rec = s.do(t, http.MethodGet, "/api/bills?limit=-1", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetrics_RecordsRoutePattern(t *testing.T) {
	s := setupServer(t)
	s.do(t, http.MethodGet, "/api/product/1001", nil, nil)

	rec := s.do(t, http.MethodGet, "/metrics", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `billing_test_http_requests_total{handler="/api/product/{barcode}",status="200"} 1`)
}

// The till's HTTP clients and these handlers must agree on the wire format.
func TestClientsAgainstRouter(t *testing.T) {
	s := setupServer(t)
	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	c := client.New(client.Options{BaseURL: srv.URL, Timeout: 5 * time.Second, Logger: zap.NewNop()})
	ctx := context.Background()

	settings, err := client.NewSettingsService(c).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "My Shop", settings.ShopName)

	catalogSvc := client.NewCatalogService(c)
	pen, err := catalogSvc.ByCode(ctx, "1001")
	require.NoError(t, err)
	_, err = catalogSvc.ByCode(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	result, err := client.NewTransactionService(c).Submit(ctx, sale(pen, 1), "till-9:1")
	require.NoError(t, err)

	_, err = client.NewTransactionService(c).Submit(ctx, domain.CheckoutPayload{}, "till-9:2")
	assert.True(t, domain.IsRejected(err))

	text, err := client.NewReceiptService(c).Fetch(ctx, result.TransactionID)
	require.NoError(t, err)
	assert.Contains(t, text, "Ballpoint Pen")
}
