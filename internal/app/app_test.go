package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront/internal/adapter/handler"
	"github.com/rl1809/storefront/internal/adapter/paystack"
	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/config"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

const secretKey = "sk_test_app"

// fakePaystack serves the handful of Paystack endpoints the service calls.
func fakePaystack(t *testing.T, verifyStatus string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /transaction/initialize", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Reference string `json:"reference"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		fmt.Fprintf(w, `{"status":true,"message":"ok","data":{"authorization_url":"https://checkout.paystack.com/%s","access_code":"ac","reference":%q}}`,
			body.Reference, body.Reference)
	})
	mux.HandleFunc("GET /transaction/verify/{reference}", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"status":true,"message":"ok","data":{"id":7,"status":%q,"reference":%q,"amount":1250000,
			"currency":"NGN","channel":"card","paid_at":"2024-08-22T09:15:02Z",
			"authorization":{"authorization_code":"AUTH_x","last4":"4081","card_type":"visa"}}}`,
			verifyStatus, r.PathValue("reference"))
	})
	mux.HandleFunc("GET /bank", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":true,"message":"ok","data":[{"name":"Access Bank","code":"044","currency":"NGN"}]}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type fakeShopify struct {
	*httptest.Server
	calls atomic.Int32
}

func newFakeShopify(t *testing.T) *fakeShopify {
	t.Helper()
	f := &fakeShopify{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := f.calls.Add(1)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"order":{"id":%d}}`, 1000+n)
	}))
	t.Cleanup(f.Close)
	return f
}

type appFixture struct {
	store   *storage.MemoryAdapter
	shopify *fakeShopify
	handler http.Handler
}

func newAppFixture(t *testing.T, verifyStatus string) *appFixture {
	t.Helper()

	paystackSrv := fakePaystack(t, verifyStatus)
	shopifySrv := newFakeShopify(t)

	cfg := &config.Config{
		FrontendURL: "https://shop.example.com/",
		Paystack: config.PaystackConfig{
			SecretKey:     secretKey,
			BaseURL:       paystackSrv.URL,
			CallbackURL:   "https://api.example.com/api/payment/callback",
			WebhookSecret: secretKey,
			Timeout:       5 * time.Second,
		},
		Shopify: config.ShopifyConfig{
			Store:       shopifySrv.URL,
			APIVersion:  "2024-10",
			AccessToken: "shpat_test",
			Timeout:     5 * time.Second,
		},
	}
	require.NoError(t, cfg.Validate())

	store := storage.NewMemoryAdapter()
	logger := NewLogger(io.Discard, "debug", "json")
	a := NewWithStores(cfg, logger, Stores{Orders: store, Carts: store, Cache: store},
		paystack.NewClient(cfg.Paystack.BaseURL, cfg.Paystack.SecretKey, cfg.Paystack.Timeout))

	return &appFixture{store: store, shopify: shopifySrv, handler: a.HTTPHandler()}
}

func (f *appFixture) seed(t *testing.T, reference string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.SaveCart(ctx, domain.Cart{
		UserID: "user-1",
		Items:  []domain.LineItem{{ProductID: "p-1", Quantity: 1}},
	}))
	require.NoError(t, f.store.CreateOrder(ctx, domain.Order{
		Reference: reference,
		UserID:    "user-1",
		Email:     "a@b.com",
		Currency:  "NGN",
		Total:     decimal.NewFromInt(12500),
		Items: []domain.LineItem{
			{ProductID: "p-1", VariantID: "gid://shopify/ProductVariant/4455", Title: "Tee", Quantity: 1, Price: decimal.NewFromInt(12500)},
		},
	}))
}

func (f *appFixture) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestCheckoutFlow_Callback(t *testing.T) {
	f := newAppFixture(t, "success")
	f.seed(t, "LA-1")

	rec := f.serve(httptest.NewRequest(http.MethodPost, "/api/payment/initialize",
		strings.NewReader(`{"email":"a@b.com","amount":"12,500","orderId":"O1","reference":"LA-1"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(handler.RequestIDHeader))

	rec = f.serve(httptest.NewRequest(http.MethodGet, "/api/payment/callback?reference=LA-1&trxref=LA-1", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://shop.example.com/user-account?order=LA-1&success=true&tab=orders", rec.Header().Get("Location"))

	ctx := context.Background()
	order, _ := f.store.GetOrderByReference(ctx, "LA-1")
	require.True(t, order.IsPaid())
	assert.Equal(t, domain.OrderStatusProcessing, order.Status)
	assert.Equal(t, "1001", order.ExternalOrderID)
	require.NotNil(t, order.PaymentDetails)
	assert.True(t, order.PaymentDetails.Amount.Equal(decimal.NewFromInt(12500)))
	assert.Equal(t, "4081", order.PaymentDetails.CardLast4)

	cart, _ := f.store.GetCart(ctx, "user-1")
	assert.Empty(t, cart.Items)

	// the later verify call sees the paid order and creates nothing new
	rec = f.serve(httptest.NewRequest(http.MethodGet, "/api/payment/verify/LA-1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), f.shopify.calls.Load())
}

func TestCheckoutFlow_WebhookAndVerifyRace(t *testing.T) {
	f := newAppFixture(t, "success")
	f.seed(t, "LA-2")

	body := []byte(`{"event":"charge.success","data":{"id":7,"status":"success","reference":"LA-2","amount":1250000,"currency":"NGN","channel":"card"}}`)
	sig := service.Sign(secretKey, body)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/payment/webhook", bytes.NewReader(body))
			req.Header.Set(service.SignatureHeader, sig)
			assert.Equal(t, http.StatusOK, f.serve(req).Code)
		}()
		go func() {
			defer wg.Done()
			assert.Equal(t, http.StatusOK, f.serve(httptest.NewRequest(http.MethodGet, "/api/payment/verify/LA-2", nil)).Code)
		}()
	}
	wg.Wait()

	order, _ := f.store.GetOrderByReference(context.Background(), "LA-2")
	assert.True(t, order.IsPaid())
	assert.Equal(t, int32(1), f.shopify.calls.Load())
	// one transition plus one external id write
	assert.Equal(t, 2, order.Version)
}

func TestCheckoutFlow_WebhookWithoutStatus(t *testing.T) {
	f := newAppFixture(t, "success")
	f.seed(t, "LA-4")

	body := []byte(`{"event":"charge.success","data":{"id":1,"reference":"LA-4","amount":1250000,"currency":"NGN"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/payment/webhook", bytes.NewReader(body))
	req.Header.Set(service.SignatureHeader, service.Sign(secretKey, body))
	rec := f.serve(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.WebhookReceived, rec.Body.String())

	order, _ := f.store.GetOrderByReference(context.Background(), "LA-4")
	assert.True(t, order.IsPaid())
	assert.Equal(t, "1001", order.ExternalOrderID)
}

func TestCheckoutFlow_Declined(t *testing.T) {
	f := newAppFixture(t, "failed")
	f.seed(t, "LA-3")

	rec := f.serve(httptest.NewRequest(http.MethodGet, "/api/payment/callback?reference=LA-3", nil))
	assert.Equal(t, "https://shop.example.com/payment-failed?reference=LA-3", rec.Header().Get("Location"))

	order, _ := f.store.GetOrderByReference(context.Background(), "LA-3")
	assert.False(t, order.IsPaid())
	assert.Equal(t, int32(0), f.shopify.calls.Load())

	cart, _ := f.store.GetCart(context.Background(), "user-1")
	assert.Len(t, cart.Items, 1)
}

func TestHTTPHandler_RecoversPanics(t *testing.T) {
	logger := NewLogger(io.Discard, "info", "text")
	h := handler.WithRecovery(logger, handler.WithLogging(logger, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(handler.RequestIDHeader, "req-1")
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get(handler.RequestIDHeader))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "warn", "json").Info("hidden")
	assert.Zero(t, buf.Len())

	NewLogger(&buf, "nonsense", "json").Info("shown", "k", "v")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
}
