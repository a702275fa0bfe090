package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/adapter/paystack"
	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/config"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

type integrationEnv struct {
	store   *storage.MySQLAdapter
	cache   *storage.RedisAdapter
	cleanup func()
}

func setupIntegrationEnv(t *testing.T) *integrationEnv {
	ctx := context.Background()

	mysqlCfg := config.MySQLConfig{DSN: os.Getenv("MYSQL_DSN"), MaxOpenConns: 20, MaxIdleConns: 10, ConnMaxLifetime: time.Minute}
	if mysqlCfg.DSN == "" {
		mysqlCfg.DSN = "root:root@tcp(localhost:3306)/storefront?parseTime=true"
	}
	redisCfg := config.RedisConfig{Addr: os.Getenv("REDIS_ADDR"), PoolSize: 20}
	if redisCfg.Addr == "" {
		redisCfg.Addr = "localhost:6379"
	}

	rdb, err := OpenRedis(ctx, redisCfg)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	db, err := OpenMySQL(ctx, mysqlCfg)
	if err != nil {
		rdb.Close()
		t.Skipf("MySQL not available: %v", err)
	}

	store := storage.NewMySQLAdapter(db)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	return &integrationEnv{
		store: store,
		cache: storage.NewRedisAdapter(rdb, time.Minute),
		cleanup: func() {
			rdb.Close()
			db.Close()
		},
	}
}

func TestIntegration_ConcurrentWebhooksPayOnce(t *testing.T) {
	env := setupIntegrationEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	reference := service.NewReference()
	userID := "integration-" + uuid.NewString()

	if err := env.store.SaveCart(ctx, domain.Cart{UserID: userID, Items: []domain.LineItem{{ProductID: "p-1", Quantity: 1}}}); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	err := env.store.CreateOrder(ctx, domain.Order{
		Reference: reference,
		UserID:    userID,
		Email:     "integration@example.com",
		Currency:  "NGN",
		Total:     decimal.NewFromInt(12500),
		Items:     []domain.LineItem{{ProductID: "p-1", Title: "Tee", Quantity: 1, Price: decimal.NewFromInt(12500)}},
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}

	var shopifyCalls atomic.Int32
	shopifySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		shopifyCalls.Add(1)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"order":{"id":42}}`))
	}))
	defer shopifySrv.Close()

	cfg := &config.Config{
		FrontendURL: "https://shop.example.com",
		Paystack:    config.PaystackConfig{SecretKey: secretKey, WebhookSecret: secretKey, CallbackURL: "https://api.example.com/cb"},
		Shopify:     config.ShopifyConfig{Store: shopifySrv.URL, AccessToken: "shpat", Timeout: 5 * time.Second},
	}
	a := NewWithStores(cfg, NewLogger(os.Stderr, "warn", "text"),
		Stores{Orders: env.store, Carts: env.store, Cache: env.cache},
		paystack.NewClient("http://127.0.0.1:0", secretKey, time.Second))
	h := a.HTTPHandler()

	body := []byte(`{"event":"charge.success","data":{"id":1,"status":"success","reference":"` + reference +
		`","amount":1250000,"currency":"NGN","channel":"card"}}`)
	sig := service.Sign(secretKey, body)

	var wg sync.WaitGroup
	var acked atomic.Int32
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/payment/webhook", bytes.NewReader(body))
			req.Header.Set(service.SignatureHeader, sig)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code == http.StatusOK {
				acked.Add(1)
			}
		}()
	}
	wg.Wait()

	if acked.Load() != 30 {
		t.Errorf("expected 30 acknowledgements, got %d", acked.Load())
	}
	if shopifyCalls.Load() != 1 {
		t.Errorf("expected one external order, got %d", shopifyCalls.Load())
	}

	order, err := env.store.GetOrderByReference(ctx, reference)
	if err != nil || order == nil {
		t.Fatalf("reload order: %v", err)
	}
	if !order.IsPaid() {
		t.Error("expected order to be paid")
	}
	if order.ExternalOrderID != "42" {
		t.Errorf("expected external id 42, got %q", order.ExternalOrderID)
	}
	if order.Version != 2 {
		t.Errorf("expected version 2, got %d", order.Version)
	}

	cart, _ := env.store.GetCart(ctx, userID)
	if cart == nil || len(cart.Items) != 0 {
		t.Errorf("expected cleared cart, got %+v", cart)
	}
}
