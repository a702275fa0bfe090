package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/app"
	"github.com/rl1809/storefront/internal/config"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

const (
	serverURL     = "http://localhost:8080"
	totalRequests = 50
	amountNaira   = 5000
)

// Fires concurrent signed charge.success webhooks for one order at a running
// server and checks the order was paid exactly once.
func main() {
	ctx := context.Background()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := app.OpenMySQL(ctx, cfg.MySQL)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	defer db.Close()

	store := storage.NewMySQLAdapter(db)
	reference := service.NewReference()
	err = store.CreateOrder(ctx, domain.Order{
		Reference: reference,
		UserID:    "stress-user",
		Email:     "stress@example.com",
		Currency:  "NGN",
		Total:     decimal.NewFromInt(amountNaira),
		Items:     []domain.LineItem{{ProductID: "stress-product", Title: "Stress item", Quantity: 1, Price: decimal.NewFromInt(amountNaira)}},
	})
	if err != nil {
		log.Fatalf("failed to create order: %v", err)
	}

	body, _ := json.Marshal(map[string]any{
		"event": domain.EventChargeSuccess,
		"data": map[string]any{
			"id":        time.Now().UnixNano(),
			"status":    "success",
			"reference": reference,
			"amount":    amountNaira * 100,
			"currency":  "NGN",
			"channel":   "card",
		},
	})
	signature := service.Sign(cfg.Paystack.WebhookSecret, body)

	var okCount atomic.Int32
	var failCount atomic.Int32
	var wg sync.WaitGroup
	client := &http.Client{Timeout: 10 * time.Second}
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			req, _ := http.NewRequest(http.MethodPost, serverURL+"/api/payment/webhook", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set(service.SignatureHeader, signature)

			resp, err := client.Do(req)
			if err != nil {
				failCount.Add(1)
				return
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			if resp.StatusCode == http.StatusOK {
				okCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	order, err := store.GetOrderByReference(ctx, reference)
	if err != nil || order == nil {
		log.Fatalf("failed to reload order: %v", err)
	}

	fmt.Println("========== WEBHOOK STRESS RESULTS ==========")
	fmt.Printf("Reference:        %s\n", reference)
	fmt.Printf("Total Webhooks:   %d\n", totalRequests)
	fmt.Printf("Acknowledged:     %d\n", okCount.Load())
	fmt.Printf("Failed:           %d\n", failCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Printf("Payment Status:   %s\n", order.PaymentStatus)
	fmt.Printf("Order Version:    %d\n", order.Version)
	fmt.Println("============================================")

	if okCount.Load() == totalRequests {
		fmt.Println("PASS: every webhook acknowledged")
	} else {
		fmt.Printf("FAIL: expected %d acknowledgements, got %d\n", totalRequests, okCount.Load())
	}

	// one transition, plus one more bump if a fulfillment order was stored
	if order.IsPaid() && order.Version <= 2 {
		fmt.Println("PASS: order paid exactly once")
	} else {
		fmt.Printf("FAIL: payment %s at version %d\n", order.PaymentStatus, order.Version)
	}
}
