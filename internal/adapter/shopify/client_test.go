package shopify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront/internal/core/domain"
)

func paidOrder() domain.Order {
	return domain.Order{
		Reference: "R1",
		Email:     "a@b.com",
		Currency:  "NGN",
		Items: []domain.LineItem{
			{VariantID: "gid://shopify/ProductVariant/4455", Quantity: 2},
			{Title: "Gift wrap", Quantity: 1, Price: decimal.RequireFromString("500")},
		},
		PaymentDetails: &domain.PaymentDetails{Amount: decimal.RequireFromString("12500"), Currency: "NGN"},
	}
}

func TestCreateOrder(t *testing.T) {
	var got map[string]orderPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-10/orders.json", r.URL.Path)
		assert.Equal(t, "shpat_token", r.Header.Get("X-Shopify-Access-Token"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"order":{"id":820982911946154508,"name":"#1001"}}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", "shpat_token", 5*time.Second)
	id, err := client.CreateOrder(context.Background(), paidOrder())
	require.NoError(t, err)
	assert.Equal(t, "820982911946154508", id)

	order := got["order"]
	assert.Equal(t, "paid", order.FinancialStatus)
	assert.Equal(t, "a@b.com", order.Email)
	require.Len(t, order.LineItems, 2)
	assert.Equal(t, int64(4455), order.LineItems[0].VariantID)
	assert.Equal(t, 2, order.LineItems[0].Quantity)
	assert.Equal(t, "Gift wrap", order.LineItems[1].Title)
	assert.Equal(t, "500.00", order.LineItems[1].Price)
	require.Len(t, order.Transactions, 1)
	assert.Equal(t, "12500.00", order.Transactions[0].Amount)
	assert.Contains(t, order.Note, "R1")
}

func TestCreateOrder_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"errors":{"line_items":["is invalid"]}}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", "shpat_token", 5*time.Second)
	_, err := client.CreateOrder(context.Background(), paidOrder())
	assert.ErrorIs(t, err, ErrAPI)
}

func TestCreateOrder_NoItems(t *testing.T) {
	client := NewClient("shop.myshopify.com", "", "tok", time.Second)
	_, err := client.CreateOrder(context.Background(), domain.Order{Reference: "R1"})
	assert.Error(t, err)
	assert.Equal(t, "https://shop.myshopify.com/admin/api/2024-10", client.baseURL)
}
