// Package shopify creates orders in a Shopify store through the Admin REST API
// once payment has been confirmed elsewhere.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
)

const DefaultAPIVersion = "2024-10"

var ErrAPI = errors.New("shopify api error")

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient targets https://<store>/admin/api/<version>. store may be a full
// URL, which tests use to point at a local server.
func NewClient(store, apiVersion, token string, timeout time.Duration) *Client {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	base := strings.TrimRight(store, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return &Client{
		baseURL:    base + "/admin/api/" + apiVersion,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type lineItem struct {
	VariantID int64  `json:"variant_id,omitempty"`
	Title     string `json:"title,omitempty"`
	Price     string `json:"price,omitempty"`
	Quantity  int    `json:"quantity"`
}

type orderTransaction struct {
	Kind    string `json:"kind"`
	Status  string `json:"status"`
	Amount  string `json:"amount"`
	Gateway string `json:"gateway"`
}

type orderPayload struct {
	Email           string             `json:"email"`
	Currency        string             `json:"currency,omitempty"`
	FinancialStatus string             `json:"financial_status"`
	LineItems       []lineItem         `json:"line_items"`
	Transactions    []orderTransaction `json:"transactions,omitempty"`
	Note            string             `json:"note,omitempty"`
	Tags            string             `json:"tags,omitempty"`
}

func (c *Client) CreateOrder(ctx context.Context, order domain.Order) (string, error) {
	if len(order.Items) == 0 {
		return "", errors.New("create order: no line items")
	}

	payload := orderPayload{
		Email:           order.Email,
		Currency:        order.Currency,
		FinancialStatus: "paid",
		Note:            "Paystack reference " + order.Reference,
		Tags:            "paystack",
	}
	for _, it := range order.Items {
		payload.LineItems = append(payload.LineItems, toLineItem(it))
	}
	if d := order.PaymentDetails; d != nil {
		payload.Transactions = []orderTransaction{{
			Kind:    "sale",
			Status:  "success",
			Amount:  d.Amount.StringFixed(2),
			Gateway: "paystack",
		}}
		if payload.Currency == "" {
			payload.Currency = d.Currency
		}
	}

	raw, err := json.Marshal(map[string]orderPayload{"order": payload})
	if err != nil {
		return "", fmt.Errorf("encode order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders.json", bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %d %s", ErrAPI, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var created struct {
		Order struct {
			ID int64 `json:"id"`
		} `json:"order"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if created.Order.ID == 0 {
		return "", fmt.Errorf("%w: response without order id", ErrAPI)
	}
	return strconv.FormatInt(created.Order.ID, 10), nil
}

// toLineItem prefers the variant id; storefront ids arrive as
// gid://shopify/ProductVariant/<n> and only the trailing number is accepted.
func toLineItem(it domain.LineItem) lineItem {
	li := lineItem{Quantity: it.Quantity}
	if id, err := strconv.ParseInt(it.VariantID[strings.LastIndex(it.VariantID, "/")+1:], 10, 64); err == nil {
		li.VariantID = id
		return li
	}
	li.Title = it.Title
	li.Price = it.Price.StringFixed(2)
	return li
}
