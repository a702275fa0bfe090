// Package paystack talks to the Paystack REST API and maps its payloads onto
// the domain verification types.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
)

const DefaultBaseURL = "https://api.paystack.co"

var ErrAPI = errors.New("paystack api error")

type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type envelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type initializeBody struct {
	Email       string         `json:"email"`
	Amount      int64          `json:"amount"`
	Reference   string         `json:"reference,omitempty"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Channels    []string       `json:"channels,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type authorization struct {
	AuthorizationCode string `json:"authorization_code"`
	Last4             string `json:"last4"`
	CardType          string `json:"card_type"`
	Brand             string `json:"brand"`
	Bank              string `json:"bank"`
}

// transaction is the shape shared by verify responses and charge webhooks.
type transaction struct {
	ID              int64          `json:"id"`
	Status          string         `json:"status"`
	Reference       string         `json:"reference"`
	Amount          int64          `json:"amount"`
	Currency        string         `json:"currency"`
	Channel         string         `json:"channel"`
	GatewayResponse string         `json:"gateway_response"`
	PaidAt          *time.Time     `json:"paid_at"`
	Authorization   *authorization `json:"authorization"`
}

func (c *Client) InitializeTransaction(ctx context.Context, req domain.InitializeRequest) (domain.Authorization, error) {
	body := initializeBody{
		Email:       req.Email,
		Amount:      req.AmountMinor,
		Reference:   req.Reference,
		CallbackURL: req.CallbackURL,
		Channels:    req.Channels,
		Metadata:    req.Metadata,
	}

	var resp envelope[initializeData]
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &resp); err != nil {
		return domain.Authorization{}, fmt.Errorf("initialize transaction: %w", err)
	}

	return domain.Authorization{
		AuthorizationURL: resp.Data.AuthorizationURL,
		AccessCode:       resp.Data.AccessCode,
		Reference:        resp.Data.Reference,
	}, nil
}

func (c *Client) VerifyTransaction(ctx context.Context, reference string) (domain.Verification, error) {
	var resp envelope[transaction]
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &resp); err != nil {
		return domain.Verification{}, fmt.Errorf("verify transaction: %w", err)
	}
	return toVerification(resp.Data), nil
}

func (c *Client) ListBanks(ctx context.Context) ([]domain.Bank, error) {
	var resp envelope[[]domain.Bank]
	if err := c.do(ctx, http.MethodGet, "/bank", nil, &resp); err != nil {
		return nil, fmt.Errorf("list banks: %w", err)
	}
	return resp.Data, nil
}

// ParseWebhookEvent decodes a webhook body. Authentication happens before this
// is called.
func (c *Client) ParseWebhookEvent(body []byte) (domain.WebhookEvent, error) {
	var raw struct {
		Event string      `json:"event"`
		Data  transaction `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.WebhookEvent{}, fmt.Errorf("decode webhook: %w", err)
	}
	if raw.Event == "" {
		return domain.WebhookEvent{}, errors.New("decode webhook: missing event")
	}
	return domain.WebhookEvent{Event: raw.Event, Verification: toVerification(raw.Data)}, nil
}

func toVerification(t transaction) domain.Verification {
	v := domain.Verification{
		Status:          domain.VerificationStatus(t.Status),
		Reference:       t.Reference,
		AmountMinor:     t.Amount,
		Currency:        t.Currency,
		Channel:         t.Channel,
		TransactionID:   t.ID,
		GatewayResponse: t.GatewayResponse,
	}
	if t.PaidAt != nil {
		v.PaidAt = *t.PaidAt
	}
	if !v.Succeeded() {
		v.FailureReason = t.GatewayResponse
	}
	if a := t.Authorization; a != nil {
		brand := a.CardType
		if brand == "" {
			brand = a.Brand
		}
		v.Authorization = &domain.CardAuthorization{
			Code:  a.AuthorizationCode,
			Last4: a.Last4,
			Brand: strings.TrimSpace(brand),
			Bank:  a.Bank,
		}
	}
	return v
}

func (c *Client) do(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var status struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &status)

	if resp.StatusCode >= http.StatusBadRequest || !status.Status {
		msg := status.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%w: %d %s", ErrAPI, resp.StatusCode, msg)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
