package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type LineItem struct {
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id,omitempty"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// PaymentDetails is the captured payment as recorded on the order. Amount is
// in major currency units.
type PaymentDetails struct {
	Reference         string          `json:"reference"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Channel           string          `json:"channel"`
	TransactionID     int64           `json:"transaction_id"`
	PaidAt            time.Time       `json:"paid_at"`
	AuthorizationCode string          `json:"authorization_code,omitempty"`
	CardLast4         string          `json:"card_last4,omitempty"`
	CardBrand         string          `json:"card_brand,omitempty"`
}

type Order struct {
	ID              string
	Reference       string
	UserID          string // empty for guest checkouts
	Email           string
	Currency        string
	Total           decimal.Decimal
	Items           []LineItem
	PaymentStatus   PaymentStatus
	Status          OrderStatus
	PaymentDetails  *PaymentDetails
	ExternalOrderID string // fulfillment provider order id, set once created
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}

func (o *Order) HasOwner() bool {
	return o.UserID != ""
}
