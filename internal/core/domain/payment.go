package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type VerificationStatus string

const (
	VerificationSuccess   VerificationStatus = "success"
	VerificationFailed    VerificationStatus = "failed"
	VerificationAbandoned VerificationStatus = "abandoned"
	VerificationPending   VerificationStatus = "pending"
	VerificationReversed  VerificationStatus = "reversed"
)

type CardAuthorization struct {
	Code  string
	Last4 string
	Brand string
	Bank  string
}

// Verification is the gateway's verdict on a single transaction. Amounts are
// in minor units. FailureReason carries the provider message for anything
// other than a success.
type Verification struct {
	Status          VerificationStatus
	Reference       string
	AmountMinor     int64
	Currency        string
	Channel         string
	TransactionID   int64
	GatewayResponse string
	FailureReason   string
	PaidAt          time.Time
	Authorization   *CardAuthorization
}

func (v Verification) Succeeded() bool {
	return v.Status == VerificationSuccess
}

// MajorAmount converts the minor-unit amount back to major units.
func (v Verification) MajorAmount() decimal.Decimal {
	return decimal.New(v.AmountMinor, -2)
}

const EventChargeSuccess = "charge.success"

type WebhookEvent struct {
	Event        string
	Verification Verification
}

type AmountUnit string

const (
	AmountUnitAuto  AmountUnit = ""
	AmountUnitMajor AmountUnit = "major"
	AmountUnitMinor AmountUnit = "minor"
)

type InitializeRequest struct {
	Email       string
	AmountMinor int64
	Reference   string
	CallbackURL string
	Channels    []string
	Metadata    map[string]any
}

type Authorization struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

type Bank struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	Slug     string `json:"slug"`
	Type     string `json:"type"`
	Currency string `json:"currency"`
	Country  string `json:"country"`
}
