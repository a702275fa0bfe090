package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

type PaymentGateway interface {
	InitializeTransaction(ctx context.Context, req domain.InitializeRequest) (domain.Authorization, error)

	// VerifyTransaction returns the provider's verdict; a non-nil error means
	// the verdict could not be obtained at all
	VerifyTransaction(ctx context.Context, reference string) (domain.Verification, error)

	ListBanks(ctx context.Context) ([]domain.Bank, error)

	// ParseWebhookEvent decodes an already authenticated webhook body
	ParseWebhookEvent(body []byte) (domain.WebhookEvent, error)
}

type FulfillmentService interface {
	// CreateOrder mirrors a paid order in the fulfillment system and returns its id there
	CreateOrder(ctx context.Context, order domain.Order) (string, error)
}
