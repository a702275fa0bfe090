package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

type OrderRepository interface {
	// CreateOrder persists a new unpaid order
	CreateOrder(ctx context.Context, order domain.Order) error

	// GetOrderByReference returns nil, nil when no order carries the reference
	GetOrderByReference(ctx context.Context, reference string) (*domain.Order, error)

	// MarkPaid moves an unpaid order to paid/processing, returns false if the
	// order was no longer unpaid
	MarkPaid(ctx context.Context, reference string, details domain.PaymentDetails) (bool, error)

	// SetExternalOrderID records the fulfillment provider's order id
	SetExternalOrderID(ctx context.Context, reference, externalID string) error
}

type CartRepository interface {
	// ClearCart empties the user's cart; the cart row itself is kept
	ClearCart(ctx context.Context, userID string) error
}
