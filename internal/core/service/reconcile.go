package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const fulfillmentKeyPrefix = "fulfillment:"

type Outcome string

const (
	// OutcomePaid means this call performed the unpaid→paid transition.
	OutcomePaid        Outcome = "paid"
	OutcomeAlreadyPaid Outcome = "already_paid"
	OutcomeFailed      Outcome = "payment_failed"
)

// EffectResult records how a best-effort side effect of a transition went.
// Errors in here are logged and never returned to the caller.
type EffectResult struct {
	Name    string
	Skipped bool
	Err     error
}

type Reconciliation struct {
	Outcome Outcome
	Order   *domain.Order
	Effects []EffectResult
}

// Reconciler applies gateway verdicts to orders.
type Reconciler struct {
	orders      port.OrderRepository
	carts       port.CartRepository
	cache       port.CacheRepository
	fulfillment port.FulfillmentService
	logger      *slog.Logger
	now         func() time.Time
}

// NewReconciler wires the state machine. fulfillment may be nil, in which case
// no external order is created.
func NewReconciler(orders port.OrderRepository, carts port.CartRepository, cache port.CacheRepository, fulfillment port.FulfillmentService, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		orders:      orders,
		carts:       carts,
		cache:       cache,
		fulfillment: fulfillment,
		logger:      logger,
		now:         time.Now,
	}
}

// Reconcile moves order to paid when v is a success. Only a failed persist is
// reported as an error; fulfillment and cart effects are best effort.
func (r *Reconciler) Reconcile(ctx context.Context, order *domain.Order, v domain.Verification) (Reconciliation, error) {
	if order.IsPaid() {
		return Reconciliation{Outcome: OutcomeAlreadyPaid, Order: order}, nil
	}
	if !v.Succeeded() {
		return Reconciliation{Outcome: OutcomeFailed, Order: order}, nil
	}

	details := r.paymentDetails(order.Reference, v)
	transitioned, err := r.orders.MarkPaid(ctx, order.Reference, details)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if !transitioned {
		// another delivery for the same reference got there first
		r.logger.InfoContext(ctx, "order already reconciled", "reference", order.Reference)
		return Reconciliation{Outcome: OutcomeAlreadyPaid, Order: r.reload(ctx, order)}, nil
	}

	paid := *order
	paid.PaymentStatus = domain.PaymentStatusPaid
	paid.Status = domain.OrderStatusProcessing
	paid.PaymentDetails = &details

	effects := []EffectResult{
		r.createExternalOrder(ctx, &paid),
		r.clearCart(ctx, &paid),
	}
	for _, e := range effects {
		if e.Err != nil {
			r.logger.ErrorContext(ctx, "side effect failed", "effect", e.Name, "reference", paid.Reference, "error", e.Err)
		}
	}

	r.logger.InfoContext(ctx, "order paid",
		"reference", paid.Reference,
		"amount", details.Amount.String(),
		"currency", details.Currency,
		"channel", details.Channel,
	)
	return Reconciliation{Outcome: OutcomePaid, Order: &paid, Effects: effects}, nil
}

// reload returns the stored order after a lost transition. If it cannot be
// read, the caller's copy is returned with the paid state applied.
func (r *Reconciler) reload(ctx context.Context, order *domain.Order) *domain.Order {
	current, err := r.orders.GetOrderByReference(ctx, order.Reference)
	if err == nil && current != nil && current.IsPaid() {
		return current
	}
	if err != nil {
		r.logger.WarnContext(ctx, "reload reconciled order", "reference", order.Reference, "error", err)
	}
	paid := *order
	paid.PaymentStatus = domain.PaymentStatusPaid
	paid.Status = domain.OrderStatusProcessing
	return &paid
}

func (r *Reconciler) paymentDetails(reference string, v domain.Verification) domain.PaymentDetails {
	ref := v.Reference
	if ref == "" {
		ref = reference
	}
	d := domain.PaymentDetails{
		Reference:     ref,
		Amount:        v.MajorAmount(),
		Currency:      v.Currency,
		Channel:       v.Channel,
		TransactionID: v.TransactionID,
		PaidAt:        r.now().UTC(),
	}
	if a := v.Authorization; a != nil {
		d.AuthorizationCode = a.Code
		d.CardLast4 = a.Last4
		d.CardBrand = a.Brand
	}
	return d
}

func (r *Reconciler) createExternalOrder(ctx context.Context, order *domain.Order) EffectResult {
	const name = "fulfillment_order"
	if r.fulfillment == nil || order.ExternalOrderID != "" {
		return EffectResult{Name: name, Skipped: true}
	}

	key := fulfillmentKeyPrefix + order.Reference
	ok, err := r.cache.SetIdempotency(ctx, key)
	if err != nil {
		// the paid transition above already has a single winner
		r.logger.WarnContext(ctx, "fulfillment claim unavailable", "reference", order.Reference, "error", err)
	} else if !ok {
		return EffectResult{Name: name, Skipped: true}
	}

	externalID, err := r.fulfillment.CreateOrder(ctx, *order)
	if err != nil {
		if releaseErr := r.cache.ReleaseIdempotency(ctx, key); releaseErr != nil {
			r.logger.WarnContext(ctx, "release fulfillment claim", "reference", order.Reference, "error", releaseErr)
		}
		return EffectResult{Name: name, Err: fmt.Errorf("create external order: %w", err)}
	}

	order.ExternalOrderID = externalID
	if err := r.orders.SetExternalOrderID(ctx, order.Reference, externalID); err != nil {
		return EffectResult{Name: name, Err: fmt.Errorf("store external order id: %w", err)}
	}
	return EffectResult{Name: name}
}

func (r *Reconciler) clearCart(ctx context.Context, order *domain.Order) EffectResult {
	const name = "clear_cart"
	if !order.HasOwner() {
		return EffectResult{Name: name, Skipped: true}
	}
	if err := r.carts.ClearCart(ctx, order.UserID); err != nil {
		return EffectResult{Name: name, Err: fmt.Errorf("clear cart: %w", err)}
	}
	return EffectResult{Name: name}
}
