package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"strings"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const (
	WebhookReceived  = "Webhook received"
	WebhookProcessed = "Webhook processed"
)

// Config holds the settings the payment flow needs. It is built once at
// startup from the process configuration.
type Config struct {
	CallbackURL   string
	FrontendURL   string
	WebhookSecret string
	Channels      []string
}

type InitializeInput struct {
	Email      string
	Amount     any
	AmountUnit domain.AmountUnit
	Reference  string
	OrderID    string
	Metadata   map[string]any
}

type PaymentService struct {
	cfg        Config
	gateway    port.PaymentGateway
	orders     port.OrderRepository
	cache      port.CacheRepository
	reconciler *Reconciler
	logger     *slog.Logger
}

func NewPaymentService(cfg Config, gateway port.PaymentGateway, orders port.OrderRepository, cache port.CacheRepository, reconciler *Reconciler, logger *slog.Logger) *PaymentService {
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	return &PaymentService{
		cfg:        cfg,
		gateway:    gateway,
		orders:     orders,
		cache:      cache,
		reconciler: reconciler,
		logger:     logger,
	}
}

func (s *PaymentService) Initialize(ctx context.Context, in InitializeInput) (domain.Authorization, error) {
	if in.Email == "" || in.Amount == nil || in.OrderID == "" {
		return domain.Authorization{}, fmt.Errorf("%w: email, amount and orderId are required", ErrInvalidInput)
	}

	minor, err := ToMinorUnits(in.Amount, in.AmountUnit)
	if err != nil {
		return domain.Authorization{}, err
	}

	reference := in.Reference
	if reference == "" {
		reference = NewReference()
	}

	metadata := make(map[string]any, len(in.Metadata)+1)
	metadata["order_id"] = in.OrderID
	maps.Copy(metadata, in.Metadata)

	s.logger.InfoContext(ctx, "initializing payment", "reference", reference, "amount_minor", minor, "order_id", in.OrderID)

	auth, err := s.gateway.InitializeTransaction(ctx, domain.InitializeRequest{
		Email:       in.Email,
		AmountMinor: minor,
		Reference:   reference,
		CallbackURL: s.cfg.CallbackURL,
		Channels:    s.cfg.Channels,
		Metadata:    metadata,
	})
	if err != nil {
		return domain.Authorization{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if auth.Reference == "" {
		auth.Reference = reference
	}
	return auth, nil
}

// Verify is the synchronous verification path. It returns the order in its
// paid state, or one of ErrOrderNotFound, ErrUpstream, ErrPaymentFailed and
// ErrPersistence.
func (s *PaymentService) Verify(ctx context.Context, reference string) (*domain.Order, error) {
	if reference == "" {
		return nil, fmt.Errorf("%w: reference is required", ErrInvalidInput)
	}

	order, err := s.loadOrder(ctx, reference)
	if err != nil {
		return nil, err
	}
	if order.IsPaid() {
		return order, nil
	}

	v, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	rec, err := s.reconciler.Reconcile(ctx, order, v)
	if err != nil {
		return nil, err
	}
	if rec.Outcome == OutcomeFailed {
		s.logger.InfoContext(ctx, "payment not successful", "reference", reference, "status", v.Status, "reason", v.FailureReason)
		return nil, fmt.Errorf("%w: status %s", ErrPaymentFailed, v.Status)
	}
	return rec.Order, nil
}

// Callback handles the browser redirect back from the provider and returns
// the frontend URL to send the shopper to.
func (s *PaymentService) Callback(ctx context.Context, reference, trxref string) string {
	if reference == "" {
		s.logger.WarnContext(ctx, "callback without reference", "trxref", trxref)
		return s.frontend("/payment-failed", nil)
	}
	failed := s.frontend("/payment-failed", url.Values{"reference": {reference}})

	order, err := s.loadOrder(ctx, reference)
	if err != nil {
		s.logger.ErrorContext(ctx, "callback order lookup", "reference", reference, "error", err)
		return s.frontend("/payment-failed", nil)
	}
	if order.IsPaid() {
		return s.frontend("/order-details/"+url.PathEscape(order.ID), nil)
	}

	v, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		s.logger.ErrorContext(ctx, "callback verification", "reference", reference, "error", err)
		return failed
	}

	rec, err := s.reconciler.Reconcile(ctx, order, v)
	if err != nil {
		s.logger.ErrorContext(ctx, "callback reconciliation", "reference", reference, "error", err)
		return failed
	}
	switch rec.Outcome {
	case OutcomeFailed:
		return failed
	case OutcomeAlreadyPaid:
		return s.frontend("/order-details/"+url.PathEscape(order.ID), nil)
	}
	return s.frontend("/user-account", url.Values{
		"tab":     {"orders"},
		"success": {"true"},
		"order":   {order.Reference},
	})
}

// Webhook authenticates and applies a provider event. The only error it
// returns is ErrInvalidSignature; anything else is acknowledged so the
// provider does not retry.
func (s *PaymentService) Webhook(ctx context.Context, body []byte, signature string) (string, error) {
	if !VerifySignature(s.cfg.WebhookSecret, body, signature) {
		return "", ErrInvalidSignature
	}

	if err := s.processWebhook(ctx, body); err != nil {
		s.logger.ErrorContext(ctx, "webhook processing", "error", err)
		return WebhookProcessed, nil
	}
	return WebhookReceived, nil
}

func (s *PaymentService) processWebhook(ctx context.Context, body []byte) error {
	event, err := s.gateway.ParseWebhookEvent(body)
	if err != nil {
		return fmt.Errorf("parse event: %w", err)
	}
	if event.Event != domain.EventChargeSuccess {
		s.logger.DebugContext(ctx, "ignoring webhook event", "event", event.Event)
		return nil
	}

	// charge.success is itself the success signal
	if event.Verification.Status == "" {
		event.Verification.Status = domain.VerificationSuccess
	}

	reference := event.Verification.Reference
	order, err := s.loadOrder(ctx, reference)
	if errors.Is(err, ErrOrderNotFound) {
		s.logger.WarnContext(ctx, "webhook for unknown order", "reference", reference)
		return nil
	}
	if err != nil {
		return err
	}

	rec, err := s.reconciler.Reconcile(ctx, order, event.Verification)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "webhook reconciled", "reference", reference, "outcome", rec.Outcome)
	return nil
}

// Banks lists the provider's banks, served from cache when possible.
func (s *PaymentService) Banks(ctx context.Context) ([]domain.Bank, error) {
	banks, ok, err := s.cache.GetBanks(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "bank cache read", "error", err)
	} else if ok {
		return banks, nil
	}

	banks, err = s.gateway.ListBanks(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if err := s.cache.SetBanks(ctx, banks); err != nil {
		s.logger.WarnContext(ctx, "bank cache write", "error", err)
	}
	return banks, nil
}

func (s *PaymentService) loadOrder(ctx context.Context, reference string) (*domain.Order, error) {
	order, err := s.orders.GetOrderByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *PaymentService) frontend(path string, query url.Values) string {
	u := s.cfg.FrontendURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}
