package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/storefront/internal/core/domain"
)

// MemoryAdapter keeps orders, carts and cache entries in process memory. It
// backs `serve --memory` for local development and the service tests.
type MemoryAdapter struct {
	mu          sync.Mutex
	orders      map[string]domain.Order
	carts       map[string]domain.Cart
	idempotency map[string]bool
	banks       []domain.Bank
	banksSet    bool
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		orders:      make(map[string]domain.Order),
		carts:       make(map[string]domain.Cart),
		idempotency: make(map[string]bool),
	}
}

func (m *MemoryAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = domain.PaymentStatusUnpaid
	}
	if order.Status == "" {
		order.Status = domain.OrderStatusPending
	}
	now := time.Now().UTC()
	order.CreatedAt, order.UpdatedAt = now, now
	m.orders[order.Reference] = order
	return nil
}

func (m *MemoryAdapter) GetOrderByReference(ctx context.Context, reference string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[reference]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *MemoryAdapter) MarkPaid(ctx context.Context, reference string, details domain.PaymentDetails) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[reference]
	if !ok || o.PaymentStatus != domain.PaymentStatusUnpaid {
		return false, nil
	}
	o.PaymentStatus = domain.PaymentStatusPaid
	o.Status = domain.OrderStatusProcessing
	o.PaymentDetails = &details
	o.Version++
	o.UpdatedAt = time.Now().UTC()
	m.orders[reference] = o
	return true, nil
}

func (m *MemoryAdapter) SetExternalOrderID(ctx context.Context, reference, externalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[reference]
	if !ok {
		return ErrOrderNotFound
	}
	o.ExternalOrderID = externalID
	o.Version++
	m.orders[reference] = o
	return nil
}

func (m *MemoryAdapter) SaveCart(ctx context.Context, cart domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart.UpdatedAt = time.Now().UTC()
	m.carts[cart.UserID] = cart
	return nil
}

func (m *MemoryAdapter) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.carts[userID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *MemoryAdapter) ClearCart(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.carts[userID]
	if !ok {
		return nil
	}
	c.Items = []domain.LineItem{}
	c.UpdatedAt = time.Now().UTC()
	m.carts[userID] = c
	return nil
}

func (m *MemoryAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.idempotency[key] {
		return false, nil
	}
	m.idempotency[key] = true
	return true, nil
}

func (m *MemoryAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.idempotency, key)
	return nil
}

func (m *MemoryAdapter) GetBanks(ctx context.Context) ([]domain.Bank, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.banks, m.banksSet, nil
}

func (m *MemoryAdapter) SetBanks(ctx context.Context, banks []domain.Bank) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.banks, m.banksSet = banks, true
	return nil
}
