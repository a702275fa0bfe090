package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/storefront/internal/core/domain"
)

//go:embed schema.sql
var schema string

var ErrOrderNotFound = errors.New("order not found")

type MySQLAdapter struct {
	db  *sql.DB
	now func() time.Time
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db, now: time.Now}
}

// Migrate creates the orders and carts tables if they do not exist.
func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = domain.PaymentStatusUnpaid
	}
	if order.Status == "" {
		order.Status = domain.OrderStatusPending
	}
	now := m.now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	items, err := json.Marshal(nonNilItems(order.Items))
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO orders (id, reference, user_id, email, currency, total, items,
			payment_status, status, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		order.ID, order.Reference, nullString(order.UserID), order.Email, order.Currency,
		order.Total.StringFixed(2), string(items), order.PaymentStatus, order.Status,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetOrderByReference(ctx context.Context, reference string) (*domain.Order, error) {
	var (
		o          domain.Order
		userID     sql.NullString
		externalID sql.NullString
		total      string
		items      []byte
		details    []byte
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT id, reference, user_id, email, currency, total, items, payment_status,
			status, payment_details, external_order_id, version, created_at, updated_at
		FROM orders WHERE reference = ?`, reference,
	).Scan(&o.ID, &o.Reference, &userID, &o.Email, &o.Currency, &total, &items,
		&o.PaymentStatus, &o.Status, &details, &externalID, &o.Version, &o.CreatedAt, &o.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	o.UserID = userID.String
	o.ExternalOrderID = externalID.String
	if err := o.Total.UnmarshalText([]byte(total)); err != nil {
		return nil, fmt.Errorf("decode total: %w", err)
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	if len(details) > 0 {
		o.PaymentDetails = new(domain.PaymentDetails)
		if err := json.Unmarshal(details, o.PaymentDetails); err != nil {
			return nil, fmt.Errorf("decode payment details: %w", err)
		}
	}
	return &o, nil
}

// MarkPaid only touches rows that are still unpaid, so concurrent deliveries
// for one reference see exactly one successful transition.
func (m *MySQLAdapter) MarkPaid(ctx context.Context, reference string, details domain.PaymentDetails) (bool, error) {
	encoded, err := json.Marshal(details)
	if err != nil {
		return false, fmt.Errorf("encode payment details: %w", err)
	}

	result, err := m.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = ?, status = ?, payment_details = ?, version = version + 1, updated_at = ?
		WHERE reference = ? AND payment_status = ?`,
		domain.PaymentStatusPaid, domain.OrderStatusProcessing, string(encoded), m.now().UTC(),
		reference, domain.PaymentStatusUnpaid,
	)
	if err != nil {
		return false, fmt.Errorf("update order: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rows == 1, nil
}

func (m *MySQLAdapter) SetExternalOrderID(ctx context.Context, reference, externalID string) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE orders
		SET external_order_id = ?, version = version + 1, updated_at = ?
		WHERE reference = ?`,
		externalID, m.now().UTC(), reference,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (m *MySQLAdapter) ClearCart(ctx context.Context, userID string) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE carts SET items = ?, updated_at = ? WHERE user_id = ?`,
		"[]", m.now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// SaveCart replaces the user's cart contents.
func (m *MySQLAdapter) SaveCart(ctx context.Context, cart domain.Cart) error {
	items, err := json.Marshal(nonNilItems(cart.Items))
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	_, err = m.db.ExecContext(ctx, `
		INSERT INTO carts (user_id, items, updated_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE items = VALUES(items), updated_at = VALUES(updated_at)`,
		cart.UserID, string(items), m.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var (
		cart  domain.Cart
		items []byte
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT user_id, items, updated_at FROM carts WHERE user_id = ?`, userID,
	).Scan(&cart.UserID, &items, &cart.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	if err := json.Unmarshal(items, &cart.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	return &cart, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNilItems(items []domain.LineItem) []domain.LineItem {
	if items == nil {
		return []domain.LineItem{}
	}
	return items
}
