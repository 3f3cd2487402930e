package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/ordercore/internal/domain"
	"github.com/vladislavdragonenkov/ordercore/internal/money"
)

// GetByOrderNumber читает заказ вместе с клиентом и позициями.
func (s *Store) GetByOrderNumber(ctx context.Context, orderNumber string) (domain.Order, error) {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		o                    domain.Order
		status               string
		subtotal, tax, total int64
	)
	err := s.db.QueryRowContext(queryCtx, `
		SELECT o.id, o.order_number, o.status, o.subtotal_cents, o.tax_cents, o.total_cents, o.created_at,
		       c.id, c.name, c.email, COALESCE(c.address, '')
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE o.order_number = $1
	`, orderNumber).Scan(
		&o.ID, &o.OrderNumber, &status, &subtotal, &tax, &total, &o.CreatedAt,
		&o.Customer.ID, &o.Customer.Name, &o.Customer.Email, &o.Customer.Address,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.OrderNotFound(orderNumber)
		}
		return domain.Order{}, fmt.Errorf("select order %s: %w", orderNumber, err)
	}
	o.Status = domain.OrderStatus(status)
	o.SubtotalCents = money.Cents(subtotal)
	o.TaxCents = money.Cents(tax)
	o.TotalCents = money.Cents(total)
	o.CreatedAt = o.CreatedAt.UTC()

	rows, err := s.db.QueryContext(queryCtx, `
		SELECT i.id, i.product_id, p.name, i.quantity, i.unit_price_cents, i.total_price_cents
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id = $1
		ORDER BY i.id
	`, o.ID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("select order items %s: %w", orderNumber, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item       domain.OrderItem
			unit, line int64
		)
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.Quantity, &unit, &line); err != nil {
			return domain.Order{}, fmt.Errorf("scan order item: %w", err)
		}
		item.UnitPriceCents = money.Cents(unit)
		item.TotalPriceCents = money.Cents(line)
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return domain.Order{}, fmt.Errorf("iterate order items: %w", err)
	}
	return o, nil
}

var _ domain.OrderReader = (*Store)(nil)
