package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/ordercore/internal/domain"
	"github.com/vladislavdragonenkov/ordercore/internal/money"
)

// pgTx — транзакция заказа поверх *sql.Tx с identity map заблокированных строк.
type pgTx struct {
	tx     *sql.Tx
	locked map[int64]*domain.Product
	closed bool
}

func (t *pgTx) GetCustomer(ctx context.Context, id int64) (domain.Customer, error) {
	var c domain.Customer
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, name, email, COALESCE(address, '')
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Email, &c.Address)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, domain.CustomerNotFound(id)
		}
		return domain.Customer{}, classify("select customer", err)
	}
	return c, nil
}

func (t *pgTx) LockProduct(ctx context.Context, id int64) (*domain.Product, error) {
	if p, ok := t.locked[id]; ok {
		return p, nil
	}

	var (
		p     domain.Product
		price int64
	)
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(sku, ''), price_cents, inventory_quantity
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&p.ID, &p.Name, &p.SKU, &price, &p.Quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ProductNotFound(id)
		}
		return nil, classify(fmt.Sprintf("lock product %d", id), err)
	}
	p.PriceCents = money.Cents(price)

	t.locked[id] = &p
	return &p, nil
}

func (t *pgTx) SaveProduct(ctx context.Context, p *domain.Product) error {
	if _, ok := t.locked[p.ID]; !ok {
		return fmt.Errorf("product %d is not locked by this transaction", p.ID)
	}

	res, err := t.tx.ExecContext(ctx, `
		UPDATE products
		SET inventory_quantity = $2, updated_at = NOW()
		WHERE id = $1
	`, p.ID, p.Quantity)
	if err != nil {
		return classify(fmt.Sprintf("update product %d", p.ID), err)
	}
	if n, err := res.RowsAffected(); err == nil && n != 1 {
		return domain.ProductNotFound(p.ID)
	}
	return nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o *domain.Order) error {
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			order_number, customer_id, status, subtotal_cents, tax_cents, total_cents, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`,
		o.OrderNumber, o.Customer.ID, string(o.Status),
		int64(o.SubtotalCents), int64(o.TaxCents), int64(o.TotalCents), o.CreatedAt,
	).Scan(&o.ID)
	if err != nil {
		return classify("insert order", err)
	}

	for i := range o.Items {
		item := &o.Items[i]
		if err := t.tx.QueryRowContext(ctx, `
			INSERT INTO order_items (
				order_id, product_id, quantity, unit_price_cents, total_price_cents
			) VALUES ($1,$2,$3,$4,$5)
			RETURNING id
		`,
			o.ID, item.ProductID, item.Quantity, int64(item.UnitPriceCents), int64(item.TotalPriceCents),
		).Scan(&item.ID); err != nil {
			return classify("insert order item", err)
		}
	}
	return nil
}

func (t *pgTx) Commit(_ context.Context) error {
	if t.closed {
		return sql.ErrTxDone
	}
	t.closed = true
	if err := t.tx.Commit(); err != nil {
		return classify("commit", err)
	}
	return nil
}

func (t *pgTx) Rollback(_ context.Context) error {
	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

var _ domain.Tx = (*pgTx)(nil)
