package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/ordercore/internal/domain"
	"github.com/vladislavdragonenkov/ordercore/internal/money"
)

// InsertCustomer добавляет клиента и возвращает присвоенный id.
// Используется сидингом и тестами, управление каталогом вне сервиса.
func (s *Store) InsertCustomer(ctx context.Context, c domain.Customer) (int64, error) {
	var address sql.NullString
	if c.Address != "" {
		address = sql.NullString{String: c.Address, Valid: true}
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO customers (name, email, address)
		VALUES ($1, $2, $3)
		RETURNING id
	`, c.Name, c.Email, address).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: customer email %q already exists", domain.ErrInvalidArgument, c.Email)
		}
		return 0, fmt.Errorf("insert customer: %w", err)
	}
	return id, nil
}

// InsertProduct добавляет товар и возвращает присвоенный id.
func (s *Store) InsertProduct(ctx context.Context, p domain.Product) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO products (name, sku, price_cents, inventory_quantity)
		VALUES ($1, NULLIF($2, ''), $3, $4)
		RETURNING id
	`, p.Name, p.SKU, int64(p.PriceCents), p.Quantity).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: product sku %q already exists", domain.ErrInvalidArgument, p.SKU)
		}
		return 0, fmt.Errorf("insert product: %w", err)
	}
	return id, nil
}

// GetProduct читает товар без блокировки.
func (s *Store) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	var (
		p     domain.Product
		price int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(sku, ''), price_cents, inventory_quantity
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.SKU, &price, &p.Quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ProductNotFound(id)
		}
		return domain.Product{}, fmt.Errorf("select product %d: %w", id, err)
	}
	p.PriceCents = money.Cents(price)
	return p, nil
}
