// Package inventory реализует складской учёт на уровне строк товаров.
package inventory

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/ordercore/internal/domain"
)

// Ledger списывает остатки под блокировкой строки в рамках транзакции вызывающего.
type Ledger struct {
	logger *log.Entry
	tracer trace.Tracer
}

// NewLedger создаёт Ledger. nil-логгер заменяется стандартным.
func NewLedger(logger *log.Entry) *Ledger {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Ledger{
		logger: logger.WithField("component", "inventory-ledger"),
		tracer: otel.Tracer("ordercore/inventory"),
	}
}

// ReserveAndDecrement блокирует товар, проверяет остаток и уменьшает его в
// памяти транзакции. Запись изменения выполняет вызывающий через tx.SaveProduct.
// Блокировка держится до Commit/Rollback транзакции.
func (l *Ledger) ReserveAndDecrement(ctx context.Context, tx domain.Tx, productID int64, qty int32) (*domain.Product, error) {
	ctx, span := l.tracer.Start(ctx, "inventory.reserve", trace.WithAttributes(
		attribute.Int64("product.id", productID),
		attribute.Int("quantity", int(qty)),
	))
	defer span.End()

	if qty <= 0 {
		err := fmt.Errorf("%w: quantity must be positive, got %d", domain.ErrInvalidArgument, qty)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	product, err := tx.LockProduct(ctx, productID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock product")
		return nil, err
	}

	if product.Quantity < qty {
		l.logger.WithFields(log.Fields{
			"product_id": productID,
			"available":  product.Quantity,
			"requested":  qty,
		}).Debug("insufficient inventory")
		err := &domain.InsufficientInventoryError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Available:   product.Quantity,
			Requested:   qty,
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	product.Quantity -= qty
	span.SetAttributes(attribute.Int("quantity.remaining", int(product.Quantity)))
	return product, nil
}
