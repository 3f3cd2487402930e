package postgres

import (
	"context"
	"time"

	"github.com/vladislavdragonenkov/ordercore/internal/domain"
	"github.com/vladislavdragonenkov/ordercore/internal/service/sequence"
)

// SequenceGenerator выдаёт номера заказов из order_number_seq. Значения
// монотонны между рестартами и общими для всех экземпляров сервиса.
type SequenceGenerator struct {
	store *Store
	now   func() time.Time
}

// NewSequenceGenerator создаёт генератор поверх Store.
func NewSequenceGenerator(store *Store, now func() time.Time) *SequenceGenerator {
	if now == nil {
		now = time.Now
	}
	return &SequenceGenerator{store: store, now: now}
}

// Next выполняет nextval вне транзакции заказа: откат заказа оставляет
// пропуск в нумерации.
func (g *SequenceGenerator) Next(ctx context.Context) (string, error) {
	var seq int64
	if err := g.store.db.QueryRowContext(ctx, `SELECT nextval('order_number_seq')`).Scan(&seq); err != nil {
		return "", classify("next order number", err)
	}
	return sequence.Format(g.now().Year(), seq), nil
}

var _ domain.OrderIDGenerator = (*SequenceGenerator)(nil)
