package memory

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/ordercore/internal/domain"
)

// memoryTx копит изменения и применяет их к Store атомарно при Commit.
type memoryTx struct {
	store *Store
	// locked — identity map заблокированных товаров.
	locked map[int64]*domain.Product
	staged map[int64]domain.Product
	orders []domain.Order
	closed bool
}

func (tx *memoryTx) GetCustomer(_ context.Context, id int64) (domain.Customer, error) {
	if tx.closed {
		return domain.Customer{}, ErrTxClosed
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()

	c, ok := tx.store.customers[id]
	if !ok {
		return domain.Customer{}, domain.CustomerNotFound(id)
	}
	return c, nil
}

func (tx *memoryTx) LockProduct(ctx context.Context, id int64) (*domain.Product, error) {
	if tx.closed {
		return nil, ErrTxClosed
	}
	if p, ok := tx.locked[id]; ok {
		return p, nil
	}

	// Несуществующую строку заблокировать нельзя, канал под неё не заводим.
	tx.store.mu.RLock()
	_, exists := tx.store.products[id]
	tx.store.mu.RUnlock()
	if !exists {
		return nil, domain.ProductNotFound(id)
	}

	if err := tx.store.acquire(ctx, id); err != nil {
		return nil, err
	}

	tx.store.mu.RLock()
	p, ok := tx.store.products[id]
	tx.store.mu.RUnlock()
	if !ok {
		tx.store.release(id)
		return nil, domain.ProductNotFound(id)
	}

	locked := p
	tx.locked[id] = &locked
	return &locked, nil
}

func (tx *memoryTx) SaveProduct(_ context.Context, p *domain.Product) error {
	if tx.closed {
		return ErrTxClosed
	}
	if _, ok := tx.locked[p.ID]; !ok {
		return fmt.Errorf("memory: product %d is not locked by this transaction", p.ID)
	}
	if p.Quantity < 0 {
		return fmt.Errorf("%w: product %d: %w", domain.ErrPersistenceConflict, p.ID, domain.ErrNegativeStock)
	}
	tx.staged[p.ID] = *p
	return nil
}

func (tx *memoryTx) InsertOrder(_ context.Context, o *domain.Order) error {
	if tx.closed {
		return ErrTxClosed
	}

	tx.store.mu.RLock()
	_, customerExists := tx.store.customers[o.Customer.ID]
	_, duplicate := tx.store.orders[o.OrderNumber]
	tx.store.mu.RUnlock()

	if !customerExists {
		return fmt.Errorf("%w: order %s references missing customer %d",
			domain.ErrPersistenceConflict, o.OrderNumber, o.Customer.ID)
	}
	for _, staged := range tx.orders {
		if staged.OrderNumber == o.OrderNumber {
			duplicate = true
		}
	}
	if duplicate {
		return fmt.Errorf("%w: duplicate order number %s", domain.ErrPersistenceConflict, o.OrderNumber)
	}

	o.ID = tx.store.nextOrderID.Add(1)
	for i := range o.Items {
		o.Items[i].ID = tx.store.nextItemID.Add(1)
	}
	tx.orders = append(tx.orders, cloneOrder(*o))
	return nil
}

func (tx *memoryTx) Commit(_ context.Context) error {
	if tx.closed {
		return ErrTxClosed
	}

	s := tx.store
	s.mu.Lock()
	for _, o := range tx.orders {
		if _, exists := s.orders[o.OrderNumber]; exists {
			s.mu.Unlock()
			tx.finish()
			return fmt.Errorf("%w: duplicate order number %s", domain.ErrPersistenceConflict, o.OrderNumber)
		}
	}
	for id, p := range tx.staged {
		s.products[id] = p
	}
	for _, o := range tx.orders {
		s.orders[o.OrderNumber] = o
	}
	s.mu.Unlock()

	tx.finish()
	return nil
}

func (tx *memoryTx) Rollback(_ context.Context) error {
	if tx.closed {
		return nil
	}
	tx.finish()
	return nil
}

// finish снимает все блокировки строк и закрывает транзакцию.
func (tx *memoryTx) finish() {
	tx.closed = true
	for id := range tx.locked {
		tx.store.release(id)
	}
	tx.locked = nil
	tx.staged = nil
	tx.orders = nil
}

var _ domain.Tx = (*memoryTx)(nil)
