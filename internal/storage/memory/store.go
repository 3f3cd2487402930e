// Package memory содержит in-memory реализацию хранилища заказов для
// локальной разработки и тестов. Семантика блокировок повторяет
// SELECT ... FOR UPDATE: блокировка строки товара держится до конца транзакции.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vladislavdragonenkov/ordercore/internal/domain"
)

// DefaultLockTimeout — сколько транзакция ждёт блокировку строки товара.
const DefaultLockTimeout = 5 * time.Second

// ErrTxClosed возвращается при обращении к уже завершённой транзакции.
var ErrTxClosed = errors.New("memory: transaction already committed or rolled back")

// Option настраивает Store.
type Option func(*Store)

// WithLockTimeout задаёт таймаут ожидания блокировки строки.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// Store хранит клиентов, товары и заказы в памяти процесса.
type Store struct {
	mu        sync.RWMutex
	customers map[int64]domain.Customer
	products  map[int64]domain.Product
	orders    map[string]domain.Order

	locksMu sync.Mutex
	locks   map[int64]chan struct{}

	lockTimeout time.Duration

	nextCustomerID atomic.Int64
	nextProductID  atomic.Int64
	nextOrderID    atomic.Int64
	nextItemID     atomic.Int64
}

// NewStore создаёт пустое хранилище.
func NewStore(opts ...Option) *Store {
	s := &Store{
		customers:   make(map[int64]domain.Customer),
		products:    make(map[int64]domain.Product),
		orders:      make(map[string]domain.Order),
		locks:       make(map[int64]chan struct{}),
		lockTimeout: DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddCustomer регистрирует клиента. Нулевой ID назначается автоматически.
func (s *Store) AddCustomer(c domain.Customer) domain.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == 0 {
		c.ID = s.nextCustomerID.Add(1)
	} else if c.ID > s.nextCustomerID.Load() {
		s.nextCustomerID.Store(c.ID)
	}
	s.customers[c.ID] = c
	return c
}

// AddProduct регистрирует товар. Нулевой ID назначается автоматически.
func (s *Store) AddProduct(p domain.Product) domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == 0 {
		p.ID = s.nextProductID.Add(1)
	} else if p.ID > s.nextProductID.Load() {
		s.nextProductID.Store(p.ID)
	}
	s.products[p.ID] = p
	return p
}

// Product возвращает зафиксированное состояние товара.
func (s *Store) Product(id int64) (domain.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	return p, ok
}

// OrderCount возвращает число зафиксированных заказов.
func (s *Store) OrderCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

// Begin открывает транзакцию.
func (s *Store) Begin(ctx context.Context) (domain.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryTx{
		store:  s,
		locked: make(map[int64]*domain.Product),
		staged: make(map[int64]domain.Product),
	}, nil
}

// GetByOrderNumber возвращает зафиксированный заказ по его номеру.
func (s *Store) GetByOrderNumber(_ context.Context, orderNumber string) (domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[orderNumber]
	if !ok {
		return domain.Order{}, domain.OrderNotFound(orderNumber)
	}
	return cloneOrder(order), nil
}

// rowLock возвращает канал-мьютекс строки товара, создавая его при первом обращении.
func (s *Store) rowLock(productID int64) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	ch, ok := s.locks[productID]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[productID] = ch
	}
	return ch
}

// acquire ждёт блокировку строки не дольше lockTimeout.
func (s *Store) acquire(ctx context.Context, productID int64) error {
	ch := s.rowLock(productID)

	select {
	case ch <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w: lock wait timeout on product %d", domain.ErrPersistenceConflict, productID)
	}
}

func (s *Store) release(productID int64) {
	<-s.rowLock(productID)
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return o
}

var (
	_ domain.TxManager   = (*Store)(nil)
	_ domain.OrderReader = (*Store)(nil)
)
