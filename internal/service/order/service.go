// Package order реализует транзакционное создание заказов и путь чтения.
package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/ordercore/internal/domain"
	"github.com/vladislavdragonenkov/ordercore/internal/metrics"
	"github.com/vladislavdragonenkov/ordercore/internal/money"
	"github.com/vladislavdragonenkov/ordercore/internal/service/inventory"
)

// ServiceOptions задаёт необязательные зависимости сервиса.
type ServiceOptions struct {
	Logger   *log.Entry
	Metrics  *metrics.OrderMetrics
	Cache    domain.OrderCache
	Retry    RetryConfig
	Clock    func() time.Time
	Notifier domain.CompletionNotifier
}

// Option настраивает Service.
type Option func(*ServiceOptions)

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(opts *ServiceOptions) {
		opts.Logger = logger
	}
}

// WithMetrics задаёт метрики.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(opts *ServiceOptions) {
		opts.Metrics = m
	}
}

// WithCache включает кэш снимков заказов на пути чтения.
func WithCache(cache domain.OrderCache) Option {
	return func(opts *ServiceOptions) {
		opts.Cache = cache
	}
}

// WithRetryConfig задаёт политику повтора транзакции.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(opts *ServiceOptions) {
		opts.Retry = cfg
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(clock func() time.Time) Option {
	return func(opts *ServiceOptions) {
		opts.Clock = clock
	}
}

// WithNotifier задаёт получателя сигналов о зафиксированных заказах.
func WithNotifier(n domain.CompletionNotifier) Option {
	return func(opts *ServiceOptions) {
		opts.Notifier = n
	}
}

// Service координирует транзакцию создания заказа.
type Service struct {
	txm      domain.TxManager
	reader   domain.OrderReader
	ids      domain.OrderIDGenerator
	ledger   *inventory.Ledger
	notifier domain.CompletionNotifier
	cache    domain.OrderCache
	metrics  *metrics.OrderMetrics
	retry    RetryConfig
	now      func() time.Time
	logger   *log.Entry
	tracer   trace.Tracer
}

// NewService создаёт координатор заказов.
func NewService(txm domain.TxManager, reader domain.OrderReader, ids domain.OrderIDGenerator, options ...Option) *Service {
	opts := ServiceOptions{Retry: DefaultRetryConfig()}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "order-service")
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Notifier == nil {
		opts.Notifier = noopNotifier{}
	}

	return &Service{
		txm:      txm,
		reader:   reader,
		ids:      ids,
		ledger:   inventory.NewLedger(logger),
		notifier: opts.Notifier,
		cache:    opts.Cache,
		metrics:  opts.Metrics,
		retry:    opts.Retry.normalized(),
		now:      opts.Clock,
		logger:   logger,
		tracer:   otel.Tracer("ordercore/order"),
	}
}

// CreateOrder проверяет запрос, списывает остатки под блокировками строк,
// сохраняет заказ с позициями одной транзакцией и только после фиксации
// отправляет уведомление о завершении.
func (s *Service) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (Snapshot, error) {
	started := s.now()

	if err := req.Validate(); err != nil {
		s.reject(req.CustomerID, err)
		return Snapshot{}, err
	}

	ctx, span := s.tracer.Start(ctx, "order.create", trace.WithAttributes(
		attribute.Int64("customer.id", req.CustomerID),
		attribute.Int("order.lines", len(req.Items)),
	))
	defer span.End()

	s.metrics.TxStarted()
	defer s.metrics.TxFinished()

	var created domain.Order
	err := s.executeWithRetry(ctx, req.CustomerID, func() error {
		var err error
		created, err = s.createOnce(ctx, req)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create order")
		s.reject(req.CustomerID, err)
		return Snapshot{}, err
	}

	// Транзакция зафиксирована: заказ уже виден читателям.
	span.SetAttributes(attribute.String("order.id", created.OrderNumber))
	s.notifier.Notify(created.OrderNumber)

	var units int
	for _, item := range created.Items {
		units += int(item.Quantity)
	}
	s.metrics.RecordOrderCreated(units, s.now().Sub(started))

	s.cachePut(ctx, created)

	s.logger.WithFields(log.Fields{
		"order_id":    created.OrderNumber,
		"customer_id": created.Customer.ID,
		"total":       created.TotalCents.String(),
		"lines":       len(created.Items),
	}).Info("order created")

	return SnapshotFromOrder(created), nil
}

// createOnce выполняет одну попытку транзакции. При любой ошибке до Commit
// транзакция откатывается, блокировки снимаются, уведомление не отправляется.
func (s *Service) createOnce(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
	tx, err := s.txm.Begin(ctx)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			s.logger.WithError(rbErr).Warn("rollback failed")
		}
	}()

	customer, err := tx.GetCustomer(ctx, req.CustomerID)
	if err != nil {
		return domain.Order{}, err
	}
	if len(req.Items) == 0 {
		return domain.Order{}, domain.ErrEmptyOrder
	}

	// Блокируем строки в порядке возрастания id: конкурирующие заказы с
	// пересекающимися товарами берут блокировки в одном порядке.
	productIDs := distinctSorted(req.Items)
	for _, id := range productIDs {
		if _, err := tx.LockProduct(ctx, id); err != nil {
			return domain.Order{}, err
		}
	}

	// Позиции проверяются и списываются в порядке запроса; повторные строки
	// одного товара видят уже уменьшенный остаток.
	products := make(map[int64]*domain.Product, len(productIDs))
	for _, line := range req.Items {
		product, err := s.ledger.ReserveAndDecrement(ctx, tx, line.ProductID, line.Quantity)
		if err != nil {
			return domain.Order{}, err
		}
		products[product.ID] = product
	}

	orderNumber, err := s.ids.Next(ctx)
	if err != nil {
		return domain.Order{}, fmt.Errorf("generate order id: %w", err)
	}

	// TIMESTAMPTZ хранит микросекунды: снимок при создании должен совпадать с прочитанным.
	createdAt := s.now().UTC().Truncate(time.Microsecond)
	order := buildOrder(orderNumber, customer, req.Items, products, createdAt)
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, fmt.Errorf("order %s violates invariants: %w", orderNumber, errors.Join(errs...))
	}

	if err := s.persist(ctx, tx, &order, productIDs, products); err != nil {
		return domain.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, fmt.Errorf("commit order %s: %w", orderNumber, err)
	}
	committed = true

	return order, nil
}

func (s *Service) persist(ctx context.Context, tx domain.Tx, order *domain.Order, productIDs []int64, products map[int64]*domain.Product) error {
	ctx, span := s.tracer.Start(ctx, "order.persist", trace.WithAttributes(
		attribute.String("order.id", order.OrderNumber),
	))
	defer span.End()

	for _, id := range productIDs {
		if err := tx.SaveProduct(ctx, products[id]); err != nil {
			span.RecordError(err)
			return fmt.Errorf("save product %d: %w", id, err)
		}
	}
	if err := tx.InsertOrder(ctx, order); err != nil {
		span.RecordError(err)
		return fmt.Errorf("insert order %s: %w", order.OrderNumber, err)
	}
	return nil
}

// buildOrder фиксирует цены на момент оформления и считает суммы.
func buildOrder(number string, customer domain.Customer, lines []domain.LineRequest, products map[int64]*domain.Product, createdAt time.Time) domain.Order {
	items := make([]domain.OrderItem, 0, len(lines))
	lineTotals := make([]money.Cents, 0, len(lines))
	for _, line := range lines {
		product := products[line.ProductID]
		lineTotal := product.PriceCents.Mul(line.Quantity)
		items = append(items, domain.OrderItem{
			ProductID:       product.ID,
			ProductName:     product.Name,
			Quantity:        line.Quantity,
			UnitPriceCents:  product.PriceCents,
			TotalPriceCents: lineTotal,
		})
		lineTotals = append(lineTotals, lineTotal)
	}

	subtotal := money.Sum(lineTotals...)
	tax := subtotal.Tax(money.TaxRate)
	return domain.Order{
		OrderNumber:   number,
		Customer:      customer,
		Status:        domain.OrderStatusCompleted,
		SubtotalCents: subtotal,
		TaxCents:      tax,
		TotalCents:    subtotal.Add(tax),
		CreatedAt:     createdAt,
		Items:         items,
	}
}

// GetOrder возвращает сохранённый заказ по номеру.
func (s *Service) GetOrder(ctx context.Context, orderID string) (Snapshot, error) {
	if orderID == "" {
		return Snapshot{}, domain.OrderNotFound(orderID)
	}

	ctx, span := s.tracer.Start(ctx, "order.get", trace.WithAttributes(
		attribute.String("order.id", orderID),
	))
	defer span.End()

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, orderID)
		if err != nil {
			s.logger.WithError(err).WithField("order_id", orderID).Warn("order cache read failed")
		} else if ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return SnapshotFromOrder(cached), nil
		}
	}

	stored, err := s.reader.GetByOrderNumber(ctx, orderID)
	if err != nil {
		if !errors.Is(err, domain.ErrOrderNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "get order")
		}
		return Snapshot{}, err
	}

	s.cachePut(ctx, stored)
	return SnapshotFromOrder(stored), nil
}

func (s *Service) cachePut(ctx context.Context, o domain.Order) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, o); err != nil {
		s.logger.WithError(err).WithField("order_id", o.OrderNumber).Warn("order cache write failed")
	}
}

func (s *Service) reject(customerID int64, err error) {
	reason := RejectReason(err)
	s.metrics.RecordOrderRejected(reason)

	entry := s.logger.WithError(err).WithFields(log.Fields{
		"customer_id": customerID,
		"reason":      reason,
	})
	if domain.IsClientError(err) {
		entry.Info("order rejected")
		return
	}
	entry.Error("order creation failed")
}

// RejectReason сопоставляет ошибку с label причины отказа.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrEmptyOrder):
		return metrics.ReasonInvalidArgument
	case errors.Is(err, domain.ErrCustomerNotFound):
		return metrics.ReasonCustomerNotFound
	case errors.Is(err, domain.ErrProductNotFound):
		return metrics.ReasonProductNotFound
	case errors.Is(err, domain.ErrInsufficientInventory):
		return metrics.ReasonInsufficientInventory
	case errors.Is(err, domain.ErrPersistenceConflict):
		return metrics.ReasonConflict
	default:
		return metrics.ReasonInternal
	}
}

func distinctSorted(lines []domain.LineRequest) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type noopNotifier struct{}

func (noopNotifier) Notify(string) {}
