// Package notify доставляет уведомления о зафиксированных заказах внешнему
// получателю. Доставка best-effort: одна попытка, без повторов и без
// durable outbox. Повторную доставку выполняет cmd/notify-redeliver.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/ordercore/internal/domain"
	"github.com/vladislavdragonenkov/ordercore/internal/metrics"
)

const (
	defaultWorkers         = 4
	defaultQueueSize       = 1024
	defaultDeliveryTimeout = 5 * time.Second
)

// Transport доставляет событие получателю за одну попытку.
type Transport interface {
	Deliver(ctx context.Context, event domain.CompletionEvent) error
	Name() string
}

// DispatcherOptions задаёт параметры Dispatcher.
type DispatcherOptions struct {
	Logger          *log.Entry
	Metrics         *metrics.OrderMetrics
	Workers         int
	QueueSize       int
	DeliveryTimeout time.Duration
}

// Option настраивает Dispatcher.
type Option func(*DispatcherOptions)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *DispatcherOptions) {
		opts.Logger = logger
	}
}

// WithMetrics задаёт метрики доставки.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(opts *DispatcherOptions) {
		opts.Metrics = m
	}
}

// WithWorkers задаёт число горутин доставки.
func WithWorkers(n int) Option {
	return func(opts *DispatcherOptions) {
		opts.Workers = n
	}
}

// WithQueueSize задаёт ёмкость очереди. При переполнении уведомление теряется.
func WithQueueSize(n int) Option {
	return func(opts *DispatcherOptions) {
		opts.QueueSize = n
	}
}

// WithDeliveryTimeout ограничивает время одной попытки доставки.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(opts *DispatcherOptions) {
		opts.DeliveryTimeout = d
	}
}

// Dispatcher принимает номера заказов после фиксации и доставляет их в фоне.
type Dispatcher struct {
	transport Transport
	logger    *log.Entry
	metrics   *metrics.OrderMetrics
	timeout   time.Duration
	tracer    trace.Tracer

	mu     sync.RWMutex
	closed bool
	queue  chan string

	wg         sync.WaitGroup
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// NewDispatcher создаёт Dispatcher и запускает воркеры.
func NewDispatcher(transport Transport, options ...Option) *Dispatcher {
	opts := DispatcherOptions{
		Workers:         defaultWorkers,
		QueueSize:       defaultQueueSize,
		DeliveryTimeout: defaultDeliveryTimeout,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "completion-notifier")
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = defaultDeliveryTimeout
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		transport:  transport,
		logger:     logger.WithField("transport", transport.Name()),
		metrics:    opts.Metrics,
		timeout:    opts.DeliveryTimeout,
		tracer:     otel.Tracer("ordercore/notify"),
		queue:      make(chan string, opts.QueueSize),
		baseCtx:    baseCtx,
		cancelBase: cancel,
	}

	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

// Notify ставит уведомление в очередь и сразу возвращается.
func (d *Dispatcher) Notify(orderID string) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(orderID, "dispatcher is closed")
		return
	}

	select {
	case d.queue <- orderID:
		d.metrics.SetNotifyQueueDepth(len(d.queue))
	default:
		d.drop(orderID, "queue is full")
	}
}

// Close перестаёт принимать уведомления и дожидается доставки уже
// поставленных в очередь. Если ctx истекает раньше, незавершённые доставки
// отменяются.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancelBase()
		return nil
	case <-ctx.Done():
		d.cancelBase()
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for orderID := range d.queue {
		d.metrics.SetNotifyQueueDepth(len(d.queue))
		d.deliver(orderID)
	}
}

func (d *Dispatcher) deliver(orderID string) {
	ctx, cancel := context.WithTimeout(d.baseCtx, d.timeout)
	defer cancel()

	ctx, span := d.tracer.Start(ctx, "notify.deliver", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("notify.transport", d.transport.Name()),
	))
	defer span.End()

	err := d.transport.Deliver(ctx, domain.CompletionEvent{OrderID: orderID})
	if err != nil {
		err = fmt.Errorf("%w: order %s: %w", domain.ErrNotificationDelivery, orderID, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "deliver")
		d.metrics.RecordNotification(metrics.NotifyFailed)
		d.logger.WithError(err).WithField("order_id", orderID).Error("completion notification failed")
		return
	}

	d.metrics.RecordNotification(metrics.NotifyDelivered)
	d.logger.WithField("order_id", orderID).Debug("completion notification delivered")
}

func (d *Dispatcher) drop(orderID, reason string) {
	d.metrics.RecordNotification(metrics.NotifyDropped)
	d.logger.WithError(domain.ErrNotificationDelivery).WithFields(log.Fields{
		"order_id": orderID,
		"reason":   reason,
	}).Error("completion notification dropped")
}

var _ domain.CompletionNotifier = (*Dispatcher)(nil)
