package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Причины отказа в создании заказа (значения label reason).
const (
	ReasonInvalidArgument       = "invalid_argument"
	ReasonCustomerNotFound      = "customer_not_found"
	ReasonProductNotFound       = "product_not_found"
	ReasonInsufficientInventory = "insufficient_inventory"
	ReasonConflict              = "conflict"
	ReasonInternal              = "internal"
)

// Результаты доставки уведомлений (значения label result).
const (
	NotifyDelivered = "delivered"
	NotifyFailed    = "failed"
	NotifyDropped   = "dropped"
)

// OrderMetrics содержит метрики создания заказов и уведомлений.
// Методы безопасно вызывать на nil-указателе.
type OrderMetrics struct {
	ordersCreated  prometheus.Counter
	ordersRejected *prometheus.CounterVec
	createDuration prometheus.Histogram
	unitsReserved  prometheus.Counter
	txRetries      prometheus.Counter
	inFlight       prometheus.Gauge

	notifications *prometheus.CounterVec
	notifyQueue   prometheus.Gauge
}

// NewOrderMetrics регистрирует метрики в prometheus.DefaultRegisterer.
func NewOrderMetrics() *OrderMetrics {
	return NewOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOrderMetricsWithRegisterer регистрирует метрики в переданном registerer.
func NewOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ordercore_orders_created_total",
			Help: "Total number of committed orders",
		}),
		ordersRejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "ordercore_orders_rejected_total",
			Help: "Total number of rejected order requests by reason",
		}, []string{"reason"}),
		createDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "ordercore_order_create_duration_seconds",
			Help:    "Duration of the order creation transaction in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		unitsReserved: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ordercore_inventory_units_reserved_total",
			Help: "Total number of inventory units decremented by committed orders",
		}),
		txRetries: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ordercore_order_tx_retries_total",
			Help: "Total number of retried order transactions after persistence conflicts",
		}),
		inFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "ordercore_orders_in_flight",
			Help: "Number of order transactions currently running",
		}),
		notifications: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "ordercore_completion_notifications_total",
			Help: "Completion notifications by delivery result",
		}, []string{"result"}),
		notifyQueue: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "ordercore_completion_queue_depth",
			Help: "Number of completion notifications waiting for delivery",
		}),
	}
}

// RecordOrderCreated учитывает зафиксированный заказ и списанные единицы.
func (m *OrderMetrics) RecordOrderCreated(units int, duration time.Duration) {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
	m.unitsReserved.Add(float64(units))
	m.createDuration.Observe(duration.Seconds())
}

// RecordOrderRejected учитывает отказ с указанной причиной.
func (m *OrderMetrics) RecordOrderRejected(reason string) {
	if m == nil {
		return
	}
	m.ordersRejected.WithLabelValues(reason).Inc()
}

// RecordTxRetry учитывает повтор транзакции.
func (m *OrderMetrics) RecordTxRetry() {
	if m == nil {
		return
	}
	m.txRetries.Inc()
}

// TxStarted увеличивает число активных транзакций.
func (m *OrderMetrics) TxStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// TxFinished уменьшает число активных транзакций.
func (m *OrderMetrics) TxFinished() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}

// RecordNotification учитывает результат доставки уведомления.
func (m *OrderMetrics) RecordNotification(result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(result).Inc()
}

// SetNotifyQueueDepth выставляет текущую глубину очереди уведомлений.
func (m *OrderMetrics) SetNotifyQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.notifyQueue.Set(float64(depth))
}
