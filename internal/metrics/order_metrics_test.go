package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()

	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	close(ch)

	m := &dto.Metric{}
	if err := (<-ch).Write(m); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	default:
		t.Fatal("unexpected metric type")
		return 0
	}
}

func TestNewOrderMetricsWithRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetricsWithRegisterer(reg)

	if m.ordersCreated == nil || m.ordersRejected == nil || m.createDuration == nil {
		t.Fatal("order collectors should not be nil")
	}
	if m.notifications == nil || m.notifyQueue == nil {
		t.Fatal("notification collectors should not be nil")
	}

	// Повторная регистрация возвращает уже существующие коллекторы.
	again := NewOrderMetricsWithRegisterer(reg)
	if again.ordersCreated != m.ordersCreated {
		t.Fatal("expected existing counter to be reused")
	}
	if again.ordersRejected != m.ordersRejected {
		t.Fatal("expected existing counter vec to be reused")
	}
}

func TestRecordOrderCreated(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetricsWithRegisterer(reg)

	m.RecordOrderCreated(3, 15*time.Millisecond)
	m.RecordOrderCreated(2, 5*time.Millisecond)

	if got := counterValue(t, m.ordersCreated); got != 2 {
		t.Fatalf("expected 2 created orders, got %v", got)
	}
	if got := counterValue(t, m.unitsReserved); got != 5 {
		t.Fatalf("expected 5 reserved units, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	var found bool
	for _, mf := range families {
		if mf.GetName() == "ordercore_order_create_duration_seconds" {
			found = true
			if count := mf.GetMetric()[0].GetHistogram().GetSampleCount(); count != 2 {
				t.Fatalf("expected 2 histogram samples, got %d", count)
			}
		}
	}
	if !found {
		t.Fatal("duration histogram not gathered")
	}
}

func TestRecordOrderRejectedAndNotifications(t *testing.T) {
	m := NewOrderMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordOrderRejected(ReasonInsufficientInventory)
	m.RecordOrderRejected(ReasonInsufficientInventory)
	m.RecordOrderRejected(ReasonConflict)
	m.RecordNotification(NotifyDelivered)
	m.RecordNotification(NotifyFailed)
	m.RecordTxRetry()

	if got := counterValue(t, m.ordersRejected.WithLabelValues(ReasonInsufficientInventory)); got != 2 {
		t.Fatalf("expected 2 insufficient rejections, got %v", got)
	}
	if got := counterValue(t, m.ordersRejected.WithLabelValues(ReasonConflict)); got != 1 {
		t.Fatalf("expected 1 conflict rejection, got %v", got)
	}
	if got := counterValue(t, m.notifications.WithLabelValues(NotifyFailed)); got != 1 {
		t.Fatalf("expected 1 failed notification, got %v", got)
	}
	if got := counterValue(t, m.txRetries); got != 1 {
		t.Fatalf("expected 1 retry, got %v", got)
	}
}

func TestGauges(t *testing.T) {
	m := NewOrderMetricsWithRegisterer(prometheus.NewRegistry())

	m.TxStarted()
	m.TxStarted()
	m.TxFinished()
	m.SetNotifyQueueDepth(7)

	if got := counterValue(t, m.inFlight); got != 1 {
		t.Fatalf("expected 1 in-flight tx, got %v", got)
	}
	if got := counterValue(t, m.notifyQueue); got != 7 {
		t.Fatalf("expected queue depth 7, got %v", got)
	}
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *OrderMetrics
	m.RecordOrderCreated(1, time.Millisecond)
	m.RecordOrderRejected(ReasonInternal)
	m.RecordTxRetry()
	m.TxStarted()
	m.TxFinished()
	m.RecordNotification(NotifyDropped)
	m.SetNotifyQueueDepth(1)
}
