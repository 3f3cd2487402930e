package app

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordercore/internal/metrics"
)

func TestInitNotifier_LogTransport(t *testing.T) {
	cfg := DefaultConfig()
	m := metrics.NewOrderMetricsWithRegisterer(prometheus.NewRegistry())

	dispatcher, stop, err := initNotifier(cfg, m, log.WithField("test", "notifier"))
	if err != nil {
		t.Fatalf("initNotifier(log) failed: %v", err)
	}
	dispatcher.Notify("ORD-2026-000001")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	stop(ctx)
}

func TestInitNotifier_HTTPTransport(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NotifyDriver = NotifyDriverHTTP
	cfg.NotifyCallbackURL = "http://127.0.0.1:1/callback"

	_, stop, err := initNotifier(cfg, nil, log.WithField("test", "notifier-http"))
	if err != nil {
		t.Fatalf("initNotifier(http) failed: %v", err)
	}
	stop(context.Background())
}

func TestInitNotifier_KafkaUnavailable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NotifyDriver = NotifyDriverKafka
	cfg.KafkaBrokers = []string{"127.0.0.1:1"}

	if _, _, err := initNotifier(cfg, nil, log.WithField("test", "notifier-kafka")); err == nil {
		t.Fatal("expected error for unreachable kafka brokers")
	}
}

func TestCloseKafka_Nil(t *testing.T) {
	closeKafka(nil, log.WithField("test", "kafka-close"))
}
