package app

import (
	"context"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordercore/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/ordercore/internal/metrics"
	"github.com/vladislavdragonenkov/ordercore/internal/service/notify"
)

const kafkaClientID = "ordercore"

// initNotifier выбирает транспорт уведомлений и запускает диспетчер.
// Возвращаемая функция останавливает диспетчер и закрывает транспорт.
func initNotifier(cfg Config, m *metrics.OrderMetrics, logger *log.Entry) (*notify.Dispatcher, func(context.Context), error) {
	var (
		transport notify.Transport
		producer  *kafka.Producer
	)

	switch cfg.NotifyDriver {
	case NotifyDriverHTTP:
		transport = notify.NewHTTPCallback(cfg.NotifyCallbackURL, &http.Client{Timeout: cfg.NotifyTimeout})
	case NotifyDriverKafka:
		p, err := kafka.NewProducer(cfg.KafkaBrokers, kafkaClientID)
		if err != nil {
			return nil, nil, fmt.Errorf("init kafka notifier: %w", err)
		}
		producer = p
		transport = kafka.NewCompletionPublisher(producer, cfg.KafkaTopic)
		logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")
	default:
		transport = notify.NewLogTransport(logger.WithField("layer", "notify"))
	}

	dispatcher := notify.NewDispatcher(transport,
		notify.WithLogger(logger.WithField("layer", "notify")),
		notify.WithMetrics(m),
		notify.WithWorkers(cfg.NotifyWorkers),
		notify.WithQueueSize(cfg.NotifyQueueSize),
		notify.WithDeliveryTimeout(cfg.NotifyTimeout),
	)
	logger.WithField("transport", transport.Name()).Info("completion notifier started")

	shutdown := func(ctx context.Context) {
		if err := dispatcher.Close(ctx); err != nil {
			logger.WithError(err).Warn("completion notifier did not drain in time")
		}
		closeKafka(producer, logger)
	}
	return dispatcher, shutdown, nil
}

// closeKafka закрывает Kafka producer, если он был создан.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
		return
	}
	logger.Info("kafka producer closed")
}
